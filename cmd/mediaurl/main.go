package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forem/mediaurl/core/metrics"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	startedAt := time.Now()
	setCurrentCorrelationID(newCorrelationID(arguments))
	setMetricsTextfile("")
	exitCode := runDispatch(arguments)
	metrics.RecordCommand(normalizeCommand(arguments), exitCode, time.Since(startedAt))
	if path := currentMetricsTextfile(); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			fmt.Fprintf(os.Stderr, "mediaurl warning: metrics textfile write failed: %v\n", err)
		}
	}
	setMetricsTextfile("")
	setCurrentCorrelationID("")
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		fmt.Println("mediaurl", version)
		return exitOK
	}
	if arguments[1] == "--explain" {
		return writeExplain("mediaurl builds, signs and verifies media delivery URLs, access tokens, responsive breakpoints and search URLs offline.")
	}

	switch arguments[1] {
	case "transform":
		return runTransform(arguments[2:])
	case "url":
		return runURL(arguments[2:])
	case "token":
		return runToken(arguments[2:])
	case "sign":
		return runSign(arguments[2:])
	case "verify":
		return runVerify(arguments[2:])
	case "breakpoints":
		return runBreakpoints(arguments[2:])
	case "srcset":
		return runSrcSet(arguments[2:])
	case "search-url":
		return runSearchURL(arguments[2:])
	case "download-url":
		return runDownloadURL(arguments[2:])
	case "version", "--version", "-v":
		if hasExplainFlag(arguments[2:]) {
			return writeExplain("Print the CLI version.")
		}
		fmt.Println("mediaurl", version)
		return exitOK
	case "--help", "-h", "help":
		printUsage()
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func normalizeCommand(arguments []string) string {
	if len(arguments) < 2 {
		return "version"
	}
	command := strings.TrimSpace(arguments[1])
	switch command {
	case "":
		return "unknown"
	case "--version", "-v", "version":
		return "version"
	case "--explain":
		return "explain"
	case "verify":
		if len(arguments) > 2 {
			subcommand := strings.TrimSpace(arguments[2])
			if subcommand != "" && !strings.HasPrefix(subcommand, "-") {
				return command + " " + subcommand
			}
		}
		return command
	case "transform", "url", "token", "sign", "breakpoints", "srcset", "search-url", "download-url":
		return command
	default:
		return "unknown"
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl transform (--options <json>|--file <path>) [--json] [--explain]")
	fmt.Println("  mediaurl url <public_id> [--format <ext>] [--version <v>] [--resource-type image|video|raw] [--type <type>] [--suffix <slug>] [--transformation <json>] [--sign] [--json] [--explain]")
	fmt.Println("  mediaurl url --batch <requests.jsonl> [--json]")
	fmt.Println("  mediaurl token (--acl <path>|--url <path>) [--duration <s>|--expiration <unix>] [--start <unix>|--start-now] [--ip <addr>] [--request <file>] [--json]")
	fmt.Println("  mediaurl sign --params <json> [--json]")
	fmt.Println("  mediaurl verify response --public-id <id> --version <n> --signature <sig> [--json]")
	fmt.Println("  mediaurl verify notification --body <file> --timestamp <unix> --signature <sig> [--valid-for 2h] [--json]")
	fmt.Println("  mediaurl breakpoints <public_id> (--widths 100,200|--min-width <n> --max-width <n> --max-images <n>) [--transformation <json>] [--json]")
	fmt.Println("  mediaurl srcset <public_id> (--widths 100,200|--min-width <n> --max-width <n> --max-images <n>) [--transformation <json>] [--json]")
	fmt.Println("  mediaurl search-url --query <file> [--ttl <s>] [--cursor <c>] [--json]")
	fmt.Println("  mediaurl download-url <public_id> --format <ext> [--attachment] [--expires-at <unix>] [--json]")
	fmt.Println("  mediaurl version")
	fmt.Println("Common flags: --config mediaurl.yaml --env-file .env --metrics-textfile <path> --verbose")
}
