package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forem/mediaurl/core/breakpoints"
	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/schema"
	"github.com/forem/mediaurl/core/schema/validate"
)

const (
	breakpointTimeout = 10 * time.Second
	// helpShown tells the caller usage was already printed.
	helpShown = -1
)

type breakpointsOutput struct {
	OK          bool   `json:"ok"`
	Breakpoints []int  `json:"breakpoints,omitempty"`
	Sizes       string `json:"sizes,omitempty"`
	SrcSet      string `json:"srcset,omitempty"`
	failure
}

// breakpointFlags are shared by the breakpoints and srcset commands.
type breakpointFlags struct {
	locator   delivery.Locator
	widths    string
	minWidth  int
	maxWidth  int
	maxImages int
	specPath  string
	inline    string
	chainPath string
}

func (b *breakpointFlags) register(flagSet *flag.FlagSet) {
	flagSet.StringVar(&b.locator.Format, "format", "", "file extension appended to the public id")
	flagSet.StringVar(&b.locator.Version, "version", "", "asset version")
	flagSet.StringVar(&b.locator.ResourceType, "resource-type", "", "image, video or raw")
	flagSet.StringVar(&b.locator.DeliveryType, "type", "", "delivery type")
	flagSet.StringVar(&b.widths, "widths", "", "explicit comma separated widths")
	flagSet.IntVar(&b.minWidth, "min-width", 0, "smallest width")
	flagSet.IntVar(&b.maxWidth, "max-width", 0, "largest width")
	flagSet.IntVar(&b.maxImages, "max-images", 0, "maximum number of widths")
	flagSet.StringVar(&b.specPath, "spec", "", "breakpoint spec JSON file")
	flagSet.StringVar(&b.inline, "transformation", "", "inline options JSON applied before scaling")
	flagSet.StringVar(&b.chainPath, "transformation-file", "", "options JSON file applied before scaling")
}

var breakpointValueFlags = []string{
	"format", "version", "resource-type", "type", "widths", "min-width", "max-width", "max-images",
	"spec", "transformation", "transformation-file",
}

func (b breakpointFlags) spec() (breakpoints.Spec, error) {
	if b.specPath != "" {
		data, err := readDocument("", b.specPath)
		if err != nil {
			return breakpoints.Spec{}, err
		}
		if err := validate.Document(schema.Breakpoint, data); err != nil {
			return breakpoints.Spec{}, err
		}
		var spec breakpoints.Spec
		if err := json.Unmarshal(data, &spec); err != nil {
			return breakpoints.Spec{}, invalidBreakpoints("decode breakpoint spec: %v", err)
		}
		return spec, nil
	}
	spec := breakpoints.Spec{MinWidth: b.minWidth, MaxWidth: b.maxWidth, MaxImages: b.maxImages}
	for _, field := range strings.Split(b.widths, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		width, err := strconv.Atoi(field)
		if err != nil {
			return breakpoints.Spec{}, invalidBreakpoints("width %q is not an integer", field)
		}
		spec.Widths = append(spec.Widths, width)
	}
	return spec, nil
}

func invalidBreakpoints(format string, args ...any) error {
	return coreerrors.Validation(breakpoints.ErrInvalidSpec, "invalid_breakpoints", format, args...)
}

// resolveBreakpoints runs the shared part of both commands and returns the
// widths plus the srcset built from them.
func resolveBreakpoints(name string, arguments []string) (commonFlags, breakpointsOutput, int) {
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags(breakpointValueFlags...))

	var common commonFlags
	var flags breakpointFlags
	flagSet := newFlagSet(name, &common)
	flags.register(flagSet)

	if err := flagSet.Parse(arguments); err != nil {
		return common, breakpointsOutput{failure: failureText(err.Error())}, exitInvalidInput
	}
	if common.helpFlag {
		printBreakpointsUsage()
		return common, breakpointsOutput{OK: true}, helpShown
	}
	switch len(flagSet.Args()) {
	case 0:
		return common, breakpointsFailure(missingArgument("<public_id>")), exitInvalidInput
	case 1:
		flags.locator.PublicID = flagSet.Args()[0]
	default:
		return common, breakpointsFailure(unexpectedArguments(flagSet.Args()[1:])), exitInvalidInput
	}

	spec, err := flags.spec()
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitInvalidInput)
	}
	data, err := readDocument(flags.inline, flags.chainPath)
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitInvalidInput)
	}
	chain, err := parseOptions(data)
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitInvalidInput)
	}
	settings, err := common.settings()
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitConfigInvalid)
	}
	deliveryConfig, err := settings.Delivery()
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitConfigInvalid)
	}

	logger := common.logger()
	engine, closeEngine, err := openEngine(settings, logger)
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitConfigInvalid)
	}
	defer closeEngine()

	ctx, cancel := context.WithTimeout(context.Background(), breakpointTimeout)
	defer cancel()
	srcset, widths, err := engine.SrcSet(ctx, deliveryConfig, flags.locator, chain, spec)
	if err != nil {
		return common, breakpointsFailure(err), exitCodeForError(err, exitInvalidInput)
	}
	return common, breakpointsOutput{
		OK:          true,
		Breakpoints: widths,
		Sizes:       breakpoints.Sizes(widths),
		SrcSet:      srcset,
	}, exitOK
}

func breakpointsFailure(err error) breakpointsOutput {
	return breakpointsOutput{failure: failureFrom(err)}
}

func runBreakpoints(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Compute responsive breakpoint widths for an asset, using the configured breakpoint cache.")
	}
	common, output, exitCode := resolveBreakpoints("breakpoints", arguments)
	if exitCode == helpShown {
		return exitOK
	}
	if common.jsonOutput {
		output.SrcSet = ""
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("breakpoints error: %s\n", output.Error)
		return exitCode
	}
	parts := make([]string, 0, len(output.Breakpoints))
	for _, width := range output.Breakpoints {
		parts = append(parts, strconv.Itoa(width))
	}
	fmt.Println(strings.Join(parts, ","))
	return exitCode
}

func runSrcSet(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Build srcset and sizes attribute values with one scaled URL per breakpoint width.")
	}
	common, output, exitCode := resolveBreakpoints("srcset", arguments)
	if exitCode == helpShown {
		return exitOK
	}
	if common.jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("srcset error: %s\n", output.Error)
		return exitCode
	}
	fmt.Printf("srcset=%q\n", output.SrcSet)
	fmt.Printf("sizes=%q\n", output.Sizes)
	return exitCode
}

func printBreakpointsUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl breakpoints <public_id> (--widths 100,200|--min-width <n> --max-width <n> --max-images <n>|--spec <file>) [--transformation <json>] [--json] [--explain]")
	fmt.Println("  mediaurl srcset <public_id> (--widths 100,200|--min-width <n> --max-width <n> --max-images <n>|--spec <file>) [--transformation <json>] [--json] [--explain]")
}
