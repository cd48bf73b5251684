package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/schema"
	"github.com/forem/mediaurl/core/schema/validate"
	"github.com/forem/mediaurl/core/transformation"
)

type urlOutput struct {
	OK         bool     `json:"ok"`
	URL        string   `json:"url,omitempty"`
	URLs       []string `json:"urls,omitempty"`
	HTMLWidth  string   `json:"html_width,omitempty"`
	HTMLHeight string   `json:"html_height,omitempty"`
	Responsive bool     `json:"responsive,omitempty"`
	failure
}

// urlRequest is one line of a --batch file.
type urlRequest struct {
	PublicID       string          `json:"public_id"`
	Format         string          `json:"format"`
	Version        json.RawMessage `json:"version"`
	ResourceType   string          `json:"resource_type"`
	DeliveryType   string          `json:"type"`
	URLSuffix      string          `json:"url_suffix"`
	Transformation json.RawMessage `json:"transformation"`
}

func (r urlRequest) locator() delivery.Locator {
	version := strings.Trim(strings.TrimSpace(string(r.Version)), `"`)
	if version == "null" {
		version = ""
	}
	return delivery.Locator{
		PublicID:     r.PublicID,
		Version:      version,
		Format:       r.Format,
		ResourceType: r.ResourceType,
		DeliveryType: r.DeliveryType,
		URLSuffix:    r.URLSuffix,
	}
}

func runURL(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Build a delivery URL for a stored or remote asset, optionally signed or token protected.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags(
		"format", "version", "resource-type", "type", "suffix", "transformation", "transformation-file", "batch",
	))

	var common commonFlags
	var locator delivery.Locator
	var inline string
	var path string
	var batchPath string
	var signURL bool
	var longSignature bool
	flagSet := newFlagSet("url", &common)
	flagSet.StringVar(&locator.Format, "format", "", "file extension appended to the public id")
	flagSet.StringVar(&locator.Version, "version", "", "asset version")
	flagSet.StringVar(&locator.ResourceType, "resource-type", "", "image, video or raw")
	flagSet.StringVar(&locator.DeliveryType, "type", "", "delivery type such as upload, fetch or private")
	flagSet.StringVar(&locator.URLSuffix, "suffix", "", "SEO suffix appended to the public id")
	flagSet.StringVar(&inline, "transformation", "", "inline options JSON")
	flagSet.StringVar(&path, "transformation-file", "", "options JSON file")
	flagSet.StringVar(&batchPath, "batch", "", "JSONL file of url requests, - for stdin")
	flagSet.BoolVar(&signURL, "sign", false, "sign the URL even when sign_url is off")
	flagSet.BoolVar(&longSignature, "long-signature", false, "use the 32 character sha256 signature")

	if err := flagSet.Parse(arguments); err != nil {
		return writeURLOutput(common.jsonOutput, urlOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printURLUsage()
		return exitOK
	}

	deliveryConfig, err := common.delivery()
	if err != nil {
		return writeURLError(common.jsonOutput, err, exitConfigInvalid)
	}
	deliveryConfig.SignURL = deliveryConfig.SignURL || signURL
	deliveryConfig.LongURLSignature = deliveryConfig.LongURLSignature || longSignature
	logger := common.logger()

	if batchPath != "" {
		if len(flagSet.Args()) > 0 {
			return writeURLError(common.jsonOutput, unexpectedArguments(flagSet.Args()), exitInvalidInput)
		}
		urls, err := buildBatch(deliveryConfig, batchPath)
		if err != nil {
			return writeURLError(common.jsonOutput, err, exitInvalidInput)
		}
		logger.Debug("built batch", "count", len(urls))
		return writeURLOutput(common.jsonOutput, urlOutput{OK: true, URLs: urls}, exitOK)
	}

	switch len(flagSet.Args()) {
	case 0:
		return writeURLError(common.jsonOutput, missingArgument("<public_id>"), exitInvalidInput)
	case 1:
		locator.PublicID = flagSet.Args()[0]
	default:
		return writeURLError(common.jsonOutput, unexpectedArguments(flagSet.Args()[1:]), exitInvalidInput)
	}
	data, err := readDocument(inline, path)
	if err != nil {
		return writeURLError(common.jsonOutput, err, exitInvalidInput)
	}
	chain, err := parseOptions(data)
	if err != nil {
		return writeURLError(common.jsonOutput, err, exitInvalidInput)
	}
	result, err := delivery.Build(deliveryConfig, locator, chain)
	if err != nil {
		return writeURLError(common.jsonOutput, err, exitInvalidInput)
	}
	logger.Debug("built url", "public_id", locator.PublicID, "signed", deliveryConfig.SignURL)
	return writeURLOutput(common.jsonOutput, urlOutput{
		OK:         true,
		URL:        result.URL,
		HTMLWidth:  result.Compiled.HTMLWidth,
		HTMLHeight: result.Compiled.HTMLHeight,
		Responsive: result.Compiled.Responsive,
	}, exitOK)
}

// buildBatch validates the whole file before building any URL so a bad line
// never yields partial output.
func buildBatch(config delivery.Config, path string) ([]string, error) {
	data, err := readDocument("", path)
	if err != nil {
		return nil, err
	}
	if err := validate.DocumentLines(schema.URLRequest, data); err != nil {
		return nil, err
	}
	urls := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var request urlRequest
		if err := json.Unmarshal(raw, &request); err != nil {
			return nil, batchError(line, err)
		}
		var chain []transformation.Options
		if len(request.Transformation) > 0 {
			chain, err = transformation.ParseChain(request.Transformation)
			if err != nil {
				return nil, batchError(line, err)
			}
		}
		built, err := delivery.URL(config, request.locator(), chain...)
		if err != nil {
			return nil, batchError(line, err)
		}
		urls = append(urls, built)
	}
	if err := scanner.Err(); err != nil {
		return nil, batchError(line, err)
	}
	return urls, nil
}

func batchError(line int, err error) error {
	if coreerrors.CategoryOf(err) != "" {
		return coreerrors.Wrap(fmt.Errorf("line %d: %w", line, err), coreerrors.CategoryOf(err), coreerrors.CodeOf(err), coreerrors.HintOf(err), false)
	}
	return coreerrors.Wrap(fmt.Errorf("line %d: %w", line, err), coreerrors.CategoryInvalidInput, "invalid_batch", "check the url request lines", false)
}

func writeURLError(jsonOutput bool, err error, fallbackExit int) int {
	return writeURLOutput(jsonOutput, urlOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeURLOutput(jsonOutput bool, output urlOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		if output.URL != "" {
			fmt.Println(output.URL)
		}
		for _, built := range output.URLs {
			fmt.Println(built)
		}
		return exitCode
	}
	fmt.Printf("url error: %s\n", output.Error)
	return exitCode
}

func printURLUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl url <public_id> [--format <ext>] [--version <v>] [--resource-type image|video|raw] [--type <type>] [--suffix <slug>] [--transformation <json>|--transformation-file <path>] [--sign] [--long-signature] [--json] [--explain]")
	fmt.Println("  mediaurl url --batch <requests.jsonl> [--json]")
}
