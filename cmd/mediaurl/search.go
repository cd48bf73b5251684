package main

import (
	"fmt"
	"time"

	"github.com/forem/mediaurl/core/schema"
	"github.com/forem/mediaurl/core/schema/validate"
	"github.com/forem/mediaurl/core/search"
)

type searchOutput struct {
	OK     bool               `json:"ok"`
	URL    string             `json:"url,omitempty"`
	Signed *search.SignedBody `json:"signed,omitempty"`
	Query  string             `json:"query,omitempty"`
	failure
}

func runSearchURL(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Build a signed, cacheable search URL from a JSON query document.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("query", "query-file", "ttl", "cursor"))

	var common commonFlags
	var inline string
	var path string
	var ttl int
	var cursor string
	var signedBody bool
	flagSet := newFlagSet("search-url", &common)
	flagSet.StringVar(&inline, "query", "", "inline search query JSON")
	flagSet.StringVar(&path, "query-file", "", "search query JSON file, - for stdin")
	flagSet.IntVar(&ttl, "ttl", 0, "URL cache lifetime in seconds")
	flagSet.StringVar(&cursor, "cursor", "", "next_cursor of the page to fetch")
	flagSet.BoolVar(&signedBody, "signed-body", false, "also emit a signed POST body")

	if err := flagSet.Parse(arguments); err != nil {
		return writeSearchOutput(common.jsonOutput, searchOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printSearchUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeSearchError(common.jsonOutput, unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}

	data, err := readDocument(inline, path)
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitInvalidInput)
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := validate.Document(schema.Search, data); err != nil {
		return writeSearchError(common.jsonOutput, err, exitInvalidInput)
	}
	builder, err := search.Parse(data)
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitInvalidInput)
	}
	settings, err := common.settings()
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitConfigInvalid)
	}
	deliveryConfig, err := settings.Delivery()
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitConfigInvalid)
	}
	built, err := builder.ToURL(deliveryConfig, ttl, cursor)
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitConfigInvalid)
	}
	query, err := builder.JSON()
	if err != nil {
		return writeSearchError(common.jsonOutput, err, exitInternalFailure)
	}
	output := searchOutput{OK: true, URL: built, Query: string(query)}
	if signedBody {
		signing, err := settings.Signing()
		if err != nil {
			return writeSearchError(common.jsonOutput, err, exitConfigInvalid)
		}
		body, err := builder.Signed(signing, time.Now().UTC())
		if err != nil {
			return writeSearchError(common.jsonOutput, err, exitConfigInvalid)
		}
		output.Signed = &body
	}
	return writeSearchOutput(common.jsonOutput, output, exitOK)
}

func writeSearchError(jsonOutput bool, err error, fallbackExit int) int {
	return writeSearchOutput(jsonOutput, searchOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeSearchOutput(jsonOutput bool, output searchOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Println(output.URL)
		if output.Signed != nil {
			fmt.Printf("signature=%s timestamp=%d\n", output.Signed.Signature, output.Signed.Timestamp)
		}
		return exitCode
	}
	fmt.Printf("search-url error: %s\n", output.Error)
	return exitCode
}

func printSearchUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl search-url [--query <json>|--query-file <path>] [--ttl <s>] [--cursor <c>] [--signed-body] [--json] [--explain]")
}
