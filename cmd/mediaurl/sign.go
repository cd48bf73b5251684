package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/sign"
)

type signOutput struct {
	OK           bool           `json:"ok"`
	StringToSign string         `json:"string_to_sign,omitempty"`
	Signature    string         `json:"signature,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	failure
}

// decodeParams keeps numbers in their literal form so the signing string
// matches what the caller sent.
func decodeParams(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	params := map[string]any{}
	if err := decoder.Decode(&params); err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("decode params: %w", err), coreerrors.CategoryInvalidInput, "invalid_params", "pass a JSON object of request parameters", false)
	}
	return params, nil
}

func runSign(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Sign API request parameters with the configured secret and append signature and api_key.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("params", "params-file"))

	var common commonFlags
	var inline string
	var path string
	flagSet := newFlagSet("sign", &common)
	flagSet.StringVar(&inline, "params", "", "inline JSON object of request parameters")
	flagSet.StringVar(&path, "params-file", "", "JSON file of request parameters, - for stdin")

	if err := flagSet.Parse(arguments); err != nil {
		return writeSignOutput(common.jsonOutput, signOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printSignUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeSignError(common.jsonOutput, unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}

	data, err := readDocument(inline, path)
	if err != nil {
		return writeSignError(common.jsonOutput, err, exitInvalidInput)
	}
	if len(data) == 0 {
		return writeSignError(common.jsonOutput, missingArgument("--params or --params-file"), exitInvalidInput)
	}
	params, err := decodeParams(data)
	if err != nil {
		return writeSignError(common.jsonOutput, err, exitInvalidInput)
	}
	settings, err := common.settings()
	if err != nil {
		return writeSignError(common.jsonOutput, err, exitConfigInvalid)
	}
	signing, err := settings.Signing()
	if err != nil {
		return writeSignError(common.jsonOutput, err, exitConfigInvalid)
	}
	signed, err := sign.SignRequest(params, signing)
	if err != nil {
		return writeSignError(common.jsonOutput, err, exitConfigInvalid)
	}
	metrics.RecordSignature("api")
	unsigned := make(map[string]any, len(signed))
	for key, value := range signed {
		if key != "signature" && key != "api_key" {
			unsigned[key] = value
		}
	}
	return writeSignOutput(common.jsonOutput, signOutput{
		OK:           true,
		StringToSign: sign.StringToSign(unsigned),
		Signature:    sign.Stringify(signed["signature"]),
		Params:       signed,
	}, exitOK)
}

func writeSignError(jsonOutput bool, err error, fallbackExit int) int {
	return writeSignOutput(jsonOutput, signOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeSignOutput(jsonOutput bool, output signOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Println(output.Signature)
		return exitCode
	}
	fmt.Printf("sign error: %s\n", output.Error)
	return exitCode
}

func printSignUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl sign (--params <json>|--params-file <path>) [--json] [--explain]")
}
