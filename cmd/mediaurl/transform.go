package main

import (
	"fmt"

	"github.com/forem/mediaurl/core/transformation"
)

type transformOutput struct {
	OK             bool   `json:"ok"`
	Transformation string `json:"transformation,omitempty"`
	HTMLWidth      string `json:"html_width,omitempty"`
	HTMLHeight     string `json:"html_height,omitempty"`
	Responsive     bool   `json:"responsive,omitempty"`
	HiDPI          bool   `json:"hidpi,omitempty"`
	failure
}

func runTransform(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Compile a JSON transformation options document (one step or a chain) into its URL component.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("options", "file"))

	var common commonFlags
	var inline string
	var path string
	flagSet := newFlagSet("transform", &common)
	flagSet.StringVar(&inline, "options", "", "inline options JSON")
	flagSet.StringVar(&path, "file", "", "options JSON file, - for stdin")

	if err := flagSet.Parse(arguments); err != nil {
		return writeTransformOutput(common.jsonOutput, transformOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printTransformUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeTransformError(common.jsonOutput, unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}

	data, err := readDocument(inline, path)
	if err != nil {
		return writeTransformError(common.jsonOutput, err, exitInvalidInput)
	}
	if len(data) == 0 {
		return writeTransformError(common.jsonOutput, missingArgument("--options or --file"), exitInvalidInput)
	}
	chain, err := parseOptions(data)
	if err != nil {
		return writeTransformError(common.jsonOutput, err, exitInvalidInput)
	}
	deliveryConfig, err := common.delivery()
	if err != nil {
		return writeTransformError(common.jsonOutput, err, exitConfigInvalid)
	}
	compiled, err := transformation.Compiler{ResponsiveWidth: deliveryConfig.ResponsiveWidth}.CompileChain(chain)
	if err != nil {
		return writeTransformError(common.jsonOutput, err, exitInvalidInput)
	}
	common.logger().Debug("compiled transformation", "steps", len(chain), "transformation", compiled.Transformation)
	return writeTransformOutput(common.jsonOutput, transformOutput{
		OK:             true,
		Transformation: compiled.Transformation,
		HTMLWidth:      compiled.HTMLWidth,
		HTMLHeight:     compiled.HTMLHeight,
		Responsive:     compiled.Responsive,
		HiDPI:          compiled.HiDPI,
	}, exitOK)
}

func writeTransformError(jsonOutput bool, err error, fallbackExit int) int {
	return writeTransformOutput(jsonOutput, transformOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeTransformOutput(jsonOutput bool, output transformOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Println(output.Transformation)
		return exitCode
	}
	fmt.Printf("transform error: %s\n", output.Error)
	return exitCode
}

func printTransformUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl transform (--options <json>|--file <path>) [--config mediaurl.yaml] [--json] [--explain]")
}
