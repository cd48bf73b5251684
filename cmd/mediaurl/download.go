package main

import (
	"fmt"

	"github.com/forem/mediaurl/core/delivery"
)

type downloadOutput struct {
	OK  bool   `json:"ok"`
	URL string `json:"url,omitempty"`
	failure
}

func runDownloadURL(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Build a signed API URL that downloads a private or authenticated asset.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("format", "resource-type", "type", "expires-at"))

	var common commonFlags
	var format string
	var options delivery.DownloadOptions
	flagSet := newFlagSet("download-url", &common)
	flagSet.StringVar(&format, "format", "", "file extension to download")
	flagSet.StringVar(&options.ResourceType, "resource-type", "", "image, video or raw")
	flagSet.StringVar(&options.DeliveryType, "type", "", "delivery type such as private or authenticated")
	flagSet.BoolVar(&options.Attachment, "attachment", false, "force an attachment disposition")
	flagSet.Int64Var(&options.ExpiresAt, "expires-at", 0, "unix time after which the URL stops working")

	if err := flagSet.Parse(arguments); err != nil {
		return writeDownloadOutput(common.jsonOutput, downloadOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printDownloadUsage()
		return exitOK
	}
	var publicID string
	switch len(flagSet.Args()) {
	case 0:
		return writeDownloadError(common.jsonOutput, missingArgument("<public_id>"), exitInvalidInput)
	case 1:
		publicID = flagSet.Args()[0]
	default:
		return writeDownloadError(common.jsonOutput, unexpectedArguments(flagSet.Args()[1:]), exitInvalidInput)
	}

	deliveryConfig, err := common.delivery()
	if err != nil {
		return writeDownloadError(common.jsonOutput, err, exitConfigInvalid)
	}
	built, err := delivery.PrivateDownloadURL(deliveryConfig, publicID, format, options)
	if err != nil {
		return writeDownloadError(common.jsonOutput, err, exitConfigInvalid)
	}
	return writeDownloadOutput(common.jsonOutput, downloadOutput{OK: true, URL: built}, exitOK)
}

func writeDownloadError(jsonOutput bool, err error, fallbackExit int) int {
	return writeDownloadOutput(jsonOutput, downloadOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeDownloadOutput(jsonOutput bool, output downloadOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Println(output.URL)
		return exitCode
	}
	fmt.Printf("download-url error: %s\n", output.Error)
	return exitCode
}

func printDownloadUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl download-url <public_id> [--format <ext>] [--resource-type <rt>] [--type <type>] [--attachment] [--expires-at <unix>] [--json] [--explain]")
}
