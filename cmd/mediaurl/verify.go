package main

import (
	"errors"
	"fmt"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/sign"
)

var errSignatureMismatch = errors.New("signature mismatch")

type verifyOutput struct {
	OK       bool   `json:"ok"`
	Kind     string `json:"kind,omitempty"`
	Verified bool   `json:"verified"`
	failure
}

func runVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Verify signatures on API responses and webhook notifications.")
	}
	if len(arguments) == 0 {
		printVerifyUsage()
		return exitInvalidInput
	}
	switch arguments[0] {
	case "--help", "-h":
		printVerifyUsage()
		return exitOK
	case "response":
		return runVerifyResponse(arguments[1:])
	case "notification":
		return runVerifyNotification(arguments[1:])
	default:
		printVerifyUsage()
		return exitInvalidInput
	}
}

func runVerifyResponse(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Check the signature returned with an upload response against public_id and version.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("public-id", "version", "signature"))

	var common commonFlags
	var publicID string
	var version int64
	var signature string
	flagSet := newFlagSet("verify-response", &common)
	flagSet.StringVar(&publicID, "public-id", "", "asset public id")
	flagSet.Int64Var(&version, "version", 0, "asset version")
	flagSet.StringVar(&signature, "signature", "", "signature to check")

	if err := flagSet.Parse(arguments); err != nil {
		return writeVerifyOutput(common.jsonOutput, verifyOutput{Kind: "response", failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printVerifyUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeVerifyError(common.jsonOutput, "response", unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}
	if publicID == "" || signature == "" {
		return writeVerifyError(common.jsonOutput, "response", missingArgument("--public-id and --signature"), exitInvalidInput)
	}
	signing, err := signingContext(common)
	if err != nil {
		return writeVerifyError(common.jsonOutput, "response", err, exitConfigInvalid)
	}
	if !sign.VerifyAPIResponse(publicID, version, signature, signing) {
		return writeVerifyError(common.jsonOutput, "response", mismatch("response signature does not match public_id and version"), exitVerifyFailed)
	}
	return writeVerifyOutput(common.jsonOutput, verifyOutput{OK: true, Kind: "response", Verified: true}, exitOK)
}

func runVerifyNotification(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Check a webhook body signed with its timestamp and reject stale timestamps.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags("body", "timestamp", "signature", "valid-for"))

	var common commonFlags
	var bodyPath string
	var timestamp int64
	var signature string
	var validFor time.Duration
	flagSet := newFlagSet("verify-notification", &common)
	flagSet.StringVar(&bodyPath, "body", "", "notification body file, - for stdin")
	flagSet.Int64Var(&timestamp, "timestamp", 0, "X-Cld-Timestamp header value")
	flagSet.StringVar(&signature, "signature", "", "X-Cld-Signature header value")
	flagSet.DurationVar(&validFor, "valid-for", sign.DefaultNotificationWindow, "maximum notification age")

	if err := flagSet.Parse(arguments); err != nil {
		return writeVerifyOutput(common.jsonOutput, verifyOutput{Kind: "notification", failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printVerifyUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeVerifyError(common.jsonOutput, "notification", unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}
	if bodyPath == "" || timestamp == 0 || signature == "" {
		return writeVerifyError(common.jsonOutput, "notification", missingArgument("--body, --timestamp and --signature"), exitInvalidInput)
	}
	body, err := readDocument("", bodyPath)
	if err != nil {
		return writeVerifyError(common.jsonOutput, "notification", err, exitInvalidInput)
	}
	signing, err := signingContext(common)
	if err != nil {
		return writeVerifyError(common.jsonOutput, "notification", err, exitConfigInvalid)
	}
	if !sign.VerifyNotification(string(body), timestamp, signature, signing, validFor, time.Now()) {
		return writeVerifyError(common.jsonOutput, "notification", mismatch("notification signature does not match or timestamp expired"), exitVerifyFailed)
	}
	return writeVerifyOutput(common.jsonOutput, verifyOutput{OK: true, Kind: "notification", Verified: true}, exitOK)
}

func signingContext(common commonFlags) (sign.Context, error) {
	settings, err := common.settings()
	if err != nil {
		return sign.Context{}, err
	}
	signing, err := settings.Signing()
	if err != nil {
		return sign.Context{}, err
	}
	if signing.Secret == "" {
		return sign.Context{}, coreerrors.Configuration(sign.ErrMissingSecret, "missing_api_secret", "api secret is required to verify signatures")
	}
	return signing, nil
}

func mismatch(message string) error {
	return coreerrors.Wrap(fmt.Errorf("%w: %s", errSignatureMismatch, message), coreerrors.CategoryVerification, "signature_mismatch", "confirm the secret and the signed payload match the sender", false)
}

func writeVerifyError(jsonOutput bool, kind string, err error, fallbackExit int) int {
	return writeVerifyOutput(jsonOutput, verifyOutput{Kind: kind, failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeVerifyOutput(jsonOutput bool, output verifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("verify %s ok\n", output.Kind)
		return exitCode
	}
	fmt.Printf("verify %s error: %s\n", output.Kind, output.Error)
	return exitCode
}

func printVerifyUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl verify response --public-id <id> --version <n> --signature <sig> [--json] [--explain]")
	fmt.Println("  mediaurl verify notification --body <file> --timestamp <unix> --signature <sig> [--valid-for 2h] [--json] [--explain]")
}
