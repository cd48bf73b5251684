package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forem/mediaurl/core/authtoken"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/schema"
	"github.com/forem/mediaurl/core/schema/validate"
)

type tokenOutput struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	failure
}

// tokenRequest is the JSON form of a token spec. start may be "now" and acl
// may be a single path.
type tokenRequest struct {
	Key        string          `json:"key"`
	TokenName  string          `json:"token_name"`
	IP         string          `json:"ip"`
	Start      json.RawMessage `json:"start"`
	Expiration int64           `json:"expiration"`
	Duration   int64           `json:"duration"`
	ACL        json.RawMessage `json:"acl"`
	URL        string          `json:"url"`
}

func decodeTokenRequest(data []byte) (authtoken.Spec, error) {
	if err := validate.Document(schema.Token, data); err != nil {
		return authtoken.Spec{}, err
	}
	var request tokenRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return authtoken.Spec{}, invalidToken("decode token request: %v", err)
	}
	spec := authtoken.Spec{
		Key:        request.Key,
		TokenName:  request.TokenName,
		IP:         request.IP,
		Expiration: request.Expiration,
		Duration:   request.Duration,
		URL:        request.URL,
	}
	if len(request.Start) > 0 {
		if string(request.Start) == `"now"` {
			spec.StartNow = true
		} else if err := json.Unmarshal(request.Start, &spec.Start); err != nil {
			return authtoken.Spec{}, invalidToken("decode start: %v", err)
		}
	}
	if len(request.ACL) > 0 {
		var single string
		if err := json.Unmarshal(request.ACL, &single); err == nil {
			spec.ACL = []string{single}
		} else if err := json.Unmarshal(request.ACL, &spec.ACL); err != nil {
			return authtoken.Spec{}, invalidToken("decode acl: %v", err)
		}
	}
	return spec, nil
}

func invalidToken(format string, args ...any) error {
	return coreerrors.Wrap(fmt.Errorf(format, args...), coreerrors.CategoryInvalidInput, "invalid_token_request", "check the token request document", false)
}

func runToken(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Generate an HMAC access token for a path or ACL pattern, layered over the auth_token settings.")
	}
	arguments = reorderInterspersedFlags(arguments, withCommonValueFlags(
		"key", "token-name", "ip", "start", "expiration", "duration", "acl", "url", "request",
	))

	var common commonFlags
	var flags authtoken.Spec
	var acl string
	var requestPath string
	flagSet := newFlagSet("token", &common)
	flagSet.StringVar(&flags.Key, "key", "", "hex encoded token key")
	flagSet.StringVar(&flags.TokenName, "token-name", "", "query parameter name")
	flagSet.StringVar(&flags.IP, "ip", "", "restrict the token to one client address")
	flagSet.Int64Var(&flags.Start, "start", 0, "unix start time")
	flagSet.BoolVar(&flags.StartNow, "start-now", false, "start the token now")
	flagSet.Int64Var(&flags.Expiration, "expiration", 0, "unix expiration time")
	flagSet.Int64Var(&flags.Duration, "duration", 0, "seconds from start until expiration")
	flagSet.StringVar(&acl, "acl", "", "comma separated ACL patterns")
	flagSet.StringVar(&flags.URL, "url", "", "single URL path to authorize")
	flagSet.StringVar(&requestPath, "request", "", "token request JSON file, - for stdin")

	if err := flagSet.Parse(arguments); err != nil {
		return writeTokenOutput(common.jsonOutput, tokenOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if common.helpFlag {
		printTokenUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeTokenError(common.jsonOutput, unexpectedArguments(flagSet.Args()), exitInvalidInput)
	}
	for _, pattern := range strings.Split(acl, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			flags.ACL = append(flags.ACL, pattern)
		}
	}

	settings, err := common.settings()
	if err != nil {
		return writeTokenError(common.jsonOutput, err, exitConfigInvalid)
	}
	spec := settings.AuthToken
	if requestPath != "" {
		data, err := readDocument("", requestPath)
		if err != nil {
			return writeTokenError(common.jsonOutput, err, exitInvalidInput)
		}
		request, err := decodeTokenRequest(data)
		if err != nil {
			return writeTokenError(common.jsonOutput, err, exitInvalidInput)
		}
		spec = authtoken.Merge(spec, request)
	}
	spec = authtoken.Merge(spec, flags)

	token, err := authtoken.Generate(spec)
	if err != nil {
		return writeTokenError(common.jsonOutput, err, exitInvalidInput)
	}
	metrics.RecordSignature("token")
	common.logger().Debug("generated token", "acl", strings.Join(spec.ACL, "!"), "url", spec.URL)
	return writeTokenOutput(common.jsonOutput, tokenOutput{OK: true, Token: token}, exitOK)
}

func writeTokenError(jsonOutput bool, err error, fallbackExit int) int {
	return writeTokenOutput(jsonOutput, tokenOutput{failure: failureFrom(err)}, exitCodeForError(err, fallbackExit))
}

func writeTokenOutput(jsonOutput bool, output tokenOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Println(output.Token)
		return exitCode
	}
	fmt.Printf("token error: %s\n", output.Error)
	return exitCode
}

func printTokenUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mediaurl token (--acl <pattern,...>|--url <path>) [--duration <s>|--expiration <unix>] [--start <unix>|--start-now] [--ip <addr>] [--key <hex>] [--token-name <name>] [--request <file>] [--json] [--explain]")
}
