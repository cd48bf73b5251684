package sign

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- sha1 stays the default digest for signature compatibility.
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strconv"
	"strings"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

type Algorithm string

const (
	AlgSHA1   Algorithm = "sha1"
	AlgSHA256 Algorithm = "sha256"
)

const (
	ShortURLSignatureLength = 8
	LongURLSignatureLength  = 32

	DefaultNotificationWindow = 2 * time.Hour
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrMissingSecret        = errors.New("missing api secret")
	ErrMissingKey           = errors.New("missing api key")
)

// Context carries the credentials and digest used for one signing call.
type Context struct {
	Key       string
	Secret    string
	Algorithm Algorithm
}

// ParseAlgorithm accepts "sha1", "sha256" and their dashed or upper-case
// spellings. An empty name selects sha1.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	switch normalized {
	case "", "sha1":
		return AlgSHA1, nil
	case "sha256":
		return AlgSHA256, nil
	default:
		return "", coreerrors.UnsupportedAlgorithm(ErrUnsupportedAlgorithm, name)
	}
}

func (a Algorithm) newHash() (func() hash.Hash, error) {
	switch a {
	case "", AlgSHA1:
		return sha1.New, nil
	case AlgSHA256:
		return sha256.New, nil
	default:
		return nil, coreerrors.UnsupportedAlgorithm(ErrUnsupportedAlgorithm, string(a))
	}
}

// StringToSign renders params as sorted "key=value" pairs joined by "&".
// Nil and empty values are dropped and lists are comma-joined.
func StringToSign(params map[string]any) string {
	keys := make([]string, 0, len(params))
	rendered := make(map[string]string, len(params))
	for key, value := range params {
		text := Stringify(value)
		if text == "" {
			continue
		}
		keys = append(keys, key)
		rendered[key] = text
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+rendered[key])
	}
	return strings.Join(pairs, "&")
}

// Stringify renders one parameter value the way it appears in a signing string.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []string:
		return strings.Join(typed, ",")
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ",")
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Digest returns the raw HMAC of message under secret.
func Digest(message, secret string, algorithm Algorithm) ([]byte, error) {
	newHash, err := algorithm.newHash()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return mac.Sum(nil), nil
}

// Sign returns the hex HMAC of the canonical form of params.
func Sign(params map[string]any, secret string, algorithm Algorithm) (string, error) {
	if secret == "" {
		return "", coreerrors.Configuration(ErrMissingSecret, "missing_api_secret", "api secret is required to sign")
	}
	sum, err := Digest(StringToSign(params), secret, algorithm)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// Verify recomputes the signature of params and compares it in constant time.
func Verify(params map[string]any, secret, signature string, algorithm Algorithm) bool {
	expected, err := Sign(params, secret, algorithm)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// SignRequest returns a copy of params without blank values, plus the
// "signature" and cleartext "api_key" request parameters.
func SignRequest(params map[string]any, ctx Context) (map[string]any, error) {
	if ctx.Key == "" {
		return nil, coreerrors.Configuration(ErrMissingKey, "missing_api_key", "api key is required to sign requests")
	}
	signed := make(map[string]any, len(params)+2)
	for key, value := range params {
		if Stringify(value) == "" {
			continue
		}
		signed[key] = value
	}
	signature, err := Sign(signed, ctx.Secret, ctx.Algorithm)
	if err != nil {
		return nil, err
	}
	signed["signature"] = signature
	signed["api_key"] = ctx.Key
	return signed, nil
}

// URLSignature signs a delivery path and returns the "s--<sig>--" segment.
// Long signatures always use sha256.
func URLSignature(toSign, secret string, algorithm Algorithm, long bool) (string, error) {
	if secret == "" {
		return "", coreerrors.Configuration(ErrMissingSecret, "missing_api_secret", "api secret is required to sign urls")
	}
	length := ShortURLSignatureLength
	if long {
		algorithm = AlgSHA256
		length = LongURLSignatureLength
	}
	sum, err := Digest(toSign, secret, algorithm)
	if err != nil {
		return "", err
	}
	encoded := base64.URLEncoding.EncodeToString(sum)
	return "s--" + encoded[:length] + "--", nil
}

// VerifyAPIResponse checks the signature returned with an upload response.
func VerifyAPIResponse(publicID string, version int64, signature string, ctx Context) bool {
	return Verify(map[string]any{"public_id": publicID, "version": version}, ctx.Secret, signature, ctx.Algorithm)
}

// VerifyNotification checks a webhook body signed together with its unix
// timestamp, rejecting timestamps older than validFor.
func VerifyNotification(body string, timestamp int64, signature string, ctx Context, validFor time.Duration, now time.Time) bool {
	if validFor <= 0 {
		validFor = DefaultNotificationWindow
	}
	if timestamp < now.Add(-validFor).Unix() {
		return false
	}
	sum, err := Digest(body+strconv.FormatInt(timestamp, 10), ctx.Secret, ctx.Algorithm)
	if err != nil || ctx.Secret == "" {
		return false
	}
	return hmac.Equal([]byte(hex.EncodeToString(sum)), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
