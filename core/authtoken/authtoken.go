package authtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

const (
	DefaultTokenName = "__cld_token__"
	separator        = "~"
)

var (
	ErrMissingKey        = errors.New("missing auth token key")
	ErrInvalidKey        = errors.New("invalid auth token key")
	ErrMissingScope      = errors.New("auth token requires acl or url")
	ErrMissingExpiration = errors.New("auth token requires expiration or duration")
)

// Spec describes one access token. Key is hex encoded. Start and Expiration
// are unix seconds; Duration is seconds added to Start.
type Spec struct {
	Key        string   `yaml:"key" json:"key,omitempty"`
	TokenName  string   `yaml:"token_name" json:"token_name,omitempty"`
	IP         string   `yaml:"ip" json:"ip,omitempty"`
	Start      int64    `yaml:"start" json:"start,omitempty"`
	StartNow   bool     `yaml:"start_now" json:"start_now,omitempty"`
	Expiration int64    `yaml:"expiration" json:"expiration,omitempty"`
	Duration   int64    `yaml:"duration" json:"duration,omitempty"`
	ACL        []string `yaml:"acl" json:"acl,omitempty"`
	URL        string   `yaml:"url" json:"url,omitempty"`
}

// IsZero reports whether no field of the spec is set.
func (s Spec) IsZero() bool {
	return s.Key == "" && s.TokenName == "" && s.IP == "" && s.Start == 0 && !s.StartNow &&
		s.Expiration == 0 && s.Duration == 0 && len(s.ACL) == 0 && s.URL == ""
}

// Merge returns base with every non-zero field of override applied.
func Merge(base, override Spec) Spec {
	merged := base
	if override.Key != "" {
		merged.Key = override.Key
	}
	if override.TokenName != "" {
		merged.TokenName = override.TokenName
	}
	if override.IP != "" {
		merged.IP = override.IP
	}
	if override.Start != 0 || override.StartNow {
		merged.Start = override.Start
		merged.StartNow = override.StartNow
	}
	if override.Expiration != 0 {
		merged.Expiration = override.Expiration
	}
	if override.Duration != 0 {
		merged.Duration = override.Duration
	}
	if len(override.ACL) > 0 {
		merged.ACL = append([]string(nil), override.ACL...)
	}
	if override.URL != "" {
		merged.URL = override.URL
	}
	return merged
}

// Generate builds the token query parameter using the current time for
// "now" starts and duration based expirations.
func Generate(spec Spec) (string, error) {
	return GenerateAt(spec, time.Now().UTC())
}

// GenerateAt builds "<token_name>=[ip=..~][st=..~]exp=..[~acl=..]~hmac=..".
func GenerateAt(spec Spec, now time.Time) (string, error) {
	if strings.TrimSpace(spec.Key) == "" {
		return "", coreerrors.Configuration(ErrMissingKey, "missing_auth_token_key", "auth token key is required")
	}
	key, err := hex.DecodeString(strings.TrimSpace(spec.Key))
	if err != nil {
		return "", coreerrors.Configuration(ErrInvalidKey, "invalid_auth_token_key", "auth token key must be hex: %v", err)
	}

	start := spec.Start
	if spec.StartNow {
		start = now.Unix()
	}
	expiration := spec.Expiration
	if expiration == 0 {
		if spec.Duration <= 0 {
			return "", coreerrors.Validation(ErrMissingExpiration, "missing_expiration", "set expiration or a positive duration")
		}
		from := start
		if from == 0 {
			from = now.Unix()
		}
		expiration = from + spec.Duration
	}
	if expiration <= 0 {
		return "", coreerrors.Validation(ErrMissingExpiration, "missing_expiration", "expiration must be a positive unix time")
	}

	acl := nonBlank(spec.ACL)
	if len(acl) == 0 && strings.TrimSpace(spec.URL) == "" {
		return "", coreerrors.Validation(ErrMissingScope, "missing_acl_or_url", "set acl or url")
	}

	segments := make([]string, 0, 5)
	if spec.IP != "" {
		segments = append(segments, "ip="+spec.IP)
	}
	if start != 0 {
		segments = append(segments, "st="+strconv.FormatInt(start, 10))
	}
	segments = append(segments, "exp="+strconv.FormatInt(expiration, 10))
	if len(acl) > 0 {
		segments = append(segments, "acl="+EscapeToLower(strings.Join(acl, "!")))
	}

	toSign := append([]string(nil), segments...)
	if len(acl) == 0 {
		toSign = append(toSign, "url="+EscapeToLower(spec.URL))
	}
	segments = append(segments, "hmac="+Digest(strings.Join(toSign, separator), key))

	name := spec.TokenName
	if name == "" {
		name = DefaultTokenName
	}
	return name + "=" + strings.Join(segments, separator), nil
}

// Digest is the hex HMAC-SHA256 of message under the binary key.
func Digest(message string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// EscapeToLower percent-escapes reserved and non-ASCII bytes with lowercase hex.
func EscapeToLower(value string) string {
	const digits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c > 0x20 && c < 0x7f && !strings.ContainsRune(unsafeChars, rune(c)) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0f])
	}
	return b.String()
}

const unsafeChars = "\"#%&'/:;<=>?@[\\]^`{|}~"

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}
