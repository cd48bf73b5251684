package delivery

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	remoteSourcePattern = regexp.MustCompile(`(?i)^(?:(?:https?|ftp|s3|gs):/|data:)`)
	httpSourcePattern   = regexp.MustCompile(`(?i)^https?:/`)
	doubleSlashPattern  = regexp.MustCompile(`([^:])//+`)
	versionPattern      = regexp.MustCompile(`^v[0-9]+`)
)

func isRemote(source string) bool {
	return remoteSourcePattern.MatchString(source)
}

// SmartEscape percent-escapes every byte outside [A-Za-z0-9_.\-/:] with
// upper-case hex.
func SmartEscape(value string) string {
	const digits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0f])
	}
	return b.String()
}

func isSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("_.-/:", c) >= 0
}

// fullyUnescape decodes percent escapes until the value stops changing.
func fullyUnescape(value string) string {
	for {
		decoded, err := url.PathUnescape(value)
		if err != nil || decoded == value {
			return value
		}
		value = decoded
	}
}

func collapseSlashes(value string) string {
	return doubleSlashPattern.ReplaceAllString(value, "$1/")
}
