package transformation

import (
	"encoding/base64"
	"regexp"
	"strings"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

// Layer is an overlay or underlay source. The concrete types are RawLayer,
// FetchLayer, AssetLayer and TextLayer.
type Layer interface {
	compileLayer() (string, error)
}

// RawLayer is passed through verbatim, except that a "fetch:" prefix turns it
// into a FetchLayer.
type RawLayer string

// FetchLayer overlays a remote image addressed by URL.
type FetchLayer struct {
	URL string
}

// AssetLayer overlays a stored asset.
type AssetLayer struct {
	PublicID     string
	Format       string
	ResourceType string
	Type         string
	// Style is only used by subtitles layers.
	Style *TextStyle
}

// TextLayer renders text, either from Text with a Style, or from a stored
// text asset referenced by PublicID.
type TextLayer struct {
	Text     string
	PublicID string
	Style    TextStyle
}

// TextStyle is either a preformatted Raw style or the individual font fields.
type TextStyle struct {
	Raw              string
	FontFamily       string
	FontSize         Param
	FontWeight       string
	FontStyle        string
	TextDecoration   string
	TextAlign        string
	Stroke           string
	LetterSpacing    Param
	LineSpacing      Param
	FontAntialiasing string
	FontHinting      string
}

var (
	remoteURLPattern     = regexp.MustCompile(`(?i)^https?:/`)
	interpolationPattern = regexp.MustCompile(`\$\([a-zA-Z]\w+\)`)
)

func compileLayer(layer Layer) (string, error) {
	if layer == nil {
		return "", nil
	}
	return layer.compileLayer()
}

func (l RawLayer) compileLayer() (string, error) {
	if rest, ok := strings.CutPrefix(string(l), "fetch:"); ok {
		return FetchLayer{URL: rest}.compileLayer()
	}
	return string(l), nil
}

func (l FetchLayer) compileLayer() (string, error) {
	if strings.TrimSpace(l.URL) == "" {
		return "", layerError("fetch layer requires a url")
	}
	return "fetch:" + encodeRemote(l.URL), nil
}

func (l AssetLayer) compileLayer() (string, error) {
	resourceType := l.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	publicID := strings.TrimSpace(l.PublicID)
	if publicID == "" && l.Type != "fetch" {
		return "", layerError("must supply public_id for %s layer", resourceType)
	}
	if publicID != "" {
		if l.Type == "fetch" && remoteURLPattern.MatchString(publicID) {
			publicID = base64.URLEncoding.EncodeToString([]byte(publicID))
		} else {
			publicID = strings.ReplaceAll(publicID, "/", ":")
			if l.Format != "" {
				publicID += "." + l.Format
			}
		}
	}
	style := ""
	if resourceType == "subtitles" && l.Style != nil {
		compiled, err := l.Style.compile()
		if err != nil {
			return "", err
		}
		style = compiled
	}
	components := []string{}
	if resourceType != "image" {
		components = append(components, resourceType)
	}
	if l.Type != "" && l.Type != "upload" {
		components = append(components, l.Type)
	}
	components = append(components, style, publicID)
	return joinNonBlank(components, ":"), nil
}

func (l TextLayer) compileLayer() (string, error) {
	style, err := l.Style.compile()
	if err != nil {
		return "", err
	}
	publicID := strings.ReplaceAll(strings.TrimSpace(l.PublicID), "/", ":")
	text := ""
	if strings.TrimSpace(l.Text) != "" {
		if (publicID == "") == (style == "") {
			return "", layerError("text layer requires either style parameters or a public_id, not both")
		}
		text = escapeLayerText(l.Text)
	} else if publicID == "" && style == "" {
		return "", layerError("text layer requires text, style or a public_id")
	}
	return joinNonBlank([]string{"text", style, publicID, text}, ":"), nil
}

func (s TextStyle) compile() (string, error) {
	if strings.TrimSpace(s.Raw) != "" {
		return s.Raw, nil
	}
	keywords := []string{}
	for _, keyword := range []struct{ value, fallback string }{
		{s.FontWeight, "normal"},
		{s.FontStyle, "normal"},
		{s.TextDecoration, "none"},
		{s.TextAlign, ""},
		{s.Stroke, "none"},
	} {
		if keyword.value != "" && keyword.value != keyword.fallback {
			keywords = append(keywords, keyword.value)
		}
	}
	if !s.LetterSpacing.IsBlank() {
		keywords = append(keywords, "letter_spacing_"+string(s.LetterSpacing))
	}
	if !s.LineSpacing.IsBlank() {
		keywords = append(keywords, "line_spacing_"+string(s.LineSpacing))
	}
	if s.FontAntialiasing != "" {
		keywords = append(keywords, "antialias_"+s.FontAntialiasing)
	}
	if s.FontHinting != "" {
		keywords = append(keywords, "hinting_"+s.FontHinting)
	}
	family := strings.TrimSpace(s.FontFamily)
	if s.FontSize.IsBlank() && family == "" && len(keywords) == 0 {
		return "", nil
	}
	if family == "" {
		return "", layerError("must supply font_family for text in overlay/underlay")
	}
	if s.FontSize.IsBlank() {
		return "", layerError("must supply font_size for text in overlay/underlay")
	}
	return joinNonBlank(append([]string{family, string(s.FontSize)}, keywords...), "_"), nil
}

// escapeLayerText escapes text twice: , and / first, so they survive the
// CDN's path decode, then every byte unsafe in a URL path. $(variable)
// interpolation markers are kept intact.
func escapeLayerText(text string) string {
	var out strings.Builder
	cursor := 0
	for _, match := range interpolationPattern.FindAllStringIndex(text, -1) {
		out.WriteString(escapeTextPart(text[cursor:match[0]]))
		out.WriteString(text[match[0]:match[1]])
		cursor = match[1]
	}
	out.WriteString(escapeTextPart(text[cursor:]))
	return out.String()
}

func escapeTextPart(text string) string {
	return pathEscape(strings.NewReplacer(",", "%2C", "/", "%2F").Replace(text))
}

// pathEscape percent-encodes every byte outside [A-Za-z0-9_.\-/:].
func pathEscape(text string) string {
	const digits = "0123456789ABCDEF"
	var out strings.Builder
	out.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte("_.-/:", c) >= 0 {
			out.WriteByte(c)
			continue
		}
		out.WriteByte('%')
		out.WriteByte(digits[c>>4])
		out.WriteByte(digits[c&0x0f])
	}
	return out.String()
}

func encodeRemote(url string) string {
	if remoteURLPattern.MatchString(url) {
		return base64.URLEncoding.EncodeToString([]byte(url))
	}
	return url
}

func layerError(format string, args ...any) error {
	return coreerrors.Validation(ErrInvalidLayer, "invalid_layer", format, args...)
}

func joinNonBlank(parts []string, separator string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, separator)
}

