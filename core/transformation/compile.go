package transformation

import (
	"encoding/base64"
	"sort"
	"strings"

	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/expression"
)

// DefaultResponsiveWidth is chained after a step that sets ResponsiveWidth.
var DefaultResponsiveWidth = []Options{{Width: "auto", Crop: "limit"}}

// Compiled is the result of compiling one step or chain.
type Compiled struct {
	Transformation string
	// HTMLWidth and HTMLHeight are display hints that did not make it into
	// the transformation string.
	HTMLWidth  string
	HTMLHeight string
	HTMLBorder string
	Responsive bool
	HiDPI      bool
}

// Compiler holds the configurable parts of compilation. The zero value uses
// DefaultResponsiveWidth.
type Compiler struct {
	ResponsiveWidth []Options
}

// Compile compiles a single step with the default compiler.
func Compile(options Options) (string, error) {
	compiled, err := Compiler{}.Compile(options)
	if err != nil {
		return "", err
	}
	return compiled.Transformation, nil
}

// CompileChain compiles steps applied in sequence and joins them with "/".
func CompileChain(chain []Options) (string, error) {
	compiled, err := Compiler{}.CompileChain(chain)
	if err != nil {
		return "", err
	}
	return compiled.Transformation, nil
}

func (c Compiler) CompileChain(chain []Options) (Compiled, error) {
	if len(chain) == 1 {
		return c.Compile(chain[0])
	}
	var result Compiled
	steps := make([]string, 0, len(chain))
	for _, options := range chain {
		compiled, err := c.Compile(options)
		if err != nil {
			return Compiled{}, err
		}
		steps = append(steps, compiled.Transformation)
		result.Responsive = result.Responsive || compiled.Responsive
		result.HiDPI = result.HiDPI || compiled.HiDPI
	}
	result.Transformation = joinNonBlank(steps, "/")
	return result, nil
}

func (c Compiler) Compile(options Options) (Compiled, error) {
	var result Compiled

	width, height := options.Width, options.Height
	if options.Size != "" {
		w, h, _ := strings.Cut(options.Size, "x")
		width, height = Param(w), Param(h)
	}
	hasLayer := options.Overlay != nil || options.Underlay != nil
	crop := strings.TrimSpace(options.Crop)
	angle := options.Angle.join(".", nil)
	autoWidth := strings.HasPrefix(string(width), "auto")

	noHTMLSizes := hasLayer || angle != "" || crop == "fit" || crop == "limit" || crop == "lfill"
	if !width.IsBlank() && !autoWidth && width.float() >= 1 && !noHTMLSizes && !options.ResponsiveWidth {
		result.HTMLWidth = string(width)
	}
	if !height.IsBlank() && height.float() >= 1 && !noHTMLSizes && !options.ResponsiveWidth {
		result.HTMLHeight = string(height)
	}
	// Without a crop mode or an implicit crop context the size is only a
	// display hint and stays out of the signed string.
	if crop == "" && !hasLayer && angle == "" && !autoWidth && !options.AllowImplicitCrop {
		width, height = "", ""
	}

	border, htmlBorder := compileBorder(options.Border)
	result.HTMLBorder = htmlBorder

	radius, err := compileRadius(options.Radius)
	if err != nil {
		return Compiled{}, err
	}
	overlay, err := compileLayer(options.Overlay)
	if err != nil {
		return Compiled{}, err
	}
	underlay, err := compileLayer(options.Underlay)
	if err != nil {
		return Compiled{}, err
	}
	videoCodec, err := compileVideoCodec(options.VideoCodec)
	if err != nil {
		return Compiled{}, err
	}

	base := make([]string, 0, len(options.Base))
	for _, step := range options.Base {
		compiled, err := c.Compile(step)
		if err != nil {
			return Compiled{}, err
		}
		base = append(base, compiled.Transformation)
	}

	startOffset, endOffset := options.StartOffset, options.EndOffset
	if !options.Offset.IsZero() {
		startOffset, endOffset = options.Offset.Start, options.Offset.End
	}

	customFunction := compileCustomFunction(options.CustomFunction)
	if customFunction == "" && options.CustomPreFunction != nil {
		if compiled := compileCustomFunction(options.CustomPreFunction); compiled != "" {
			customFunction = "pre:" + compiled
		}
	}

	params := map[string]string{
		"a":   normalize(Param(angle)),
		"ar":  normalize(options.AspectRatio),
		"b":   rgbColor(options.Background),
		"bo":  border,
		"c":   crop,
		"co":  rgbColor(options.Color),
		"dpr": normalize(options.DPR),
		"e":   expression.Normalize(strings.Join(options.Effect, ":")),
		"fl":  strings.Join(options.Flags, "."),
		"fn":  customFunction,
		"fps": options.FPS.join("-", nil),
		"h":   normalize(height),
		"l":   overlay,
		"o":   normalize(options.Opacity),
		"q":   normalize(options.Quality),
		"r":   radius,
		"t":   strings.Join(options.Named, "."),
		"u":   underlay,
		"w":   normalize(width),
		"x":   normalize(options.X),
		"y":   normalize(options.Y),
		"z":   normalize(options.Zoom),

		"ac": options.AudioCodec,
		"af": string(options.AudioFrequency),
		"br": string(options.BitRate),
		"cs": options.ColorSpace,
		"d":  options.DefaultImage,
		"dl": string(options.Delay),
		"dn": string(options.Density),
		"du": rangeValue(options.Duration),
		"eo": rangeValue(endOffset),
		"f":  options.FetchFormat,
		"g":  options.Gravity,
		"ki": string(options.KeyframeInterval),
		"p":  options.Prefix,
		"pg": string(options.Page),
		"so": rangeValue(startOffset),
		"sp": options.StreamingProfile,
		"vc": videoCodec,
		"vs": string(options.VideoSampling),
	}

	rendered := make([]string, 0, len(params))
	for code, value := range params {
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, code+"_"+value)
	}
	sort.Strings(rendered)

	ifClause := ""
	if strings.TrimSpace(options.If) != "" {
		ifClause = "if_" + expression.Normalize(options.If)
	}

	step := joinNonBlank([]string{
		ifClause,
		compileVariables(options.Variables),
		strings.Join(rendered, ","),
		options.RawTransformation,
	}, ",")

	steps := append(base, step)
	if options.ResponsiveWidth {
		responsive, err := c.responsiveChain()
		if err != nil {
			return Compiled{}, err
		}
		steps = append(steps, responsive)
	}

	result.Transformation = joinNonBlank(steps, "/")
	result.Responsive = autoWidth || options.ResponsiveWidth
	result.HiDPI = string(options.DPR) == "auto"
	return result, nil
}

func (c Compiler) responsiveChain() (string, error) {
	chain := c.ResponsiveWidth
	if len(chain) == 0 {
		chain = DefaultResponsiveWidth
	}
	steps := make([]string, 0, len(chain))
	for _, options := range chain {
		// The responsive step never chains itself again.
		options.ResponsiveWidth = false
		compiled, err := c.Compile(options)
		if err != nil {
			return "", err
		}
		steps = append(steps, compiled.Transformation)
	}
	return joinNonBlank(steps, "/"), nil
}

func normalize(value Param) string {
	if value.IsBlank() {
		return ""
	}
	return expression.Normalize(string(value))
}

func rgbColor(value string) string {
	if strings.HasPrefix(value, "#") {
		return "rgb:" + value[1:]
	}
	return value
}

func rangeValue(value Param) string {
	if value.IsBlank() {
		return ""
	}
	return normalizeRangeValue(value)
}

func compileBorder(border Border) (string, string) {
	if border.IsZero() {
		return "", ""
	}
	if raw := strings.TrimSpace(border.Raw); raw != "" {
		if isDigits(raw) {
			return "", raw
		}
		return raw, ""
	}
	width := string(border.Width)
	if border.Width.IsBlank() {
		width = "2"
	}
	color := border.Color
	if strings.TrimSpace(color) == "" {
		color = "black"
	}
	return width + "px_solid_" + rgbColor(color), ""
}

func compileRadius(radius Params) (string, error) {
	if radius == nil {
		return "", nil
	}
	if len(radius) < 1 || len(radius) > 4 {
		return "", coreerrors.Validation(ErrInvalidRadius, "invalid_radius", "radius takes 1 to 4 values, got %d", len(radius))
	}
	return radius.join(":", func(value string) string { return normalize(Param(value)) }), nil
}

func compileVideoCodec(codec VideoCodec) (string, error) {
	if codec.IsZero() {
		return "", nil
	}
	if codec.Raw != "" {
		if codec.Codec != "" || codec.Profile != "" || codec.Level != "" {
			return "", videoCodecError("set either a raw codec string or codec fields")
		}
		return codec.Raw, nil
	}
	if codec.Codec == "" {
		return "", videoCodecError("profile and level require a codec")
	}
	if codec.Level != "" && codec.Profile == "" {
		return "", videoCodecError("level requires a profile")
	}
	return joinNonBlank([]string{codec.Codec, codec.Profile, codec.Level}, ":"), nil
}

func videoCodecError(message string) error {
	return coreerrors.Validation(ErrInvalidVideoCodec, "invalid_video_codec", "%s", message)
}

func compileCustomFunction(function *CustomFunction) string {
	if function == nil || strings.TrimSpace(function.Type) == "" {
		return ""
	}
	source := function.Source
	if function.Type == "remote" {
		source = base64.URLEncoding.EncodeToString([]byte(source))
	}
	return function.Type + ":" + source
}

// compileVariables renders "$name_value" entries sorted by their rendered
// form, so the output does not depend on map order. When "a" and "$a" are
// both set, "$a" wins.
func compileVariables(variables map[string]Param) string {
	if len(variables) == 0 {
		return ""
	}
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := map[string]bool{}
	entries := make([]string, 0, len(variables))
	for _, name := range names {
		normalized := variableName(name)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		entries = append(entries, normalized+"_"+expression.Normalize(string(variables[name])))
	}
	sort.Strings(entries)
	return strings.Join(entries, ",")
}

// variableName returns name with its $ prefix, or "" for a blank name.
func variableName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "$") {
		return name
	}
	return "$" + name
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for index := 0; index < len(value); index++ {
		if value[index] < '0' || value[index] > '9' {
			return false
		}
	}
	return true
}
