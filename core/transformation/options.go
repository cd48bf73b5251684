// Package transformation compiles structured image and video transformation
// options into the canonical comma and slash delimited string consumed by the
// delivery CDN.
package transformation

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrInvalidVideoCodec = errors.New("invalid video codec")
	ErrInvalidLayer      = errors.New("invalid layer")
	ErrInvalidOptions    = errors.New("invalid transformation options")
)

// Options is one transformation step. The zero value compiles to "".
type Options struct {
	Width  Param
	Height Param
	// Size is the "<width>x<height>" shorthand and overrides Width and Height.
	Size        string
	Crop        string
	Gravity     string
	Angle       Params
	AspectRatio Param
	Background  string
	Color       string
	Border      Border
	Effect      Words
	Flags       Words
	DPR         Param
	Opacity     Param
	Quality     Param
	Radius      Params
	X           Param
	Y           Param
	Zoom        Param
	FPS         Params
	Overlay     Layer
	Underlay    Layer
	If          string

	// Variables holds custom "$name" variables. Names missing the $ get it added.
	Variables         map[string]Param
	RawTransformation string
	// Named lists predefined named transformations, rendered as t_a.b.
	Named []string
	// Base transformations are compiled first and chained before this step.
	Base []Options

	CustomFunction    *CustomFunction
	CustomPreFunction *CustomFunction

	Offset           Range
	StartOffset      Param
	EndOffset        Param
	Duration         Param
	AudioCodec       string
	AudioFrequency   Param
	BitRate          Param
	ColorSpace       string
	DefaultImage     string
	Delay            Param
	Density          Param
	FetchFormat      string
	KeyframeInterval Param
	Prefix           string
	Page             Param
	StreamingProfile string
	VideoCodec       VideoCodec
	VideoSampling    Param

	// ResponsiveWidth chains the compiler's responsive width step after this one.
	ResponsiveWidth bool
	// AllowImplicitCrop keeps width and height in the string without a crop mode.
	AllowImplicitCrop bool
}

// Border renders as "<width>px_solid_<color>". A purely numeric Raw value is
// an HTML border attribute and never reaches the transformation string.
type Border struct {
	Width Param
	Color string
	Raw   string
}

func (b Border) IsZero() bool {
	return b.Width.IsBlank() && strings.TrimSpace(b.Color) == "" && strings.TrimSpace(b.Raw) == ""
}

// CustomFunction references a wasm or remote function applied by the CDN.
type CustomFunction struct {
	Type   string `json:"function_type"`
	Source string `json:"source"`
}

// VideoCodec is either a raw codec string or a codec/profile/level record.
type VideoCodec struct {
	Raw     string
	Codec   string
	Profile string
	Level   string
}

func (v VideoCodec) IsZero() bool {
	return v.Raw == "" && v.Codec == "" && v.Profile == "" && v.Level == ""
}
