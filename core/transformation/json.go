package transformation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

// ParseChain decodes a JSON options document: either one object or an array
// of objects applied in sequence.
func ParseChain(data []byte) ([]Options, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var chain []Options
		if err := json.Unmarshal(trimmed, &chain); err != nil {
			return nil, invalidOptions(err)
		}
		return chain, nil
	}
	var options Options
	if err := json.Unmarshal(trimmed, &options); err != nil {
		return nil, invalidOptions(err)
	}
	return []Options{options}, nil
}

func invalidOptions(err error) error {
	return coreerrors.Wrap(fmt.Errorf("%w: %v", ErrInvalidOptions, err), coreerrors.CategoryInvalidInput, "invalid_options", "check the options document", false)
}

type fieldDecoder func(options *Options, raw json.RawMessage) error

func paramField(target func(*Options) *Param) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		return json.Unmarshal(raw, target(options))
	}
}

func paramsField(target func(*Options) *Params) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		return json.Unmarshal(raw, target(options))
	}
}

func wordsField(target func(*Options) *Words) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		return json.Unmarshal(raw, target(options))
	}
}

func stringField(target func(*Options) *string) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		value, err := decodeScalar(raw)
		if err != nil {
			return err
		}
		*target(options) = value
		return nil
	}
}

func boolField(target func(*Options) *bool) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		value, err := decodeScalar(raw)
		if err != nil {
			return err
		}
		*target(options) = value == "true"
		return nil
	}
}

var optionFields = map[string]fieldDecoder{
	"width":               paramField(func(o *Options) *Param { return &o.Width }),
	"height":              paramField(func(o *Options) *Param { return &o.Height }),
	"aspect_ratio":        paramField(func(o *Options) *Param { return &o.AspectRatio }),
	"dpr":                 paramField(func(o *Options) *Param { return &o.DPR }),
	"opacity":             paramField(func(o *Options) *Param { return &o.Opacity }),
	"quality":             paramField(func(o *Options) *Param { return &o.Quality }),
	"x":                   paramField(func(o *Options) *Param { return &o.X }),
	"y":                   paramField(func(o *Options) *Param { return &o.Y }),
	"zoom":                paramField(func(o *Options) *Param { return &o.Zoom }),
	"start_offset":        paramField(func(o *Options) *Param { return &o.StartOffset }),
	"end_offset":          paramField(func(o *Options) *Param { return &o.EndOffset }),
	"duration":            paramField(func(o *Options) *Param { return &o.Duration }),
	"audio_frequency":     paramField(func(o *Options) *Param { return &o.AudioFrequency }),
	"bit_rate":            paramField(func(o *Options) *Param { return &o.BitRate }),
	"delay":               paramField(func(o *Options) *Param { return &o.Delay }),
	"density":             paramField(func(o *Options) *Param { return &o.Density }),
	"keyframe_interval":   paramField(func(o *Options) *Param { return &o.KeyframeInterval }),
	"page":                paramField(func(o *Options) *Param { return &o.Page }),
	"video_sampling":      paramField(func(o *Options) *Param { return &o.VideoSampling }),
	"angle":               paramsField(func(o *Options) *Params { return &o.Angle }),
	"radius":              paramsField(func(o *Options) *Params { return &o.Radius }),
	"fps":                 paramsField(func(o *Options) *Params { return &o.FPS }),
	"effect":              wordsField(func(o *Options) *Words { return &o.Effect }),
	"flags":               wordsField(func(o *Options) *Words { return &o.Flags }),
	"size":                stringField(func(o *Options) *string { return &o.Size }),
	"crop":                stringField(func(o *Options) *string { return &o.Crop }),
	"gravity":             stringField(func(o *Options) *string { return &o.Gravity }),
	"background":          stringField(func(o *Options) *string { return &o.Background }),
	"color":               stringField(func(o *Options) *string { return &o.Color }),
	"if":                  stringField(func(o *Options) *string { return &o.If }),
	"raw_transformation":  stringField(func(o *Options) *string { return &o.RawTransformation }),
	"audio_codec":         stringField(func(o *Options) *string { return &o.AudioCodec }),
	"color_space":         stringField(func(o *Options) *string { return &o.ColorSpace }),
	"default_image":       stringField(func(o *Options) *string { return &o.DefaultImage }),
	"fetch_format":        stringField(func(o *Options) *string { return &o.FetchFormat }),
	"prefix":              stringField(func(o *Options) *string { return &o.Prefix }),
	"streaming_profile":   stringField(func(o *Options) *string { return &o.StreamingProfile }),
	"responsive_width":    boolField(func(o *Options) *bool { return &o.ResponsiveWidth }),
	"allow_implicit_crop": boolField(func(o *Options) *bool { return &o.AllowImplicitCrop }),
	"offset": func(o *Options, raw json.RawMessage) error {
		return json.Unmarshal(raw, &o.Offset)
	},
	"overlay": func(o *Options, raw json.RawMessage) error {
		layer, err := decodeLayer(raw)
		o.Overlay = layer
		return err
	},
	"underlay": func(o *Options, raw json.RawMessage) error {
		layer, err := decodeLayer(raw)
		o.Underlay = layer
		return err
	},
	"border":              decodeBorder,
	"transformation":      decodeBaseTransformation,
	"variables":           decodeVariables,
	"video_codec":         decodeVideoCodec,
	"custom_function":     customFunctionField(func(o *Options) **CustomFunction { return &o.CustomFunction }),
	"custom_pre_function": customFunctionField(func(o *Options) **CustomFunction { return &o.CustomPreFunction }),
}

// UnmarshalJSON accepts the snake_case option names. Keys starting with $
// become custom variables; unknown keys are ignored.
func (o *Options) UnmarshalJSON(data []byte) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	decoded := Options{}
	for _, key := range sortedKeys(object) {
		raw := object[key]
		if strings.HasPrefix(key, "$") {
			value, err := decodeScalar(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if decoded.Variables == nil {
				decoded.Variables = map[string]Param{}
			}
			decoded.Variables[variableName(key)] = Param(value)
			continue
		}
		decode, ok := optionFields[key]
		if !ok {
			continue
		}
		if err := decode(&decoded, raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	*o = decoded
	return nil
}

func customFunctionField(target func(*Options) **CustomFunction) fieldDecoder {
	return func(options *Options, raw json.RawMessage) error {
		var function CustomFunction
		if err := json.Unmarshal(raw, &function); err != nil {
			return err
		}
		*target(options) = &function
		return nil
	}
}

func decodeBorder(options *Options, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var border struct {
			Width Param  `json:"width"`
			Color string `json:"color"`
		}
		if err := json.Unmarshal(trimmed, &border); err != nil {
			return err
		}
		options.Border = Border{Width: border.Width, Color: border.Color}
		return nil
	}
	value, err := decodeScalar(trimmed)
	if err != nil {
		return err
	}
	options.Border = Border{Raw: value}
	return nil
}

// decodeBaseTransformation handles named transformations ("a", ["a","b"]) and
// nested option objects; once any object is present every entry becomes its
// own chained step.
func decodeBaseTransformation(options *Options, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	items := []json.RawMessage{trimmed}
	if trimmed[0] == '[' {
		items = nil
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
	}
	hasObject := false
	for _, item := range items {
		if item := bytes.TrimSpace(item); len(item) > 0 && item[0] == '{' {
			hasObject = true
		}
	}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var step Options
			if err := json.Unmarshal(item, &step); err != nil {
				return err
			}
			options.Base = append(options.Base, step)
			continue
		}
		name, err := decodeScalar(item)
		if err != nil {
			return err
		}
		if hasObject {
			options.Base = append(options.Base, Options{Named: []string{name}})
			continue
		}
		options.Named = append(options.Named, name)
	}
	return nil
}

// decodeVariables accepts {"$a": 1} or [["$a", 1], ...].
func decodeVariables(options *Options, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if options.Variables == nil {
		options.Variables = map[string]Param{}
	}
	if trimmed[0] == '{' {
		var object map[string]Param
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return err
		}
		for name, value := range object {
			options.Variables[variableName(name)] = value
		}
		return nil
	}
	var pairs [][]Param
	if err := json.Unmarshal(trimmed, &pairs); err != nil {
		return err
	}
	for _, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("variable entries must be [name, value] pairs")
		}
		options.Variables[variableName(string(pair[0]))] = pair[1]
	}
	return nil
}

func decodeVideoCodec(options *Options, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var codec struct {
			Codec   string `json:"codec"`
			Profile string `json:"profile"`
			Level   Param  `json:"level"`
		}
		if err := json.Unmarshal(trimmed, &codec); err != nil {
			return err
		}
		options.VideoCodec = VideoCodec{Codec: codec.Codec, Profile: codec.Profile, Level: string(codec.Level)}
		return nil
	}
	value, err := decodeScalar(trimmed)
	if err != nil {
		return err
	}
	options.VideoCodec = VideoCodec{Raw: value}
	return nil
}

type layerDocument struct {
	PublicID         string `json:"public_id"`
	Format           string `json:"format"`
	ResourceType     string `json:"resource_type"`
	Type             string `json:"type"`
	URL              string `json:"url"`
	Text             string `json:"text"`
	TextStyle        string `json:"text_style"`
	FontFamily       string `json:"font_family"`
	FontSize         Param  `json:"font_size"`
	FontWeight       string `json:"font_weight"`
	FontStyle        string `json:"font_style"`
	TextDecoration   string `json:"text_decoration"`
	TextAlign        string `json:"text_align"`
	Stroke           string `json:"stroke"`
	LetterSpacing    Param  `json:"letter_spacing"`
	LineSpacing      Param  `json:"line_spacing"`
	FontAntialiasing string `json:"font_antialiasing"`
	FontHinting      string `json:"font_hinting"`
}

func (d layerDocument) style() TextStyle {
	return TextStyle{
		Raw:              d.TextStyle,
		FontFamily:       d.FontFamily,
		FontSize:         d.FontSize,
		FontWeight:       d.FontWeight,
		FontStyle:        d.FontStyle,
		TextDecoration:   d.TextDecoration,
		TextAlign:        d.TextAlign,
		Stroke:           d.Stroke,
		LetterSpacing:    d.LetterSpacing,
		LineSpacing:      d.LineSpacing,
		FontAntialiasing: d.FontAntialiasing,
		FontHinting:      d.FontHinting,
	}
}

// DecodeLayer turns a layer document (string or object) into its Layer type.
func DecodeLayer(raw []byte) (Layer, error) {
	return decodeLayer(raw)
}

func decodeLayer(raw json.RawMessage) (Layer, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		value, err := decodeScalar(trimmed)
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, nil
		}
		return RawLayer(value), nil
	}
	var document layerDocument
	if err := json.Unmarshal(trimmed, &document); err != nil {
		return nil, err
	}
	switch {
	case document.URL != "":
		return FetchLayer{URL: document.URL}, nil
	case document.Text != "" || document.ResourceType == "text":
		return TextLayer{Text: document.Text, PublicID: document.PublicID, Style: document.style()}, nil
	default:
		layer := AssetLayer{
			PublicID:     document.PublicID,
			Format:       document.Format,
			ResourceType: document.ResourceType,
			Type:         document.Type,
		}
		if document.ResourceType == "subtitles" {
			style := document.style()
			layer.Style = &style
		}
		return layer, nil
	}
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
