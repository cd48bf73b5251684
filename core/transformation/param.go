package transformation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Param is one transformation value: a number, a keyword or an expression.
type Param string

func Int(value int) Param {
	return Param(strconv.Itoa(value))
}

func Float(value float64) Param {
	return Param(strconv.FormatFloat(value, 'f', -1, 64))
}

func (p Param) String() string {
	return string(p)
}

func (p Param) IsBlank() bool {
	return strings.TrimSpace(string(p)) == ""
}

// float returns the numeric value of p, or 0 when p is not a plain number.
func (p Param) float() float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil {
		return 0
	}
	return value
}

func (p *Param) UnmarshalJSON(data []byte) error {
	decoded, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*p = Param(decoded)
	return nil
}

// Params is an ordered list of values; a JSON scalar decodes as one element.
type Params []Param

func (p Params) join(separator string, normalize func(string) string) string {
	parts := make([]string, 0, len(p))
	for _, value := range p {
		text := string(value)
		if normalize != nil {
			text = normalize(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, separator)
}

func (p *Params) UnmarshalJSON(data []byte) error {
	values, err := decodeScalarOrList(data)
	if err != nil {
		return err
	}
	out := make(Params, 0, len(values))
	for _, value := range values {
		out = append(out, Param(value))
	}
	*p = out
	return nil
}

// Words is a list of keywords; a JSON scalar decodes as one element.
type Words []string

func (w *Words) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// {"sepia": 50} flattens to sepia:50 in key order.
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return err
		}
		keys := sortedKeys(object)
		out := make(Words, 0, len(keys)*2)
		for _, key := range keys {
			value, err := decodeScalar(object[key])
			if err != nil {
				return err
			}
			out = append(out, key)
			if value != "" {
				out = append(out, value)
			}
		}
		*w = out
		return nil
	}
	values, err := decodeScalarOrList(trimmed)
	if err != nil {
		return err
	}
	*w = values
	return nil
}

// Range is a start/end pair used by the offset shorthand.
type Range struct {
	Start Param
	End   Param
}

func (r Range) IsZero() bool {
	return r.Start.IsBlank() && r.End.IsBlank()
}

// ParseRange splits "2.5..10" or "10%..90%" into its bounds.
func ParseRange(value string) (Range, bool) {
	start, end, found := strings.Cut(value, "..")
	if !found {
		return Range{}, false
	}
	return Range{Start: Param(start), End: Param(end)}, true
}

func (r *Range) UnmarshalJSON(data []byte) error {
	values, err := decodeScalarOrList(data)
	if err != nil {
		return err
	}
	switch len(values) {
	case 0:
		*r = Range{}
		return nil
	case 1:
		parsed, ok := ParseRange(values[0])
		if !ok {
			return fmt.Errorf("offset %q is not a start..end range", values[0])
		}
		*r = parsed
		return nil
	case 2:
		*r = Range{Start: Param(values[0]), End: Param(values[1])}
		return nil
	default:
		return fmt.Errorf("offset must have two bounds, got %d", len(values))
	}
}

var rangeValuePattern = regexp.MustCompile(`^((?:\d+\.)?\d+)([%pP])?$`)

// normalizeRangeValue rewrites a percentage bound ("10%", "10P") to the "10p" form.
func normalizeRangeValue(value Param) string {
	match := rangeValuePattern.FindStringSubmatch(string(value))
	if match == nil {
		return string(value)
	}
	if match[2] != "" {
		return match[1] + "p"
	}
	return match[1]
}

func decodeScalar(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", err
		}
		return text, nil
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(trimmed, &flag); err != nil {
			return "", err
		}
		return strconv.FormatBool(flag), nil
	default:
		var number json.Number
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return "", fmt.Errorf("expected string or number: %w", err)
		}
		return number.String(), nil
	}
}

func decodeScalarOrList(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		value, err := decodeScalar(trimmed)
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		value, err := decodeScalar(item)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}
