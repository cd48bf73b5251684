// Package expression rewrites user-facing conditional and arithmetic
// expressions into the compact token grammar used inside transformation
// strings, e.g. "width > 100 && height < 50" becomes "w_gt_100_and_h_lt_50".
package expression

import "strings"

type alias struct {
	token string
	short string
}

// Order matters: the first entry that matches at a position wins, so longer
// names sharing a prefix must come first.
var predefinedVariables = []alias{
	{"aspect_ratio", "ar"},
	{"aspectRatio", "ar"},
	{"current_page", "cp"},
	{"currentPage", "cp"},
	{"face_count", "fc"},
	{"faceCount", "fc"},
	{"height", "h"},
	{"initial_aspect_ratio", "iar"},
	{"initial_height", "ih"},
	{"initial_width", "iw"},
	{"initialAspectRatio", "iar"},
	{"initialHeight", "ih"},
	{"initialWidth", "iw"},
	{"page_count", "pc"},
	{"page_x", "px"},
	{"page_y", "py"},
	{"pageCount", "pc"},
	{"pageX", "px"},
	{"pageY", "py"},
	{"tags", "tags"},
	{"width", "w"},
	{"duration", "du"},
	{"initial_duration", "idu"},
	{"initialDuration", "idu"},
	{"illustration_score", "ils"},
	{"illustrationScore", "ils"},
	{"context", "ctx"},
}

var operators = []alias{
	{"||", "or"},
	{">=", "gte"},
	{"<=", "lte"},
	{"&&", "and"},
	{"!=", "ne"},
	{">", "gt"},
	{"=", "eq"},
	{"<", "lt"},
	{"/", "div"},
	{"-", "sub"},
	{"^", "pow"},
	{"+", "add"},
	{"*", "mul"},
}

// Normalize returns expression with every recognised variable name and
// operator replaced by its short alias and runs of spaces or underscores
// collapsed to a single underscore. Quoted literals (!...!) are returned
// untouched and custom $variables are kept as written.
func Normalize(expression string) string {
	if IsQuoted(expression) {
		return expression
	}
	var out strings.Builder
	out.Grow(len(expression))
	for index := 0; index < len(expression); {
		if short, width, ok := matchOperator(expression, index); ok {
			out.WriteString(short)
			index += width
			continue
		}
		if width := matchCustomVariable(expression, index); width > 0 {
			out.WriteString(expression[index : index+width])
			index += width
			continue
		}
		if short, width, ok := matchPredefined(expression, index); ok {
			out.WriteString(short)
			index += width
			continue
		}
		out.WriteByte(expression[index])
		index++
	}
	return collapseSeparators(out.String())
}

// IsQuoted reports whether value is a !-delimited literal.
func IsQuoted(value string) bool {
	return len(value) > 2 && value[0] == '!' && value[len(value)-1] == '!'
}

// operators only count when followed by a separator, so "-5" stays a number.
func matchOperator(expression string, index int) (string, int, bool) {
	for _, candidate := range operators {
		end := index + len(candidate.token)
		if end >= len(expression) {
			continue
		}
		if expression[index:end] != candidate.token {
			continue
		}
		if next := expression[end]; next == ' ' || next == '_' {
			return candidate.short, len(candidate.token), true
		}
	}
	return "", 0, false
}

func matchCustomVariable(expression string, index int) int {
	if expression[index] != '$' {
		return 0
	}
	cursor := index + 1
	for cursor < len(expression) && expression[cursor] == '_' {
		cursor++
	}
	nameStart := cursor
	for cursor < len(expression) && expression[cursor] != '_' && expression[cursor] != ' ' {
		cursor++
	}
	if cursor == nameStart {
		return 0
	}
	return cursor - index
}

func matchPredefined(expression string, index int) (string, int, bool) {
	if index > 0 {
		if previous := expression[index-1]; previous == '$' || previous == ':' {
			return "", 0, false
		}
	}
	rest := expression[index:]
	for _, candidate := range predefinedVariables {
		if strings.HasPrefix(rest, candidate.token) {
			return candidate.short, len(candidate.token), true
		}
	}
	return "", 0, false
}

func collapseSeparators(value string) string {
	var out strings.Builder
	out.Grow(len(value))
	inRun := false
	for index := 0; index < len(value); index++ {
		character := value[index]
		if character == ' ' || character == '_' {
			if !inRun {
				out.WriteByte('_')
			}
			inRun = true
			continue
		}
		inRun = false
		out.WriteByte(character)
	}
	return out.String()
}
