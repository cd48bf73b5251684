package breakpoints

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/transformation"
)

var ErrInvalidSpec = errors.New("invalid breakpoint spec")

// Spec is either an explicit width list or a min/max range split into at
// most MaxImages widths.
type Spec struct {
	Widths    []int `json:"breakpoints,omitempty" yaml:"breakpoints"`
	MinWidth  int   `json:"min_width,omitempty" yaml:"min_width"`
	MaxWidth  int   `json:"max_width,omitempty" yaml:"max_width"`
	MaxImages int   `json:"max_images,omitempty" yaml:"max_images"`
}

// Compute returns the widths for spec. Explicit widths are returned as given.
func Compute(spec Spec) ([]int, error) {
	if len(spec.Widths) > 0 {
		return append([]int(nil), spec.Widths...), nil
	}
	if spec.MaxWidth <= 0 {
		return nil, invalidSpec("max_width must be positive, got %d", spec.MaxWidth)
	}
	if spec.MinWidth < 0 {
		return nil, invalidSpec("min_width must not be negative, got %d", spec.MinWidth)
	}
	if spec.MinWidth > spec.MaxWidth {
		return nil, invalidSpec("min_width %d is greater than max_width %d", spec.MinWidth, spec.MaxWidth)
	}
	if spec.MaxImages < 1 {
		return nil, invalidSpec("max_images must be at least 1, got %d", spec.MaxImages)
	}

	minWidth := spec.MinWidth
	if spec.MaxImages == 1 {
		minWidth = spec.MaxWidth
	}
	divisor := spec.MaxImages - 1
	if divisor < 1 {
		divisor = 1
	}
	step := (spec.MaxWidth - minWidth + divisor - 1) / divisor
	if step < 1 {
		step = 1
	}

	widths := make([]int, 0, spec.MaxImages)
	for current := minWidth; current < spec.MaxWidth; current += step {
		widths = append(widths, current)
	}
	return append(widths, spec.MaxWidth), nil
}

func invalidSpec(format string, args ...any) error {
	return coreerrors.Validation(ErrInvalidSpec, "invalid_breakpoints", format, args...)
}

// Sizes renders the sizes attribute, one "(max-width: Wpx) Wpx" per width.
func Sizes(widths []int) string {
	parts := make([]string, 0, len(widths))
	for _, width := range widths {
		w := strconv.Itoa(width)
		parts = append(parts, "(max-width: "+w+"px) "+w+"px")
	}
	return strings.Join(parts, ", ")
}

// ScaledURL builds the delivery URL of locator scaled to width, chained
// after the caller's transformation.
func ScaledURL(config delivery.Config, locator delivery.Locator, chain []transformation.Options, width int) (string, error) {
	scaled := append(append([]transformation.Options(nil), chain...), transformation.Options{
		Crop:  "scale",
		Width: transformation.Int(width),
	})
	return delivery.URL(config, locator, scaled...)
}

// SrcSet renders "<url> <w>w" for every width, comma separated.
func SrcSet(config delivery.Config, locator delivery.Locator, chain []transformation.Options, widths []int) (string, error) {
	entries := make([]string, 0, len(widths))
	for _, width := range widths {
		scaled, err := ScaledURL(config, locator, chain, width)
		if err != nil {
			return "", fmt.Errorf("srcset width %d: %w", width, err)
		}
		entries = append(entries, scaled+" "+strconv.Itoa(width)+"w")
	}
	return strings.Join(entries, ", "), nil
}
