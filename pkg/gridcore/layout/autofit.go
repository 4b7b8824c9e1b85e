package layout

import (
	"iter"
	"strings"

	"golang.org/x/text/width"
)

// FitOptions controls AutoFitWidth.
type FitOptions struct {
	// CharWidth is the width of one narrow character in pixels. Wide and
	// fullwidth East Asian characters count twice.
	CharWidth float64
	// Padding is added to the measured text width.
	Padding float64
	// MinWidth and MaxWidth bound the result.
	MinWidth float64
	MaxWidth float64
}

// DefaultFitOptions returns the measurement used for the default font.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		CharWidth: 8,
		Padding:   16,
		MinWidth:  40,
		MaxWidth:  500,
	}
}

// AutoFitWidth returns a column width wide enough for the longest line of
// texts. With no text the result is MinWidth.
func AutoFitWidth(texts iter.Seq[string], opts FitOptions) float64 {
	longest := 0
	for text := range texts {
		for line := range strings.SplitSeq(text, "\n") {
			longest = max(longest, TextUnits(line))
		}
	}
	if longest == 0 {
		return opts.MinWidth
	}
	w := float64(longest)*opts.CharWidth + opts.Padding
	return max(opts.MinWidth, min(w, opts.MaxWidth))
}

// TextUnits returns the display length of s in narrow-character units.
func TextUnits(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
