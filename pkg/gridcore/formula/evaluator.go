// Package formula evaluates the small formula language of the grid: a bare
// cell reference or one of SUM, AVERAGE, COUNT, MIN and MAX over a range.
//
// Evaluation reads the current displayed values of the referenced cells
// once. Results are not tracked; editing a referenced cell later does not
// re-evaluate the formulas that read it.
package formula

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/efp"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// Sentinel is the in-band result of a formula that cannot be evaluated.
const Sentinel = "#ERROR"

// Source is the read-only view of a cell store needed for evaluation.
type Source interface {
	Get(row, col int) models.Cell
	Count() int
	All() iter.Seq2[grid.Ref, models.Cell]
	InBounds(row, col int) bool
}

var (
	errSyntax      = errors.New("unsupported expression")
	errUnknownFunc = errors.New("unknown function")
	errReference   = errors.New("reference out of range")
)

// Evaluator computes formula results against a Source.
type Evaluator struct {
	src    Source
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for evaluation failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Evaluator reading from src.
func New(src Source, opts ...Option) *Evaluator {
	e := &Evaluator{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "formula"))
	return e
}

// IsFormula reports whether text is a formula, i.e. starts with "=".
func IsFormula(text string) bool {
	return strings.HasPrefix(text, "=")
}

// Evaluate returns the display text of formula text. Anything that is not
// a supported expression yields Sentinel.
func (e *Evaluator) Evaluate(text string) string {
	result, err := e.eval(text)
	if err != nil {
		e.logger.Debug("formula not evaluated", slog.String("formula", text), slog.Any("error", err))
		return Sentinel
	}
	return result
}

func (e *Evaluator) eval(text string) (string, error) {
	if !IsFormula(text) {
		return "", fmt.Errorf("%w: missing '='", errSyntax)
	}
	call, err := parse(strings.ToUpper(strings.TrimSpace(text)))
	if err != nil {
		return "", err
	}
	rng, err := grid.ParseRange(call.operand)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errSyntax, err)
	}
	if !e.src.InBounds(rng.Start.Row, rng.Start.Col) || !e.src.InBounds(rng.End.Row, rng.End.Col) {
		return "", fmt.Errorf("%w: %s", errReference, rng)
	}

	if call.function == "" {
		if rng.Size() != 1 {
			return "", fmt.Errorf("%w: bare range %s", errSyntax, rng)
		}
		cell := e.src.Get(rng.Start.Row, rng.Start.Col)
		return formatNumber(Coerce(cell.Display())), nil
	}

	agg, ok := aggregates[call.function]
	if !ok {
		return "", fmt.Errorf("%w: %s", errUnknownFunc, call.function)
	}
	return agg(e.collect(rng)), nil
}

// call is a parsed expression: an optional function applied to one range
// operand. A bare reference has an empty function.
type call struct {
	function string
	operand  string
}

// parse accepts exactly "REF", "REF:REF" or "FUNC(REF[:REF])".
func parse(text string) (call, error) {
	ps := efp.ExcelParser()
	var tokens []efp.Token
	for _, tok := range ps.Parse(text) {
		if tok.TType == efp.TokenTypeWhitespace {
			continue
		}
		tokens = append(tokens, tok)
	}

	isRange := func(tok efp.Token) bool {
		return tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeRange
	}

	switch {
	case len(tokens) == 1 && isRange(tokens[0]):
		return call{operand: tokens[0].TValue}, nil
	case len(tokens) == 3 &&
		tokens[0].TType == efp.TokenTypeFunction && tokens[0].TSubType == efp.TokenSubTypeStart &&
		isRange(tokens[1]) &&
		tokens[2].TType == efp.TokenTypeFunction && tokens[2].TSubType == efp.TokenSubTypeStop:
		return call{function: tokens[0].TValue, operand: tokens[1].TValue}, nil
	default:
		return call{}, fmt.Errorf("%w: %q", errSyntax, text)
	}
}

// sample is what an aggregate needs to know about a range.
type sample struct {
	values    []float64 // coerced values of the materialized cells in range
	absent    int       // cells in range with nothing stored, each counts as 0
	nonEmpty  int       // cells whose trimmed text is non-empty
	cellCount int       // total cells in range
}

// collect gathers the range values, scanning the store instead of the
// rectangle when the store holds fewer entries than the range has cells.
func (e *Evaluator) collect(rng grid.Range) sample {
	s := sample{cellCount: rng.Size()}
	add := func(cell models.Cell) {
		text := cell.Display()
		s.values = append(s.values, Coerce(text))
		if strings.TrimSpace(text) != "" {
			s.nonEmpty++
		}
	}

	if s.cellCount <= e.src.Count() {
		for ref := range rng.Cells() {
			add(e.src.Get(ref.Row, ref.Col))
		}
		return s
	}

	for ref, cell := range e.src.All() {
		if rng.Contains(ref) {
			add(cell)
		}
	}
	s.absent = s.cellCount - len(s.values)
	return s
}

var aggregates = map[string]func(sample) string{
	"SUM": func(s sample) string {
		return formatNumber(sum(s.values))
	},
	"AVERAGE": func(s sample) string {
		if s.nonEmpty == 0 {
			return "0"
		}
		return strconv.FormatFloat(sum(s.values)/float64(s.cellCount), 'f', 2, 64)
	},
	"COUNT": func(s sample) string {
		return strconv.Itoa(s.nonEmpty)
	},
	"MIN": func(s sample) string {
		return formatNumber(extreme(s, func(a, b float64) bool { return a < b }))
	},
	"MAX": func(s sample) string {
		return formatNumber(extreme(s, func(a, b float64) bool { return a > b }))
	},
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// extreme returns the value preferred by better, counting absent cells as
// zeros.
func extreme(s sample, better func(a, b float64) bool) float64 {
	found := false
	var best float64
	if s.absent > 0 {
		best, found = 0, true
	}
	for _, v := range s.values {
		if !found || better(v, best) {
			best, found = v, true
		}
	}
	return best
}

// formatNumber renders v as the shortest decimal text that round-trips.
// Magnitudes of 1e21 and above or below 1e-6 use exponent notation with
// an unpadded exponent, as in "1e+21" and "1.5e-7".
func formatNumber(v float64) string {
	switch {
	case v == 0:
		return "0"
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if abs := math.Abs(v); abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
