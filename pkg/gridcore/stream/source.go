package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
)

// Source supplies entries to Run. Next returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (Entry, error)
}

// SliceSource serves a fixed list of entries.
type SliceSource struct {
	entries []Entry
}

// FromEntries returns a Source over entries.
func FromEntries(entries ...Entry) *SliceSource {
	return &SliceSource{entries: entries}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if len(s.entries) == 0 {
		return Entry{}, io.EOF
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	return e, nil
}

// record is one line of a JSON-lines stream. A cell is addressed either by
// "cell" in A1 notation or by zero-based "row" and "col".
type record struct {
	Cell    string `json:"cell,omitempty"`
	Row     *int   `json:"row,omitempty"`
	Col     *int   `json:"col,omitempty"`
	Value   string `json:"value"`
	DelayMs *int   `json:"delayMs,omitempty"`
}

// JSONLSource decodes entries from a JSON-lines reader, e.g.
//
//	{"cell":"A1","value":"Revenue"}
//	{"row":1,"col":0,"value":"=SUM(B1:B3)","delayMs":120}
type JSONLSource struct {
	dec          *json.Decoder
	defaultDelay time.Duration
	line         int
}

// NewJSONLSource reads entries from r. Entries without delayMs wait
// defaultDelay after commit.
func NewJSONLSource(r io.Reader, defaultDelay time.Duration) *JSONLSource {
	return &JSONLSource{dec: json.NewDecoder(r), defaultDelay: defaultDelay}
}

// Next implements Source. A blocked read on the underlying reader is not
// interrupted by ctx.
func (s *JSONLSource) Next(ctx context.Context) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	var rec record
	if err := s.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("record %d: %w", s.line+1, err)
	}
	s.line++

	e := Entry{Value: rec.Value, Delay: s.defaultDelay}
	switch {
	case rec.Cell != "":
		ref, err := grid.ParseRef(rec.Cell)
		if err != nil {
			return Entry{}, fmt.Errorf("record %d: %w", s.line, err)
		}
		e.Row, e.Col = ref.Row, ref.Col
	case rec.Row != nil && rec.Col != nil:
		e.Row, e.Col = *rec.Row, *rec.Col
	default:
		return Entry{}, fmt.Errorf("record %d: missing cell or row/col", s.line)
	}
	if rec.DelayMs != nil {
		e.Delay = time.Duration(*rec.DelayMs) * time.Millisecond
	}
	return e, nil
}
