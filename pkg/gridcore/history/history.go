// Package history implements snapshot based undo and redo over a cell
// store.
package history

import (
	"fmt"
	"log/slog"

	"github.com/tiendc/go-deepcopy"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// DefaultDepth is the default number of undo steps kept.
const DefaultDepth = 50

// Store is the bulk-state side of the cell store.
type Store interface {
	Export() map[grid.Ref]models.Cell
	Replace(entries map[grid.Ref]models.Cell)
}

// Snapshot is an independent copy of every materialized entry.
type Snapshot map[grid.Ref]models.Cell

// Manager keeps bounded undo and redo stacks of snapshots. Take a snapshot
// once per discrete user action, before mutating the store.
type Manager struct {
	store  Store
	depth  int
	undo   []Snapshot
	redo   []Snapshot
	logger *slog.Logger
}

// New returns a manager for store keeping at most depth undo steps. A
// non-positive depth means DefaultDepth.
func New(store Store, depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{
		store:  store,
		depth:  depth,
		logger: slog.Default().With(slog.String("component", "history")),
	}
}

// Snapshot records the current store contents as an undo step and clears
// the redo stack. The oldest step is evicted once depth is exceeded.
func (m *Manager) Snapshot() {
	m.undo = push(m.undo, m.capture(), m.depth)
	m.redo = nil
}

// Undo restores the most recent snapshot. It returns false and leaves the
// store untouched when there is nothing to undo.
func (m *Manager) Undo() bool {
	if len(m.undo) == 0 {
		return false
	}
	m.redo = push(m.redo, m.capture(), m.depth)
	m.undo = m.restore(m.undo)
	return true
}

// Redo reapplies the most recently undone state. It returns false when
// there is nothing to redo.
func (m *Manager) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	m.undo = push(m.undo, m.capture(), m.depth)
	m.redo = m.restore(m.redo)
	return true
}

// CanUndo reports whether Undo would change the store.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether Redo would change the store.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Len returns the number of undo and redo steps held.
func (m *Manager) Len() (undo, redo int) { return len(m.undo), len(m.redo) }

// Clear drops both stacks, e.g. when the store is replaced by another
// sheet.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) capture() Snapshot {
	return Snapshot(clone(m.store.Export()))
}

// restore pops the top of stack into the store and returns the rest.
func (m *Manager) restore(stack []Snapshot) []Snapshot {
	top := stack[len(stack)-1]
	stack[len(stack)-1] = nil
	m.store.Replace(clone(top))
	m.logger.Debug("snapshot restored", slog.Int("entries", len(top)))
	return stack[:len(stack)-1]
}

func push(stack []Snapshot, s Snapshot, depth int) []Snapshot {
	stack = append(stack, s)
	if over := len(stack) - depth; over > 0 {
		clear(stack[:over])
		stack = stack[over:]
	}
	return stack
}

func clone(entries map[grid.Ref]models.Cell) map[grid.Ref]models.Cell {
	out := make(map[grid.Ref]models.Cell, len(entries))
	if err := deepcopy.Copy(&out, &entries); err != nil {
		panic(fmt.Sprintf("history: copy snapshot: %v", err))
	}
	return out
}
