// Package engine provides the transactional substrate shared by the core:
// a journal of undoable state mutations and the observation events flushed
// to subscribers when the outermost operation commits.
package engine

// SinkFunc receives events committed by the journal. A nil sink drops them.
type SinkFunc func(Event)

// Snapshot marks a point in the journal that can be reverted to.
type Snapshot struct {
	undos  int
	events int
}

// Journal records inverse operations for every state mutation performed
// during an operation. Operations run inside Transact: on failure every
// mutation since the enclosing snapshot is undone and buffered events are
// discarded, on success at the outermost level the buffered events are
// flushed to the sink. This gives every public call all-or-nothing
// semantics without any partial-state persistence on failure.
//
// A Journal is NOT safe for concurrent use. Callers serialize access; see
// exchange.Exchange.
type Journal struct {
	undos  []func()
	events []Event
	depth  int
	sink   SinkFunc
}

// NewJournal creates a journal that flushes committed events to sink.
func NewJournal(sink SinkFunc) *Journal {
	return &Journal{sink: sink}
}

// Snapshot returns a marker for the current journal position.
func (j *Journal) Snapshot() Snapshot {
	return Snapshot{undos: len(j.undos), events: len(j.events)}
}

// Append records the inverse of a mutation that has just been applied.
func (j *Journal) Append(undo func()) {
	j.undos = append(j.undos, undo)
}

// Emit buffers an event. It reaches the sink only when the outermost
// Transact commits; a revert discards it together with the state it
// describes.
func (j *Journal) Emit(ev Event) {
	j.events = append(j.events, ev)
}

// RevertTo unwinds every mutation recorded since the snapshot, newest
// first, and drops the events buffered since it.
func (j *Journal) RevertTo(s Snapshot) {
	for i := len(j.undos) - 1; i >= s.undos; i-- {
		j.undos[i]()
	}
	j.undos = j.undos[:s.undos]
	j.events = j.events[:s.events]
}

// Transact runs fn as one atomic unit. Nested calls compose: an inner
// failure unwinds only the inner work, an outer failure unwinds everything
// including previously successful inner units. Events flush once, when the
// outermost unit commits.
func (j *Journal) Transact(fn func() error) error {
	s := j.Snapshot()
	j.depth++
	err := fn()
	j.depth--
	if err != nil {
		j.RevertTo(s)
		return err
	}
	if j.depth == 0 {
		j.commit()
	}
	return nil
}

func (j *Journal) commit() {
	if j.sink != nil {
		for _, ev := range j.events {
			j.sink(ev)
		}
	}
	j.undos = j.undos[:0]
	j.events = j.events[:0]
}
