// Package history keeps bounded undo/redo stacks of full board snapshots.
// Entries are independent serialized copies: restoring one can never alias
// live state, so correctness reduces to json round-trip equality.
package history

import (
	"encoding/json"

	"github.com/deproudfoot/contextboard-server/board"
)

const DefaultLimit = 20

type Stack struct {
	limit int
	undo  [][]byte
	redo  [][]byte
}

func New(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Stack{limit: limit}
}

// Commit records prev (the state before a mutation) as an undo entry and
// clears the redo stack. A fresh edit after an undo branches history; the
// abandoned branch is gone.
func (s *Stack) Commit(prev board.Data) {
	s.undo = push(s.undo, snapshot(prev), s.limit)
	s.redo = nil
}

// Undo trades current for the most recent undo entry. The second return is
// false when there is nothing to undo.
func (s *Stack) Undo(current board.Data) (board.Data, bool) {
	if len(s.undo) == 0 {
		return board.Data{}, false
	}
	entry := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = push(s.redo, snapshot(current), s.limit)
	return restore(entry), true
}

// Redo is the symmetric inverse of Undo.
func (s *Stack) Redo(current board.Data) (board.Data, bool) {
	if len(s.redo) == 0 {
		return board.Data{}, false
	}
	entry := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = push(s.undo, snapshot(current), s.limit)
	return restore(entry), true
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

func push(stack [][]byte, entry []byte, limit int) [][]byte {
	stack = append(stack, entry)
	if len(stack) > limit {
		stack = stack[len(stack)-limit:]
	}
	return stack
}

func snapshot(d board.Data) []byte {
	b, err := json.Marshal(d)
	if err != nil {
		// board.Data is plain data; marshal cannot fail for it.
		panic(err)
	}
	return b
}

func restore(b []byte) board.Data {
	var d board.Data
	if err := json.Unmarshal(b, &d); err != nil {
		panic(err)
	}
	return d
}
