package domain

import (
	"context"
	"strconv"
	"sync"
)

type fakeBoardStore struct {
	mu     sync.Mutex
	boards map[string]Board
	seq    int

	// raceOnce runs before the next write is checked, simulating a
	// concurrent writer.
	raceOnce func(f *fakeBoardStore)
	inserts  int
	updates  int
}

func newFakeBoardStore(boards ...Board) *fakeBoardStore {
	f := &fakeBoardStore{boards: map[string]Board{}}
	for _, b := range boards {
		f.put(b)
	}
	return f
}

func (f *fakeBoardStore) put(b Board) {
	f.seq++
	b.ETag = strconv.Itoa(f.seq)
	b.ShapeIDs = append([]string(nil), b.ShapeIDs...)
	f.boards[b.ID] = b
}

func (f *fakeBoardStore) race() {
	if f.raceOnce != nil {
		fn := f.raceOnce
		f.raceOnce = nil
		fn(f)
	}
}

func (f *fakeBoardStore) ListBoards(ctx context.Context, roomID string) ([]Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Board, 0, len(f.boards))
	for _, b := range f.boards {
		b.ShapeIDs = append([]string(nil), b.ShapeIDs...)
		out = append(out, b)
	}
	SortBoards(out)
	return out, nil
}

func (f *fakeBoardStore) InsertBoard(ctx context.Context, b Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.race()
	if _, exists := f.boards[b.ID]; exists {
		return ErrConcurrencyConflict
	}
	f.inserts++
	f.put(b)
	return nil
}

func (f *fakeBoardStore) UpdateBoards(ctx context.Context, boards []Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.race()
	for _, b := range boards {
		cur, ok := f.boards[b.ID]
		if !ok || cur.ETag != b.ETag {
			return ErrConcurrencyConflict
		}
	}
	f.updates++
	for _, b := range boards {
		f.put(b)
	}
	return nil
}

type staticShapes []string

func (s staticShapes) ShapeIDs(ctx context.Context, roomID string) ([]string, error) {
	return append([]string(nil), s...), nil
}
