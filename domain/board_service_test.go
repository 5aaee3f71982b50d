package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestBoardServiceReconcileCreatesDefault(t *testing.T) {
	fs := newFakeBoardStore()
	svc := NewBoardService(fs, staticShapes{"a", "b"})

	boards, err := svc.Reconcile(context.Background(), "room")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(boards) != 1 || boards[0].ID != DefaultBoardID || !reflect.DeepEqual(boards[0].ShapeIDs, []string{"a", "b"}) {
		t.Fatalf("unexpected boards: %#v", boards)
	}
	if fs.inserts != 1 {
		t.Fatalf("expected one insert, got %d", fs.inserts)
	}
}

func TestBoardServiceReconcileNoWriteWhenInSync(t *testing.T) {
	fs := newFakeBoardStore(Board{ID: "todo", ShapeIDs: []string{"a"}})
	svc := NewBoardService(fs, staticShapes{"a"})

	if _, err := svc.Reconcile(context.Background(), "room"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if fs.inserts != 0 || fs.updates != 0 {
		t.Fatalf("expected no writes, got inserts=%d updates=%d", fs.inserts, fs.updates)
	}
}

func TestBoardServiceReconcileRetriesAfterConcurrentInsert(t *testing.T) {
	fs := newFakeBoardStore()
	fs.raceOnce = func(f *fakeBoardStore) {
		f.put(Board{ID: DefaultBoardID, Title: DefaultBoardTitle, ShapeIDs: []string{"a"}})
	}
	svc := NewBoardService(fs, staticShapes{"a", "b"})

	boards, err := svc.Reconcile(context.Background(), "room")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(boards) != 1 || !reflect.DeepEqual(boards[0].ShapeIDs, []string{"a", "b"}) {
		t.Fatalf("unexpected boards: %#v", boards)
	}
	stored, _ := fs.ListBoards(context.Background(), "room")
	if !reflect.DeepEqual(stored[0].ShapeIDs, []string{"a", "b"}) {
		t.Fatalf("unexpected stored ids: %v", stored[0].ShapeIDs)
	}
}

func TestBoardServiceReconcileDoesNotDoubleAssignUnderRace(t *testing.T) {
	fs := newFakeBoardStore(
		Board{ID: "todo", Order: 0, ShapeIDs: []string{"a"}},
		Board{ID: "done", Order: 1},
	)
	// Another request moves the new shape to "done" between our read and write.
	fs.raceOnce = func(f *fakeBoardStore) {
		done := f.boards["done"]
		done.ShapeIDs = append(done.ShapeIDs, "b")
		f.put(done)
	}
	svc := NewBoardService(fs, staticShapes{"a", "b"})

	if _, err := svc.Reconcile(context.Background(), "room"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	stored, _ := fs.ListBoards(context.Background(), "room")
	owners := map[string]int{}
	for _, b := range stored {
		for _, id := range b.ShapeIDs {
			owners[id]++
		}
	}
	if owners["a"] != 1 || owners["b"] != 1 {
		t.Fatalf("expected each shape on exactly one board, got %v (%#v)", owners, stored)
	}
}

type alwaysConflict struct{ *fakeBoardStore }

func (alwaysConflict) UpdateBoards(ctx context.Context, boards []Board) error {
	return ErrConcurrencyConflict
}

func TestBoardServiceReconcileGivesUp(t *testing.T) {
	fs := alwaysConflict{newFakeBoardStore(Board{ID: "todo"})}
	svc := NewBoardService(fs, staticShapes{"a"})

	if _, err := svc.Reconcile(context.Background(), "room"); !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestBoardServiceMove(t *testing.T) {
	fs := newFakeBoardStore(
		Board{ID: "todo", Order: 0, ShapeIDs: []string{"a", "b"}},
		Board{ID: "done", Order: 1},
	)
	svc := NewBoardService(fs, staticShapes{"a", "b"})

	boards, err := svc.Move(context.Background(), "room", "b", "done")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !reflect.DeepEqual(boards[0].ShapeIDs, []string{"a"}) || !reflect.DeepEqual(boards[1].ShapeIDs, []string{"b"}) {
		t.Fatalf("unexpected boards: %#v", boards)
	}
	if _, err := svc.Move(context.Background(), "room", "b", "nowhere"); !errors.Is(err, ErrBoardNotFound) {
		t.Fatalf("expected board not found, got %v", err)
	}
}

func TestBoardServiceCreateAppendsAfterLast(t *testing.T) {
	fs := newFakeBoardStore(Board{ID: "todo", Order: 3})
	svc := NewBoardService(fs, staticShapes{})

	b, err := svc.Create(context.Background(), "room", "later", "Later")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Order != 4 || b.RoomID != "room" {
		t.Fatalf("unexpected board: %#v", b)
	}
	if _, err := svc.Create(context.Background(), "room", "later", "Again"); !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected duplicate id conflict, got %v", err)
	}
}
