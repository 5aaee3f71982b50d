package domain

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// BoardStorage persists kanban boards with optimistic concurrency. Update
// calls must fail with ErrConcurrencyConflict when a board's ETag is stale
// and InsertBoard must do the same when the board already exists.
type BoardStorage interface {
	ListBoards(ctx context.Context, roomID string) ([]Board, error)
	InsertBoard(ctx context.Context, b Board) error
	UpdateBoards(ctx context.Context, boards []Board) error
}

// ShapeSource lists the board-eligible shape ids of a room.
type ShapeSource interface {
	ShapeIDs(ctx context.Context, roomID string) ([]string, error)
}

const defaultReconcileAttempts = 5

// BoardService keeps a room's boards in line with its live shapes.
type BoardService struct {
	boards   BoardStorage
	shapes   ShapeSource
	attempts int
}

func NewBoardService(boards BoardStorage, shapes ShapeSource) BoardService {
	return BoardService{boards: boards, shapes: shapes, attempts: defaultReconcileAttempts}
}

// Reconcile reads the room's boards and shapes, writes whatever the plan
// requires and returns the reconciled boards. Every board read is written
// back under its ETag so a concurrent change to any of them fails the batch;
// a write that loses a race is retried from a fresh read.
func (s BoardService) Reconcile(ctx context.Context, roomID string) ([]Board, error) {
	for attempt := 1; ; attempt++ {
		shapeIDs, err := s.shapes.ShapeIDs(ctx, roomID)
		if err != nil {
			return nil, err
		}
		boards, err := s.boards.ListBoards(ctx, roomID)
		if err != nil {
			return nil, err
		}
		plan := ReconcileBoards(roomID, boards, shapeIDs)
		if !plan.Changed() {
			return plan.Boards, nil
		}

		if plan.Create != nil {
			err = s.boards.InsertBoard(ctx, *plan.Create)
		} else {
			err = s.boards.UpdateBoards(ctx, plan.Boards)
		}
		if err == nil {
			return plan.Boards, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return nil, err
		}
		if attempt >= s.attempts {
			log.WithFields(log.Fields{"room": roomID, "attempts": attempt}).Warn("board reconcile gave up after conflicts")
			return nil, fmt.Errorf("reconcile boards of room %s: %w", roomID, err)
		}
		log.WithFields(log.Fields{"room": roomID, "attempt": attempt}).Debug("board reconcile conflict, retrying")
	}
}

// Move relocates a shape to another board of the same room. Both boards are
// written in one conditional batch.
func (s BoardService) Move(ctx context.Context, roomID, shapeID, to string) ([]Board, error) {
	for attempt := 1; ; attempt++ {
		boards, err := s.boards.ListBoards(ctx, roomID)
		if err != nil {
			return nil, err
		}
		from, target, err := MoveShape(boards, shapeID, to)
		if err != nil {
			return nil, err
		}
		if from.ID == target.ID {
			return boards, nil
		}
		err = s.boards.UpdateBoards(ctx, []Board{from, target})
		if err == nil {
			for i := range boards {
				switch boards[i].ID {
				case from.ID:
					boards[i] = from
				case target.ID:
					boards[i] = target
				}
			}
			return boards, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) || attempt >= s.attempts {
			return nil, fmt.Errorf("move shape %s in room %s: %w", shapeID, roomID, err)
		}
	}
}

// Create adds an empty board after the existing ones.
func (s BoardService) Create(ctx context.Context, roomID, id, title string) (Board, error) {
	boards, err := s.boards.ListBoards(ctx, roomID)
	if err != nil {
		return Board{}, err
	}
	order := 0
	for _, b := range boards {
		if b.Order >= order {
			order = b.Order + 1
		}
	}
	b := Board{ID: id, RoomID: roomID, Title: title, Order: order, ShapeIDs: []string{}}
	if err := s.boards.InsertBoard(ctx, b); err != nil {
		return Board{}, err
	}
	return b, nil
}
