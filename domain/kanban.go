package domain

import (
	"encoding/json"
	"slices"
	"sort"
)

// Primitive drawing shapes never appear on kanban boards.
const (
	ShapeRectangle = "rectangle"
	ShapeText      = "text"
	ShapeEllipse   = "ellipse"
)

// IsPrimitiveShape reports whether a shape type is a bare drawing primitive.
func IsPrimitiveShape(shapeType string) bool {
	switch shapeType {
	case ShapeRectangle, ShapeText, ShapeEllipse:
		return true
	}
	return false
}

// Shape is an element of a room document. Only ID and Type are interpreted;
// Raw keeps the element's full JSON form so geometry and styling written by
// drawing clients survive a round trip.
type Shape struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

type shapeHead struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	var head shapeHead
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	s.ID, s.Type = head.ID, head.Type
	s.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (s Shape) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(shapeHead{ID: s.ID, Type: s.Type})
}

// RoomDocument is the live state of a collaborative room.
type RoomDocument struct {
	Shapes      []Shape           `json:"shapes"`
	Comments    []json.RawMessage `json:"comments"`
	Connections []json.RawMessage `json:"connections"`
}

// BoardShapeIDs returns the ids of non-primitive shapes in document order.
func (d RoomDocument) BoardShapeIDs() []string {
	ids := make([]string, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		if s.ID == "" || IsPrimitiveShape(s.Type) {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

// DefaultBoardID is the row key of the board created for a room without one.
const DefaultBoardID = "default"

// DefaultBoardTitle is the title of that board.
const DefaultBoardTitle = "Default"

// Board is a kanban column grouping shape ids of a room.
type Board struct {
	ID       string   `json:"id"`
	RoomID   string   `json:"roomId"`
	Title    string   `json:"title"`
	Order    int      `json:"order"`
	ShapeIDs []string `json:"shapeIds"`
	ETag     string   `json:"-"`
}

// SortBoards orders boards by Order, then by ID.
func SortBoards(boards []Board) {
	sort.SliceStable(boards, func(i, j int) bool {
		return boardBefore(boards[i], boards[j])
	})
}

func boardBefore(a, b Board) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID < b.ID
}

// BoardPlan is the set of writes needed to bring boards in line with a room.
type BoardPlan struct {
	// Create is set when the room has no boards yet.
	Create *Board
	// Update holds boards whose shape ids changed, with the ETag they were read at.
	Update []Board
	// Boards is the full reconciled, ordered board list.
	Boards []Board
}

// Changed reports whether the plan requires any write.
func (p BoardPlan) Changed() bool {
	return p.Create != nil || len(p.Update) > 0
}

// ReconcileBoards assigns every live shape id to exactly one board. Shape ids
// no board holds are appended to the first board; ids whose shape is gone
// and ids already claimed by an earlier board are dropped. The input slice is
// not modified.
func ReconcileBoards(roomID string, boards []Board, shapeIDs []string) BoardPlan {
	live := make(map[string]struct{}, len(shapeIDs))
	for _, id := range shapeIDs {
		live[id] = struct{}{}
	}

	if len(boards) == 0 {
		b := Board{
			ID:       DefaultBoardID,
			RoomID:   roomID,
			Title:    DefaultBoardTitle,
			Order:    0,
			ShapeIDs: dedupe(shapeIDs),
		}
		return BoardPlan{Create: &b, Boards: []Board{b}}
	}

	sorted := make([]Board, len(boards))
	for i, b := range boards {
		b.ShapeIDs = append([]string(nil), b.ShapeIDs...)
		sorted[i] = b
	}
	SortBoards(sorted)

	var plan BoardPlan
	changed := make([]bool, len(sorted))
	claimed := make(map[string]struct{}, len(shapeIDs))
	for i := range sorted {
		kept := sorted[i].ShapeIDs[:0]
		for _, id := range sorted[i].ShapeIDs {
			_, alive := live[id]
			_, taken := claimed[id]
			if !alive || taken {
				changed[i] = true
				continue
			}
			claimed[id] = struct{}{}
			kept = append(kept, id)
		}
		sorted[i].ShapeIDs = kept
	}

	for _, id := range shapeIDs {
		if _, ok := claimed[id]; ok {
			continue
		}
		claimed[id] = struct{}{}
		sorted[0].ShapeIDs = append(sorted[0].ShapeIDs, id)
		changed[0] = true
	}

	for i, b := range sorted {
		if changed[i] {
			plan.Update = append(plan.Update, b)
		}
	}
	plan.Boards = sorted
	return plan
}

// MoveShape removes shapeID from the board that holds it and appends it to
// the board with id to. It returns the modified source and target boards.
// When several boards hold the shape, the first in board order is the
// source, as in ReconcileBoards. Moving onto that board returns it
// unchanged with from == to.
func MoveShape(boards []Board, shapeID, to string) (from Board, target Board, err error) {
	fromIdx, toIdx := -1, -1
	for i, b := range boards {
		if b.ID == to {
			toIdx = i
		}
		if fromIdx >= 0 && !boardBefore(b, boards[fromIdx]) {
			continue
		}
		for _, id := range b.ShapeIDs {
			if id == shapeID {
				fromIdx = i
				break
			}
		}
	}
	if toIdx < 0 {
		return Board{}, Board{}, ErrBoardNotFound
	}
	if fromIdx < 0 {
		return Board{}, Board{}, ErrShapeNotOnBoard
	}
	if fromIdx == toIdx {
		return boards[fromIdx], boards[toIdx], nil
	}

	from = boards[fromIdx]
	ids := make([]string, 0, len(from.ShapeIDs))
	for _, id := range from.ShapeIDs {
		if id != shapeID {
			ids = append(ids, id)
		}
	}
	from.ShapeIDs = ids

	target = boards[toIdx]
	target.ShapeIDs = append([]string(nil), target.ShapeIDs...)
	if !slices.Contains(target.ShapeIDs, shapeID) {
		target.ShapeIDs = append(target.ShapeIDs, shapeID)
	}
	return from, target, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
