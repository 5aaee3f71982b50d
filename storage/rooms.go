package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"coaching-api/domain"
)

const maxRoomTxRetries = 8

// Rooms keeps live room documents in Redis.
type Rooms struct {
	redis *redis.Client
}

// NewRooms creates a Redis-backed room document store.
func NewRooms(client *redis.Client) *Rooms {
	if client == nil {
		panic("storage.NewRooms: redis client is nil")
	}
	return &Rooms{redis: client}
}

func roomKey(roomID string) string {
	return "room:" + roomID
}

func roomChannel(roomID string) string {
	return "room-updates:" + roomID
}

func emptyDocument() domain.RoomDocument {
	return domain.RoomDocument{
		Shapes:      []domain.Shape{},
		Comments:    []json.RawMessage{},
		Connections: []json.RawMessage{},
	}
}

func decodeDocument(data []byte) (domain.RoomDocument, error) {
	doc := emptyDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.RoomDocument{}, err
	}
	if doc.Shapes == nil {
		doc.Shapes = []domain.Shape{}
	}
	if doc.Comments == nil {
		doc.Comments = []json.RawMessage{}
	}
	if doc.Connections == nil {
		doc.Connections = []json.RawMessage{}
	}
	return doc, nil
}

// Document returns the room document, or an empty one when the room has not
// been initialized.
func (r *Rooms) Document(ctx context.Context, roomID string) (domain.RoomDocument, error) {
	data, err := r.redis.Get(ctx, roomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyDocument(), nil
		}
		return domain.RoomDocument{}, err
	}
	return decodeDocument(data)
}

// InitDocument creates an empty document unless one already exists. It
// reports whether a document was created.
func (r *Rooms) InitDocument(ctx context.Context, roomID string) (bool, error) {
	data, err := json.Marshal(emptyDocument())
	if err != nil {
		return false, err
	}
	return r.redis.SetNX(ctx, roomKey(roomID), data, 0).Result()
}

// AppendShapes adds shapes to the room document, replacing shapes that share
// an id. Concurrent writers are serialized with WATCH.
func (r *Rooms) AppendShapes(ctx context.Context, roomID string, shapes []domain.Shape) (domain.RoomDocument, error) {
	k := roomKey(roomID)
	var result domain.RoomDocument
	txf := func(tx *redis.Tx) error {
		doc := emptyDocument()
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if doc, err = decodeDocument(data); err != nil {
				return err
			}
		}
		doc.Shapes = mergeShapes(doc.Shapes, shapes)
		out, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, 0)
			return nil
		})
		if err == nil {
			result = doc
		}
		return err
	}

	for i := 0; i < maxRoomTxRetries; i++ {
		err := r.redis.Watch(ctx, txf, k)
		if err == nil {
			if perr := r.redis.Publish(ctx, roomChannel(roomID), len(shapes)).Err(); perr != nil {
				log.WithError(perr).WithField("room", roomID).Warn("room update notification failed")
			}
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.RoomDocument{}, err
	}
	return domain.RoomDocument{}, fmt.Errorf("append shapes to room %s: %w", roomID, domain.ErrConcurrencyConflict)
}

// Subscribe signals on the returned channel whenever the room document
// changes. Bursts of changes are coalesced. The subscription ends when ctx is
// done or the returned close function is called.
func (r *Rooms) Subscribe(ctx context.Context, roomID string) (<-chan struct{}, func() error, error) {
	sub := r.redis.Subscribe(ctx, roomChannel(roomID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, sub.Close, nil
}

// ShapeIDs returns the ids of the room's non-primitive shapes.
func (r *Rooms) ShapeIDs(ctx context.Context, roomID string) ([]string, error) {
	doc, err := r.Document(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return doc.BoardShapeIDs(), nil
}

func mergeShapes(existing, added []domain.Shape) []domain.Shape {
	idx := make(map[string]int, len(existing))
	for i, s := range existing {
		idx[s.ID] = i
	}
	for _, s := range added {
		if i, ok := idx[s.ID]; ok {
			existing[i] = s
			continue
		}
		idx[s.ID] = len(existing)
		existing = append(existing, s)
	}
	return existing
}
