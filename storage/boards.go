package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"coaching-api/domain"
)

func decodeBoard(raw []byte) (domain.Board, error) {
	var ent boardEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return domain.Board{}, err
	}
	b := domain.Board{
		ID:     ent.RowKey,
		RoomID: ent.PartitionKey,
		Title:  ent.Title,
		Order:  ent.Order,
		ETag:   ent.ETag,
	}
	if ent.ShapeIDs != "" {
		if err := json.Unmarshal([]byte(ent.ShapeIDs), &b.ShapeIDs); err != nil {
			return domain.Board{}, err
		}
	}
	if b.ShapeIDs == nil {
		b.ShapeIDs = []string{}
	}
	return b, nil
}

func encodeBoard(b domain.Board) ([]byte, error) {
	ids := b.ShapeIDs
	if ids == nil {
		ids = []string{}
	}
	shapeIDs, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return json.Marshal(boardEntity{
		Entity:   key(b.RoomID, b.ID),
		Title:    b.Title,
		Order:    b.Order,
		ShapeIDs: string(shapeIDs),
	})
}

// ListBoards returns the boards of a room, ordered, each carrying its ETag.
func (s *Store) ListBoards(ctx context.Context, roomID string) ([]domain.Board, error) {
	out := []domain.Board{}
	err := listPartition(ctx, s.boards, roomID, func(raw []byte) error {
		b, err := decodeBoard(raw)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	domain.SortBoards(out)
	return out, nil
}

// InsertBoard creates a board. It fails with domain.ErrConcurrencyConflict
// when a board with the same id already exists.
func (s *Store) InsertBoard(ctx context.Context, b domain.Board) error {
	payload, err := encodeBoard(b)
	if err != nil {
		return err
	}
	if _, err := s.boards.AddEntity(ctx, payload, nil); err != nil {
		return conflictOr(err)
	}
	return nil
}

// UpdateBoard replaces a board only if it still has the given ETag.
func (s *Store) UpdateBoard(ctx context.Context, b domain.Board, etag string) error {
	payload, err := encodeBoard(b)
	if err != nil {
		return err
	}
	et := azcore.ETag(etag)
	_, err = s.boards.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return conflictOr(err)
	}
	return nil
}

// UpdateBoards writes several boards of one room atomically, each guarded by
// its ETag.
func (s *Store) UpdateBoards(ctx context.Context, boards []domain.Board) error {
	switch len(boards) {
	case 0:
		return nil
	case 1:
		return s.UpdateBoard(ctx, boards[0], boards[0].ETag)
	}
	actions := make([]aztables.TransactionAction, 0, len(boards))
	for _, b := range boards {
		payload, err := encodeBoard(b)
		if err != nil {
			return err
		}
		et := azcore.ETag(b.ETag)
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeUpdateReplace,
			Entity:     payload,
			IfMatch:    &et,
		})
	}
	if _, err := s.boards.SubmitTransaction(ctx, actions, nil); err != nil {
		return batchConflictOr(err)
	}
	return nil
}

func conflictOr(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusConflict, http.StatusPreconditionFailed:
			return domain.ErrConcurrencyConflict
		}
		switch respErr.ErrorCode {
		case "UpdateConditionNotSatisfied", string(aztables.EntityAlreadyExists):
			return domain.ErrConcurrencyConflict
		}
	}
	return err
}

var changesetStatusLine = regexp.MustCompile(`HTTP/1\.1 (\d{3})`)

// batchConflictOr maps a failed entity group transaction. The service answers
// 202 for the batch as a whole and reports the failing operation inside the
// multipart changeset, so the outer ResponseError carries neither 409/412 nor
// an error code.
func batchConflictOr(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusAccepted {
		return conflictOr(err)
	}
	switch changesetFailure(respErr.RawResponse) {
	case 0, http.StatusNotFound, http.StatusConflict, http.StatusPreconditionFailed:
		// 0: unreadable body. Every row carries If-Match.
		return domain.ErrConcurrencyConflict
	}
	return err
}

// changesetFailure returns the first 4xx/5xx status inside a batch response
// body, or 0 when none can be read.
func changesetFailure(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return 0
	}
	for _, m := range changesetStatusLine.FindAllSubmatch(body, -1) {
		if code, err := strconv.Atoi(string(m[1])); err == nil && code >= 400 {
			return code
		}
	}
	return 0
}
