package storage

import (
	"context"
	"encoding/json"
	"errors"

	"coaching-api/domain"
)

// ErrActivityQueueDisabled is returned when no activity queue is configured.
var ErrActivityQueueDisabled = errors.New("activity queue not configured")

// EnqueueActivity sends the given events to the activity queue.
func (s *Store) EnqueueActivity(ctx context.Context, events []domain.ActivityEvent) error {
	if s.activityQueue == nil {
		return ErrActivityQueueDisabled
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := s.activityQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}
