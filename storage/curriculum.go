package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"coaching-api/domain"
)

// FetchCurriculum loads every list, section and task and joins them into
// tasks carrying their parents. Tasks that reference a missing list are
// reported as an error; a missing section degrades to unsectioned.
func (s *Store) FetchCurriculum(ctx context.Context) ([]domain.Task, error) {
	lists := map[string]domain.TaskList{}
	err := listPartition(ctx, s.curriculum, partitionLists, func(raw []byte) error {
		var ent listEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		lists[ent.RowKey] = domain.TaskList{ID: ent.RowKey, Title: ent.Title, Order: ent.Order}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sections := map[string]domain.TaskSection{}
	err = listPartition(ctx, s.curriculum, partitionSections, func(raw []byte) error {
		var ent sectionEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		sections[ent.RowKey] = domain.TaskSection{ID: ent.RowKey, Title: ent.Title, Order: ent.Order}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tasks := []domain.Task{}
	err = listPartition(ctx, s.curriculum, partitionTasks, func(raw []byte) error {
		var ent taskEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		t, err := joinTask(ent, lists, sections)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func joinTask(ent taskEntity, lists map[string]domain.TaskList, sections map[string]domain.TaskSection) (domain.Task, error) {
	list, ok := lists[ent.ListID]
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s references unknown list %q", ent.RowKey, ent.ListID)
	}
	t := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		URL:         ent.URL,
		Type:        domain.TaskType(ent.Type),
		Order:       ent.Order,
		List:        list,
	}
	if sec, ok := sections[ent.SectionID]; ok && ent.SectionID != "" {
		t.Section = domain.InSection(sec)
	}
	return t, nil
}

// SaveList, SaveSection and SaveTask write curriculum rows; they are used by
// the seeding tool.
func (s *Store) SaveList(ctx context.Context, l domain.TaskList) error {
	return upsertEntity(ctx, s.curriculum, listEntity{Entity: key(partitionLists, l.ID), Title: l.Title, Order: l.Order})
}

func (s *Store) SaveSection(ctx context.Context, sec domain.TaskSection) error {
	return upsertEntity(ctx, s.curriculum, sectionEntity{Entity: key(partitionSections, sec.ID), Title: sec.Title, Order: sec.Order})
}

func (s *Store) SaveTask(ctx context.Context, t domain.Task) error {
	ent := taskEntity{
		Entity:      key(partitionTasks, t.ID),
		Title:       t.Title,
		Description: t.Description,
		URL:         t.URL,
		Type:        string(t.Type),
		Order:       t.Order,
		ListID:      t.List.ID,
	}
	if t.Section.Valid {
		ent.SectionID = t.Section.Section.ID
	}
	return upsertEntity(ctx, s.curriculum, ent)
}

// FetchCompletions returns the caller's completion records.
func (s *Store) FetchCompletions(ctx context.Context, scope domain.Scope) ([]domain.CompletedTask, error) {
	out := []domain.CompletedTask{}
	err := listPartition(ctx, s.completions, scope.UserID, func(raw []byte) error {
		var ent completionEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, domain.CompletedTask{
			TaskID:    ent.RowKey,
			UserID:    ent.PartitionKey,
			Completed: ent.Completed,
			Data:      ent.Data,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetCompletion records whether the caller completed a task.
func (s *Store) SetCompletion(ctx context.Context, scope domain.Scope, c domain.CompletedTask) error {
	return upsertEntity(ctx, s.completions, completionEntity{
		Entity:    key(scope.UserID, c.TaskID),
		Completed: c.Completed,
		Data:      c.Data,
	})
}
