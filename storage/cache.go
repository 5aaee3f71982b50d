package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"coaching-api/domain"
)

type curriculumBackend interface {
	FetchCurriculum(ctx context.Context) ([]domain.Task, error)
}

// Cache puts Redis in front of a curriculum backend. The curriculum is
// shared by every organization and rarely changes.
type Cache struct {
	base  curriculumBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching curriculum wrapper using the provided Redis client and TTL.
func NewCache(base curriculumBackend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

// cachedTask mirrors domain.Task including its parents, which domain.Task
// leaves out of its JSON form.
type cachedTask struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Type        domain.TaskType     `json:"type"`
	Order       int                 `json:"order"`
	List        domain.TaskList     `json:"list"`
	Section     *domain.TaskSection `json:"section,omitempty"`
}

func toCached(tasks []domain.Task) []cachedTask {
	out := make([]cachedTask, 0, len(tasks))
	for _, t := range tasks {
		ct := cachedTask{ID: t.ID, Title: t.Title, Description: t.Description, URL: t.URL, Type: t.Type, Order: t.Order, List: t.List}
		if t.Section.Valid {
			sec := t.Section.Section
			ct.Section = &sec
		}
		out = append(out, ct)
	}
	return out
}

func fromCached(cached []cachedTask) []domain.Task {
	out := make([]domain.Task, 0, len(cached))
	for _, ct := range cached {
		t := domain.Task{ID: ct.ID, Title: ct.Title, Description: ct.Description, URL: ct.URL, Type: ct.Type, Order: ct.Order, List: ct.List}
		if ct.Section != nil {
			t.Section = domain.InSection(*ct.Section)
		}
		out = append(out, t)
	}
	return out
}

func (c *Cache) FetchCurriculum(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadCurriculumFromCache(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchCurriculum(ctx)
	if err != nil {
		return nil, err
	}

	c.storeCurriculum(ctx, tasks)
	return tasks, nil
}

// EvictCurriculum drops the cached curriculum so the next read hits storage.
func (c *Cache) EvictCurriculum(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, curriculumCacheKey).Err()
}

func (c *Cache) loadCurriculumFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, curriculumCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, curriculumCacheKey).Err()
		}
		return nil, false
	}
	var cached []cachedTask
	if err := json.Unmarshal(data, &cached); err != nil {
		_ = c.redis.Del(ctx, curriculumCacheKey).Err()
		return nil, false
	}
	return fromCached(cached), true
}

func (c *Cache) storeCurriculum(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(toCached(tasks))
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, curriculumCacheKey, data, c.ttl).Err()
}

const curriculumCacheKey = "curriculum:v1"
