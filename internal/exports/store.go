package exports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/redis"
	"github.com/google/uuid"
)

var errTaskNotFound = errors.New("export task not found")

type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	ExportKey(taskID string) string
}

// Store keeps export tasks in Redis; entries expire after ttl.
type Store struct {
	kv  keyValue
	ttl time.Duration
}

func NewStore(kv keyValue, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{kv: kv, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode export task: %w", err)
	}
	return s.kv.Set(ctx, s.kv.ExportKey(task.ID.String()), string(payload), s.ttl)
}

func (s *Store) Load(ctx context.Context, id uuid.UUID) (*Task, error) {
	raw, err := s.kv.Get(ctx, s.kv.ExportKey(id.String()))
	if err != nil {
		if redis.IsNil(err) {
			return nil, errTaskNotFound
		}
		return nil, err
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("decode export task: %w", err)
	}
	return &task, nil
}
