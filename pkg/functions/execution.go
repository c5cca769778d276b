package functions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"planthealth/internal/util"
)

// Execution statuses. An execution is terminal once completed or failed.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Execution is a single invocation of the recognition function. It is
// transient: polled until terminal, then left to expire.
type Execution struct {
	ID           string    `json:"id"`
	FileID       string    `json:"fileId"`
	Status       string    `json:"status"`
	Response     []byte    `json:"response,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ExecutionStore tracks execution status and results.
type ExecutionStore interface {
	Create(ctx context.Context, fileID string) (Execution, error)
	Get(ctx context.Context, id string) (Execution, bool, error)
	Complete(ctx context.Context, id string, response []byte) error
	Fail(ctx context.Context, id, errMsg string) error
}

// RedisExecutionStore keeps execution records in Redis hashes with TTL.
type RedisExecutionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisExecutionStore builds a Redis-backed execution store.
func NewRedisExecutionStore(addr, password string, ttl time.Duration) *RedisExecutionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisExecutionStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: "execution",
		ttl:    ttl,
	}
}

// Create registers a new pending execution for a file.
func (s *RedisExecutionStore) Create(ctx context.Context, fileID string) (Execution, error) {
	now := time.Now().UTC()
	exec := Execution{
		ID:        util.NewID(),
		FileID:    fileID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, exec); err != nil {
		return Execution{}, err
	}
	return exec, nil
}

// Get returns an execution by ID.
func (s *RedisExecutionStore) Get(ctx context.Context, id string) (Execution, bool, error) {
	data, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Execution{}, false, err
	}
	if len(data) == 0 {
		return Execution{}, false, nil
	}
	return decodeExecution(id, data), true, nil
}

// Complete marks an execution completed with the function response.
func (s *RedisExecutionStore) Complete(ctx context.Context, id string, response []byte) error {
	exec, ok, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("execution %s not found", id)
	}
	exec.Status = StatusCompleted
	exec.Response = response
	exec.ErrorMessage = ""
	exec.UpdatedAt = time.Now().UTC()
	return s.write(ctx, exec)
}

// Fail marks an execution failed with the function error message.
func (s *RedisExecutionStore) Fail(ctx context.Context, id, errMsg string) error {
	exec, ok, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("execution %s not found", id)
	}
	exec.Status = StatusFailed
	exec.ErrorMessage = errMsg
	exec.UpdatedAt = time.Now().UTC()
	return s.write(ctx, exec)
}

func (s *RedisExecutionStore) write(ctx context.Context, exec Execution) error {
	payload := map[string]any{
		"fileId":    exec.FileID,
		"status":    exec.Status,
		"response":  string(exec.Response),
		"error":     exec.ErrorMessage,
		"createdAt": exec.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt": exec.UpdatedAt.Format(time.RFC3339Nano),
	}
	key := s.key(exec.ID)
	if err := s.client.HSet(ctx, key, payload).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisExecutionStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func decodeExecution(id string, data map[string]string) Execution {
	exec := Execution{ID: id}
	exec.FileID = data["fileId"]
	exec.Status = data["status"]
	if v := data["response"]; v != "" {
		exec.Response = []byte(v)
	}
	exec.ErrorMessage = data["error"]
	if v := data["createdAt"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			exec.CreatedAt = t
		}
	}
	if v := data["updatedAt"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			exec.UpdatedAt = t
		}
	}
	return exec
}
