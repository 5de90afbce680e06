package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/vellum/pkg/api"
)

type (
	// RedisStore persists pages, steps, and run values in Redis. It
	// implements the nav.AnswerStore interface
	RedisStore struct {
		client *redis.Client
		prefix string
	}

	// Config holds connection settings for the Redis store
	Config struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}
)

const DefaultPrefix = "vellum"

var ErrStepNotFound = errors.New("step not found")

// NewRedisStore connects to Redis with the given configuration
func NewRedisStore(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SavePages stores a workflow's page definitions as one JSON document
func (s *RedisStore) SavePages(
	ctx context.Context, workflowID string, pages []*api.Page,
) error {
	data, err := json.Marshal(pages)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.pagesKey(workflowID), data, 0).Err()
}

// ListPages returns a workflow's pages; a missing document is an empty
// workflow, not an error
func (s *RedisStore) ListPages(
	ctx context.Context, workflowID string,
) ([]*api.Page, error) {
	data, err := s.client.Get(ctx, s.pagesKey(workflowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []*api.Page{}, nil
	}
	if err != nil {
		return nil, err
	}

	var pages []*api.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// SaveSteps stores a section's step definitions as one JSON document
func (s *RedisStore) SaveSteps(
	ctx context.Context, sectionID api.PageID, steps []*api.PageStep,
) error {
	data, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stepsKey(sectionID), data, 0).Err()
}

// ListSteps returns a section's steps, unordered
func (s *RedisStore) ListSteps(
	ctx context.Context, sectionID api.PageID,
) ([]*api.PageStep, error) {
	data, err := s.client.Get(ctx, s.stepsKey(sectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []*api.PageStep{}, nil
	}
	if err != nil {
		return nil, err
	}

	var steps []*api.PageStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// SetValue stores one step value under its alias. Callers holding a
// visibility cache must invalidate it before the next read
func (s *RedisStore) SetValue(
	ctx context.Context, runID, alias string, value any,
) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.valuesKey(runID), alias, data).Err()
}

// Values returns a run's stored answers keyed by step alias
func (s *RedisStore) Values(
	ctx context.Context, runID string,
) (map[string]any, error) {
	entries, err := s.client.HGetAll(ctx, s.valuesKey(runID)).Result()
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(entries))
	for alias, raw := range entries {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, err
		}
		values[alias] = value
	}
	return values, nil
}

// DeleteValues removes the stored answers for the given step ids. The
// values hash is keyed by alias, so step ids are translated through the
// section documents they belong to
func (s *RedisStore) DeleteValues(
	ctx context.Context, runID string, stepIDs []api.StepID,
) error {
	if len(stepIDs) == 0 {
		return nil
	}

	aliases, err := s.aliasesFor(ctx, runID, stepIDs)
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		return nil
	}
	return s.client.HDel(ctx, s.valuesKey(runID), aliases...).Err()
}

// RegisterStepAlias records the step-id to alias mapping used when
// deleting by step id
func (s *RedisStore) RegisterStepAlias(
	ctx context.Context, runID string, stepID api.StepID, alias string,
) error {
	return s.client.HSet(
		ctx, s.aliasKey(runID), string(stepID), alias,
	).Err()
}

func (s *RedisStore) aliasesFor(
	ctx context.Context, runID string, stepIDs []api.StepID,
) ([]string, error) {
	fields := make([]string, len(stepIDs))
	for i, id := range stepIDs {
		fields[i] = string(id)
	}

	raw, err := s.client.HMGet(ctx, s.aliasKey(runID), fields...).Result()
	if err != nil {
		return nil, err
	}

	var aliases []string
	for _, v := range raw {
		if alias, ok := v.(string); ok && alias != "" {
			aliases = append(aliases, alias)
		}
	}
	return aliases, nil
}

func (s *RedisStore) pagesKey(workflowID string) string {
	return fmt.Sprintf("%s:workflow:%s:pages", s.prefix, workflowID)
}

func (s *RedisStore) stepsKey(sectionID api.PageID) string {
	return fmt.Sprintf("%s:section:%s:steps", s.prefix, sectionID)
}

func (s *RedisStore) valuesKey(runID string) string {
	return fmt.Sprintf("%s:run:%s:values", s.prefix, runID)
}

func (s *RedisStore) aliasKey(runID string) string {
	return fmt.Sprintf("%s:run:%s:aliases", s.prefix, runID)
}
