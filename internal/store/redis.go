// Package store provides persistence backends for LeadPipe.
//
// This file implements the Redis-backed store. Prospect documents are plain
// JSON values keyed by phone number, with a set index for enumeration.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

const (
	redisProspectKeyPrefix = "leadpipe:prospect:"
	redisProspectIndexKey  = "leadpipe:prospects"
	redisResponsesKey      = "leadpipe:responses"
	redisReceiptsKey       = "leadpipe:receipts"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis store from a redis:// URL.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}

	ropts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("RedisStore failed to parse DSN", "error", err)
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("RedisStore ping failed", "error", err)
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Debug("RedisStore ready", "addr", ropts.Addr)
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SaveProspect(p *models.ProspectState) error {
	ctx := context.Background()
	doc, err := json.Marshal(p)
	if err != nil {
		slog.Error("RedisStore SaveProspect marshal failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to marshal prospect %s: %w", p.PhoneNumber, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisProspectKeyPrefix+p.PhoneNumber, doc, 0)
	pipe.SAdd(ctx, redisProspectIndexKey, p.PhoneNumber)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("RedisStore SaveProspect failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to save prospect %s: %w", p.PhoneNumber, err)
	}
	slog.Debug("RedisStore SaveProspect succeeded", "phone", p.PhoneNumber, "state", p.ConversationState)
	return nil
}

func (s *RedisStore) GetProspect(phone string) (*models.ProspectState, error) {
	ctx := context.Background()
	doc, err := s.client.Get(ctx, redisProspectKeyPrefix+phone).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetProspect failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load prospect %s: %w", phone, err)
	}
	var p models.ProspectState
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		slog.Error("RedisStore GetProspect unmarshal failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to decode prospect %s: %w", phone, err)
	}
	return &p, nil
}

func (s *RedisStore) ListActiveProspects() ([]*models.ProspectState, error) {
	ctx := context.Background()
	phones, err := s.client.SMembers(ctx, redisProspectIndexKey).Result()
	if err != nil {
		slog.Error("RedisStore ListActiveProspects index read failed", "error", err)
		return nil, fmt.Errorf("failed to read prospect index: %w", err)
	}
	var active []*models.ProspectState
	for _, phone := range phones {
		p, err := s.GetProspect(phone)
		if err != nil {
			return nil, err
		}
		if p == nil || p.ConversationState.IsTerminal() {
			continue
		}
		active = append(active, p)
	}
	slog.Debug("RedisStore ListActiveProspects succeeded", "count", len(active))
	return active, nil
}

func (s *RedisStore) DeleteProspect(phone string) error {
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisProspectKeyPrefix+phone)
	pipe.SRem(ctx, redisProspectIndexKey, phone)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("RedisStore DeleteProspect failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to delete prospect %s: %w", phone, err)
	}
	return nil
}

func (s *RedisStore) AddResponse(r models.Response) error {
	return s.pushJSON(redisResponsesKey, r)
}

func (s *RedisStore) GetResponses() ([]models.Response, error) {
	var responses []models.Response
	err := s.readJSONList(redisResponsesKey, func(doc string) error {
		var r models.Response
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return err
		}
		responses = append(responses, r)
		return nil
	})
	return responses, err
}

func (s *RedisStore) AddReceipt(r models.Receipt) error {
	return s.pushJSON(redisReceiptsKey, r)
}

func (s *RedisStore) GetReceipts() ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := s.readJSONList(redisReceiptsKey, func(doc string) error {
		var r models.Receipt
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return err
		}
		receipts = append(receipts, r)
		return nil
	})
	return receipts, err
}

func (s *RedisStore) pushJSON(key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", key, err)
	}
	if err := s.client.RPush(context.Background(), key, doc).Err(); err != nil {
		slog.Error("RedisStore list push failed", "error", err, "key", key)
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) readJSONList(key string, decode func(string) error) error {
	docs, err := s.client.LRange(context.Background(), key, 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore list read failed", "error", err, "key", key)
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	for _, doc := range docs {
		if err := decode(doc); err != nil {
			slog.Error("RedisStore list decode failed", "error", err, "key", key)
			return fmt.Errorf("failed to decode %s entry: %w", key, err)
		}
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	err := s.client.Close()
	if err != nil {
		slog.Error("RedisStore failed to close client", "error", err)
	}
	return err
}
