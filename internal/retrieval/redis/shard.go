// Package redis implements a retrieval shard over RediSearch vector
// indexes via rueidis.
package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/palate-labs/palate/internal/config"
	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/foodfilter"
)

// Shard is one Redis-backed slice of the menu corpus.
type Shard struct {
	name   string
	index  string
	client rueidis.Client
}

// NewShard connects to one shard.
func NewShard(cfg config.ShardConfig, index string) (*Shard, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("shard %q: addr is required", cfg.Name)
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("shard %q: %w", cfg.Name, err)
	}
	return &Shard{name: cfg.Name, index: index, client: client}, nil
}

// Name returns the shard's configured name.
func (s *Shard) Name() string { return s.name }

// Search runs a filtered KNN query and decodes the hits.
func (s *Shard) Search(ctx context.Context, vector []float32, filter foodfilter.Expression, k int) ([]document.Document, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB]", k)
	queryStr := "*=>" + knnPart
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{
		s.index, queryStr,
		"RETURN", "2", "content", "metadata",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
		"LIMIT", "0", strconv.Itoa(k),
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("shard %q search: %w", s.name, err)
	}
	return parseSearchResult(raw)
}

// Ping checks connectivity.
func (s *Shard) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("shard %q ping: %w", s.name, err)
	}
	return nil
}

// WaitForReady polls Ping until the shard responds or timeout expires.
func (s *Shard) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shard %q not ready: %w", s.name, ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Shard) Close() {
	s.client.Close()
}

func parseSearchResult(raw []rueidis.RedisMessage) ([]document.Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	docs := make([]document.Document, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(fields)

		doc := document.Document{ID: key, Content: pairs["content"]}
		if metaJSON, ok := pairs["metadata"]; ok {
			// Malformed metadata keeps the hit but without attributes.
			_ = json.Unmarshal([]byte(metaJSON), &doc.Meta)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
