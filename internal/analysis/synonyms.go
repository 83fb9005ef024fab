// Package analysis provides the external inputs merged into the index
// analysis settings at initialization: synonym rules and decompounder word
// lists.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog-search/pkg/database"
)

// splitLines splits synonym text into rules. Windows line endings are
// accepted; blank lines are kept so callers decide how to treat them.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// FileSynonymStore keeps synonym rules in a text file, one rule per line in
// the engine's synonym format ("red, rot").
type FileSynonymStore struct {
	path string
}

// NewFileSynonymStore creates a store backed by path.
func NewFileSynonymStore(path string) *FileSynonymStore {
	return &FileSynonymStore{path: path}
}

// Path returns the backing file.
func (s *FileSynonymStore) Path() string {
	return s.path
}

// LoadSynonyms returns the rules in the file. A missing file yields no rules.
func (s *FileSynonymStore) LoadSynonyms(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read synonyms %s: %w", s.path, err)
	}
	return splitLines(string(data)), nil
}

// Contents returns the raw file text, or "" when the file does not exist.
func (s *FileSynonymStore) Contents(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read synonyms %s: %w", s.path, err)
	}
	return string(data), nil
}

// Update replaces the file contents. The new text takes effect on the next
// index initialization. The write goes through a temporary file and a rename
// so readers never see a partial file.
func (s *FileSynonymStore) Update(_ context.Context, text string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update synonyms: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".synonyms-*")
	if err != nil {
		return fmt.Errorf("update synonyms: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("update synonyms: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("update synonyms: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("update synonyms: %w", err)
	}
	return nil
}

// redisLists is the subset of the go-redis client the Redis store uses.
type redisLists interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisSynonymStore keeps synonym rules in a Redis list so every service
// replica sees the same rules.
type RedisSynonymStore struct {
	client redisLists
	key    string
}

// NewRedisSynonymStore creates a store reading the list at key.
func NewRedisSynonymStore(client redisLists, key string) *RedisSynonymStore {
	return &RedisSynonymStore{client: client, key: key}
}

// LoadSynonyms returns the rules in list order. A missing key yields no rules.
func (s *RedisSynonymStore) LoadSynonyms(ctx context.Context) (rules []string, err error) {
	ctx, end := database.TraceCommand(ctx, "LRange", s.key)
	defer func() { end(err) }()

	rules, err = s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load synonyms from redis key %s: %w", s.key, err)
	}
	return rules, nil
}

// Contents returns the rules joined by newlines.
func (s *RedisSynonymStore) Contents(ctx context.Context) (string, error) {
	rules, err := s.LoadSynonyms(ctx)
	if err != nil {
		return "", err
	}
	if len(rules) == 0 {
		return "", nil
	}
	return strings.Join(rules, "\n") + "\n", nil
}

// Update replaces the list with the lines of text in one transaction.
func (s *RedisSynonymStore) Update(ctx context.Context, text string) (err error) {
	ctx, end := database.TraceCommand(ctx, "ReplaceList", s.key)
	defer func() { end(err) }()

	var rules []any
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) != "" {
			rules = append(rules, line)
		}
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(rules) > 0 {
			pipe.RPush(ctx, s.key, rules...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update synonyms in redis key %s: %w", s.key, err)
	}
	return nil
}
