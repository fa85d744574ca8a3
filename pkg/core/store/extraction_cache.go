package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"
)

// ExtractionCache keeps LLM statement extractions keyed by the SHA-256 of the
// uploaded file, so re-uploading the same PDF never calls the model twice.
// The database is used when a pool is configured, otherwise JSON files in dir.
type ExtractionCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// CacheEntry is one cached extraction.
type CacheEntry struct {
	ContentHash string          `json:"content_hash"`
	FileName    string          `json:"file_name"`
	FiscalYear  int             `json:"fiscal_year"`
	Provider    string          `json:"provider"`
	Data        json.RawMessage `json:"data"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// NewExtractionCache creates a cache. With neither pool nor dir it defaults
// to a local directory.
func NewExtractionCache(pool *pgxpool.Pool, dir string) *ExtractionCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "extractions")
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("component", "cache").Str("dir", dir).Msg("cannot create extraction cache dir")
		}
	}
	return &ExtractionCache{pool: pool, fileDir: dir}
}

// ContentHash returns the cache key of a file body.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for hash, or nil on a miss.
func (c *ExtractionCache) Get(ctx context.Context, hash string) (*CacheEntry, error) {
	// 1. Database
	if c.pool != nil {
		query := `
			SELECT content_hash, COALESCE(file_name, ''), COALESCE(fiscal_year, 0), COALESCE(provider, ''), data, created_at
			FROM statement_extractions
			WHERE content_hash = $1
		`
		var e CacheEntry
		err := c.pool.QueryRow(ctx, query, hash).Scan(&e.ContentHash, &e.FileName, &e.FiscalYear, &e.Provider, &e.Data, &e.ExtractedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to read extraction cache: %w", err)
		}
		return &e, nil
	}

	// 2. File system
	raw, err := os.ReadFile(c.path(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	var e CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next save.
		log.Warn().Err(err).Str("component", "cache").Str("hash", hash).Msg("discarding unreadable cache entry")
		return nil, nil
	}
	return &e, nil
}

// Save stores an entry, replacing any previous extraction of the same file.
func (c *ExtractionCache) Save(ctx context.Context, e *CacheEntry) error {
	if e.ExtractedAt.IsZero() {
		e.ExtractedAt = time.Now()
	}

	if c.pool != nil {
		query := `
			INSERT INTO statement_extractions (content_hash, file_name, fiscal_year, provider, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (content_hash)
			DO UPDATE SET
				data = EXCLUDED.data,
				provider = EXCLUDED.provider,
				fiscal_year = EXCLUDED.fiscal_year,
				created_at = EXCLUDED.created_at
		`
		_, err := c.pool.Exec(ctx, query, e.ContentHash, e.FileName, e.FiscalYear, e.Provider, []byte(e.Data), e.ExtractedAt)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
		return nil
	}

	body, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(e.ContentHash), body, 0o644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return nil
}

// Prune removes entries extracted before now-olderThan and reports how many went.
func (c *ExtractionCache) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	if c.pool != nil {
		tag, err := c.pool.Exec(ctx, `DELETE FROM statement_extractions WHERE created_at < $1`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to prune db cache: %w", err)
		}
		return int(tag.RowsAffected()), nil
	}

	entries, err := os.ReadDir(c.fileDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list cache dir: %w", err)
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.fileDir, de.Name())); err != nil {
			log.Warn().Err(err).Str("component", "cache").Str("file", de.Name()).Msg("prune failed")
			continue
		}
		removed++
	}
	return removed, nil
}

func (c *ExtractionCache) path(hash string) string {
	return filepath.Join(c.fileDir, hash+".json")
}
