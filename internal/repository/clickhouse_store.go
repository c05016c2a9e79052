package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"

	"github.com/google/uuid"
)

const (
	defaultChunkSize = 2000
	cleanupTimeout   = 10 * time.Second
)

// ClickHouseStore inserts each flushed batch into a table, one row per
// reading, tagged with a batch name that is unique per flush.
type ClickHouseStore struct {
	db        *sql.DB
	table     string
	chunkSize int
	now       func() time.Time
	newID     func() string
}

// NewClickHouseStore creates a ClickHouse-backed SampleStore.
func NewClickHouseStore(db *sql.DB, table string) domrepo.SampleStore {
	return &ClickHouseStore{
		db:        db,
		table:     table,
		chunkSize: defaultChunkSize,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// batchName tags name with a fresh id so two flushes in the same second
// never share rows: sensor_data_<unix>.json becomes sensor_data_<unix>-<id>.json.
func (s *ClickHouseStore) batchName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + s.newID() + ext
}

// ClickHouseSchema returns the DDL for the readings table.
func ClickHouseSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            batch     String,
            seq       UInt32,
            x         Float64,
            y         Float64,
            z         Float64,
            ts        Float64,
            saved_at  DateTime64(3)
        ) ENGINE = MergeTree
        ORDER BY (batch, seq)`, table),
	}
}

func (s *ClickHouseStore) Backend() string { return "clickhouse" }

// Save inserts readings using multi-row VALUES in chunks and returns the
// batch tag the rows carry. If a chunk fails, rows already inserted for the
// batch are deleted so a retried flush does not duplicate them.
func (s *ClickHouseStore) Save(ctx context.Context, name string, readings []models.Reading) (string, error) {
	batch := s.batchName(name)
	savedAt := s.now()
	for start := 0; start < len(readings); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(readings) {
			end = len(readings)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for i, r := range readings[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, batch, uint32(start+i), r.X, r.Y, r.Z, r.Timestamp, savedAt)
		}
		q := fmt.Sprintf("INSERT INTO %s (batch, seq, x, y, z, ts, saved_at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			err = fmt.Errorf("insert %s rows %d-%d: %w", batch, start, end, err)
			if start > 0 {
				err = errors.Join(err, s.discard(ctx, batch))
			}
			return "", err
		}
	}
	return batch, nil
}

// discard deletes the rows of a partially inserted batch. It runs even when
// ctx was cancelled, bounded by cleanupTimeout.
func (s *ClickHouseStore) discard(ctx context.Context, batch string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	q := fmt.Sprintf("ALTER TABLE %s DELETE WHERE batch = ?", s.table)
	if _, err := s.db.ExecContext(ctx, q, batch); err != nil {
		return fmt.Errorf("discard partial batch %s: %w", batch, err)
	}
	return nil
}

// Close is a no-op; the pool is owned by pkg/clickhouse.Client.
func (s *ClickHouseStore) Close() error { return nil }
