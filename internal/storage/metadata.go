package storage

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/common"
)

// SeasonRecord marks a season as successfully composed, so idempotent
// re-runs can skip it.
type SeasonRecord struct {
	Key        string `badgerhold:"key"` // tournament|season
	Tournament string
	Season     string
	Bucket     string // composed or repaired
	UpdatedAt  time.Time
}

// MetadataStore tracks crawl completion state in BadgerDB.
type MetadataStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// OpenMetadata opens (or creates) the metadata database.
func OpenMetadata(config common.BadgerConfig, logger arbor.ILogger) (*MetadataStore, error) {
	if config.ResetOnStartup && config.Path != "" {
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to reset metadata store")
		}
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Metadata database initialized")
	return &MetadataStore{store: store, logger: logger}, nil
}

// OpenMetadataInMemory opens an ephemeral metadata store, used by tests.
func OpenMetadataInMemory(logger arbor.ILogger) (*MetadataStore, error) {
	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions("").WithInMemory(true)
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory metadata database: %w", err)
	}
	return &MetadataStore{store: store, logger: logger}, nil
}

// Close closes the underlying database.
func (m *MetadataStore) Close() error {
	return m.store.Close()
}

// MarkSeasonComplete records that a season landed in a clean bucket.
func (m *MetadataStore) MarkSeasonComplete(tournament, season, bucket string) error {
	record := SeasonRecord{
		Key:        tournament + "|" + season,
		Tournament: tournament,
		Season:     season,
		Bucket:     bucket,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := m.store.Upsert(record.Key, &record); err != nil {
		return fmt.Errorf("mark season complete %s: %w", record.Key, err)
	}
	return nil
}

// IsSeasonComplete reports whether a season was composed in a previous run.
func (m *MetadataStore) IsSeasonComplete(tournament, season string) (bool, error) {
	var record SeasonRecord
	err := m.store.Get(tournament+"|"+season, &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup season %s|%s: %w", tournament, season, err)
	}
	return true, nil
}

// CompletedSeasons returns all completion records for a tournament.
func (m *MetadataStore) CompletedSeasons(tournament string) ([]SeasonRecord, error) {
	var records []SeasonRecord
	if err := m.store.Find(&records, badgerhold.Where("Tournament").Eq(tournament)); err != nil {
		return nil, fmt.Errorf("find seasons for %s: %w", tournament, err)
	}
	return records, nil
}
