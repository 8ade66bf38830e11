package badgerstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog"
)

const maxConflictRetries = 32

// Backend wraps a BadgerDB instance shared by the topic and question stores.
type Backend struct {
	db     *badger.DB
	logger zerolog.Logger
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	logger zerolog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error().Msgf(msg, items...)
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn().Msgf(msg, items...)
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug().Msgf(msg, items...)
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Trace().Msgf(msg, items...)
}

// Open opens a database at dir, creating the directory if needed. An empty
// dir with inMemory set keeps everything in memory.
func Open(dir string, inMemory bool, logger zerolog.Logger) (*Backend, error) {
	logger = logger.With().Str("component", "badger").Logger()

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if dir == "" {
			return nil, errors.New("badger directory is required")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Backend{db: db, logger: logger}, nil
}

// OpenInMemory is a convenience for tests and single-process development.
func OpenInMemory(logger zerolog.Logger) (*Backend, error) {
	return Open("", true, logger)
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// update runs fn in a read-write transaction and retries it from scratch when
// a concurrent transaction committed a conflicting write first.
func (b *Backend) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Trace().Int("attempt", attempt+1).Msg("transaction conflict, retrying")
	}
	return err
}

func (b *Backend) view(fn func(txn *badger.Txn) error) error {
	return b.db.View(fn)
}
