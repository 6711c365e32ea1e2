// Package quotearchive keeps an append-only record of every successfully
// refreshed quote board, so price history survives cache overwrites and
// can be replayed by consumers.
package quotearchive

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	boardKeyPrefix      = "quote_board_"
	archiveSegmentLimit = 1000
	archiveMaxSegments  = 100
)

// BoardRecord bundles an archived board with its WAL index.
type BoardRecord struct {
	Index uint64
	Board domain.QuoteBoard
}

// WALStore is a WAL-backed append archive of quote boards.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes the archive under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "quotes_",
		SegmentThreshold: archiveSegmentLimit,
		MaxSegments:      archiveMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init quote archive WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Append records one refreshed board.
func (s *WALStore) Append(board domain.QuoteBoard) error {
	if s == nil || s.wal == nil {
		return errors.New("quote archive is not initialized")
	}

	payload, err := json.Marshal(board)
	if err != nil {
		return errors.Wrap(err, "marshal quote board")
	}

	key := boardKeyPrefix + board.LastUpdated.UTC().Format("2006-01-02T15:04:05")

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// BoardsAfter returns all boards archived after the provided WAL index.
func (s *WALStore) BoardsAfter(index uint64) ([]BoardRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("quote archive is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]BoardRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, boardKeyPrefix) {
			continue
		}
		var board domain.QuoteBoard
		if err := json.Unmarshal(payload, &board); err != nil {
			return nil, errors.Wrap(err, "decode archived quote board")
		}
		records = append(records, BoardRecord{Index: idx, Board: board})
	}
	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("quote archive is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
