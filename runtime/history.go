package runtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"style-relay/domain"
)

const historyKeyPrefix = "hist:"

// History is the bounded message buffer. It runs on an in-memory Badger
// instance: keys carry a 19-digit zero-padded sequence number so the
// lexicographic key order is the insertion order, and appending beyond
// capacity deletes the oldest key in the same transaction. Nothing touches
// disk and nothing survives a restart.
type History struct {
	db       *badger.DB
	log      *slog.Logger
	capacity int

	mu        sync.Mutex
	nextSeq   uint64
	oldestSeq uint64
	count     int
}

func NewHistory(log *slog.Logger, capacity int) (*History, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history store opening failed: %w", err)
	}
	return &History{db: db, log: log, capacity: capacity}, nil
}

func historyKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%019d", historyKeyPrefix, seq))
}

// Append stores a message, evicting the oldest entry first when the buffer
// sits at capacity. Entries are never reordered or rewritten.
func (h *History) Append(m domain.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode message %s: %w", m.ID, err)
	}

	evict := h.count >= h.capacity
	err = h.db.Update(func(txn *badger.Txn) error {
		if evict {
			if err := txn.Delete(historyKey(h.oldestSeq)); err != nil {
				return err
			}
		}
		return txn.Set(historyKey(h.nextSeq), value)
	})
	if err != nil {
		return fmt.Errorf("failed to store message %s: %w", m.ID, err)
	}

	h.nextSeq++
	if evict {
		h.oldestSeq++
	} else {
		h.count++
	}
	return nil
}

// Snapshot returns a copy of the buffer in insertion order, safe for the
// caller to hold across later appends.
func (h *History) Snapshot() ([]domain.ChatMessage, error) {
	var raws [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(historyKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				raws = append(raws, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history scan failed: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		var m domain.ChatMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("history entry corrupted: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Len reports how many messages the buffer currently holds.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *History) Close() error {
	return h.db.Close()
}
