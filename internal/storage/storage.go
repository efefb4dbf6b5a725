// Package storage persists engine configuration and lifetime search
// statistics between sessions in an embedded badger database. The search
// itself never touches it; only the front-end reads and writes here: it
// loads options at startup, saves them on setoption, records statistics
// after each finished search, and closes the store at quit.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyOptions = "options"
	keyStats   = "stats"
)

// Options are the persisted UCI option defaults: a GUI that never sends
// setoption gets the values the user last ran with.
type Options struct {
	HashMB     int  `json:"hash_mb"`
	Threads    int  `json:"threads"`
	Chess960   bool `json:"chess960"`
	WeakenEval int  `json:"weaken_eval"`
}

// DefaultOptions mirrors the option defaults advertised on `uci`.
func DefaultOptions() Options {
	return Options{HashMB: 64, Threads: 1}
}

// Stats accumulates lifetime usage counters.
type Stats struct {
	Searches  uint64    `json:"searches"`
	Nodes     uint64    `json:"nodes"`
	LastUsed  time.Time `json:"last_used"`
	FirstUsed time.Time `json:"first_used"`
}

// Store wraps a badger database holding the keys above.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) the store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logging is noise on a UCI stdout
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadJSON(key string, out any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) saveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

// LoadOptions returns the persisted option defaults, or DefaultOptions
// when none were saved yet.
func (s *Store) LoadOptions() (Options, error) {
	opts := DefaultOptions()
	found, err := s.loadJSON(keyOptions, &opts)
	if err != nil {
		return DefaultOptions(), err
	}
	if !found {
		return DefaultOptions(), nil
	}
	if opts.HashMB < 1 {
		opts.HashMB = DefaultOptions().HashMB
	}
	if opts.Threads < 1 {
		opts.Threads = DefaultOptions().Threads
	}
	return opts, nil
}

// SaveOptions persists the option defaults.
func (s *Store) SaveOptions(opts Options) error {
	return s.saveJSON(keyOptions, opts)
}

// LoadStats returns the lifetime counters, zeroed when absent.
func (s *Store) LoadStats() (Stats, error) {
	var st Stats
	if _, err := s.loadJSON(keyStats, &st); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// RecordSearch folds one completed search into the lifetime counters.
func (s *Store) RecordSearch(nodes uint64) error {
	st, err := s.LoadStats()
	if err != nil {
		return err
	}
	now := time.Now()
	if st.FirstUsed.IsZero() {
		st.FirstUsed = now
	}
	st.Searches++
	st.Nodes += nodes
	st.LastUsed = now
	return s.saveJSON(keyStats, st)
}
