package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fs22bot/internal/stats"
	logx "fs22bot/pkg/logx"
)

// fileStore keeps the aggregator state as one JSON document. Saves write a
// temporary file next to it and rename it into place.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	log.Debug("file store opened", logx.String("path", path))
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) LoadStats(ctx context.Context) (stats.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return stats.State{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stats.State{}, false, ErrClosed
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return stats.State{}, false, nil
	}
	if err != nil {
		return stats.State{}, false, err
	}
	defer f.Close()

	var st stats.State
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return stats.State{}, false, err
	}
	return st, true, nil
}

func (s *fileStore) SaveStats(ctx context.Context, st stats.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
