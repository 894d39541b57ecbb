package leads

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the append-only lead log. There is no update or delete path.
type Store interface {
	Append(ctx context.Context, lead Lead) error
}

// FileStore appends leads as newline-delimited JSON to a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path. The file and its parent
// directory are created on first append.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("leads: store path is required")
	}
	return &FileStore{path: path}, nil
}

// Path returns the log file location.
func (s *FileStore) Path() string { return s.path }

// Append writes one complete record plus a trailing newline in a single
// write call on an O_APPEND descriptor.
func (s *FileStore) Append(ctx context.Context, lead Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: marshal lead: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("leads: create store dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("leads: open store: %w", err)
	}
	n, writeErr := f.Write(line)
	if writeErr == nil && n < len(line) {
		writeErr = io.ErrShortWrite
	}
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("leads: append lead %s: %w", lead.LeadID, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("leads: close store: %w", closeErr)
	}
	return nil
}

// Scan calls fn for every stored lead in write order. A missing file is an
// empty log.
func (s *FileStore) Scan(ctx context.Context, fn func(Lead) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("leads: open store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var lead Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			return fmt.Errorf("leads: decode line %d: %w", line, err)
		}
		if err := fn(lead); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("leads: read store: %w", err)
	}
	return nil
}

// Count returns the number of stored leads.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.Scan(ctx, func(Lead) error {
		count++
		return nil
	})
	return count, err
}
