package calllist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidUser is returned for identities that cannot name a stored list
var ErrInvalidUser = errors.New("invalid subscriber identity")

// Store returns the stored call fragments of a subscriber in the order they
// should be served. Each fragment is the XML of one or more <call> elements.
// An unknown subscriber has no fragments.
type Store interface {
	Fragments(ctx context.Context, user string) ([][]byte, error)
}

// DirStore reads fragments from the .xml files in {dir}/{user}, in file name order
type DirStore struct {
	dir string
}

// NewDirStore creates a store rooted at dir
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Fragments implements Store
func (s *DirStore) Fragments(ctx context.Context, user string) ([][]byte, error) {
	if user == "" || user == "." || user == ".." || strings.ContainsAny(user, `/\`) {
		return nil, ErrInvalidUser
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, user))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list call fragments: %w", err)
	}

	// ReadDir sorts by file name
	var fragments [][]byte
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xml" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, user, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read call fragment: %w", err)
		}
		fragments = append(fragments, data)
	}
	return fragments, nil
}

// MemoryStore keeps fragments in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	fragments map[string][][]byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fragments: map[string][][]byte{}}
}

// Add appends a fragment to user's list
func (s *MemoryStore) Add(user string, fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[user] = append(s.fragments[user], []byte(fragment))
}

// Fragments implements Store
func (s *MemoryStore) Fragments(_ context.Context, user string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(s.fragments[user]))
	copy(out, s.fragments[user])
	return out, nil
}
