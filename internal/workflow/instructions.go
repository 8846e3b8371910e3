package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrInstructionNotFound is returned when no instruction document exists
// for a step identifier.
var ErrInstructionNotFound = errors.New("instruction not found")

// InstructionStore loads the instruction document for each step from a
// directory of markdown files (<step_id>.md) and caches it for the
// process lifetime. Instruction documents are treated as static; the
// cache is never invalidated. Safe for concurrent use across runs.
type InstructionStore struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string
}

func NewInstructionStore(dir string) *InstructionStore {
	return &InstructionStore{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Load returns the instruction text for stepID, reading the underlying
// document at most once per identifier.
func (s *InstructionStore) Load(stepID string) (string, error) {
	s.mu.RLock()
	text, ok := s.cache[stepID]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another run may have populated the entry while we waited.
	if text, ok := s.cache[stepID]; ok {
		return text, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, stepID+".md"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("step %q: %w", stepID, ErrInstructionNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read instruction for step %q: %v", stepID, err)
	}

	s.cache[stepID] = string(data)
	return string(data), nil
}
