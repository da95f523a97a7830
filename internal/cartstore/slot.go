package cartstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"somnicart/internal/domain"
)

// State is the persisted layout of the local cart slot.
type State struct {
	Lines            []domain.CartLine `json:"lines"`
	RemoteCartHandle *string           `json:"remoteCartHandle"`
}

// Slot is the durable local storage the Store owns exclusively.
type Slot interface {
	Load() (State, error)
	Save(State) error
}

// FileSlot persists the cart as a single JSON document on disk.
type FileSlot struct {
	path string
}

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Load returns an empty state when the file does not exist yet. Missing fields
// decode to their zero values.
func (s *FileSlot) Load() (State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read cart slot: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode cart slot: %w", err)
	}
	return st, nil
}

// Save writes to a temp file and renames it over the slot.
func (s *FileSlot) Save(st State) error {
	if st.Lines == nil {
		st.Lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode cart slot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("create temp slot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp slot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace cart slot: %w", err)
	}
	return nil
}

// MemorySlot keeps the state in memory.
type MemorySlot struct {
	mu    sync.Mutex
	state State
	saves int
	err   error
}

func NewMemorySlot(initial State) *MemorySlot {
	return &MemorySlot{state: initial}
}

func (s *MemorySlot) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Lines:            domain.CloneLines(s.state.Lines),
		RemoteCartHandle: s.state.RemoteCartHandle,
	}, nil
}

func (s *MemorySlot) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.state = State{Lines: domain.CloneLines(st.Lines), RemoteCartHandle: st.RemoteCartHandle}
	s.saves++
	return nil
}

// FailSaves makes subsequent saves return err (nil restores normal behaviour).
func (s *MemorySlot) FailSaves(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Saves reports how many saves succeeded.
func (s *MemorySlot) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
