package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"valet-backend/models"
)

// MemoryStore keeps all records in process memory, optionally snapshotting
// them to a JSON file after every write. It backs the single-node deployment
// variant (the stand-in for the browser's local storage) and the tests.
type MemoryStore struct {
	mu     sync.RWMutex
	reqs   map[int64]*models.ParkingRequest
	events map[int64][]models.RequestEvent
	path   string // empty => no file persistence
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reqs:   make(map[int64]*models.ParkingRequest),
		events: make(map[int64][]models.RequestEvent),
	}
}

// OpenFileStore loads (or creates) a JSON-file-backed store at path.
func OpenFileStore(path string) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var reqs []models.ParkingRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	for i := range reqs {
		r := reqs[i]
		s.reqs[r.ID] = &r
	}
	return s, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]models.ParkingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ParkingRequest, 0, len(s.reqs))
	for _, r := range s.reqs {
		out = append(out, *r)
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*models.ParkingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, req *models.ParkingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reqs[req.ID]; exists {
		return ErrConflict
	}
	cp := *req
	s.reqs[req.ID] = &cp
	return s.snapshotLocked()
}

func (s *MemoryStore) Mutate(ctx context.Context, id int64, fn func(*models.ParkingRequest) error) (*models.ParkingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Work on a copy so a failing fn leaves the record untouched.
	cp := *r
	if err := fn(&cp); err != nil {
		return nil, err
	}
	s.reqs[id] = &cp
	if err := s.snapshotLocked(); err != nil {
		return nil, err
	}
	out := cp
	return &out, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev *models.RequestEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	cp.Seq = len(s.events[ev.RequestID]) + 1
	cp.ID = uint(cp.Seq)
	s.events[ev.RequestID] = append(s.events[ev.RequestID], cp)
	return nil
}

func (s *MemoryStore) Events(ctx context.Context, requestID int64) ([]models.RequestEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[requestID]
	out := make([]models.RequestEvent, len(evs))
	copy(out, evs)
	return out, nil
}

// snapshotLocked rewrites the JSON file. Caller holds the write lock.
func (s *MemoryStore) snapshotLocked() error {
	if s.path == "" {
		return nil
	}
	reqs := make([]models.ParkingRequest, 0, len(s.reqs))
	for _, r := range s.reqs {
		reqs = append(reqs, *r)
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
