package api

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/namcore/pkg/nam"
)

type handleEntry struct {
	mu     sync.Mutex
	handle *nam.Handle
	info   HandleInfo
}

// HandleStore keeps the handles created through the API. Each handle has its
// own lock so one model processes one block at a time.
type HandleStore struct {
	mu      sync.Mutex
	handles map[string]*handleEntry
	clock   func() time.Time
}

func NewHandleStore() *HandleStore {
	return &HandleStore{
		handles: make(map[string]*handleEntry),
		clock:   time.Now,
	}
}

// Add takes ownership of h and returns its description.
func (s *HandleStore) Add(model, path string, h *nam.Handle, maxBlock int) HandleInfo {
	if maxBlock <= 0 {
		maxBlock = nam.DefaultMaxBlockSize
	}
	if maxBlock != nam.DefaultMaxBlockSize {
		h.Reset(h.ExpectedSampleRate(), maxBlock)
		h.Prewarm()
	}
	info := HandleInfo{
		ID:             "nam_" + uuid.NewString(),
		Object:         "handle",
		Model:          model,
		Path:           path,
		Architecture:   h.Architecture(),
		Version:        h.Version(),
		SampleRate:     h.ExpectedSampleRate(),
		ReceptiveField: h.ReceptiveField(),
		PrewarmSamples: h.PrewarmSamples(),
		MaxBlockSize:   maxBlock,
		CreatedAt:      s.clock().Unix(),
		Metadata:       h.Metadata(),
	}
	s.mu.Lock()
	s.handles[info.ID] = &handleEntry{handle: h, info: info}
	s.mu.Unlock()
	return info
}

func (s *HandleStore) get(id string) (*handleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandleNotFound, id)
	}
	return e, nil
}

func (s *HandleStore) Get(id string) (HandleInfo, error) {
	e, err := s.get(id)
	if err != nil {
		return HandleInfo{}, err
	}
	return e.info, nil
}

// List returns every handle, oldest first.
func (s *HandleStore) List() []HandleInfo {
	s.mu.Lock()
	out := make([]HandleInfo, 0, len(s.handles))
	for _, e := range s.handles {
		out = append(out, e.info)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b HandleInfo) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out
}

// Process runs input through the handle and returns a new output slice.
func (s *HandleStore) Process(id string, input []float32) ([]float32, error) {
	out := make([]float32, len(input))
	if err := s.ProcessInto(id, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessInto is Process with a caller-supplied output buffer.
func (s *HandleStore) ProcessInto(id string, input, output []float32) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	if len(output) < len(input) {
		return newInvalidRequest(fmt.Sprintf("output holds %d frames, need %d", len(output), len(input)))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle.Released() {
		return fmt.Errorf("%w: %s", ErrHandleNotFound, id)
	}
	e.handle.Process(input, output)
	return nil
}

// Reset clears the handle state and prewarms it again.
func (s *HandleStore) Reset(id string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle.Reset(e.handle.ExpectedSampleRate(), e.info.MaxBlockSize)
	e.handle.Prewarm()
	return nil
}

// Delete removes and releases the handle. It waits for a running Process.
func (s *HandleStore) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.handle.Release()
	e.mu.Unlock()
	return true
}

// Close releases every handle.
func (s *HandleStore) Close() {
	s.mu.Lock()
	entries := s.handles
	s.handles = make(map[string]*handleEntry)
	s.mu.Unlock()
	for _, e := range entries {
		e.mu.Lock()
		e.handle.Release()
		e.mu.Unlock()
	}
}

func (s *HandleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
