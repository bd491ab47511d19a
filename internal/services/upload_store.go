package services

import (
	"sync"
	"time"

	"logclassifier/internal/logcsv"
)

// Upload is a parsed CSV waiting to be classified
type Upload struct {
	ID        string
	FileName  string
	Size      int64
	CreatedAt time.Time
	Table     *logcsv.Table
}

// UploadStore keeps the most recent uploads in memory. When full, the oldest
// upload is evicted.
type UploadStore struct {
	mu      sync.RWMutex
	max     int
	uploads map[string]*Upload
	order   []string
}

// NewUploadStore creates a store holding at most max uploads
func NewUploadStore(max int) *UploadStore {
	if max <= 0 {
		max = 1
	}
	return &UploadStore{
		max:     max,
		uploads: make(map[string]*Upload),
	}
}

// Put stores an upload, evicting the oldest ones over capacity
func (s *UploadStore) Put(u *Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[u.ID]; !exists {
		s.order = append(s.order, u.ID)
	}
	s.uploads[u.ID] = u

	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.uploads, oldest)
	}
}

// Get returns an upload by id
func (s *UploadStore) Get(id string) (*Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return u, nil
}

// Len is the number of uploads held
func (s *UploadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}
