package rag

import (
	"context"
	"sync"
)

// MemoryProfileStore is a thread-safe in-memory ProfileStore
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
}

// NewMemoryProfileStore creates an empty profile store
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*UserProfile)}
}

// Put stores or replaces a user profile
func (s *MemoryProfileStore) Put(profile *UserProfile) {
	if profile == nil || profile.UserID == "" {
		return
	}
	s.mu.Lock()
	s.profiles[profile.UserID] = profile
	s.mu.Unlock()
}

// Profile returns the stored profile, or nil when the user is unknown
func (s *MemoryProfileStore) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[userID], nil
}
