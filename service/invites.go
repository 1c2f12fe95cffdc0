package service

import (
	"sync"
	"time"
)

// InviteArtifact pairs a single-use invite link with the message that
// delivered it, so both can be torn down once the user joins.
type InviteArtifact struct {
	UserID     int64
	InviteLink string
	MessageID  int
	ExpiresAt  time.Time
}

// InviteRegistry is a bounded, expiring cache of open invite artifacts
// keyed by user id. Entries vanish when taken (the user joined), when their
// invite lifetime lapses, or when the registry is full and the oldest entry
// is evicted. Accessed from interactive handlers and scheduled jobs alike.
type InviteRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[int64]*InviteArtifact
}

const (
	// InviteTTL matches the invite link lifetime issued on approval.
	InviteTTL = 24 * time.Hour

	defaultRegistrySize = 512
)

// NewInviteRegistry creates a registry with the given entry lifetime.
func NewInviteRegistry(ttl time.Duration) *InviteRegistry {
	return &InviteRegistry{
		ttl:     ttl,
		maxSize: defaultRegistrySize,
		entries: make(map[int64]*InviteArtifact),
	}
}

// Put remembers an open invite for a user, replacing any previous one.
func (r *InviteRegistry) Put(userID int64, inviteLink string, messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked()
	if len(r.entries) >= r.maxSize {
		r.evictOldestLocked()
	}

	r.entries[userID] = &InviteArtifact{
		UserID:     userID,
		InviteLink: inviteLink,
		MessageID:  messageID,
		ExpiresAt:  time.Now().Add(r.ttl),
	}
}

// Take removes and returns the open invite for a user, if one is live.
func (r *InviteRegistry) Take(userID int64) (*InviteArtifact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	artifact, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	delete(r.entries, userID)
	if time.Now().After(artifact.ExpiresAt) {
		return nil, false
	}
	return artifact, true
}

// Len reports the number of live entries.
func (r *InviteRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()
	return len(r.entries)
}

func (r *InviteRegistry) purgeLocked() {
	now := time.Now()
	for id, artifact := range r.entries {
		if now.After(artifact.ExpiresAt) {
			delete(r.entries, id)
		}
	}
}

func (r *InviteRegistry) evictOldestLocked() {
	var oldestID int64
	var oldest time.Time
	first := true
	for id, artifact := range r.entries {
		if first || artifact.ExpiresAt.Before(oldest) {
			oldestID = id
			oldest = artifact.ExpiresAt
			first = false
		}
	}
	if !first {
		delete(r.entries, oldestID)
	}
}
