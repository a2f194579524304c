package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

// StagedReview is a validated record waiting for an explicit human decision.
type StagedReview struct {
	Token    string            `json:"review_token"`
	Record   *model.CallRecord `json:"record"`
	StagedAt time.Time         `json:"staged_at"`
}

// ReviewStore holds staged records between the stage and resolve phases of
// the single-item pipeline. Staging takes no storage resource; a record that
// is never resolved simply expires.
type ReviewStore struct {
	mu     sync.Mutex
	staged map[string]*StagedReview
	ttl    time.Duration
}

func NewReviewStore(ttl time.Duration) *ReviewStore {
	return &ReviewStore{
		staged: make(map[string]*StagedReview),
		ttl:    ttl,
	}
}

// Stage parks a pending record and returns the review token the caller
// resolves it with.
func (s *ReviewStore) Stage(rec *model.CallRecord) *StagedReview {
	review := &StagedReview{
		Token:    uuid.New().String(),
		Record:   rec,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	s.staged[review.Token] = review

	return review
}

// Get returns the staged record for a token without consuming it, so a
// reviewer whose edits fail validation can correct them and retry.
func (s *ReviewStore) Get(token string) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()

	review, ok := s.staged[token]
	if !ok {
		return nil, fmt.Errorf("no staged record for token %s: unknown, already resolved, or expired", token)
	}
	return review.Record, nil
}

// Take removes and returns the staged record for a token. A token resolves
// at most once.
func (s *ReviewStore) Take(token string) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()

	review, ok := s.staged[token]
	if !ok {
		return nil, fmt.Errorf("no staged record for token %s: unknown, already resolved, or expired", token)
	}
	delete(s.staged, token)

	return review.Record, nil
}

// Count returns the number of records awaiting review.
func (s *ReviewStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// expireLocked drops staged records older than the TTL. Must be called with
// the lock held.
func (s *ReviewStore) expireLocked() {
	if s.ttl <= 0 {
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	for token, review := range s.staged {
		if review.StagedAt.Before(cutoff) {
			slog.Info("discarding expired staged record",
				"review_token", token,
				"source_ref", review.Record.SourceReference,
				"staged_at", review.StagedAt,
			)
			delete(s.staged, token)
		}
	}
}
