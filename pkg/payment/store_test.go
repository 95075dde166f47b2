package payment

import (
	"context"
	"errors"
	"sync"
)

var errRecordMissing = errors.New("payment record not found")

// fakeStore is the in-memory Store used across adapter tests. It keeps the
// guarded-transition semantics of the real implementation: a second
// CompletePayment for the same order reports first=false.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*Record // by provider ref and order ref

	completed []string
	failed    []string

	subActivated []string
	subPastDue   []string
	subCancelled []string
	subLinked    map[string]string // checkout ref -> provider subscription id
}

func newFakeStore(records ...*Record) *fakeStore {
	s := &fakeStore{records: make(map[string]*Record)}
	for _, r := range records {
		s.records[r.OrderRef] = r
		if r.ProviderRef != "" {
			s.records[r.ProviderRef] = r
		}
	}
	return s
}

func (s *fakeStore) find(ref string) *Record {
	return s.records[ref]
}

func (s *fakeStore) FindPayment(ctx context.Context, ref string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(ref)
	if r == nil {
		return nil, errRecordMissing
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) CompletePayment(ctx context.Context, ref, txnID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(ref)
	if r == nil {
		return false, errRecordMissing
	}
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusCompleted
	r.PaymentID = txnID
	s.completed = append(s.completed, r.OrderRef)
	return true, nil
}

func (s *fakeStore) FailPayment(ctx context.Context, ref, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(ref)
	if r == nil {
		return false, errRecordMissing
	}
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusFailed
	s.failed = append(s.failed, r.OrderRef)
	return true, nil
}

func (s *fakeStore) SetSubscriptionProviderRef(ctx context.Context, checkoutRef, subscriptionRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subLinked == nil {
		s.subLinked = make(map[string]string)
	}
	s.subLinked[checkoutRef] = subscriptionRef
	return nil
}

func (s *fakeStore) ActivateSubscriptionByRef(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subActivated = append(s.subActivated, ref)
	return nil
}

func (s *fakeStore) MarkSubscriptionPastDue(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subPastDue = append(s.subPastDue, ref)
	return nil
}

func (s *fakeStore) CancelSubscriptionByRef(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subCancelled = append(s.subCancelled, ref)
	return nil
}
