package repositories

import (
	"context"
	"sync"
	"time"

	"footballhub/internal/models"
)

// MemoryOTPStore is an in-process store for tests and local development.
// Not shared between instances.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]models.OTPRecord
	now     func() time.Time
}

func NewMemoryOTPStore(now func() time.Time) *MemoryOTPStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryOTPStore{records: make(map[string]models.OTPRecord), now: now}
}

func memKey(phoneKey string, source models.Channel) string {
	return phoneKey + "#" + string(source)
}

func (s *MemoryOTPStore) Put(_ context.Context, rec *models.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[memKey(rec.PhoneKey, rec.Source)] = *rec
	return nil
}

func (s *MemoryOTPStore) Get(ctx context.Context, phoneKey string) (*models.OTPRecord, error) {
	return getLatest(ctx, s, phoneKey)
}

func (s *MemoryOTPStore) GetBySource(_ context.Context, phoneKey string, source models.Channel) (*models.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(phoneKey, source)
	rec, ok := s.records[k]
	if !ok {
		return nil, nil
	}
	if markExpired(&rec, s.now()).Expired {
		s.records[k] = rec
	}
	return &rec, nil
}

func (s *MemoryOTPStore) IncrementAttempts(_ context.Context, phoneKey string, source models.Channel) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(phoneKey, source)
	rec, ok := s.records[k]
	if !ok {
		return 0, ErrNotFound
	}
	rec.Attempts++
	s.records[k] = rec
	return rec.Attempts, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, phoneKey string, source models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, memKey(phoneKey, source))
	return nil
}

func (s *MemoryOTPStore) Consume(_ context.Context, phoneKey string, source models.Channel, recordID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(phoneKey, source)
	rec, ok := s.records[k]
	if !ok || rec.ID != recordID {
		return false, nil
	}
	delete(s.records, k)
	return true, nil
}

var _ OTPStore = (*MemoryOTPStore)(nil)
