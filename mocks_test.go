package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPrincipalStore implements auth.PrincipalStore
type MockPrincipalStore struct {
	mock.Mock
}

func (m *MockPrincipalStore) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	args := m.Called(ctx, email)
	if p := args.Get(0); p != nil {
		return p.(*auth.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPrincipalStore) SavePrincipal(ctx context.Context, p *auth.Principal) (*auth.Principal, error) {
	args := m.Called(ctx, p)
	if out := args.Get(0); out != nil {
		return out.(*auth.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPrincipalStore) UpdatePrincipalRole(ctx context.Context, email string, role auth.Role) (*auth.Principal, error) {
	args := m.Called(ctx, email, role)
	if out := args.Get(0); out != nil {
		return out.(*auth.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

// memoryStore is a map backed PrincipalStore with the same error
// contract as the bun store.
type memoryStore struct {
	mu   sync.Mutex
	rows map[string]auth.Principal
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]auth.Principal{}}
}

func (s *memoryStore) FindPrincipalByEmail(_ context.Context, email string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	return &p, nil
}

func (s *memoryStore) SavePrincipal(_ context.Context, p *auth.Principal) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := auth.NormalizeEmail(p.Email)
	if _, ok := s.rows[email]; ok {
		return nil, auth.ErrPrincipalExists
	}
	row := *p
	row.Email = email
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now()
	row.CreatedAt, row.UpdatedAt = &now, &now
	s.rows[email] = row
	return &row, nil
}

func (s *memoryStore) UpdatePrincipalRole(_ context.Context, email string, role auth.Role) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = auth.NormalizeEmail(email)
	row, ok := s.rows[email]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	row.Role = role
	s.rows[email] = row
	return &row, nil
}

func (s *memoryStore) delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, auth.NormalizeEmail(email))
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, e auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
