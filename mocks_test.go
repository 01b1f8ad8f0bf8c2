package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	auth "github.com/anusha24-git/UserService"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// memoryStore implements auth.CredentialStore with the same observable
// behavior as the bun-backed repository: canonical email keys, not-found
// errors that satisfy goerrors.IsNotFound, and driver-style unique
// violation messages on duplicate inserts.
type memoryStore struct {
	mu       sync.Mutex
	byEmail  map[string]*auth.User
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: map[string]*auth.User{}}
}

func (s *memoryStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	if u, ok := s.byEmail[auth.CanonicalEmail(email)]; ok {
		clone := *u
		return &clone, nil
	}

	return nil, goerrors.New("record not found", goerrors.CategoryNotFound)
}

func (s *memoryStore) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	canonical := auth.CanonicalEmail(user.Email)
	if _, ok := s.byEmail[canonical]; ok {
		return nil, goerrors.New("UNIQUE constraint failed: users.email", goerrors.CategoryConflict)
	}

	clone := *user
	clone.Email = canonical
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	if clone.Role == "" {
		clone.Role = auth.RoleMember
	}

	s.byEmail[canonical] = &clone

	out := clone
	return &out, nil
}

func (s *memoryStore) storedHash(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byEmail[auth.CanonicalEmail(email)]; ok {
		return u.PasswordHash
	}
	return ""
}

func (s *memoryStore) rename(email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byEmail[auth.CanonicalEmail(email)]; ok {
		u.Name = name
	}
}

func (s *memoryStore) remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byEmail, auth.CanonicalEmail(email))
}

// plainHasher sidesteps bcrypt cost in unit tests while preserving the
// verify contract, including the invalid-credentials error kind.
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", auth.ErrNoEmptyString
	}
	return "plain$" + password, nil
}

func (plainHasher) ComparePasswordAndHash(password, hash string) error {
	if hash == "plain$"+password {
		return nil
	}
	return auth.ErrInvalidCredentials
}

// failingPublisher always errors, to prove publish failures never reach
// the signup caller.
type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return goerrors.New("broker unreachable", goerrors.CategoryOperation)
}

func (p *failingPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// testConfig is a minimal auth.Config for wiring managers in tests.
type testConfig struct {
	signingKey string
	ttl        time.Duration
	issuer     string
	audience   []string
}

func (c testConfig) GetSigningKey() string     { return c.signingKey }
func (c testConfig) GetTokenTTL() time.Duration { return c.ttl }
func (c testConfig) GetIssuer() string         { return c.issuer }
func (c testConfig) GetAudience() []string     { return c.audience }

func newTestConfig() testConfig {
	return testConfig{
		signingKey: "unit-test-signing-key",
		ttl:        time.Hour,
	}
}

// quietLogger drops all output so expected failures do not spam test logs.
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

// tamper swaps the first character of a token's signature segment, where
// every bit is significant, to break the signature.
func tamper(token string) string {
	idx := strings.LastIndexByte(token, '.') + 1
	replacement := byte('A')
	if token[idx] == 'A' {
		replacement = 'B'
	}
	return token[:idx] + string(replacement) + token[idx+1:]
}

// textCode extracts the structured TextCode from an error, or "".
func textCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}
