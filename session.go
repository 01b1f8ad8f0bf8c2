package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// SessionManager orchestrates signup, login, validate, and logout against
// the credential store, the password hasher, the token service, and the
// revocation ledger. It owns every business invariant of the token
// lifecycle; adapters only translate transport.
type SessionManager struct {
	store        CredentialStore
	hasher       PasswordAuthenticator
	tokenService TokenService
	ledger       RevocationLedger
	publisher    NotificationPublisher
	logger       Logger

	welcomeFrom    string
	welcomeTopic   string
	publishTimeout time.Duration
}

var _ SessionAuthenticator = (*SessionManager)(nil)

// NewSessionManager wires a manager from config. The signing key comes in
// through cfg and is fixed for the process lifetime.
func NewSessionManager(repo RepositoryManager, cfg Config) *SessionManager {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	s := &SessionManager{
		hasher:         BcryptHasher{},
		tokenService:   tokenService,
		logger:         defLogger{},
		welcomeTopic:   DefaultWelcomeTopic,
		publishTimeout: 5 * time.Second,
	}

	if repo != nil {
		s.store = repo.Users()
		s.ledger = repo.RevokedTokens()
	}

	return s
}

// WithStore swaps the credential store, used by tests to avoid a database.
func (s *SessionManager) WithStore(store CredentialStore) *SessionManager {
	if store != nil {
		s.store = store
	}
	return s
}

func (s *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithPublisher enables the account-created notification event.
func (s *SessionManager) WithPublisher(publisher NotificationPublisher) *SessionManager {
	s.publisher = publisher
	return s
}

// WithWelcomeSender sets the from address used on welcome emails.
func (s *SessionManager) WithWelcomeSender(from string) *SessionManager {
	s.welcomeFrom = from
	return s
}

// WithWelcomeTopic overrides the topic account-created events publish to.
func (s *SessionManager) WithWelcomeTopic(topic string) *SessionManager {
	if topic != "" {
		s.welcomeTopic = topic
	}
	return s
}

// WithHasher swaps the password hasher, used by tests to avoid bcrypt cost.
func (s *SessionManager) WithHasher(hasher PasswordAuthenticator) *SessionManager {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithTokenService swaps the token codec.
func (s *SessionManager) WithTokenService(ts TokenService) *SessionManager {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithRevocationLedger swaps the deny list implementation.
func (s *SessionManager) WithRevocationLedger(ledger RevocationLedger) *SessionManager {
	if ledger != nil {
		s.ledger = ledger
	}
	return s
}

// TokenService returns the token codec used by this manager.
func (s *SessionManager) TokenService() TokenService {
	return s.tokenService
}

// Signup registers a new account. The email is canonicalized to lower case
// before the duplicate check so "Ann@x.com" and "ann@x.com" are the same
// account. The store's unique constraint closes the race two concurrent
// signups would otherwise win together.
func (s *SessionManager) Signup(ctx context.Context, name, email, password string) (*User, error) {
	canonical := CanonicalEmail(email)

	if _, err := s.store.GetByEmail(ctx, canonical); err == nil {
		return nil, ErrUserExists
	} else if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to check existing account").
			WithTextCode(TextCodeStoreUnavailable)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) {
			return nil, rich
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:         name,
		Email:        canonical,
		PasswordHash: hash,
	}

	created, err := s.store.Register(ctx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to persist account").
			WithTextCode(TextCodeStoreUnavailable)
	}

	s.emitWelcomeEmail(ctx, created)

	return created, nil
}

// Login verifies credentials and mints a signed session token. An unknown
// email and a wrong password return the same error so the endpoint cannot
// be used to enumerate accounts.
func (s *SessionManager) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to retrieve account").
			WithTextCode(TextCodeStoreUnavailable)
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", ErrInvalidCredentials
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to verify credentials")
	}

	token, err := s.tokenService.Generate(user)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Validate checks a presented token end to end: signature, expiry,
// revocation, and that the subject still resolves to an account. On
// success it returns the account currently on record, not the claims
// snapshot, so name or role changes made after issuance take effect
// without a fresh login.
func (s *SessionManager) Validate(ctx context.Context, raw string) (*User, error) {
	if raw == "" {
		return nil, ErrTokenMalformed
	}

	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		return nil, err
	}

	if s.ledger != nil {
		revoked, err := s.ledger.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to check revocation ledger").
				WithTextCode(TextCodeStoreUnavailable)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	user, err := s.store.GetByEmail(ctx, claims.Subject())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to resolve token subject").
			WithTextCode(TextCodeStoreUnavailable)
	}

	return user, nil
}

// Logout revokes a token ahead of its natural expiry. It is idempotent and
// intentionally forgiving: logout is a client intent signal, not a proof of
// a valid session, so malformed, expired, or already revoked tokens all
// succeed silently.
func (s *SessionManager) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		// A token we cannot verify can never validate either; there is
		// nothing to revoke.
		s.logger.Debug("logout on unverifiable token", "error", err)
		return nil
	}

	if s.ledger == nil {
		// Without a ledger the token stays valid by signature until its
		// natural expiry; logout degrades to the documented stateless no-op.
		s.logger.Warn("logout without revocation ledger is a no-op", "jti", claims.TokenID())
		return nil
	}

	if err := s.ledger.Revoke(ctx, claims.TokenID(), claims.Expires()); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to revoke token").
			WithTextCode(TextCodeStoreUnavailable)
	}

	return nil
}

// emitWelcomeEmail publishes the account-created event off the request
// path. Failures are logged and absorbed; signup already succeeded by the
// time this runs and must not be failed retroactively.
func (s *SessionManager) emitWelcomeEmail(ctx context.Context, user *User) {
	if s.publisher == nil {
		return
	}

	msg := NewWelcomeEmail(s.welcomeFrom, user.Name, user.Email)
	payload, err := msg.Encode()
	if err != nil {
		s.logger.Error("welcome email encode error", "error", err, "user_id", user.ID)
		return
	}

	topic := s.welcomeTopic
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)

	go func() {
		defer cancel()
		if err := s.publisher.Publish(detached, topic, payload); err != nil {
			s.logger.Error("welcome email publish error", "error", err, "topic", topic, "user_id", user.ID)
		}
	}()
}
