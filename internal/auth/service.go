// Package auth establishes, resolves and revokes sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/session"
	"github.com/vasiliy-maslov/storefront/internal/user"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrNotAuthenticated)

// Result is returned by every successful sign-in.
type Result struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"session"`
	User    *user.User       `json:"user"`
}

type Service interface {
	Register(ctx context.Context, email, password, name string) (*Result, error)
	Login(ctx context.Context, email, password string) (*Result, error)
	RegisterAdmin(ctx context.Context, email, password, name string) (*Result, error)
	LoginAdmin(ctx context.Context, email, password string) (*Result, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

type service struct {
	users    user.Repository
	sessions SessionStore
	tokens   tokenIssuer
	ttl      time.Duration
}

func NewService(users user.Repository, sessions SessionStore, cfg config.AuthConfig) Service {
	return &service{
		users:    users,
		sessions: sessions,
		tokens:   tokenIssuer{secret: []byte(cfg.JWTSecret)},
		ttl:      cfg.SessionTTL,
	}
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return apperr.Invalid("email", "must be a valid address")
	}
	if len(password) < minPasswordLength {
		return apperr.Invalid("password", "must be at least %d characters", minPasswordLength)
	}
	return nil
}

func (s *service) Register(ctx context.Context, email, password, name string) (*Result, error) {
	u, err := s.createAccount(ctx, email, password, name, session.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, u)
}

// RegisterAdmin creates the single admin account. When an admin already
// exists it fails with apperr.ErrAdminExists and no session is created.
func (s *service) RegisterAdmin(ctx context.Context, email, password, name string) (*Result, error) {
	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to check for existing admin: %w", err)
	}
	if exists {
		log.Warn().Str("email", email).Msg("service: admin registration rejected, admin already exists")
		return nil, apperr.ErrAdminExists
	}

	u, err := s.createAccount(ctx, email, password, name, session.RoleAdmin)
	if err != nil {
		if errors.Is(err, apperr.ErrAdminExists) {
			log.Warn().Str("email", email).Msg("service: admin registration lost race to another admin")
		}
		return nil, err
	}
	return s.establish(ctx, u)
}

func (s *service) createAccount(ctx context.Context, email, password, name string, role session.Role) (*user.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: internal error hashing password: %w", err)
	}

	u := &user.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailExists) || errors.Is(err, apperr.ErrAdminExists) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create account")
		return nil, fmt.Errorf("service: failed to create account: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Str("role", string(role)).Msg("service: account created")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, u)
}

// LoginAdmin signs in only the admin account; valid credentials of any other
// account are refused without creating a session.
func (s *service) LoginAdmin(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u.Role != session.RoleAdmin {
		log.Warn().Stringer("user_id", u.ID).Msg("service: non-admin attempted admin login")
		return nil, apperr.ErrForbidden
	}
	return s.establish(ctx, u)
}

func (s *service) verify(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service: failed to look up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// establish resolves the role once and stores it on the session.
func (s *service) establish(ctx context.Context, u *user.User) (*Result, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate session ID: %w", err)
	}

	sess := &session.Session{
		ID:        id,
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to store session")
		return nil, fmt.Errorf("service: failed to store session: %w", err)
	}

	token, err := s.tokens.sign(sess)
	if err != nil {
		return nil, err
	}

	log.Info().Stringer("user_id", u.ID).Stringer("session_id", sess.ID).Msg("service: session established")
	return &Result{Token: token, Session: sess, User: u}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *service) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	id, err := s.tokens.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNotAuthenticated, err)
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrNotAuthenticated, err)
		}
		return nil, err
	}
	return sess, nil
}

// Logout revokes the session behind token. Unknown or expired sessions are
// not an error.
func (s *service) Logout(ctx context.Context, token string) error {
	id, err := s.tokens.parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNotAuthenticated, err)
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to revoke session: %w", err)
	}
	log.Info().Stringer("session_id", id).Msg("service: session revoked")
	return nil
}
