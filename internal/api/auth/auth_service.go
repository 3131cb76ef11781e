package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pokedex-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService registers and authenticates accounts and inspects tokens.
type AuthService interface {
	Register(ctx context.Context, params types.RegisterParams) (*types.IssuedCredential, error)
	Login(ctx context.Context, username, password string) (*types.IssuedCredential, error)
	UpdateProfile(ctx context.Context, currentUsername string, params types.ProfileUpdateParams) (*types.IssuedCredential, error)
	DeleteAccount(ctx context.Context, username string) error

	Validate(token string) bool
	SubjectOf(token string) (string, bool)
	RoleOf(token string) (types.Role, bool)
}

// TokenIssuer signs tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, role types.Role) (string, error)
}

// Tokens is implemented by *TokenCodec.
type Tokens interface {
	TokenIssuer
	TokenVerifier
}

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordLength = 72
)

type AuthServiceImpl struct {
	logger   *slog.Logger
	store    CredentialStore
	hasher   PasswordHasher
	tokens   Tokens
	defaults config.ProfileConfig

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store CredentialStore, hasher PasswordHasher, tokens Tokens, defaults config.ProfileConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		defaults: defaults,
	}
}

func validateRegistration(p types.RegisterParams) error {
	switch {
	case strings.TrimSpace(p.Username) == "":
		return fmt.Errorf("%w: username is required", api.ErrInvalidInput)
	case len(p.Password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", api.ErrInvalidInput, minPasswordLength)
	case len(p.Password) > maxPasswordLength:
		return fmt.Errorf("%w: password must be at most %d bytes", api.ErrInvalidInput, maxPasswordLength)
	case !strings.Contains(p.Email, "@"):
		return fmt.Errorf("%w: email is not valid", api.ErrInvalidInput)
	}
	return nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, params types.RegisterParams) (*types.IssuedCredential, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.username", params.Username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("username", params.Username))
	start := time.Now()
	m := metrics.Get()
	defer func() {
		m.RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	fail := func(err error, msg string) (*types.IssuedCredential, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		m.RegisterRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		return nil, err
	}

	if err := validateRegistration(params); err != nil {
		l.InfoContext(ctx, "Registration rejected", slog.Any("error", err))
		return fail(err, "Invalid input")
	}

	taken, err := s.store.ExistsByUsername(ctx, params.Username)
	if err != nil {
		return fail(fmt.Errorf("error checking username: %w", err), "Username check failed")
	}
	if taken {
		return fail(api.ErrDuplicateUsername, "Duplicate username")
	}

	taken, err = s.store.ExistsByEmail(ctx, params.Email)
	if err != nil {
		return fail(fmt.Errorf("error checking email: %w", err), "Email check failed")
	}
	if taken {
		return fail(api.ErrDuplicateEmail, "Duplicate email")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return fail(err, "Hashing failed")
	}

	displayName := params.Username
	region := s.defaults.DefaultRegion
	language := s.defaults.DefaultLanguage
	account := &types.Account{
		Username:       params.Username,
		Email:          params.Email,
		PasswordHash:   hash,
		Role:           types.RoleUser,
		Enabled:        true,
		DisplayName:    &displayName,
		FavoriteRegion: &region,
		Language:       &language,
		Country:        params.Country,
		BirthDate:      params.BirthDate,
	}
	if err = s.store.Create(ctx, account); err != nil {
		l.WarnContext(ctx, "Failed to store account", slog.Any("error", err))
		return fail(fmt.Errorf("error creating account: %w", err), "Insert failed")
	}

	cred, err := s.issue(account)
	if err != nil {
		return fail(err, "Token issue failed")
	}

	m.RegisterRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "created")))
	l.InfoContext(ctx, "Account registered")
	span.SetStatus(codes.Ok, "Account registered")
	return cred, nil
}

// dummy returns a hash compared against when the account does not exist, so
// that unknown usernames cost the same as wrong passwords.
func (s *AuthServiceImpl) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("pokedex-timing-equaliser")
		if err != nil {
			s.logger.Warn("Failed to prepare dummy password hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*types.IssuedCredential, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"))
	attempts := metrics.Get().LoginAttemptsTotal

	account, err := s.store.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("error fetching account: %w", err)
	}

	target := s.dummy()
	if account != nil {
		target = account.PasswordHash
	}
	ok, verr := s.hasher.Verify(password, target)
	if verr != nil {
		l.WarnContext(ctx, "Password verification error", slog.Any("error", verr))
		ok = false
	}

	if account == nil || !ok || !account.Enabled {
		attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		span.SetStatus(codes.Error, "Invalid credentials")
		return nil, api.ErrInvalidCredentials
	}

	cred, err := s.issue(account)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
	l.InfoContext(ctx, "Login successful", slog.String("userID", account.ID.String()))
	span.SetStatus(codes.Ok, "Login successful")
	return cred, nil
}

func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, currentUsername string, params types.ProfileUpdateParams) (*types.IssuedCredential, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.username", currentUsername),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("username", currentUsername))

	account, err := s.store.GetByUsername(ctx, currentUsername)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("error fetching account: %w", err)
	}

	if params.Username != nil {
		newName := strings.TrimSpace(*params.Username)
		if newName == "" {
			span.SetStatus(codes.Error, "Invalid input")
			return nil, fmt.Errorf("%w: username must not be blank", api.ErrInvalidInput)
		}
		if newName == account.Username {
			params.Username = nil
		} else {
			taken, err := s.store.ExistsByUsername(ctx, newName)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("error checking username: %w", err)
			}
			if taken {
				span.SetStatus(codes.Error, "Duplicate username")
				return nil, api.ErrDuplicateUsername
			}
			params.Username = &newName
		}
	}

	if !params.Empty() {
		account, err = s.store.Update(ctx, account.ID, params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Update failed")
			return nil, fmt.Errorf("error updating account: %w", err)
		}
	}

	cred, err := s.issue(account)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	l.InfoContext(ctx, "Profile updated", slog.String("newUsername", account.Username))
	span.SetStatus(codes.Ok, "Profile updated")
	return cred, nil
}

func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, username string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "DeleteAccount", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteAccount"), slog.String("username", username))

	account, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return fmt.Errorf("error fetching account: %w", err)
	}
	if err = s.store.Delete(ctx, account.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("error deleting account: %w", err)
	}

	l.InfoContext(ctx, "Account deleted")
	span.SetStatus(codes.Ok, "Account deleted")
	return nil
}

func (s *AuthServiceImpl) Validate(token string) bool {
	_, ok := s.tokens.Verify(token)
	return ok
}

func (s *AuthServiceImpl) SubjectOf(token string) (string, bool) {
	identity, ok := s.tokens.Verify(token)
	return identity.Subject, ok
}

func (s *AuthServiceImpl) RoleOf(token string) (types.Role, bool) {
	identity, ok := s.tokens.Verify(token)
	return identity.Role, ok
}

func (s *AuthServiceImpl) issue(account *types.Account) (*types.IssuedCredential, error) {
	token, err := s.tokens.Issue(account.Username, account.Role)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &types.IssuedCredential{
		Token:          token,
		Username:       account.Username,
		Email:          account.Email,
		Role:           account.Role,
		DisplayName:    account.DisplayName,
		Bio:            account.Bio,
		Gender:         account.Gender,
		FavoriteRegion: account.FavoriteRegion,
		Language:       account.Language,
		Avatar:         account.Avatar,
	}, nil
}
