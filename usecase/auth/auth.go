package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

// Config carries the token-minting parameters.
type Config struct {
	JWTSecret  string
	Issuer     string
	SessionTTL time.Duration
	BcryptCost int
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cfg      Config
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates an account. The plaintext password exists only for the
// duration of this call; it is neither stored nor logged.
func (uc *UseCase) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if err := domain.ValidateRegistration(username, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cfg.BcryptCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to hash password", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := uc.users.Create(ctx, user); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeDuplicate) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to create user", err)
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and mints a bearer token bound to a fresh
// server-side session. Unknown email and wrong password produce the same
// error.
func (uc *UseCase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, domain.WrapError(domain.ErrCodeInternal, "failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.SessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return "", nil, domain.WrapError(domain.ErrCodeInternal, "failed to save session", err)
	}

	token, err := uc.mintToken(session)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrCodeInternal, "failed to sign token", err)
	}

	uc.logger.Info("user logged in", zap.String("user_id", user.ID))
	return token, user, nil
}

// Resolve validates a bearer token and returns the identity it is bound to.
// The embedded session must still exist, so a logged-out token fails even
// before its expiry.
func (uc *UseCase) Resolve(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := uc.parseToken(tokenString)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	session, err := uc.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if session.IsExpired(time.Now()) || session.UserID != claims.UserID {
		_ = uc.sessions.Delete(ctx, session.ID)
		return nil, domain.ErrInvalidToken
	}

	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}

// Logout revokes the session embedded in the token. An unparseable token is
// treated as already logged out.
func (uc *UseCase) Logout(ctx context.Context, tokenString string) error {
	claims, err := uc.parseToken(tokenString)
	if err != nil {
		return nil
	}
	return uc.sessions.Delete(ctx, claims.SessionID)
}

type tokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func (uc *UseCase) mintToken(session *domain.Session) (string, error) {
	claims := tokenClaims{
		UserID:    session.UserID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    uc.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(uc.cfg.JWTSecret))
}

func (uc *UseCase) parseToken(tokenString string) (*tokenClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(uc.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, domain.ErrInvalidToken
	}
	return &claims, nil
}
