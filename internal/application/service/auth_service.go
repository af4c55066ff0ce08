package service

import (
	"context"
	"strings"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Authentication failure messages. Unknown users and wrong passwords share
// one message.
const (
	MsgCredentialsRequired = "Email and password are required"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgInvalidToken        = "Invalid or expired token"
)

// LoginResult is a successful authentication
type LoginResult struct {
	Token     string
	ExpiresIn int64 // seconds
	User      *entity.User
}

// AuthService authenticates users and verifies session tokens
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Authenticate verifies a token and resolves its still-active user
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	tokens   port.TokenIssuer
	hasher   port.PasswordHasher
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo port.UserRepository,
	tokens port.TokenIssuer,
	hasher port.PasswordHasher,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

// Login checks credentials and issues a session token
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperror.Validation(MsgCredentialsRequired)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user for login", "error", err)
		return nil, apperror.Internal(err)
	}
	if user == nil || !user.IsActive {
		s.logger.Info("Login rejected", "reason", "unknown or inactive user")
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Info("Login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	token, _, err := s.tokens.Issue(port.SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.RoleName,
	})
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "user_id", user.ID)
		return nil, apperror.Internal(err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.RoleName)

	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

// Authenticate verifies a token and resolves its still-active user. The
// role is read from the store so role changes apply to live sessions.
func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.Unauthorized(MsgInvalidToken)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUnauthorized, MsgInvalidToken, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("Failed to load token subject", "error", err, "user_id", claims.UserID)
		return nil, apperror.Internal(err)
	}
	if user == nil || !user.IsActive {
		return nil, apperror.Unauthorized(MsgInvalidToken)
	}

	return user, nil
}
