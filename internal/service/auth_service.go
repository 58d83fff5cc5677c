package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/rpc"
)

// AuthServiceName is the fully-qualified Connect service name.
const AuthServiceName = "splitledger.v1.AuthService"

// AuthService implements account registration, login and identity lookup.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// NewAuthServiceHandler returns the path prefix and handler serving svc.
// Register and Login are public, so mount it behind OptionalAuth.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	return rpc.NewServiceHandler(AuthServiceName, map[string]rpc.Func{
		"Register":       svc.Register,
		"Login":          svc.Login,
		"GetCurrentUser": svc.GetCurrentUser,
	}, opts...)
}

// Register creates a new account and returns a session token for it.
func (s *AuthService) Register(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	email := args.String("email")
	displayName := strings.TrimSpace(args.String("display_name"))
	s.logger.Info("Register request", "email", email)

	if email == "" || displayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and display_name required"))
	}

	user, err := s.authenticator.Register(ctx, email, displayName, args.String("password"))
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordTooLong), errors.Is(err, auth.ErrInvalidEmail):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return rpc.Object{"user": userObject(user), "token": token}, nil
}

// Login authenticates a member and returns a session token.
func (s *AuthService) Login(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	email := args.String("email")
	password := args.String("password")
	s.logger.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("Login failed", "email", email, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		s.logger.Warn("Login failed", "email", email)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return rpc.Object{"user": userObject(user), "token": token}, nil
}

// GetCurrentUser returns the authenticated member's account.
func (s *AuthService) GetCurrentUser(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.authenticator.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return rpc.Object{"user": userObject(user)}, nil
}
