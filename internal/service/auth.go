package service

import (
	"context"
	"fmt"

	"library-service/internal/models"
	"library-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ActorTypeAdmin is the actor type of back-office users.
const ActorTypeAdmin = "admin"

// AdminStore looks up admin accounts.
type AdminStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// SessionStore holds opaque session tokens. GetSession reports the admin ID
// and whether the token is live.
type SessionStore interface {
	StoreSession(ctx context.Context, token string, adminID int64) error
	GetSession(ctx context.Context, token string) (int64, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// AuthService verifies admin credentials and issues opaque session tokens.
type AuthService struct {
	admins   AdminStore
	sessions SessionStore
	audit    AuditRecorder
	logger   *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(admins AdminStore, sessions SessionStore, audit AuditRecorder) *AuthService {
	return &AuthService{
		admins:   admins,
		sessions: sessions,
		audit:    audit,
		logger:   util.GetLogger(),
	}
}

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token    string `json:"token"`
	AdminID  int64  `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login checks credentials against the stored bcrypt hash and issues a
// session token. Wrong username and wrong password are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, origin string, req *LoginRequest) (*LoginResult, error) {
	admin, err := s.admins.GetAdminByUsername(ctx, req.Username)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		util.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		s.logger.Warn("Login rejected", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	token := uuid.New().String()
	if err := s.sessions.StoreSession(ctx, token, admin.ID); err != nil {
		return nil, &StorageError{Err: err}
	}

	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   ActorTypeAdmin,
		ActorID:     admin.ID,
		Action:      models.ActionLogin,
		Description: fmt.Sprintf("admin %s logged in", admin.Username),
		Origin:      origin,
	})

	return &LoginResult{
		Token:    token,
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
	}, nil
}

// Logout revokes a session token. Revoking an unknown token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return &StorageError{Err: err}
	}
	return nil
}

// Authenticate resolves a session token to the acting admin.
func (s *AuthService) Authenticate(ctx context.Context, token, origin string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrInvalidCredentials
	}
	adminID, ok, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return Actor{}, &StorageError{Err: err}
	}
	if !ok {
		return Actor{}, ErrInvalidCredentials
	}
	return Actor{Type: ActorTypeAdmin, ID: adminID, Origin: origin}, nil
}
