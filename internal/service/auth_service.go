package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spotdesk/spot-service/internal/auth"
	"github.com/spotdesk/spot-service/internal/config"
	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/mailer"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// AuthService coordinates OTP verification, registration and login.
// Accounts are keyed by the corporate email prefix; only addresses on the
// configured company domain may register.
type AuthService struct {
	employees   repository.EmployeeRepository
	credentials repository.CredentialRepository
	otp         *auth.OTPStore
	tokenMgr    *auth.TokenManager
	sender      mailer.Sender
	logger      *zap.Logger
	bcryptCost  int
	emailDomain string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	EmployeeRepo   repository.EmployeeRepository
	CredentialRepo repository.CredentialRepository
	OTPStore       *auth.OTPStore
	Sender         mailer.Sender
	Logger         *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		employees:   deps.EmployeeRepo,
		credentials: deps.CredentialRepo,
		otp:         deps.OTPStore,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		sender:      deps.Sender,
		logger:      deps.Logger,
		bcryptCost:  cfg.BcryptCost,
		emailDomain: cfg.EmailDomain,
	}
}

// TokenManager exposes the manager for the HTTP middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RequestOTP issues a one-time code for the address and emails it. The
// address must belong to the company domain and an active directory entry.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkDomain(email); err != nil {
		return err
	}
	employee, err := s.employeeByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return err
	}
	msg := mailer.Message{
		To:       []string{employee.Email},
		Subject:  "Your helpdesk verification code",
		HTMLBody: fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in a few minutes.</p>", code),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("otp delivery failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// Register verifies the OTP and creates a credential for the employee.
func (s *AuthService) Register(ctx context.Context, email, code, password string) (*domain.Employee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	valid, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, apperrors.NewUnauthorized("invalid or expired verification code")
	}

	employee, err := s.employeeByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	cred := &repository.Credential{
		Username:     usernameFor(email),
		PasswordHash: hash,
		EmpID:        employee.EmpID,
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		return nil, err
	}
	return employee, nil
}

// Login authenticates a registered account and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Employee, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cred, err := s.credentials.GetByUsername(ctx, usernameFor(email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	employee, err := s.employees.GetByID(ctx, cred.EmpID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !employee.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("employee is inactive")
	}

	token, exp, err := s.tokenMgr.GenerateToken(employee.EmpID, employee.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return employee, token, exp, nil
}

// VerifyOTP checks a code and, on success, issues a session token directly.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.Employee, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	valid, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !valid {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired verification code")
	}

	employee, err := s.employeeByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(employee.EmpID, employee.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return employee, token, exp, nil
}

// ResetPassword verifies the OTP and replaces the stored password.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	valid, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !valid {
		return apperrors.NewUnauthorized("invalid or expired verification code")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.credentials.UpdatePassword(ctx, usernameFor(email), hash); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("account", map[string]any{"email": email})
		}
		return err
	}
	return nil
}

func (s *AuthService) checkDomain(email string) error {
	if s.emailDomain != "" && !strings.HasSuffix(email, "@"+s.emailDomain) {
		return apperrors.NewValidationError("email must belong to the company domain", map[string]any{
			"domain": s.emailDomain,
		})
	}
	return nil
}

func (s *AuthService) employeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	employee, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("employee", map[string]any{"email": email})
		}
		return nil, err
	}
	if !employee.Active {
		return nil, apperrors.NewUnauthorized("employee is inactive")
	}
	return employee, nil
}

// usernameFor derives the account key from the corporate address.
func usernameFor(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
