package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/gorm"
)

// AuthService turns password, Google and OTP logins into a session token.
type AuthService struct {
	db             *gorm.DB
	jwt            *auth.JWTManager
	google         auth.GoogleVerifier
	mailer         OTPMailer
	blacklist      *auth.BlacklistService
	otpTTL         time.Duration
	otpMaxAttempts int
	log            *logger.Logger
	now            func() time.Time
}

type AuthConfig struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, jwt *auth.JWTManager, google auth.GoogleVerifier, mailer OTPMailer, cfg AuthConfig, log *logger.Logger) *AuthService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = 5
	}
	return &AuthService{
		db:             db,
		jwt:            jwt,
		google:         google,
		mailer:         mailer,
		blacklist:      auth.NewBlacklistService(db),
		otpTTL:         cfg.OTPTTL,
		otpMaxAttempts: cfg.OTPMaxAttempts,
		log:            log,
		now:            time.Now,
	}
}

type LoginInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	ExpectedRole string `json:"expected_role" validate:"omitempty,role"`
}

type GoogleLoginInput struct {
	IDToken      string `json:"id_token" validate:"required"`
	ExpectedRole string `json:"expected_role" validate:"omitempty,role"`
}

type OTPRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPVerifyInput struct {
	Email        string `json:"email" validate:"required,email"`
	Code         string `json:"code" validate:"required,len=6,numeric"`
	ExpectedRole string `json:"expected_role" validate:"omitempty,role"`
}

// LoginResult is returned by every login path.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

var errInvalidCredentials = apperr.Unauthorized("invalid email or password")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkExpectedRole rejects a login made through a form for a different role.
func checkExpectedRole(user *model.User, expected string) error {
	if expected == "" {
		return nil
	}
	role, ok := model.ParseRole(expected)
	if !ok || role != user.Role {
		return apperr.Unauthorized("this account cannot sign in as " + strings.ToUpper(strings.TrimSpace(expected)))
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*LoginResult, error) {
	token, err := s.jwt.Issue(auth.Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, apperr.Internal("failed to sign token", err)
	}
	return &LoginResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// Login verifies an email and password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)

	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	if !user.HasPassword() {
		return nil, errInvalidCredentials
	}
	if err := auth.VerifyPassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Warn("password login failed", "email", email)
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal("failed to verify password", err)
	}

	if err := checkExpectedRole(&user, in.ExpectedRole); err != nil {
		return nil, err
	}

	s.log.Info("user logged in", "user_id", user.ID, "method", "password")
	return s.issue(&user)
}

// LoginWithGoogle verifies a Google ID token and signs the matching user in,
// creating the account on first use.
func (s *AuthService) LoginWithGoogle(ctx context.Context, in GoogleLoginInput) (*LoginResult, error) {
	if s.google == nil {
		return nil, apperr.Unavailable("google login is not configured")
	}

	identity, err := s.google.Verify(in.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleNotConfigured) {
			return nil, apperr.Unavailable("google login is not configured")
		}
		s.log.Warn("google token rejected", "error", err)
		return nil, apperr.Unauthorized("invalid Google ID token")
	}
	if !identity.EmailVerified {
		s.log.Warn("google token with unverified email rejected", "email", identity.Email)
		return nil, apperr.Unauthorized("Google account email is not verified")
	}

	var user *model.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.resolveUser(tx, identity.Email, identity.Name)
		if err != nil {
			return err
		}

		switch {
		case user.GoogleID == nil:
			sub := identity.Subject
			if err := tx.Model(user).Update("google_id", sub).Error; err != nil {
				return err
			}
			user.GoogleID = &sub
		case *user.GoogleID != identity.Subject:
			return apperr.Unauthorized("this email is linked to a different Google account")
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, "user not found")
	}

	if err := checkExpectedRole(user, in.ExpectedRole); err != nil {
		return nil, err
	}

	s.log.Info("user logged in", "user_id", user.ID, "method", "google")
	return s.issue(user)
}

// resolveUser finds the account for email or creates it with the role granted
// to that email, falling back to FACULTY.
func (s *AuthService) resolveUser(tx *gorm.DB, email, name string) (*model.User, error) {
	email = normalizeEmail(email)

	var user model.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = model.User{Email: email, Name: name, Role: model.RoleFaculty}
	if user.Name == "" {
		user.Name = strings.Split(email, "@")[0]
	}

	var grant model.RoleGrant
	if err := tx.Where("email = ?", email).First(&grant).Error; err == nil {
		user.Role = grant.Role
		user.DeptID = grant.DepartmentID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	s.log.Info("user created on first login", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// RequestOTP stores a hashed code for email and mails the plain code.
func (s *AuthService) RequestOTP(ctx context.Context, in OTPRequestInput) error {
	email := normalizeEmail(in.Email)

	code, err := auth.GenerateOTP()
	if err != nil {
		return apperr.Internal("failed to generate code", err)
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return apperr.Internal("failed to hash code", err)
	}

	otp := model.Otp{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := s.db.WithContext(ctx).Create(&otp).Error; err != nil {
		return apperr.Internal("failed to store code", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.otpTTL); err != nil {
		s.log.Error("failed to send login code", "email", email, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, "could not send the login code", err)
	}
	return nil
}

// VerifyOTP checks the newest live code for email and signs the user in,
// creating the account on first use. Each wrong guess counts against the code.
func (s *AuthService) VerifyOTP(ctx context.Context, in OTPVerifyInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	db := s.db.WithContext(ctx)
	now := s.now()

	var otp model.Otp
	err := db.Where("email = ? AND used_at IS NULL AND expires_at > ?", email, now).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid or expired code")
		}
		return nil, apperr.Internal("failed to load code", err)
	}

	if !otp.Usable(now, s.otpMaxAttempts) {
		return nil, apperr.Unauthorized("too many attempts, request a new code")
	}

	if err := auth.VerifyOTP(otp.CodeHash, in.Code); err != nil {
		if err := db.Model(&otp).UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error; err != nil {
			return nil, apperr.Internal("failed to record attempt", err)
		}
		s.log.Warn("otp login failed", "email", email, "attempts", otp.Attempts+1)
		return nil, apperr.Unauthorized("invalid or expired code")
	}

	var user *model.User
	err = db.Transaction(func(tx *gorm.DB) error {
		// the used_at guard makes a code single-use under concurrent verifies
		res := tx.Model(&model.Otp{}).
			Where("id = ? AND used_at IS NULL", otp.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Unauthorized("invalid or expired code")
		}

		var err error
		user, err = s.resolveUser(tx, email, "")
		return err
	})
	if err != nil {
		return nil, dbError(err, "user not found")
	}

	if err := checkExpectedRole(user, in.ExpectedRole); err != nil {
		return nil, err
	}

	s.log.Info("user logged in", "user_id", user.ID, "method", "otp")
	return s.issue(user)
}

// Logout revokes the token the request was made with.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return apperr.Unauthorized("")
	}
	if err := s.blacklist.Revoke(ctx, claims, "logout"); err != nil {
		return apperr.Internal("failed to revoke token", err)
	}
	s.log.Info("user logged out", "user_id", claims.UserID)
	return nil
}

// Me returns the caller's profile with their department.
func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Preload("Department").First(&user, userID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}
	return &user, nil
}
