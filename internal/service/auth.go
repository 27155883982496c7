package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	pkg_hash "github.com/Skotchmaster/teslix_shop/pkg/hash"
	jwthelp "github.com/Skotchmaster/teslix_shop/pkg/jwt"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
	"github.com/Skotchmaster/teslix_shop/pkg/notify"
	"github.com/Skotchmaster/teslix_shop/pkg/tokens"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
	ResetTTL   = 30 * time.Minute
)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Mailer        notify.Mailer
	PublicURL     string
	Events        events.Publisher
}

type LoginResult struct {
	tokens.Pair
	User    *models.User
	IsAdmin bool
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password required", ErrValidation)
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, translate(err)
	}

	publish(ctx, s.Events, events.UserTopic, key(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	pair, jti, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, user.ID, pair.RefreshToken, jti, pair.RefreshExp); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.UserTopic, key(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})
	return &LoginResult{Pair: *pair, User: user, IsAdmin: user.Role == models.RoleAdmin}, nil
}

// Refresh rotates a refresh token. The role embedded in the new access token
// is re-read from the user record.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	userID, err := subjectID(claims.Subject)
	if err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	pair, jti, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, user.ID, pair.RefreshToken, jti, pair.RefreshExp); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(ErrInvalidToken, err)
		}
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

// RequestPasswordReset mails a reset link when the address belongs to an
// account. The caller cannot tell whether it did.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset")

	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("password_reset_unknown_email")
			return nil
		}
		return err
	}

	token, err := tokens.SignReset(key(user.ID), resetStamp(user.PasswordHash), time.Now().Add(ResetTTL), s.JWTSecret)
	if err != nil {
		return err
	}

	if s.Mailer == nil {
		l.Warn("password_reset_mail_skipped", "reason", "no mailer configured", "user_id", user.ID)
		return nil
	}
	notify.SendAsync(l, s.Mailer, notify.Message{
		To:      user.Email,
		Subject: "Password Reset Request",
		Body: "To reset your password, visit the following link:\n" +
			s.PublicURL + "/reset_password/" + token + "\n\n" +
			"If you did not make this request, simply ignore this email and no changes will be made.\n",
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	claims, err := tokens.ResetClaimsFromToken(token, s.JWTSecret)
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	userID, err := subjectID(claims.Subject)
	if err != nil {
		return err
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if claims.Stamp != resetStamp(user.PasswordHash) {
		return ErrInvalidToken
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Repo.SwapPassword(ctx, userID, user.PasswordHash, pwHash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

func resetStamp(passwordHash string) string {
	return jwthelp.Sha256Hex(passwordHash)[:16]
}

// EnsureAdmin makes sure an admin account exists for email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: admin email and password required", ErrValidation)
	}
	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	username, _, _ := strings.Cut(email, "@")
	user := &models.User{Username: username, Email: email, PasswordHash: pwHash}
	created, err := s.Repo.EnsureAdmin(ctx, user)
	if err != nil {
		return nil, translate(err)
	}
	l.Info("ensure_admin_success", "user_id", user.ID, "created", created)
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*tokens.Pair, string, error) {
	now := time.Now()
	accessExp := now.Add(AccessTTL)
	refreshExp := now.Add(RefreshTTL)
	sub := key(user.ID)

	access, err := tokens.SignAccess(sub, string(user.Role), accessExp, s.JWTSecret)
	if err != nil {
		return nil, "", err
	}
	jti := jwthelp.NewJTI()
	refresh, err := tokens.SignRefresh(sub, jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, "", err
	}
	return &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, jti, nil
}

func subjectID(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}
