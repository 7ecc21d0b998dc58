// Package account wraps sign-up, sign-in, profile and settings management.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/qr-codes-api/internal/application/storage"
	"github.com/qr-codes-api/internal/domain"
	"github.com/qr-codes-api/internal/pkg/id"
	pkgtoken "github.com/qr-codes-api/internal/pkg/token"
	"github.com/qr-codes-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName      = "name"
	fieldGender    = "gender"
	fieldPhone     = "phone"
	fieldAvatarURL = "avatar_url"
	fieldSettings  = "settings"
	fieldEnable    = "enable"
)

type SignInResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error)
	SignIn(ctx context.Context, req domain.SignInRequest) (*SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)

	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, in storage.UploadInput) (string, error)

	GetSettings(ctx context.Context, userID string) (domain.Settings, error)
	UpdateSettings(ctx context.Context, userID string, req domain.UpdateSettingsRequest) (domain.Settings, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type jwtSigner interface {
	Sign(userID, sessionID string) (string, error)
}

type service struct {
	users           userStore
	sessions        sessionStore
	uploads         storage.Service
	jwtProvider     jwtSigner
	refreshTokenTTL time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	Uploads         storage.Service
	JWTProvider     jwtSigner
	RefreshTokenTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:           deps.UserRepo,
		sessions:        deps.SessionRepo,
		uploads:         deps.Uploads,
		jwtProvider:     deps.JWTProvider,
		refreshTokenTTL: deps.RefreshTokenTTL,
	}
}

// SignUp creates the auth identity and profile as one item, so a failed write
// can never leave an identity without a profile.
func (s *service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	gender := req.Gender
	if gender == "" {
		gender = domain.GenderOther
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         req.Name,
		Email:        req.Email,
		Gender:       gender,
		PasswordHash: string(hash),
		Settings:     domain.DefaultSettings(),
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) SignIn(ctx context.Context, req domain.SignInRequest) (*SignInResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("wrong email or password: %w", domain.ErrInvalidCredentials)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("wrong email or password: %w", domain.ErrInvalidCredentials)
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &SignInResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.Update(ctx, sessionID, map[string]interface{}{fieldEnable: false})
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshTokenTTL).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(sess.UserID, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

// UpdateProfile changes name, gender and phone. Email is immutable after
// registration and has no update path.
func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Gender != nil {
		updates[fieldGender] = *req.Gender
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if len(updates) == 0 {
		return s.users.Get(ctx, userID)
	}
	if err := s.users.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

func (s *service) UpdateAvatar(ctx context.Context, userID string, in storage.UploadInput) (string, error) {
	url, err := s.uploads.UploadAvatar(ctx, userID, in)
	if err != nil {
		return "", err
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldAvatarURL: url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *service) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	return u.Settings, nil
}

func (s *service) UpdateSettings(ctx context.Context, userID string, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Settings{}, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	merged := u.Settings
	if req.Notifications != nil {
		merged.Notifications = *req.Notifications
	}
	if req.Privacy != nil {
		if v := req.Privacy.ProfileVisibility; v != domain.VisibilityPublic && v != domain.VisibilityPrivate {
			return domain.Settings{}, fmt.Errorf("invalid profile visibility: %w", domain.ErrBadRequest)
		}
		merged.Privacy = *req.Privacy
	}
	if req.Security != nil {
		if to := req.Security.SessionTimeout; to < 5 || to > 120 {
			return domain.Settings{}, fmt.Errorf("session timeout must be between 5 and 120 minutes: %w", domain.ErrBadRequest)
		}
		merged.Security = *req.Security
	}
	if req.Language != nil {
		merged.Language = *req.Language
	}
	if req.Theme != nil {
		merged.Theme = *req.Theme
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldSettings: merged}); err != nil {
		return domain.Settings{}, err
	}
	return merged, nil
}
