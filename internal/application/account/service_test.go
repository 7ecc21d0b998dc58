package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qr-codes-api/internal/application/storage"
	"github.com/qr-codes-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, sessionID string) (string, error) {
	args := m.Called(userID, sessionID)
	return args.String(0), args.Error(1)
}

type mockUploads struct{ mock.Mock }

func (m *mockUploads) UploadContent(ctx context.Context, ownerID string, in storage.UploadInput) (string, string, error) {
	args := m.Called(ctx, ownerID, in)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockUploads) UploadAvatar(ctx context.Context, ownerID string, in storage.UploadInput) (string, error) {
	args := m.Called(ctx, ownerID, in)
	return args.String(0), args.Error(1)
}

func (m *mockUploads) RemoveContent(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newTestService(users *mockUserStore, sessions *mockSessionStore, signer *mockSigner, uploads *mockUploads) Service {
	return NewService(ServiceDeps{
		UserRepo:        users,
		SessionRepo:     sessions,
		Uploads:         uploads,
		JWTProvider:     signer,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with default settings", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ana@example.com").Return(nil, domain.ErrNotFound)
		users.On("Put", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		u, err := svc.SignUp(ctx, domain.SignUpRequest{
			Name:     "Ana",
			Email:    "ana@example.com",
			Password: "secret1",
			Gender:   domain.GenderFemale,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, u.UserID)
		assert.True(t, u.Enable)
		assert.Equal(t, domain.DefaultSettings(), u.Settings)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
		users.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ana@example.com").Return(&domain.User{UserID: "u1"}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignUp(ctx, domain.SignUpRequest{
			Name:     "Ana",
			Email:    "ana@example.com",
			Password: "secret1",
			Gender:   domain.GenderFemale,
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("short password rejected before any lookup", func(t *testing.T) {
		users := new(mockUserStore)
		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignUp(ctx, domain.SignUpRequest{
			Name:     "Ana",
			Email:    "ana@example.com",
			Password: "12345",
			Gender:   domain.GenderFemale,
		})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		svc := newTestService(new(mockUserStore), new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignUp(ctx, domain.SignUpRequest{
			Name:     "Ana",
			Email:    "not-an-email",
			Password: "secret1",
			Gender:   domain.GenderFemale,
		})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("issues bearer and refresh token", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ana@example.com").Return(&domain.User{
			UserID:       "u1",
			Email:        "ana@example.com",
			PasswordHash: hashOf(t, "secret1"),
			Enable:       true,
		}, nil)

		sessions := new(mockSessionStore)
		sessions.On("Put", ctx, mock.AnythingOfType("*domain.Session")).Return(nil)

		signer := new(mockSigner)
		signer.On("Sign", "u1", mock.AnythingOfType("string")).Return("bearer-token", nil)

		svc := newTestService(users, sessions, signer, new(mockUploads))
		res, err := svc.SignIn(ctx, domain.SignInRequest{Email: "ana@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "bearer-token", res.Bearer)
		assert.NotEmpty(t, res.RefreshToken)
		assert.Equal(t, "u1", res.Session.UserID)
		require.NotNil(t, res.Session.User)
		assert.Equal(t, "ana@example.com", res.Session.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ana@example.com").Return(&domain.User{
			UserID:       "u1",
			PasswordHash: hashOf(t, "secret1"),
			Enable:       true,
		}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignIn(ctx, domain.SignInRequest{Email: "ana@example.com", Password: "nope-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to invalid credentials", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, domain.ErrNotFound)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignIn(ctx, domain.SignInRequest{Email: "ghost@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetByEmail", ctx, "ana@example.com").Return(&domain.User{
			UserID:       "u1",
			PasswordHash: hashOf(t, "secret1"),
			Enable:       false,
		}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.SignIn(ctx, domain.SignInRequest{Email: "ana@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	sessions := new(mockSessionStore)
	sessions.On("Update", ctx, "s1", map[string]interface{}{fieldEnable: false}).Return(nil)

	svc := newTestService(new(mockUserStore), sessions, new(mockSigner), new(mockUploads))
	require.NoError(t, svc.SignOut(ctx, "s1"))
	sessions.AssertExpectations(t)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates token", func(t *testing.T) {
		sessions := new(mockSessionStore)
		sessions.On("GetByRefreshToken", ctx, "old-token").Return(&domain.Session{
			SessionID:        "s1",
			UserID:           "u1",
			Enable:           true,
			RefreshToken:     "old-token",
			RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
		}, nil)
		sessions.On("RotateRefreshToken", ctx, "s1", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).Return(nil)

		signer := new(mockSigner)
		signer.On("Sign", "u1", "s1").Return("new-bearer", nil)

		svc := newTestService(new(mockUserStore), sessions, signer, new(mockUploads))
		bearer, newToken, err := svc.Refresh(ctx, "old-token")
		require.NoError(t, err)
		assert.Equal(t, "new-bearer", bearer)
		assert.NotEmpty(t, newToken)
		assert.NotEqual(t, "old-token", newToken)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		sessions := new(mockSessionStore)
		sessions.On("GetByRefreshToken", ctx, "stale").Return(&domain.Session{
			SessionID:        "s1",
			UserID:           "u1",
			RefreshExpiresAt: time.Now().Add(-time.Minute).Unix(),
		}, nil)

		svc := newTestService(new(mockUserStore), sessions, new(mockSigner), new(mockUploads))
		_, _, err := svc.Refresh(ctx, "stale")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		sessions.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		sessions := new(mockSessionStore)
		sessions.On("GetByRefreshToken", ctx, "bogus").Return(nil, domain.ErrNotFound)

		svc := newTestService(new(mockUserStore), sessions, new(mockSigner), new(mockUploads))
		_, _, err := svc.Refresh(ctx, "bogus")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps unset fields", func(t *testing.T) {
		name := "Ana Maria"
		users := new(mockUserStore)
		users.On("Update", ctx, "u1", map[string]interface{}{fieldName: name}).Return(nil)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Name: name, Email: "ana@example.com"}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		u, err := svc.UpdateProfile(ctx, "u1", domain.UpdateProfileRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, u.Name)
		users.AssertExpectations(t)
	})

	t.Run("no fields is a read", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1"}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.UpdateProfile(ctx, "u1", domain.UpdateProfileRequest{})
		require.NoError(t, err)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("persists url after upload", func(t *testing.T) {
		uploads := new(mockUploads)
		uploads.On("UploadAvatar", ctx, "u1", mock.Anything).Return("https://cdn/avatars/u1/avatar.png", nil)
		users := new(mockUserStore)
		users.On("Update", ctx, "u1", map[string]interface{}{fieldAvatarURL: "https://cdn/avatars/u1/avatar.png"}).Return(nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), uploads)
		url, err := svc.UpdateAvatar(ctx, "u1", storage.UploadInput{Filename: "me.png", ContentType: "image/png", Size: 10})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/avatars/u1/avatar.png", url)
		users.AssertExpectations(t)
	})

	t.Run("upload failure stops persistence", func(t *testing.T) {
		uploads := new(mockUploads)
		uploads.On("UploadAvatar", ctx, "u1", mock.Anything).Return("", errors.New("s3 down"))
		users := new(mockUserStore)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), uploads)
		_, err := svc.UpdateAvatar(ctx, "u1", storage.UploadInput{Filename: "me.png", ContentType: "image/png", Size: 10})
		assert.Error(t, err)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("merges over stored settings", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Settings: domain.DefaultSettings()}, nil)

		want := domain.DefaultSettings()
		want.Theme = domain.ThemeDark
		users.On("Update", ctx, "u1", map[string]interface{}{fieldSettings: want}).Return(nil)

		theme := domain.ThemeDark
		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		got, err := svc.UpdateSettings(ctx, "u1", domain.UpdateSettingsRequest{Theme: &theme})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		users.AssertExpectations(t)
	})

	t.Run("rejects out of range session timeout", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Settings: domain.DefaultSettings()}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.UpdateSettings(ctx, "u1", domain.UpdateSettingsRequest{
			Security: &domain.SecuritySettings{SessionTimeout: 600},
		})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown visibility", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Settings: domain.DefaultSettings()}, nil)

		svc := newTestService(users, new(mockSessionStore), new(mockSigner), new(mockUploads))
		_, err := svc.UpdateSettings(ctx, "u1", domain.UpdateSettingsRequest{
			Privacy: &domain.PrivacySettings{ProfileVisibility: "friends-only"},
		})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})
}

func TestGetCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches user", func(t *testing.T) {
		sessions := new(mockSessionStore)
		sessions.On("Get", ctx, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
		users := new(mockUserStore)
		users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Email: "ana@example.com"}, nil)

		svc := newTestService(users, sessions, new(mockSigner), new(mockUploads))
		sess, err := svc.GetCurrent(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, sess.User)
		assert.Equal(t, "ana@example.com", sess.User.Email)
	})

	t.Run("disabled session is unauthorized", func(t *testing.T) {
		sessions := new(mockSessionStore)
		sessions.On("Get", ctx, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: false}, nil)

		svc := newTestService(new(mockUserStore), sessions, new(mockSigner), new(mockUploads))
		_, err := svc.GetCurrent(ctx, "s1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
