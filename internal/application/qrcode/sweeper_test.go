package qrcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qr-codes-api/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweepStore struct{ mock.Mock }

func (m *mockSweepStore) DeleteExpiredBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QRCode), args.Error(1)
}

func (m *mockSweepStore) ListExpiringBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QRCode), args.Error(1)
}

func (m *mockSweepStore) MarkReminded(ctx context.Context, qrCodeID string) error {
	return m.Called(ctx, qrCodeID).Error(0)
}

type mockOwnerStore struct{ mock.Mock }

func (m *mockOwnerStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

func newTestSweeper(records *mockSweepStore, users *mockOwnerStore, mail *mockMailer, sms *mockSMS) *Sweeper {
	return NewSweeper(SweeperDeps{
		RecordRepo: records,
		UserRepo:   users,
		Mailer:     mail,
		SMSSender:  sms,
		Interval:   time.Minute,
		Now:        func() time.Time { return fixedNow },
	})
}

func TestSweepDeletesExpired(t *testing.T) {
	ctx := context.Background()

	records := new(mockSweepStore)
	records.On("ListExpiringBefore", ctx, fixedNow.Add(time.Minute)).Return([]domain.QRCode{}, nil)
	records.On("DeleteExpiredBefore", ctx, fixedNow).Return([]domain.QRCode{{QRCodeID: "q1"}}, nil)

	s := newTestSweeper(records, new(mockOwnerStore), new(mockMailer), new(mockSMS))
	s.Sweep(ctx)
	records.AssertExpectations(t)
}

func TestSweepRemindsOptedInOwners(t *testing.T) {
	ctx := context.Background()

	rec := domain.QRCode{QRCodeID: "q1", UserID: "u1", CreatedAt: fixedNow.Add(-2 * time.Hour), ExpiresAt: fixedNow.Add(30 * time.Second)}
	records := new(mockSweepStore)
	records.On("ListExpiringBefore", ctx, fixedNow.Add(time.Minute)).Return([]domain.QRCode{rec}, nil)
	records.On("MarkReminded", ctx, "q1").Return(nil)
	records.On("DeleteExpiredBefore", ctx, fixedNow).Return([]domain.QRCode{}, nil)

	owner := &domain.User{UserID: "u1", Email: "ana@example.com", Settings: domain.DefaultSettings()}
	users := new(mockOwnerStore)
	users.On("Get", ctx, "u1").Return(owner, nil)

	mail := new(mockMailer)
	mail.On("SendEmail", "ana@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	s := newTestSweeper(records, users, mail, new(mockSMS))
	s.Sweep(ctx)

	mail.AssertExpectations(t)
	records.AssertCalled(t, "MarkReminded", ctx, "q1")
}

func TestSweepSkipsOptedOutOwners(t *testing.T) {
	ctx := context.Background()

	rec := domain.QRCode{QRCodeID: "q1", UserID: "u1", ExpiresAt: fixedNow.Add(30 * time.Second)}
	records := new(mockSweepStore)
	records.On("ListExpiringBefore", ctx, fixedNow.Add(time.Minute)).Return([]domain.QRCode{rec}, nil)
	records.On("DeleteExpiredBefore", ctx, fixedNow).Return([]domain.QRCode{}, nil)

	settings := domain.DefaultSettings()
	settings.Notifications.QRExpiry = false
	users := new(mockOwnerStore)
	users.On("Get", ctx, "u1").Return(&domain.User{UserID: "u1", Settings: settings}, nil)

	mail := new(mockMailer)

	s := newTestSweeper(records, users, mail, new(mockSMS))
	s.Sweep(ctx)

	mail.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	records.AssertNotCalled(t, "MarkReminded", mock.Anything, mock.Anything)
}

func TestSweepSurvivesDeleteFailure(t *testing.T) {
	ctx := context.Background()

	records := new(mockSweepStore)
	records.On("ListExpiringBefore", ctx, fixedNow.Add(time.Minute)).Return([]domain.QRCode{}, nil)
	records.On("DeleteExpiredBefore", ctx, fixedNow).Return(nil, errors.New("dynamo down"))

	s := newTestSweeper(records, new(mockOwnerStore), new(mockMailer), new(mockSMS))
	s.Sweep(ctx)
	records.AssertExpectations(t)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	records := new(mockSweepStore)
	records.On("ListExpiringBefore", mock.Anything, mock.Anything).Return([]domain.QRCode{}, nil).Maybe()
	records.On("DeleteExpiredBefore", mock.Anything, mock.Anything).Return([]domain.QRCode{}, nil).Maybe()

	s := NewSweeper(SweeperDeps{
		RecordRepo: records,
		UserRepo:   new(mockOwnerStore),
		Mailer:     new(mockMailer),
		SMSSender:  new(mockSMS),
		Interval:   10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	require.True(t, records.AssertExpectations(t))
}
