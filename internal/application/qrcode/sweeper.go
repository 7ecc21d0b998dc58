package qrcode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qr-codes-api/internal/domain"
)

type sweepStore interface {
	DeleteExpiredBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error)
	ListExpiringBefore(ctx context.Context, t time.Time) ([]domain.QRCode, error)
	MarkReminded(ctx context.Context, qrCodeID string) error
}

type ownerStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Sweeper deletes expired records on a fixed interval. Before a record goes,
// owners who opted into expiry notifications get a one-shot reminder. The
// table's native TTL only covers the case where the process is down, so the
// sweeper is the authoritative cleanup path.
type Sweeper struct {
	records  sweepStore
	users    ownerStore
	mail     mailer
	sms      smsSender
	interval time.Duration
	now      func() time.Time
}

type SweeperDeps struct {
	RecordRepo sweepStore
	UserRepo   ownerStore
	Mailer     mailer
	SMSSender  smsSender
	Interval   time.Duration
	Now        func() time.Time
}

func NewSweeper(deps SweeperDeps) *Sweeper {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		records:  deps.RecordRepo,
		users:    deps.UserRepo,
		mail:     deps.Mailer,
		sms:      deps.SMSSender,
		interval: deps.Interval,
		now:      now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass: remind, then delete. Both halves are
// best-effort; a failure is logged and retried on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	s.remind(ctx, now)

	deleted, err := s.records.DeleteExpiredBefore(ctx, now)
	if err != nil {
		slog.Error("expiry sweep failed", "err", err)
		return
	}
	if len(deleted) > 0 {
		slog.Info("expiry sweep removed records", "count", len(deleted))
	}
}

// remind notifies owners of records expiring within the next interval, so the
// reminder lands before the record disappears.
func (s *Sweeper) remind(ctx context.Context, now time.Time) {
	expiring, err := s.records.ListExpiringBefore(ctx, now.Add(s.interval))
	if err != nil {
		slog.Error("listing expiring qr codes failed", "err", err)
		return
	}
	for i := range expiring {
		rec := &expiring[i]
		u, err := s.users.Get(ctx, rec.UserID)
		if err != nil {
			slog.Warn("owner lookup failed for expiry reminder", "user_id", rec.UserID, "err", err)
			continue
		}
		if !u.Settings.Notifications.QRExpiry {
			continue
		}
		s.notify(ctx, u, rec)
		if err := s.records.MarkReminded(ctx, rec.QRCodeID); err != nil {
			slog.Warn("failed to mark reminder sent", "qr_code_id", rec.QRCodeID, "err", err)
		}
	}
}

func (s *Sweeper) notify(ctx context.Context, u *domain.User, rec *domain.QRCode) {
	msg := fmt.Sprintf("Your QR code created at %s expires at %s.",
		rec.CreatedAt.Format(time.RFC1123), rec.ExpiresAt.Format(time.RFC1123))
	if u.Settings.Notifications.Email {
		if err := s.mail.SendEmail(u.Email, "Your QR code is about to expire", msg); err != nil {
			slog.Warn("expiry reminder email failed", "user_id", u.UserID, "err", err)
		}
	}
	if u.Settings.Notifications.Push && s.sms != nil && u.Phone != nil {
		if err := s.sms.SendSMS(ctx, *u.Phone, msg); err != nil {
			slog.Warn("expiry reminder sms failed", "user_id", u.UserID, "err", err)
		}
	}
}
