// Package qrcode implements QR generation, history and record lifecycle.
package qrcode

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/qr-codes-api/internal/application/storage"
	"github.com/qr-codes-api/internal/domain"
	"github.com/qr-codes-api/internal/pkg/id"
	"github.com/qr-codes-api/internal/pkg/validate"
)

// RecordView is a history entry decorated with the expiry figures the
// history screen renders.
type RecordView struct {
	domain.QRCode
	Expired     bool `json:"expired"`
	MinutesLeft int  `json:"minutes_left"`
}

// ShareLinks holds ready-to-open share URLs for the record's content.
type ShareLinks struct {
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	WhatsApp  string `json:"whatsapp"`
	LinkedIn  string `json:"linkedin"`
	Email     string `json:"email"`
	Instagram string `json:"instagram"`
}

type Service interface {
	Generate(ctx context.Context, userID string, req domain.GenerateRequest, files []storage.UploadInput) (*domain.QRCode, error)
	List(ctx context.Context, userID string) ([]RecordView, error)
	UpdateNotes(ctx context.Context, userID, qrCodeID string, req domain.UpdateNotesRequest) error
	Delete(ctx context.Context, userID, qrCodeID string) error
	Share(ctx context.Context, userID, qrCodeID string) (*ShareLinks, error)
}

type recordStore interface {
	Put(ctx context.Context, q *domain.QRCode) error
	Get(ctx context.Context, qrCodeID string) (*domain.QRCode, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.QRCode, error)
	UpdateNotes(ctx context.Context, qrCodeID, notes string) error
	Delete(ctx context.Context, qrCodeID string) error
}

type encodeFunc func(content string) (string, error)

type service struct {
	records recordStore
	uploads storage.Service
	encode  encodeFunc
	now     func() time.Time
}

type ServiceDeps struct {
	RecordRepo recordStore
	Uploads    storage.Service
	Encode     encodeFunc
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		records: deps.RecordRepo,
		uploads: deps.Uploads,
		encode:  deps.Encode,
		now:     now,
	}
}

// Generate uploads any attached files, renders the QR symbol and persists the
// record. Uploads happen before the insert, so a failed insert triggers a
// best-effort cleanup of the objects that already landed in the bucket.
func (s *service) Generate(ctx context.Context, userID string, req domain.GenerateRequest, files []storage.UploadInput) (*domain.QRCode, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if strings.TrimSpace(req.Content) == "" && len(files) == 0 {
		return nil, fmt.Errorf("content or files required: %w", domain.ErrBadRequest)
	}

	// Files must marshal as [] rather than null when nothing was attached.
	fileURLs := []string{}
	var fileKeys []string
	for i := range files {
		u, key, err := s.uploads.UploadContent(ctx, userID, files[i])
		if err != nil {
			s.cleanupUploads(ctx, fileKeys)
			return nil, err
		}
		fileURLs = append(fileURLs, u)
		fileKeys = append(fileKeys, key)
	}

	content := req.Content
	var firstFileURL *string
	if len(fileURLs) > 0 {
		content = strings.Join(fileURLs, "\n")
		firstFileURL = &fileURLs[0]
	}

	qrURL, err := s.encode(content)
	if err != nil {
		s.cleanupUploads(ctx, fileKeys)
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(domain.Validity)
	rec := &domain.QRCode{
		QRCodeID:      id.New(),
		UserID:        userID,
		Content:       content,
		Type:          req.Type,
		FileURL:       firstFileURL,
		Files:         fileURLs,
		QRURL:         qrURL,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
		ExpiresAtUnix: expiresAt.Unix(),
	}
	if req.Notes != "" {
		rec.Notes = &req.Notes
	}
	if err := s.records.Put(ctx, rec); err != nil {
		s.cleanupUploads(ctx, fileKeys)
		return nil, err
	}
	return rec, nil
}

func (s *service) cleanupUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.uploads.RemoveContent(ctx, key); err != nil {
			slog.Warn("failed to clean up uploaded object", "key", key, "err", err)
		}
	}
}

// List returns the owner's records newest first, each annotated with the
// remaining minutes at read time.
func (s *service) List(ctx context.Context, userID string) ([]RecordView, error) {
	records, err := s.records.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]RecordView, 0, len(records))
	for i := range records {
		views = append(views, RecordView{
			QRCode:      records[i],
			Expired:     records[i].Expired(now),
			MinutesLeft: records[i].MinutesLeft(now),
		})
	}
	return views, nil
}

func (s *service) UpdateNotes(ctx context.Context, userID, qrCodeID string, req domain.UpdateNotesRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.owned(ctx, userID, qrCodeID); err != nil {
		return err
	}
	return s.records.UpdateNotes(ctx, qrCodeID, req.Notes)
}

func (s *service) Delete(ctx context.Context, userID, qrCodeID string) error {
	if _, err := s.owned(ctx, userID, qrCodeID); err != nil {
		return err
	}
	return s.records.Delete(ctx, qrCodeID)
}

func (s *service) Share(ctx context.Context, userID, qrCodeID string) (*ShareLinks, error) {
	rec, err := s.owned(ctx, userID, qrCodeID)
	if err != nil {
		return nil, err
	}
	text := url.QueryEscape(rec.Content)
	return &ShareLinks{
		Facebook:  "https://www.facebook.com/sharer/sharer.php?u=" + text,
		Twitter:   "https://twitter.com/intent/tweet?text=" + text,
		WhatsApp:  "https://wa.me/?text=" + text,
		LinkedIn:  "https://www.linkedin.com/sharing/share-offsite/?url=" + text,
		Email:     "mailto:?subject=" + url.QueryEscape("QR code") + "&body=" + text,
		Instagram: "https://www.instagram.com/",
	}, nil
}

// owned loads a record and checks the caller is its owner. Records of other
// users come back as not found rather than forbidden, so the endpoint does
// not leak which IDs exist.
func (s *service) owned(ctx context.Context, userID, qrCodeID string) (*domain.QRCode, error) {
	rec, err := s.records.Get(ctx, qrCodeID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("qr code not found: %w", domain.ErrNotFound)
	}
	return rec, nil
}
