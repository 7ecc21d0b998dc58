package domain

import "time"

// Content types a QR code can carry.
const (
	TypeText     = "text"
	TypeURL      = "url"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
)

// Validity is the fixed window every code lives for, set once at creation.
const Validity = 2 * time.Hour

// QRCode is a persisted generation event. Content is either the raw text/URL
// the user typed or the newline-join of uploaded file URLs. QRURL holds the
// rendered symbol as a self-contained PNG data URL.
type QRCode struct {
	QRCodeID  string    `json:"id" dynamodbav:"qr_code_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	Type      string    `json:"type" dynamodbav:"type"`
	FileURL   *string   `json:"file_url" dynamodbav:"file_url"`
	Files     []string  `json:"files" dynamodbav:"files"`
	QRURL     string    `json:"qr_url" dynamodbav:"qr_url"`
	Notes     *string   `json:"notes,omitempty" dynamodbav:"notes"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expiry_time" dynamodbav:"expiry_time"`
	// ExpiresAtUnix duplicates ExpiresAt in epoch seconds. It feeds the
	// table's native TTL backstop and the sweep filter, which need a
	// numeric attribute.
	ExpiresAtUnix int64 `json:"-" dynamodbav:"expires_at"`
	ReminderSent  bool  `json:"-" dynamodbav:"reminder_sent"`
}

// Expired reports whether the code is past its validity window at t.
func (q *QRCode) Expired(t time.Time) bool {
	return !t.Before(q.ExpiresAt)
}

// MinutesLeft returns the whole minutes remaining before expiry (ceiling),
// or 0 once expired. This is the figure the history view shows.
func (q *QRCode) MinutesLeft(t time.Time) int {
	if q.Expired(t) {
		return 0
	}
	secs := q.ExpiresAt.Sub(t).Seconds()
	return int((secs + 59) / 60)
}

type GenerateRequest struct {
	Content string `json:"content"`
	Type    string `json:"type" validate:"required,oneof=text url image video audio document"`
	Notes   string `json:"notes"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}
