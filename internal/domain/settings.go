package domain

// Profile visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Theme values.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings holds per-user preference flags. Stored as a nested attribute on
// the user item so the expiry sweeper can read the reminder flags without a
// second lookup.
type Settings struct {
	Notifications NotificationSettings `json:"notifications" dynamodbav:"notifications"`
	Privacy       PrivacySettings      `json:"privacy" dynamodbav:"privacy"`
	Security      SecuritySettings     `json:"security" dynamodbav:"security"`
	Language      string               `json:"language" dynamodbav:"language"`
	Theme         string               `json:"theme" dynamodbav:"theme"`
}

type NotificationSettings struct {
	Email    bool `json:"email" dynamodbav:"email"`
	Push     bool `json:"push" dynamodbav:"push"`
	QRExpiry bool `json:"qr_expiry" dynamodbav:"qr_expiry"`
}

type PrivacySettings struct {
	ProfileVisibility string `json:"profile_visibility" dynamodbav:"profile_visibility"`
	ShareHistory      bool   `json:"share_history" dynamodbav:"share_history"`
}

type SecuritySettings struct {
	TwoFactor      bool `json:"two_factor" dynamodbav:"two_factor"`
	SessionTimeout int  `json:"session_timeout" dynamodbav:"session_timeout"` // minutes
}

// DefaultSettings returns the settings every new account starts with.
func DefaultSettings() Settings {
	return Settings{
		Notifications: NotificationSettings{Email: true, Push: true, QRExpiry: true},
		Privacy:       PrivacySettings{ProfileVisibility: VisibilityPrivate, ShareHistory: false},
		Security:      SecuritySettings{TwoFactor: false, SessionTimeout: 30},
		Language:      "en",
		Theme:         ThemeSystem,
	}
}

type UpdateSettingsRequest struct {
	Notifications *NotificationSettings `json:"notifications"`
	Privacy       *PrivacySettings      `json:"privacy" validate:"omitempty"`
	Security      *SecuritySettings     `json:"security"`
	Language      *string               `json:"language"`
	Theme         *string               `json:"theme" validate:"omitempty,oneof=light dark system"`
}
