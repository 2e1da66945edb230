package entities

import "time"

type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanTimedOut  ScanStatus = "timed_out"
)

// ScanRun records one attempt to fetch a source for a profile.
type ScanRun struct {
	ID           int        `gorm:"primaryKey"`
	Profile      string     `gorm:"size:255;index"`
	Source       Source     `gorm:"size:50;not null"`
	Status       ScanStatus `gorm:"size:20;not null;index"`
	ResultsCount int
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time `gorm:"index"`
}

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelTelegram NotificationChannel = "telegram"
)

type NotificationLog struct {
	ID         int                 `gorm:"primaryKey"`
	Profile    string              `gorm:"size:255;index"`
	Channel    NotificationChannel `gorm:"size:20;not null"`
	TenderIDs  []string            `gorm:"serializer:json;type:text"`
	Recipients []string            `gorm:"serializer:json;type:text"`
	Subject    string              `gorm:"size:255"`
	Success    bool
	Error      string
	SentAt     time.Time `gorm:"index"`
}

// ProviderToken is an access token for a data provider, shared between the CLI and the server.
type ProviderToken struct {
	Provider     string    `gorm:"primaryKey;size:50"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	TokenType    string    `gorm:"size:50"`
	ExpiresAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}
