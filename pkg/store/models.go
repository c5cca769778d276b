package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type AccountModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BlogEntryModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"column:id_user;not null;index"`
	Title     string         `gorm:"not null"`
	Content   string         `gorm:"type:text"`
	ImageID   string
	Plants    datatypes.JSON `gorm:"type:jsonb"`
	Symptoms  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
	UpdatedAt time.Time      `gorm:"not null"`
}

type StoredFileModel struct {
	ID          string    `gorm:"primaryKey"`
	Bucket      string    `gorm:"not null;index"`
	Name        string    `gorm:"not null"`
	ContentType string    `gorm:"not null"`
	SizeBytes   int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}
