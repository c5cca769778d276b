package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"planthealth/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&AccountModel{}, &BlogEntryModel{}, &StoredFileModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveAccount stores or updates an account.
func (s *GormStore) SaveAccount(a domain.Account) error {
	model := accountToModel(a)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "password_hash", "updated_at"}),
	}).Create(&model).Error
}

// HasAccountEmail checks if email exists.
func (s *GormStore) HasAccountEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&AccountModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAccountByEmail looks up an account by email.
func (s *GormStore) GetAccountByEmail(email string) (domain.Account, bool, error) {
	var model AccountModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	return accountFromModel(model), true, nil
}

// GetAccountByID returns an account by ID.
func (s *GormStore) GetAccountByID(id string) (domain.Account, bool, error) {
	var model AccountModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	return accountFromModel(model), true, nil
}

// SaveEntry stores or updates a blog entry.
func (s *GormStore) SaveEntry(e domain.BlogEntry) error {
	model, err := entryToModel(e)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"id_user", "title", "content", "image_id", "plants", "symptoms", "updated_at"}),
	}).Create(&model).Error
}

// GetEntry returns a blog entry by ID.
func (s *GormStore) GetEntry(id string) (domain.BlogEntry, bool, error) {
	var model BlogEntryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.BlogEntry{}, false, nil
		}
		return domain.BlogEntry{}, false, err
	}
	entry, err := entryFromModel(model)
	if err != nil {
		return domain.BlogEntry{}, false, err
	}
	return entry, true, nil
}

// ListEntries returns all blog entries in insertion order.
func (s *GormStore) ListEntries() ([]domain.BlogEntry, error) {
	return s.listEntries()
}

// ListEntriesByUser returns blog entries owned by a user.
func (s *GormStore) ListEntriesByUser(userID string) ([]domain.BlogEntry, error) {
	return s.listEntries("id_user = ?", userID)
}

func (s *GormStore) listEntries(conds ...any) ([]domain.BlogEntry, error) {
	var models []BlogEntryModel
	if err := s.db.Order("created_at ASC").Find(&models, conds...).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BlogEntry, 0, len(models))
	for _, m := range models {
		entry, err := entryFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, entry)
	}
	return res, nil
}

// DeleteEntry removes a blog entry.
func (s *GormStore) DeleteEntry(id string) error {
	return s.db.Delete(&BlogEntryModel{}, "id = ?", id).Error
}

// SaveFile stores uploaded file metadata.
func (s *GormStore) SaveFile(f domain.StoredFile) error {
	model := fileToModel(f)
	return s.db.Create(&model).Error
}

// GetFile returns file metadata by ID.
func (s *GormStore) GetFile(id string) (domain.StoredFile, bool, error) {
	var model StoredFileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StoredFile{}, false, nil
		}
		return domain.StoredFile{}, false, err
	}
	return fileFromModel(model), true, nil
}

// DeleteFile removes file metadata.
func (s *GormStore) DeleteFile(id string) error {
	return s.db.Delete(&StoredFileModel{}, "id = ?", id).Error
}

func accountToModel(a domain.Account) AccountModel {
	return AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func accountFromModel(m AccountModel) domain.Account {
	return domain.Account{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func entryToModel(e domain.BlogEntry) (BlogEntryModel, error) {
	plants, err := json.Marshal(e.Plants)
	if err != nil {
		return BlogEntryModel{}, fmt.Errorf("encode plants: %w", err)
	}
	symptoms, err := json.Marshal(e.Symptoms)
	if err != nil {
		return BlogEntryModel{}, fmt.Errorf("encode symptoms: %w", err)
	}
	return BlogEntryModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Content:   e.Content,
		ImageID:   e.ImageID,
		Plants:    plants,
		Symptoms:  symptoms,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

func entryFromModel(m BlogEntryModel) (domain.BlogEntry, error) {
	entry := domain.BlogEntry{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Content:   m.Content,
		ImageID:   m.ImageID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Plants) > 0 {
		if err := json.Unmarshal(m.Plants, &entry.Plants); err != nil {
			return domain.BlogEntry{}, fmt.Errorf("decode plants: %w", err)
		}
	}
	if len(m.Symptoms) > 0 {
		if err := json.Unmarshal(m.Symptoms, &entry.Symptoms); err != nil {
			return domain.BlogEntry{}, fmt.Errorf("decode symptoms: %w", err)
		}
	}
	return entry, nil
}

func fileToModel(f domain.StoredFile) StoredFileModel {
	return StoredFileModel{
		ID:          f.ID,
		Bucket:      f.Bucket,
		Name:        f.Name,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		CreatedAt:   f.CreatedAt,
	}
}

func fileFromModel(m StoredFileModel) domain.StoredFile {
	return domain.StoredFile{
		ID:          m.ID,
		Bucket:      m.Bucket,
		Name:        m.Name,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		CreatedAt:   m.CreatedAt,
	}
}
