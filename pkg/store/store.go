package store

import "planthealth/pkg/domain"

// Store defines persistence operations for accounts, blog entries, and
// uploaded file metadata.
type Store interface {
	// accounts
	SaveAccount(domain.Account) error
	HasAccountEmail(email string) (bool, error)
	GetAccountByEmail(email string) (domain.Account, bool, error)
	GetAccountByID(id string) (domain.Account, bool, error)

	// blog entries
	SaveEntry(domain.BlogEntry) error
	GetEntry(id string) (domain.BlogEntry, bool, error)
	ListEntries() ([]domain.BlogEntry, error)
	ListEntriesByUser(userID string) ([]domain.BlogEntry, error)
	DeleteEntry(id string) error

	// uploaded files
	SaveFile(domain.StoredFile) error
	GetFile(id string) (domain.StoredFile, bool, error)
	DeleteFile(id string) error
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID string) (domain.Session, error)
	GetSession(token string) (domain.Session, bool, error)
	DeleteSession(token string) error
}
