package domain

import "time"

// Account is a registered user identity. The password hash never
// leaves the store layer.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is an authenticated session reference: an opaque token plus
// its expiry. The backend owns the session; callers hold the token only.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StoredFile describes an uploaded object. Created on upload, deleted
// explicitly.
type StoredFile struct {
	ID          string    `json:"id"`
	Bucket      string    `json:"bucket"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BlogEntry is a user-submitted record tagging a plant disease with
// plant and symptom keywords.
type BlogEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageID   string    `json:"imageId,omitempty"`
	Plants    []string  `json:"plants"`
	Symptoms  []string  `json:"symptoms"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DataPlant is a single plant-identification candidate. Probability is
// always within [0,1]; alternate names keep the order the model
// returned them in. Recognition output only, never persisted.
type DataPlant struct {
	Name        string   `json:"plantName"`
	Probability float64  `json:"probability"`
	AltNames    []string `json:"altNames"`
}
