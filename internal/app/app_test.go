package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"planthealth/internal/recognize"
	"planthealth/pkg/domain"
	"planthealth/pkg/functions"
	"planthealth/pkg/store"
)

// fakeObjectStore keeps objects in a map and presigns fake URLs.
type fakeObjectStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore(bucket string) *fakeObjectStore {
	return &fakeObjectStore{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Bucket() string {
	return f.bucket
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return "https://storage.test/" + key, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

type fakeIdentifier struct {
	payload []byte
	err     error
}

func (f *fakeIdentifier) Identify(context.Context, string) ([]byte, error) {
	return f.payload, f.err
}

// pngBytes is a minimal PNG signature, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestApp(t *testing.T, model recognize.Identifier) (*App, *fakeObjectStore, *fakeObjectStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	executions := functions.NewRedisExecutionStore(mr.Addr(), "", time.Hour)
	images := newFakeObjectStore(defaultImageBucket)
	blogImages := newFakeObjectStore(defaultBlogImageBucket)
	worker := recognize.NewWorker(executions, images, model)
	a, err := New(Config{
		SessionTTL:   time.Hour,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  2 * time.Second,
		Store:        store.NewMemoryStore(),
		Sessions:     store.NewMemorySessionStore(time.Hour),
		Images:       images,
		BlogImages:   blogImages,
		Executions:   executions,
		Invoker:      functions.NewInProcInvoker(worker.Handle),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, images, blogImages
}

func TestRegisterLoginLogout(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})

	account, session, err := a.Register("Ada@Example.com", "secret-pass", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", account.Email)
	}
	if session.Token == "" || session.UserID != account.ID {
		t.Fatalf("bad session: %+v", session)
	}

	if _, _, err := a.Register("ada@example.com", "secret-pass", "Ada"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if _, _, err := a.Register("", "secret-pass", "Ada"); !errors.Is(err, ErrRegistrationFieldsRequired) {
		t.Fatalf("expected ErrRegistrationFieldsRequired, got %v", err)
	}

	if _, _, err := a.Login("ada@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, session, err = a.Login("ada@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	got, err := a.Account(session.Token)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if got.ID != account.ID {
		t.Fatalf("Account returned %s, want %s", got.ID, account.ID)
	}

	if err := a.Logout(session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := a.Account(session.Token); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated after logout, got %v", err)
	}
	if err := a.Logout(session.Token); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated on double logout, got %v", err)
	}
}

func TestSessionFromToken(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	if _, err := a.SessionFromToken(""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for empty token, got %v", err)
	}
	if _, err := a.SessionFromToken("bogus"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for unknown token, got %v", err)
	}
	_, session, err := a.Register("ada@example.com", "secret-pass", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := a.SessionFromToken(session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if got.UserID != session.UserID {
		t.Fatalf("user id = %s, want %s", got.UserID, session.UserID)
	}
}

func TestUploadImage(t *testing.T) {
	a, images, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()

	file, err := a.UploadImage(ctx, pngBytes)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if file.ContentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", file.ContentType)
	}
	if file.Bucket != defaultImageBucket {
		t.Fatalf("bucket = %q", file.Bucket)
	}
	images.mu.Lock()
	_, stored := images.objects[file.ID]
	images.mu.Unlock()
	if !stored {
		t.Fatal("object not written to image bucket")
	}

	if _, err := a.UploadImage(ctx, nil); !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload for empty image, got %v", err)
	}
}

func TestUploadImageStorageFailure(t *testing.T) {
	a, images, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	images.putErr = errors.New("bucket unavailable")
	if _, err := a.UploadImage(context.Background(), pngBytes); !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestUploadAndDeleteBlogImage(t *testing.T) {
	a, _, blogImages := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()

	file, err := a.UploadBlogImage(ctx, bytes.NewReader(pngBytes), "leaf.png", "", int64(len(pngBytes)))
	if err != nil {
		t.Fatalf("UploadBlogImage: %v", err)
	}
	if file.ContentType != "image/png" {
		t.Fatalf("content type = %q, want image/png from extension", file.ContentType)
	}
	if file.Bucket != defaultBlogImageBucket {
		t.Fatalf("bucket = %q", file.Bucket)
	}

	if _, err := a.UploadBlogImage(ctx, bytes.NewReader(pngBytes), "noext", "", 4); !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload for unresolvable type, got %v", err)
	}

	if err := a.DeleteBlogImage(ctx, file.ID); err != nil {
		t.Fatalf("DeleteBlogImage: %v", err)
	}
	blogImages.mu.Lock()
	_, stored := blogImages.objects[file.ID]
	blogImages.mu.Unlock()
	if stored {
		t.Fatal("object still present after delete")
	}
	if err := a.DeleteBlogImage(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteBlogImageRejectsRecognitionImage(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()
	file, err := a.UploadImage(ctx, pngBytes)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if err := a.DeleteBlogImage(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for file in the wrong bucket, got %v", err)
	}
}

func TestEntryLifecycle(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()

	entry, err := a.CreateEntry(ctx, domain.BlogEntry{
		UserID:   "user-1",
		Title:    "Rust on rose leaves",
		Content:  "Orange pustules on the underside.",
		Plants:   []string{"Rosa"},
		Symptoms: []string{"rust", "leaf spots"},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("entry id not assigned")
	}

	listed, err := a.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(listed) != 1 || listed[0].UserID != "user-1" {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	if len(listed[0].Plants) != 1 || listed[0].Plants[0] != "Rosa" {
		t.Fatalf("plants not preserved: %+v", listed[0].Plants)
	}
	if len(listed[0].Symptoms) != 2 {
		t.Fatalf("symptoms not preserved: %+v", listed[0].Symptoms)
	}

	updated, err := a.UpdateEntry(ctx, entry.ID, domain.BlogEntry{
		Title:    "Rust on rose leaves (update)",
		Content:  entry.Content,
		Plants:   entry.Plants,
		Symptoms: entry.Symptoms,
	})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if updated.ID != entry.ID || updated.UserID != entry.UserID {
		t.Fatalf("identity fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(entry.CreatedAt) {
		t.Fatal("created timestamp changed on update")
	}

	byUser, err := a.ListEntriesByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListEntriesByUser: %v", err)
	}
	if len(byUser) != 1 {
		t.Fatalf("expected 1 entry for user, got %d", len(byUser))
	}
	byOther, err := a.ListEntriesByUser(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListEntriesByUser: %v", err)
	}
	if len(byOther) != 0 {
		t.Fatalf("expected 0 entries for other user, got %d", len(byOther))
	}

	if err := a.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := a.GetEntry(ctx, entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := a.DeleteEntry(ctx, entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()
	if _, err := a.CreateEntry(ctx, domain.BlogEntry{Title: "no owner"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing owner, got %v", err)
	}
	if _, err := a.CreateEntry(ctx, domain.BlogEntry{UserID: "user-1"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing title, got %v", err)
	}
}

func TestSearchEntries(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	ctx := context.Background()

	seed := []domain.BlogEntry{
		{UserID: "u", Title: "a", Plants: []string{"Tulipán"}},
		{UserID: "u", Title: "b", Plants: []string{"Rosa"}, Symptoms: []string{"mildew"}},
		{UserID: "u", Title: "c", Symptoms: []string{"wilting"}},
	}
	for _, e := range seed {
		if _, err := a.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}

	all, err := a.SearchEntries(ctx, "   ")
	if err != nil {
		t.Fatalf("SearchEntries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("blank filter returned %d entries, want 3", len(all))
	}

	hits, err := a.SearchEntries(ctx, "tulipan")
	if err != nil {
		t.Fatalf("SearchEntries: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "a" {
		t.Fatalf("accent-insensitive search failed: %+v", hits)
	}
}

func TestRecognizePlant(t *testing.T) {
	payload := []byte(`[
		{"plant_name": "Rosa rubiginosa", "probability": 0.91, "alt_names": [{"name": "sweet briar"}]},
		{"plant_name": "Rosa canina", "probability": 0.07, "alt_names": []}
	]`)
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: payload})
	ctx := context.Background()

	file, err := a.UploadImage(ctx, pngBytes)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	plants, err := a.RecognizePlant(ctx, file.ID)
	if err != nil {
		t.Fatalf("RecognizePlant: %v", err)
	}
	if len(plants) != 2 {
		t.Fatalf("got %d candidates, want 2", len(plants))
	}
	if plants[0].Name != "Rosa rubiginosa" || plants[0].Probability != 0.91 {
		t.Fatalf("first candidate wrong: %+v", plants[0])
	}
	if len(plants[0].AltNames) != 1 || plants[0].AltNames[0] != "sweet briar" {
		t.Fatalf("alt names wrong: %+v", plants[0].AltNames)
	}
}

func TestRecognizePlantUnknownFile(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[]`)})
	if _, err := a.RecognizePlant(context.Background(), "missing-file"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.RecognizePlant(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank id, got %v", err)
	}
}

func TestRecognizePlantModelFailure(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{err: errors.New("model unavailable")})
	ctx := context.Background()
	file, err := a.UploadImage(ctx, pngBytes)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	_, err = a.RecognizePlant(ctx, file.ID)
	if !errors.Is(err, recognize.ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("failure message lost: %v", err)
	}
}

func TestRecognizePlantMalformedPayload(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeIdentifier{payload: []byte(`[{"probability": 0.5, "alt_names": []}]`)})
	ctx := context.Background()
	file, err := a.UploadImage(ctx, pngBytes)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	_, err = a.RecognizePlant(ctx, file.ID)
	var parseErr *recognize.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Field != "plant_name" {
		t.Fatalf("parse error field = %q, want plant_name", parseErr.Field)
	}
}

func TestLogoutStatelessSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{
		SessionTTL: time.Hour,
		Store:      store.NewMemoryStore(),
		Sessions:   store.NewJWTSessionStore("test-secret", time.Hour),
		Images:     newFakeObjectStore(defaultImageBucket),
		BlogImages: newFakeObjectStore(defaultBlogImageBucket),
		Executions: functions.NewRedisExecutionStore(mr.Addr(), "", time.Hour),
		Invoker:    functions.NewInProcInvoker(func(context.Context, functions.Invocation) error { return nil }),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, session, err := a.Register("ada@example.com", "secret-pass", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := a.Logout(session.Token); !errors.Is(err, store.ErrStatelessSession) {
		t.Fatalf("expected ErrStatelessSession, got %v", err)
	}
	// The token keeps resolving: stateless sessions only expire.
	if _, err := a.Account(session.Token); err != nil {
		t.Fatalf("Account after failed revocation: %v", err)
	}
}
