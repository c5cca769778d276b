package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"planthealth/internal/recognize"
	"planthealth/internal/search"
	"planthealth/internal/util"
	"planthealth/pkg/auth"
	"planthealth/pkg/domain"
	"planthealth/pkg/functions"
	"planthealth/pkg/storage"
	"planthealth/pkg/store"
)

const (
	defaultImageBucket     = "images"
	defaultBlogImageBucket = "blog-images"
	defaultFunctionQueue   = "recognitions"
)

// Config holds runtime configuration for the core application.
// The store, session, storage, and execution fields are injectable;
// when nil they are constructed from the connection settings.
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	SessionTTL      time.Duration
	JWTSecret       string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	ImageBucket     string
	BlogImageBucket string
	AMQPURL         string
	FunctionQueue   string
	ExecutionTTL    time.Duration
	PollInterval    time.Duration
	PollTimeout     time.Duration

	Store      store.Store
	Sessions   store.SessionStore
	Images     storage.ObjectStore
	BlogImages storage.ObjectStore
	Executions functions.ExecutionStore
	Invoker    functions.Invoker
}

// App is the single point of access to accounts, image storage, blog
// entries, and plant recognition. Endpoint identifiers (database,
// buckets, queues) stay hidden behind its methods.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	images     storage.ObjectStore
	blogImages storage.ObjectStore
	executions functions.ExecutionStore
	recognizer *recognize.Poller
}

// New constructs the application from config, falling back to the
// managed backends for any dependency not injected.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	imageBucket := cfg.ImageBucket
	if imageBucket == "" {
		imageBucket = defaultImageBucket
	}
	blogImageBucket := cfg.BlogImageBucket
	if blogImageBucket == "" {
		blogImageBucket = defaultBlogImageBucket
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		// An explicit secret opts into stateless JWT sessions; otherwise
		// sessions live in Redis and logout revokes them immediately.
		switch {
		case cfg.JWTSecret != "":
			sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (redisAddr or jwtSecret)")
		}
	}

	images := cfg.Images
	if images == nil {
		var err error
		images, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, imageBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init image bucket: %w", err)
		}
	}
	blogImages := cfg.BlogImages
	if blogImages == nil {
		var err error
		blogImages, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, blogImageBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init blog image bucket: %w", err)
		}
	}

	executions := cfg.Executions
	if executions == nil {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redisAddr required for execution tracking")
		}
		executions = functions.NewRedisExecutionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.ExecutionTTL)
	}

	invoker := cfg.Invoker
	if invoker == nil {
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("amqpURL required for recognition invocations")
		}
		queueName := cfg.FunctionQueue
		if queueName == "" {
			queueName = defaultFunctionQueue
		}
		queue, err := functions.NewAMQPQueue(cfg.AMQPURL, queueName)
		if err != nil {
			return nil, fmt.Errorf("init function queue: %w", err)
		}
		invoker = queue
	}

	return &App{
		store:      dataStore,
		sessions:   sessionStore,
		images:     images,
		blogImages: blogImages,
		executions: executions,
		recognizer: recognize.NewPoller(executions, invoker, cfg.PollInterval, cfg.PollTimeout),
	}, nil
}

// Register creates an account and opens a session for it.
func (a *App) Register(email, password, name string) (domain.Account, domain.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return domain.Account{}, domain.Session{}, ErrRegistrationFieldsRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.Account{}, domain.Session{}, err
	}
	exists, err := a.store.HasAccountEmail(email)
	if err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.Account{}, domain.Session{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	account := domain.Account{
		ID:           util.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveAccount(account); err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("save account: %w", err)
	}
	session, err := a.sessions.NewSession(account.ID)
	if err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("issue session: %w", err)
	}
	return account, session, nil
}

// Login validates credentials and opens a session.
func (a *App) Login(email, password string) (domain.Account, domain.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	account, ok, err := a.store.GetAccountByEmail(email)
	if err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("fetch account: %w", err)
	}
	if !ok || !auth.CheckPassword(password, account.PasswordHash) {
		return domain.Account{}, domain.Session{}, ErrInvalidCredentials
	}
	session, err := a.sessions.NewSession(account.ID)
	if err != nil {
		return domain.Account{}, domain.Session{}, fmt.Errorf("issue session: %w", err)
	}
	return account, session, nil
}

// Logout invalidates the session behind a token.
func (a *App) Logout(token string) error {
	_, ok, err := a.sessions.GetSession(token)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	if !ok {
		return ErrNotAuthenticated
	}
	return a.sessions.DeleteSession(token)
}

// SessionFromToken resolves the current session; a read-only probe.
func (a *App) SessionFromToken(token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, ErrNotAuthenticated
	}
	session, ok, err := a.sessions.GetSession(token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolve session: %w", err)
	}
	if !ok {
		return domain.Session{}, ErrNotAuthenticated
	}
	return session, nil
}

// Account resolves the account owning the session behind a token.
func (a *App) Account(token string) (domain.Account, error) {
	session, err := a.SessionFromToken(token)
	if err != nil {
		return domain.Account{}, err
	}
	account, ok, err := a.store.GetAccountByID(session.UserID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("fetch account: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrNotAuthenticated
	}
	return account, nil
}

// UploadImage stores raw image bytes in the recognition image bucket.
func (a *App) UploadImage(ctx context.Context, data []byte) (domain.StoredFile, error) {
	if len(data) == 0 {
		return domain.StoredFile{}, fmt.Errorf("%w: empty image", ErrUpload)
	}
	file := domain.StoredFile{
		ID:          util.NewID(),
		Bucket:      a.images.Bucket(),
		ContentType: http.DetectContentType(data),
		SizeBytes:   int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}
	file.Name = file.ID
	if err := a.images.Put(ctx, file.ID, bytes.NewReader(data), file.SizeBytes, file.ContentType); err != nil {
		return domain.StoredFile{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if err := a.store.SaveFile(file); err != nil {
		_ = a.images.Delete(ctx, file.ID)
		return domain.StoredFile{}, fmt.Errorf("save file metadata: %w", err)
	}
	return file, nil
}

// UploadBlogImage streams an image into the blog image bucket. The
// content type comes from the caller, falling back to the filename
// extension; an unresolvable type fails the upload.
func (a *App) UploadBlogImage(ctx context.Context, r io.Reader, filename, mimeType string, size int64) (domain.StoredFile, error) {
	if r == nil {
		return domain.StoredFile{}, fmt.Errorf("%w: no image stream", ErrUpload)
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return domain.StoredFile{}, fmt.Errorf("%w: filename required", ErrUpload)
	}
	contentType := strings.TrimSpace(mimeType)
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if contentType == "" {
		return domain.StoredFile{}, fmt.Errorf("%w: cannot resolve content type for %q", ErrUpload, filename)
	}
	file := domain.StoredFile{
		ID:          util.NewID(),
		Bucket:      a.blogImages.Bucket(),
		Name:        filename,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.blogImages.Put(ctx, file.ID, r, size, contentType); err != nil {
		return domain.StoredFile{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if err := a.store.SaveFile(file); err != nil {
		_ = a.blogImages.Delete(ctx, file.ID)
		return domain.StoredFile{}, fmt.Errorf("save file metadata: %w", err)
	}
	return file, nil
}

// DeleteBlogImage removes a blog image object and its metadata.
func (a *App) DeleteBlogImage(ctx context.Context, fileID string) error {
	file, ok, err := a.store.GetFile(fileID)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	if !ok || file.Bucket != a.blogImages.Bucket() {
		return fmt.Errorf("%w: blog image %s", ErrNotFound, fileID)
	}
	if err := a.blogImages.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return a.store.DeleteFile(fileID)
}

// ListEntries returns every blog entry in insertion order.
func (a *App) ListEntries(_ context.Context) ([]domain.BlogEntry, error) {
	return a.store.ListEntries()
}

// ListEntriesByUser returns the blog entries owned by a user.
func (a *App) ListEntriesByUser(_ context.Context, userID string) ([]domain.BlogEntry, error) {
	return a.store.ListEntriesByUser(userID)
}

// SearchEntries filters the full listing by keywords. A blank filter
// means no filter: the whole listing comes back.
func (a *App) SearchEntries(ctx context.Context, filter string) ([]domain.BlogEntry, error) {
	entries, err := a.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(filter) == "" {
		return entries, nil
	}
	return search.Filter(filter, entries), nil
}

// GetEntry returns one blog entry.
func (a *App) GetEntry(_ context.Context, id string) (domain.BlogEntry, error) {
	entry, ok, err := a.store.GetEntry(id)
	if err != nil {
		return domain.BlogEntry{}, fmt.Errorf("fetch entry: %w", err)
	}
	if !ok {
		return domain.BlogEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return entry, nil
}

// CreateEntry stores a new blog entry. Every entry must carry a
// non-empty owning user id.
func (a *App) CreateEntry(_ context.Context, entry domain.BlogEntry) (domain.BlogEntry, error) {
	entry.UserID = strings.TrimSpace(entry.UserID)
	if entry.UserID == "" {
		return domain.BlogEntry{}, fmt.Errorf("%w: owning user id required", ErrValidation)
	}
	if strings.TrimSpace(entry.Title) == "" {
		return domain.BlogEntry{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	now := time.Now().UTC()
	entry.ID = util.NewID()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if err := a.store.SaveEntry(entry); err != nil {
		return domain.BlogEntry{}, fmt.Errorf("save entry: %w", err)
	}
	return entry, nil
}

// UpdateEntry replaces the mutable fields of an existing entry.
func (a *App) UpdateEntry(_ context.Context, id string, update domain.BlogEntry) (domain.BlogEntry, error) {
	existing, ok, err := a.store.GetEntry(id)
	if err != nil {
		return domain.BlogEntry{}, fmt.Errorf("fetch entry: %w", err)
	}
	if !ok {
		return domain.BlogEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	if strings.TrimSpace(update.Title) == "" {
		return domain.BlogEntry{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	existing.Title = update.Title
	existing.Content = update.Content
	existing.ImageID = update.ImageID
	existing.Plants = update.Plants
	existing.Symptoms = update.Symptoms
	existing.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveEntry(existing); err != nil {
		return domain.BlogEntry{}, fmt.Errorf("save entry: %w", err)
	}
	return existing, nil
}

// DeleteEntry removes a blog entry.
func (a *App) DeleteEntry(_ context.Context, id string) error {
	_, ok, err := a.store.GetEntry(id)
	if err != nil {
		return fmt.Errorf("fetch entry: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return a.store.DeleteEntry(id)
}

// RecognizePlant runs the recognition function against an uploaded
// image and blocks until the candidates are available. Callers must not
// run it on a latency-sensitive goroutine.
func (a *App) RecognizePlant(ctx context.Context, fileID string) ([]domain.DataPlant, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("%w: image file id required", ErrValidation)
	}
	file, ok, err := a.store.GetFile(fileID)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	if !ok || file.Bucket != a.images.Bucket() {
		return nil, fmt.Errorf("%w: image %s", ErrNotFound, fileID)
	}
	return a.recognizer.Run(ctx, fileID)
}

// ExecutionStatus returns the state of a recognition execution.
func (a *App) ExecutionStatus(ctx context.Context, id string) (functions.Execution, error) {
	exec, ok, err := a.executions.Get(ctx, id)
	if err != nil {
		return functions.Execution{}, fmt.Errorf("fetch execution: %w", err)
	}
	if !ok {
		return functions.Execution{}, fmt.Errorf("%w: execution %s", ErrNotFound, id)
	}
	return exec, nil
}
