package store

import (
	"sync"
	"time"

	"planthealth/internal/util"
	"planthealth/pkg/domain"
)

// MemoryStore keeps all metadata in-process. Used by tests and
// single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	email    map[string]string // email -> account ID
	entries  map[string]domain.BlogEntry
	order    []string // entry IDs in insertion order
	files    map[string]domain.StoredFile
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]domain.Account),
		email:    make(map[string]string),
		entries:  make(map[string]domain.BlogEntry),
		files:    make(map[string]domain.StoredFile),
	}
}

func (m *MemoryStore) SaveAccount(a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	m.email[a.Email] = a.ID
	return nil
}

func (m *MemoryStore) HasAccountEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetAccountByEmail(email string) (domain.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.Account{}, false, nil
	}
	a, ok := m.accounts[id]
	return a, ok, nil
}

func (m *MemoryStore) GetAccountByID(id string) (domain.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	return a, ok, nil
}

// SaveEntry stores or replaces an entry and tracks insertion order.
func (m *MemoryStore) SaveEntry(e domain.BlogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[e.ID]; !exists {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *MemoryStore) GetEntry(id string) (domain.BlogEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok, nil
}

func (m *MemoryStore) ListEntries() ([]domain.BlogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BlogEntry, 0, len(m.order))
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok {
			res = append(res, e)
		}
	}
	return res, nil
}

func (m *MemoryStore) ListEntriesByUser(userID string) ([]domain.BlogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BlogEntry, 0, len(m.order))
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok && e.UserID == userID {
			res = append(res, e)
		}
	}
	return res, nil
}

func (m *MemoryStore) DeleteEntry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return nil
	}
	delete(m.entries, id)
	for i, ordered := range m.order {
		if ordered == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) SaveFile(f domain.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.ID] = f
	return nil
}

func (m *MemoryStore) GetFile(id string) (domain.StoredFile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	return f, ok, nil
}

func (m *MemoryStore) DeleteFile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

// MemorySessionStore keeps sessions in-process with expiry checks.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess map[string]domain.Session
	ttl  time.Duration
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sess: make(map[string]domain.Session),
		ttl:  ttl,
	}
}

func (s *MemorySessionStore) NewSession(userID string) (domain.Session, error) {
	sess := domain.Session{
		Token:     util.NewID(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	s.mu.Lock()
	s.sess[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemorySessionStore) GetSession(token string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sess[token]
	if !ok {
		return domain.Session{}, false, nil
	}
	if sess.ExpiresAt.Before(time.Now().UTC()) {
		delete(s.sess, token)
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	delete(s.sess, token)
	s.mu.Unlock()
	return nil
}
