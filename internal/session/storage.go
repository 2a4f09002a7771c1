package session

import (
	"context"
	"errors"
	"sync"
)

// Keys under which a client's admin session is persisted.
const (
	KeyToken        = "admin_token"
	KeyRefreshToken = "admin_refresh_token"
	KeyUser         = "admin_user"
)

// ErrStorageClosed is returned by providers after Close.
var ErrStorageClosed = errors.New("session storage closed")

// Storage is one client's persistent key/value namespace.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Provider hands out the Storage namespace of a client identity.
type Provider interface {
	Storage(clientID string) Storage
	Close() error
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MemoryProvider keeps every client's namespace in process memory. Sessions
// do not survive a restart. A namespace exists only while it holds items, so
// clients that never sign in cost nothing.
type MemoryProvider struct {
	mu      sync.Mutex
	clients map[string]map[string]string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{clients: make(map[string]map[string]string)}
}

func (p *MemoryProvider) Storage(clientID string) Storage {
	return &memoryHandle{provider: p, clientID: clientID}
}

// Namespaces returns how many clients currently hold items.
func (p *MemoryProvider) Namespaces() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *MemoryProvider) Close() error {
	return nil
}

type memoryHandle struct {
	provider *MemoryProvider
	clientID string
}

func (h *memoryHandle) GetItem(_ context.Context, key string) (string, bool, error) {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	v, ok := h.provider.clients[h.clientID][key]
	return v, ok, nil
}

func (h *memoryHandle) SetItem(_ context.Context, key, value string) error {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()

	items, ok := h.provider.clients[h.clientID]
	if !ok {
		items = make(map[string]string)
		h.provider.clients[h.clientID] = items
	}
	items[key] = value
	return nil
}

func (h *memoryHandle) RemoveItem(_ context.Context, key string) error {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()

	items, ok := h.provider.clients[h.clientID]
	if !ok {
		return nil
	}
	delete(items, key)
	if len(items) == 0 {
		delete(h.provider.clients, h.clientID)
	}
	return nil
}
