package ledger

import (
	"context"
	"sync"
)

// MemoryTransport is an in-memory Transport used in tests. File IDs are the
// file names themselves. The error fields, when set, are returned by the
// corresponding operation to simulate transport outages.
type MemoryTransport struct {
	mu    sync.Mutex
	files map[string][]byte

	ReplaceCalls int

	FindErr    error
	FetchErr   error
	ReplaceErr error
}

// NewMemoryTransport returns an empty in-memory transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{files: make(map[string][]byte)}
}

// Seed stores a payload under the given name without counting as a replace.
func (m *MemoryTransport) Seed(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

// Bytes returns the current payload for name, or nil when absent.
func (m *MemoryTransport) Bytes(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.files[name]...)
}

func (m *MemoryTransport) Find(_ context.Context, name string) (string, error) {
	if m.FindErr != nil {
		return "", m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return "", nil
	}
	return name, nil
}

func (m *MemoryTransport) Fetch(_ context.Context, fileID string) ([]byte, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.files[fileID]...), nil
}

func (m *MemoryTransport) Replace(_ context.Context, name string, data []byte, _ string) (string, error) {
	if m.ReplaceErr != nil {
		return "", m.ReplaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	m.ReplaceCalls++
	return name, nil
}

var _ Transport = (*MemoryTransport)(nil)
