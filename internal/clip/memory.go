package clip

import "sync"

// Memory is an in-process Backend. Every Set bumps the token, like a native
// change counter, so writing the same text twice is observed twice.
type Memory struct {
	mu    sync.Mutex
	text  string
	token uint64
	err   error
}

// NewMemory returns an empty in-process clipboard.
func NewMemory() *Memory { return &Memory{} }

// Set replaces the clipboard text.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.token++
}

// Fail makes subsequent reads return err until it is called with nil.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ChangeToken() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.err
}

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.err
}

func (m *Memory) Close() {}
