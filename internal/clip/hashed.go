package clip

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// hashed is a Backend for platforms without a change counter. ChangeToken
// reads the clipboard once and hashes it; ReadText returns the bytes that
// produced the latest token, so a snapshot never pairs one token with text
// copied after it.
type hashed struct {
	name  string
	fetch func() []byte

	mu     sync.Mutex
	last   []byte
	cached bool
}

func newHashed(name string, fetch func() []byte) *hashed {
	return &hashed{name: name, fetch: fetch}
}

func (h *hashed) Name() string { return h.name }

// ChangeToken hashes the text content; equal content maps to an equal token.
func (h *hashed) ChangeToken() (uint64, error) {
	b := h.fetch()
	h.mu.Lock()
	h.last, h.cached = b, true
	h.mu.Unlock()
	return xxh3.Hash(b), nil
}

func (h *hashed) ReadText() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cached {
		h.last, h.cached = h.fetch(), true
	}
	return string(h.last), nil
}

func (h *hashed) Close() {}
