package tts

import (
	"errors"
	"strings"
	"sync"
)

// ErrNoKeys is returned when a key pool would be empty.
var ErrNoKeys = errors.New("tts key pool is empty")

// KeyPool is an ordered list of API keys with a current position.
// Rotation wraps around; the position starts at the first key.
type KeyPool struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewKeyPool copies keys, dropping blank entries.
func NewKeyPool(keys []string) (*KeyPool, error) {
	p := &KeyPool{}
	if err := p.Replace(keys); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the active key and its zero-based index.
func (p *KeyPool) Current() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.idx], p.idx
}

// Rotate advances to the next key and returns its index.
func (p *KeyPool) Rotate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.keys)
	return p.idx
}

// Len returns the number of keys.
func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Replace swaps in a new key list and resets the position to the first
// key. The pool is left untouched when keys has no usable entry.
func (p *KeyPool) Replace(keys []string) error {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		return ErrNoKeys
	}

	p.mu.Lock()
	p.keys = clean
	p.idx = 0
	p.mu.Unlock()
	return nil
}
