// Package file implements a JSON file mirror for the connection store.
// The whole file is rewritten on every save; with at most a handful of
// provider records that is cheaper than any incremental scheme. When a
// seal key is configured, credentials are encrypted at rest with
// XChaCha20-Poly1305 so the file can sit in a user profile directory
// without holding plaintext API keys.
package file

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// sealedPrefix marks a token value that has been encrypted. Plain tokens
// written before a seal key was configured still load correctly.
const sealedPrefix = "sealed:"

// Mirror persists connection records to a single JSON file.
type Mirror struct {
	mu   sync.Mutex
	path string
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// fileDoc is the on-disk shape: a versioned envelope around the records,
// keyed by provider so hand inspection stays easy.
type fileDoc struct {
	Version     int                          `json:"version"`
	Connections map[string]connection.Record `json:"connections"`
}

// New creates a file mirror at path. sealKey is either empty (tokens
// stored in the clear) or a 64-character hex string decoding to the
// 32-byte XChaCha20-Poly1305 key.
func New(path, sealKey string) (*Mirror, error) {
	m := &Mirror{path: path}
	if sealKey != "" {
		key, err := hex.DecodeString(sealKey)
		if err != nil {
			return nil, fmt.Errorf("decoding seal key: %w", err)
		}
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("seal key is %d bytes, need %d", len(key), chacha20poly1305.KeySize)
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("creating cipher: %w", err)
		}
		m.aead = aead
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return m, nil
}

// Load reads every record from the file. A missing file is an empty store.
func (m *Mirror) Load(_ context.Context) ([]connection.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.read()
	if err != nil {
		return nil, err
	}
	out := make([]connection.Record, 0, len(doc.Connections))
	for _, rec := range doc.Connections {
		unsealed, err := m.unseal(rec.Token)
		if err != nil {
			return nil, fmt.Errorf("unsealing token for %s: %w", rec.Provider, err)
		}
		rec.Token = unsealed
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

// Save upserts one record and rewrites the file.
func (m *Mirror) Save(_ context.Context, rec connection.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.read()
	if err != nil {
		return err
	}
	sealed, err := m.seal(rec.Token)
	if err != nil {
		return fmt.Errorf("sealing token for %s: %w", rec.Provider, err)
	}
	rec.Token = sealed
	doc.Connections[rec.Provider] = rec
	return m.write(doc)
}

// Delete removes one record and rewrites the file.
func (m *Mirror) Delete(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.read()
	if err != nil {
		return err
	}
	if _, ok := doc.Connections[provider]; !ok {
		return nil
	}
	delete(doc.Connections, provider)
	return m.write(doc)
}

// Close is a no-op; every operation opens and closes the file itself.
func (*Mirror) Close() error { return nil }

func (m *Mirror) read() (*fileDoc, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &fileDoc{Version: 1, Connections: make(map[string]connection.Record)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.path, err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", m.path, err)
	}
	if doc.Connections == nil {
		doc.Connections = make(map[string]connection.Record)
	}
	return &doc, nil
}

// write replaces the file atomically so a crash mid-save never leaves a
// truncated document behind.
func (m *Mirror) write(doc *fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replacing %s: %w", m.path, err)
	}
	return nil
}

// seal encrypts a token as sealed:<base64(nonce || ciphertext)>. Without a
// key the token passes through untouched.
func (m *Mirror) seal(token string) (string, error) {
	if m.aead == nil || token == "" {
		return token, nil
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	blob := m.aead.Seal(nonce, nonce, []byte(token), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

func (m *Mirror) unseal(token string) (string, error) {
	if len(token) <= len(sealedPrefix) || token[:len(sealedPrefix)] != sealedPrefix {
		return token, nil
	}
	if m.aead == nil {
		return "", fmt.Errorf("token is sealed but no seal key is configured")
	}
	blob, err := base64.StdEncoding.DecodeString(token[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("decoding sealed token: %w", err)
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("sealed token is %d bytes, shorter than the nonce", len(blob))
	}
	plaintext, err := m.aead.Open(nil, blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed token: %w", err)
	}
	return string(plaintext), nil
}
