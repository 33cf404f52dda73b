// Package id provides centralized ULID-based id generation. Ids are
// lexicographically sortable and carry type-specific prefixes (sess_*, req_*)
// so logs stay readable.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies an emulator session. Stable for the session's
// lifetime; also used as the prefix of persisted save-state filenames.
type SessionID string

// RequestID identifies an API request.
type RequestID string

const (
	sessionPrefix = "sess"
	requestPrefix = "req"
)

// Generator generates prefixed ULIDs.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = &Generator{entropy: rand.Reader}
	})
	return defaultGenerator
}

// Generate creates a new ULID string.
func (g *Generator) Generate() string {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate())
}

// NewSessionID generates a new session id.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(sessionPrefix))
}

// NewRequestID generates a new request id.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(requestPrefix))
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// Timestamp extracts the creation time embedded in a prefixed id.
func Timestamp(id string) (time.Time, error) {
	if idx := strings.IndexByte(id, '_'); idx >= 0 {
		id = id[idx+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
