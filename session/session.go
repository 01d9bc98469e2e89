// Package session resolves logical session names to the canonical
// identifiers used as registry keys.
//
// A session pairs one caller-visible name with exactly one worker process.
// Resolution is deterministic: the same name always maps to the same ID,
// so a process reconnecting to an existing worker finds the same registry
// entry.
package session

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyName is returned when a session name is empty after
// normalization.
var ErrEmptyName = errors.New("empty session name")

// namespace scopes session-name UUIDs to this library.
var namespace = uuid.MustParse("8f3c1c43-9d15-4b6e-b0f4-2a6d3c8e5a91")

// ID is the canonical identifier of a worker/session pairing.
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string { return string(id) }

// Resolve maps a logical session name to its canonical ID. Names are
// case-insensitive and surrounding whitespace is ignored.
func Resolve(name string) (ID, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", ErrEmptyName
	}
	return ID(uuid.NewSHA1(namespace, []byte(normalized)).String()), nil
}
