// Package credentials mints the opaque random identifiers used by the
// authorization server: bearer tokens, authorization codes and client ids.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	BearerTokenPrefix = "agdrug_"
	CodePrefix        = "authcode_"
	ClientIDPrefix    = "client_"

	bearerTokenBytes = 32
	codeBytes        = 32
	clientIDBytes    = 16
)

// Generator produces prefixed hex identifiers from a random source.
// The zero value reads from crypto/rand.
type Generator struct {
	Rand io.Reader
}

// Default is the process-wide generator backed by crypto/rand.
var Default = &Generator{}

// BearerToken returns "agdrug_" followed by 64 hex characters.
func (g *Generator) BearerToken() (string, error) {
	return g.prefixed(BearerTokenPrefix, bearerTokenBytes)
}

// AuthorizationCode returns "authcode_" followed by 64 hex characters.
func (g *Generator) AuthorizationCode() (string, error) {
	return g.prefixed(CodePrefix, codeBytes)
}

// ClientID returns "client_" followed by 32 hex characters.
func (g *Generator) ClientID() (string, error) {
	return g.prefixed(ClientIDPrefix, clientIDBytes)
}

func (g *Generator) prefixed(prefix string, n int) (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}
