package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

const (
	tokenBytes   = 50
	issueTimeout = 3 * time.Second
)

// GenerateToken produces an opaque 100-character hex token. Generation
// races a fixed timeout: if the entropy source stalls, the caller gets
// ErrTimeout instead of a half-formed session.
func GenerateToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, issueTimeout)
	defer cancel()

	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		buf := make([]byte, tokenBytes)
		if _, err := rand.Read(buf); err != nil {
			done <- result{err: err}
			return
		}
		done <- result{token: hex.EncodeToString(buf)}
	}()

	select {
	case <-ctx.Done():
		return "", domain.ErrTimeout
	case r := <-done:
		return r.token, r.err
	}
}
