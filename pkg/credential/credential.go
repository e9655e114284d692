package credential

import (
	"errors"
	"fmt"

	"github.com/go-crypt/crypt"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password must not be empty")

// Codec hashes admin passwords and verifies them against stored digests.
// Digests are in modular crypt format, so the scheme identifier travels with
// the digest and Verify accepts any scheme the decoder knows about.
type Codec struct {
	cost    int
	decoder *crypt.Decoder
}

// NewCodec creates a codec hashing with bcrypt at the given cost.
// A cost outside the bcrypt range falls back to bcrypt.DefaultCost.
func NewCodec(cost int) (*Codec, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	decoder, err := crypt.NewDefaultDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize digest decoder: %w", err)
	}

	return &Codec{
		cost:    cost,
		decoder: decoder,
	}, nil
}

// Hash returns a salted bcrypt digest of plaintext
func (c *Codec) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never match.
func (c *Codec) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}

	decoded, err := c.decoder.Decode(digest)
	if err != nil {
		return false
	}
	return decoded.Match(plaintext)
}
