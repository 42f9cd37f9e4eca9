package analytics

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	pipeerrors "conductcli/internal/errors"
)

const (
	// DefaultTokenLength is the default number of hex characters kept from
	// the full MAC.
	DefaultTokenLength = 32

	// maxTokenLength is the full SHA-256 hex digest length.
	maxTokenLength = sha256.Size * 2

	// hkdfInfo binds the derived pepper to this use. Changing it changes
	// every token, so it is fixed for the life of the pipeline.
	hkdfInfo = "conductcli identifier anonymization v1"
)

// Anonymizer produces deterministic, irreversible tokens for identifier
// values. Identical (value, key) pairs always yield identical tokens, which
// keeps anonymized identifiers joinable across independent pipeline runs.
// There is no decoding path.
type Anonymizer struct {
	key         []byte
	tokenLength int
}

// NewAnonymizer builds an anonymizer from the process-scoped master secret.
// The working pepper is derived with HKDF-SHA256 so the raw secret never
// feeds the MAC directly. The secret must never be logged or emitted.
func NewAnonymizer(secret []byte, tokenLength int) (*Anonymizer, error) {
	if len(secret) == 0 {
		return nil, pipeerrors.New(pipeerrors.CodeConfigInvalid, "anonymization secret is empty")
	}
	if tokenLength <= 0 {
		tokenLength = DefaultTokenLength
	}
	if tokenLength > maxTokenLength {
		tokenLength = maxTokenLength
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "deriving anonymization pepper", err)
	}

	return &Anonymizer{key: key, tokenLength: tokenLength}, nil
}

// Token returns the anonymized form of value: a keyed HMAC-SHA256 digest
// truncated to the configured number of hex characters. A null (empty) input
// maps to a null output rather than an error.
func (a *Anonymizer) Token(value string) string {
	if value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(value))
	sum := hex.EncodeToString(mac.Sum(nil))
	return sum[:a.tokenLength]
}
