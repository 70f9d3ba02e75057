package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

// Cursor is the internal state of an opaque page token. Listings use a
// composite keyset: Key is the ordering column value at the page boundary
// (created millis or amount cents) and ID breaks ties.
type Cursor struct {
	// Key is the ordering value to paginate from.
	Key int64 `json:"key"`
	// ID is the row id at the page boundary, used as a tiebreaker.
	ID string `json:"id"`
	// FilterHash invalidates tokens when the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
	// OrderHash invalidates tokens when the order_by changes.
	OrderHash string `json:"order_hash,omitempty"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePageTokenInvalid, "marshal cursor", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor. The token must have
// been produced with the same filter and ordering it is presented with.
func Decode(token, filter, orderBy string) (Cursor, error) {
	if token == "" {
		return Cursor{}, apperrors.New(apperrors.CodePageTokenInvalid, "empty page token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.CodePageTokenInvalid, "decode page token", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.CodePageTokenInvalid, "unmarshal page token", err)
	}

	if c.ID == "" {
		return Cursor{}, apperrors.New(apperrors.CodePageTokenInvalid, "page token is missing its keyset id")
	}
	if c.FilterHash != hashShort(filter) {
		return Cursor{}, apperrors.New(apperrors.CodePageTokenInvalid, "filter changed since page token was created")
	}
	if c.OrderHash != hashShort(orderBy) {
		return Cursor{}, apperrors.New(apperrors.CodePageTokenInvalid, "order_by changed since page token was created")
	}

	return c, nil
}

// NewCursor builds the token state for the next page after (key, id).
func NewCursor(key int64, id, filter, orderBy string) Cursor {
	return Cursor{
		Key:        key,
		ID:         id,
		FilterHash: hashShort(filter),
		OrderHash:  hashShort(orderBy),
	}
}

// hashShort computes a short hash for token validation. A 64-bit prefix is
// sufficient to detect filter or ordering drift.
func hashShort(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:8])
}
