package media

import (
	"encoding/base64"
	"strings"

	"github.com/cockroachdb/errors"
)

// TokenPrefix starts every correlation token.
const TokenPrefix = "PLEX-"

// Token errors
var (
	ErrTokenMissing   = errors.New("correlation token missing")
	ErrTokenMalformed = errors.New("correlation token malformed")
)

// Payload returns the URL-safe base64 form of the serialized item.
func Payload(item *Item) (string, error) {
	data, err := item.Serialize()
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// TokenID returns the identity part of a token ("PLEX-<rating key>") for an item.
func TokenID(ratingKey string) string {
	return TokenPrefix + ratingKey
}

// EncodeToken builds the correlation token embedded into a renderer-visible field.
// Format: PLEX-<rating key>:<base64url(serialized item)>
func EncodeToken(item *Item) (string, error) {
	payload, err := Payload(item)
	if err != nil {
		return "", err
	}
	return TokenID(item.RatingKey) + ":" + payload, nil
}

// SplitToken returns the identity and payload parts of a token.
func SplitToken(token string) (id, payload string, err error) {
	if token == "" {
		return "", "", ErrTokenMissing
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		return "", "", errors.Wrapf(ErrTokenMalformed, "unexpected prefix in %q", truncate(token, 16))
	}
	id, payload, ok := strings.Cut(token, ":")
	if !ok || payload == "" || id == TokenPrefix {
		return "", "", errors.Wrap(ErrTokenMalformed, "missing separator or payload")
	}
	return id, payload, nil
}

// ParseToken recovers the item embedded in a correlation token.
func ParseToken(token string) (*Item, error) {
	id, payload, err := SplitToken(token)
	if err != nil {
		return nil, err
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(ErrTokenMalformed, err.Error())
	}
	item, err := Deserialize(data)
	if err != nil {
		return nil, errors.Wrap(ErrTokenMalformed, err.Error())
	}
	if TokenID(item.RatingKey) != id {
		return nil, errors.Wrapf(ErrTokenMalformed, "payload rating key %s does not match %s", item.RatingKey, id)
	}
	return item, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
