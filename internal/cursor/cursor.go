// Package cursor encodes pagination positions as opaque, signed tokens so
// clients never see or forge raw row ids.
package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

var ErrInvalid = errors.New("invalid cursor")

const (
	version  byte = 1
	macSize       = 16
	tokenLen      = 1 + 8 + macSize
)

// Codec signs and verifies cursors with a shared secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode returns the token for position id.
func (c *Codec) Encode(id int64) string {
	buf := make([]byte, 1+8, tokenLen)
	buf[0] = version
	binary.BigEndian.PutUint64(buf[1:], uint64(id))
	buf = append(buf, c.sign(buf)...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Decode verifies token and returns the position it wraps.
func (c *Codec) Decode(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenLen || raw[0] != version {
		return 0, ErrInvalid
	}
	payload, mac := raw[:1+8], raw[1+8:]
	if !hmac.Equal(mac, c.sign(payload)) {
		return 0, ErrInvalid
	}
	id := int64(binary.BigEndian.Uint64(payload[1:]))
	if id <= 0 {
		return 0, ErrInvalid
	}
	return id, nil
}

func (c *Codec) sign(payload []byte) []byte {
	m := hmac.New(sha256.New, c.secret)
	m.Write(payload)
	return m.Sum(nil)[:macSize]
}
