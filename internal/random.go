package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

type SessionID [16]byte

const (
	identitySuffixSize = 6
	subjectKeySize     = 18
)

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewChallenge returns size bytes of cryptographic randomness for use as a
// one-time ceremony challenge.
func NewChallenge(size int) ([]byte, error) {
	if size < 16 {
		return nil, errors.New("challenge size below minimum")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewIdentityID returns "usr_" followed by 12 hex characters.
func NewIdentityID() (string, error) {
	var raw [identitySuffixSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return "usr_" + hex.EncodeToString(raw[:]), nil
}

// NewSubjectKey returns a random challenge subject. Used to key decoy
// challenges so that unknown handles exercise the same store writes as known
// ones.
func NewSubjectKey() (string, error) {
	var raw [subjectKeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
