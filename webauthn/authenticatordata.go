package webauthn

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Authenticator data flag bits.
const (
	FlagUserPresent            = 0x01
	FlagUserVerified           = 0x04
	FlagAttestedCredentialData = 0x40
	FlagExtensionData          = 0x80
)

const (
	rpIDHashSize   = 32
	aaguidSize     = 16
	authDataMinLen = rpIDHashSize + 1 + 4
)

var (
	ErrAuthDataTooShort = errors.New("authenticator data too short")
	ErrRPIDHashMismatch = errors.New("relying party id hash mismatch")
	ErrUserNotPresent   = errors.New("user presence flag not set")
	ErrUserNotVerified  = errors.New("user verification flag not set")
	ErrNoAttestedData   = errors.New("attested credential data missing")
)

// AuthenticatorData is the parsed fixed-layout structure signed by the
// authenticator. CredentialPublicKey holds the raw CBOR COSE key bytes; use
// [ParseCOSEKey] to turn them into a verifier.
type AuthenticatorData struct {
	RPIDHash  []byte
	Flags     byte
	SignCount uint32

	// Attested credential data, present only when FlagAttestedCredentialData
	// is set (registration ceremonies).
	AAGUID              []byte
	CredentialID        []byte
	CredentialPublicKey []byte
}

func (a *AuthenticatorData) UserPresent() bool {
	return a.Flags&FlagUserPresent != 0
}

func (a *AuthenticatorData) UserVerified() bool {
	return a.Flags&FlagUserVerified != 0
}

func (a *AuthenticatorData) HasAttestedCredentialData() bool {
	return a.Flags&FlagAttestedCredentialData != 0
}

// VerifyRPIDHash compares the embedded hash against SHA-256(rpID).
func (a *AuthenticatorData) VerifyRPIDHash(rpID string) error {
	want := sha256.Sum256([]byte(rpID))
	if subtle.ConstantTimeCompare(a.RPIDHash, want[:]) != 1 {
		return ErrRPIDHashMismatch
	}
	return nil
}

// ParseAuthenticatorData decodes the binary authenticator data layout:
// 32-byte rpIdHash, 1 flag byte, 4-byte big-endian signature counter, then
// optional attested credential data (16-byte AAGUID, 2-byte big-endian
// credential id length, credential id, CBOR COSE public key).
func ParseAuthenticatorData(raw []byte) (*AuthenticatorData, error) {
	if len(raw) < authDataMinLen {
		return nil, ErrAuthDataTooShort
	}

	ad := &AuthenticatorData{
		RPIDHash:  raw[:rpIDHashSize],
		Flags:     raw[rpIDHashSize],
		SignCount: binary.BigEndian.Uint32(raw[rpIDHashSize+1 : authDataMinLen]),
	}

	rest := raw[authDataMinLen:]
	if ad.HasAttestedCredentialData() {
		if len(rest) < aaguidSize+2 {
			return nil, ErrAuthDataTooShort
		}
		ad.AAGUID = rest[:aaguidSize]
		idLen := int(binary.BigEndian.Uint16(rest[aaguidSize : aaguidSize+2]))
		rest = rest[aaguidSize+2:]

		if len(rest) < idLen {
			return nil, ErrAuthDataTooShort
		}
		ad.CredentialID = rest[:idLen]
		rest = rest[idLen:]

		// The COSE key has no length prefix; decode once to learn where it
		// ends so trailing extension data is not swallowed into the key.
		dec := cbor.NewDecoder(bytes.NewReader(rest))
		var key cbor.RawMessage
		if err := dec.Decode(&key); err != nil {
			return nil, fmt.Errorf("decode credential public key: %w", err)
		}
		keyLen := dec.NumBytesRead()
		ad.CredentialPublicKey = rest[:keyLen]
	}

	return ad, nil
}
