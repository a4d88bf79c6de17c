package webauthn

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Ceremony types carried in the client data "type" field.
const (
	CeremonyCreate = "webauthn.create"
	CeremonyGet    = "webauthn.get"
)

var (
	ErrClientDataType      = errors.New("client data ceremony type mismatch")
	ErrClientDataChallenge = errors.New("client data challenge mismatch")
	ErrClientDataOrigin    = errors.New("client data origin mismatch")
)

// CollectedClientData is the JSON the client signs over alongside the
// authenticator data. Challenge arrives base64url-encoded without padding.
type CollectedClientData struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin,omitempty"`
}

// ParseClientData decodes the raw clientDataJSON bytes.
func ParseClientData(raw []byte) (*CollectedClientData, error) {
	var cd CollectedClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, fmt.Errorf("decode client data: %w", err)
	}
	if cd.Type == "" || cd.Challenge == "" || cd.Origin == "" {
		return nil, errors.New("client data missing required fields")
	}
	return &cd, nil
}

// Verify checks the ceremony type, byte-equality of the challenge, and exact
// origin match. The origin comparison is a full string match: scheme, host,
// and port all count.
func (cd *CollectedClientData) Verify(ceremonyType string, challenge []byte, origin string) error {
	if cd.Type != ceremonyType {
		return ErrClientDataType
	}

	got, err := base64.RawURLEncoding.DecodeString(cd.Challenge)
	if err != nil {
		// Some clients pad; try the padded alphabet before rejecting.
		got, err = base64.URLEncoding.DecodeString(cd.Challenge)
		if err != nil {
			return ErrClientDataChallenge
		}
	}
	if len(got) != len(challenge) || subtle.ConstantTimeCompare(got, challenge) != 1 {
		return ErrClientDataChallenge
	}

	if cd.Origin != origin {
		return ErrClientDataOrigin
	}

	return nil
}
