package webauthn

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// AttestationObject is the CBOR envelope carried in a registration response.
type AttestationObject struct {
	Format   string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
	AuthData []byte          `cbor:"authData"`
}

// RegistrationResponse is the credential creation result a client submits to
// finish registration.
type RegistrationResponse struct {
	ID       string                           `json:"id"`
	RawID    Bytes                            `json:"rawId"`
	Type     string                           `json:"type"`
	Response AuthenticatorAttestationResponse `json:"response"`
}

type AuthenticatorAttestationResponse struct {
	ClientDataJSON    Bytes    `json:"clientDataJSON"`
	AttestationObject Bytes    `json:"attestationObject"`
	Transports        []string `json:"transports,omitempty"`
}

// ParsedRegistration is a structurally valid registration response, decoded
// but not yet verified against any challenge or policy.
type ParsedRegistration struct {
	Raw               *RegistrationResponse
	ClientData        *CollectedClientData
	ClientDataJSON    []byte
	AttestationObject *AttestationObject
	AuthData          *AuthenticatorData
}

// ParseRegistrationResponse decodes a registration payload. Any structural
// failure, including missing attested credential data, rejects the payload
// before verification starts.
func ParseRegistrationResponse(raw []byte) (*ParsedRegistration, error) {
	var resp RegistrationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode registration response: %w", err)
	}
	if resp.Type != "public-key" {
		return nil, errors.New("credential type must be public-key")
	}
	if len(resp.RawID) == 0 {
		return nil, errors.New("registration response missing credential id")
	}
	if len(resp.Response.ClientDataJSON) == 0 || len(resp.Response.AttestationObject) == 0 {
		return nil, errors.New("registration response missing required fields")
	}

	cd, err := ParseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}

	var attObj AttestationObject
	if err := cbor.Unmarshal(resp.Response.AttestationObject, &attObj); err != nil {
		return nil, fmt.Errorf("decode attestation object: %w", err)
	}
	if attObj.Format == "" {
		return nil, errors.New("attestation object missing format")
	}

	authData, err := ParseAuthenticatorData(attObj.AuthData)
	if err != nil {
		return nil, err
	}
	if !authData.HasAttestedCredentialData() {
		return nil, ErrNoAttestedData
	}
	if len(authData.CredentialID) == 0 {
		return nil, errors.New("attested credential data missing credential id")
	}

	return &ParsedRegistration{
		Raw:               &resp,
		ClientData:        cd,
		ClientDataJSON:    resp.Response.ClientDataJSON,
		AttestationObject: &attObj,
		AuthData:          authData,
	}, nil
}
