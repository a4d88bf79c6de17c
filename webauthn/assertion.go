package webauthn

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

// AuthenticationResponse is the assertion a client submits to finish
// authentication.
type AuthenticationResponse struct {
	ID       string                         `json:"id"`
	RawID    Bytes                          `json:"rawId"`
	Type     string                         `json:"type"`
	Response AuthenticatorAssertionResponse `json:"response"`
}

type AuthenticatorAssertionResponse struct {
	ClientDataJSON    Bytes `json:"clientDataJSON"`
	AuthenticatorData Bytes `json:"authenticatorData"`
	Signature         Bytes `json:"signature"`
	UserHandle        Bytes `json:"userHandle,omitempty"`
}

// ParsedAuthentication is a structurally valid assertion, decoded but not
// yet verified.
type ParsedAuthentication struct {
	Raw            *AuthenticationResponse
	ClientData     *CollectedClientData
	ClientDataJSON []byte
	AuthData       *AuthenticatorData
	RawAuthData    []byte
	Signature      []byte
}

// ParseAuthenticationResponse decodes an assertion payload.
func ParseAuthenticationResponse(raw []byte) (*ParsedAuthentication, error) {
	var resp AuthenticationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode authentication response: %w", err)
	}
	if resp.Type != "public-key" {
		return nil, errors.New("credential type must be public-key")
	}
	if len(resp.RawID) == 0 {
		return nil, errors.New("authentication response missing credential id")
	}
	if len(resp.Response.ClientDataJSON) == 0 ||
		len(resp.Response.AuthenticatorData) == 0 ||
		len(resp.Response.Signature) == 0 {
		return nil, errors.New("authentication response missing required fields")
	}

	cd, err := ParseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}

	authData, err := ParseAuthenticatorData(resp.Response.AuthenticatorData)
	if err != nil {
		return nil, err
	}

	return &ParsedAuthentication{
		Raw:            &resp,
		ClientData:     cd,
		ClientDataJSON: resp.Response.ClientDataJSON,
		AuthData:       authData,
		RawAuthData:    resp.Response.AuthenticatorData,
		Signature:      resp.Response.Signature,
	}, nil
}

// VerifyAssertion checks the assertion signature: the authenticator signs
// rawAuthData || SHA-256(clientDataJSON).
func VerifyAssertion(key PublicKey, rawAuthData, clientDataJSON, signature []byte) error {
	clientDataHash := sha256.Sum256(clientDataJSON)
	message := make([]byte, 0, len(rawAuthData)+len(clientDataHash))
	message = append(message, rawAuthData...)
	message = append(message, clientDataHash[:]...)
	return key.Verify(message, signature)
}
