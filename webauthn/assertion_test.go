package webauthn

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func testRegistrationPayload(t *testing.T, rpID, origin string, challenge, credID, coseKey []byte, flags byte) []byte {
	t.Helper()

	authData := testAuthData(t, rpID, flags, 0, credID, coseKey)
	attObj, err := cbor.Marshal(AttestationObject{
		Format:   AttestationNone,
		AttStmt:  cbor.RawMessage{0xa0},
		AuthData: authData,
	})
	if err != nil {
		t.Fatalf("marshal attestation object: %v", err)
	}

	payload, err := json.Marshal(RegistrationResponse{
		ID:    "cred",
		RawID: credID,
		Type:  "public-key",
		Response: AuthenticatorAttestationResponse{
			ClientDataJSON:    clientDataJSON(t, CeremonyCreate, challenge, origin),
			AttestationObject: attObj,
			Transports:        []string{"internal"},
		},
	})
	if err != nil {
		t.Fatalf("marshal registration response: %v", err)
	}
	return payload
}

func TestParseRegistrationResponse(t *testing.T) {
	_, coseKey := testES256Key(t)
	credID := []byte("credential-id-0001")
	challenge := []byte("0123456789abcdef0123456789abcdef")

	payload := testRegistrationPayload(t, "example.com", "https://example.com",
		challenge, credID, coseKey, FlagUserPresent|FlagAttestedCredentialData)

	parsed, err := ParseRegistrationResponse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.AttestationObject.Format != AttestationNone {
		t.Fatalf("unexpected format %q", parsed.AttestationObject.Format)
	}
	if string(parsed.AuthData.CredentialID) != string(credID) {
		t.Fatal("credential id mismatch")
	}
	if err := parsed.ClientData.Verify(CeremonyCreate, challenge, "https://example.com"); err != nil {
		t.Fatalf("client data verify failed: %v", err)
	}
}

func TestParseRegistrationResponseRejectsStructuralDefects(t *testing.T) {
	_, coseKey := testES256Key(t)
	credID := []byte("credential-id-0001")
	challenge := []byte("0123456789abcdef0123456789abcdef")

	good := testRegistrationPayload(t, "example.com", "https://example.com",
		challenge, credID, coseKey, FlagUserPresent|FlagAttestedCredentialData)

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(good, &resp); err != nil {
		t.Fatalf("unmarshal good payload: %v", err)
	}

	// Wrong credential type.
	resp["type"] = json.RawMessage(`"password"`)
	bad, _ := json.Marshal(resp)
	if _, err := ParseRegistrationResponse(bad); err == nil {
		t.Fatal("expected error for non public-key type")
	}
	resp["type"] = json.RawMessage(`"public-key"`)

	// Missing raw id.
	resp["rawId"] = json.RawMessage(`[]`)
	bad, _ = json.Marshal(resp)
	if _, err := ParseRegistrationResponse(bad); err == nil {
		t.Fatal("expected error for empty rawId")
	}

	// No attested credential data in authData.
	payload := testRegistrationPayload(t, "example.com", "https://example.com",
		challenge, nil, nil, FlagUserPresent)
	if _, err := ParseRegistrationResponse(payload); !errors.Is(err, ErrNoAttestedData) {
		t.Fatalf("expected ErrNoAttestedData, got %v", err)
	}
}

func TestParseAuthenticationResponseAndVerifyAssertion(t *testing.T) {
	priv, coseKey := testES256Key(t)
	challenge := []byte("0123456789abcdef0123456789abcdef")
	cdJSON := clientDataJSON(t, CeremonyGet, challenge, "https://example.com")
	authData := testAuthData(t, "example.com", FlagUserPresent, 9, nil, nil)

	cdHash := sha256.Sum256(cdJSON)
	message := append(append([]byte{}, authData...), cdHash[:]...)
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	payload, err := json.Marshal(AuthenticationResponse{
		ID:    "cred",
		RawID: Bytes("credential-id-0001"),
		Type:  "public-key",
		Response: AuthenticatorAssertionResponse{
			ClientDataJSON:    cdJSON,
			AuthenticatorData: authData,
			Signature:         sig,
		},
	})
	if err != nil {
		t.Fatalf("marshal assertion: %v", err)
	}

	parsed, err := ParseAuthenticationResponse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.AuthData.SignCount != 9 {
		t.Fatalf("expected sign count 9, got %d", parsed.AuthData.SignCount)
	}

	key, err := ParseCOSEKey(coseKey)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if err := VerifyAssertion(key, parsed.RawAuthData, parsed.ClientDataJSON, parsed.Signature); err != nil {
		t.Fatalf("assertion verify failed: %v", err)
	}

	// Flip one byte of the signed-over authenticator data.
	tampered := append([]byte{}, parsed.RawAuthData...)
	tampered[33] ^= 0xff
	if err := VerifyAssertion(key, tampered, parsed.ClientDataJSON, parsed.Signature); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestParseAuthenticationResponseRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"id":"x","rawId":[1],"type":"public-key","response":{"authenticatorData":[1],"signature":[1]}}`,
		`{"id":"x","rawId":[1],"type":"public-key","response":{"clientDataJSON":[1],"signature":[1]}}`,
		`{"id":"x","rawId":[1],"type":"public-key","response":{"clientDataJSON":[1],"authenticatorData":[1]}}`,
		`{"id":"x","rawId":[],"type":"public-key","response":{"clientDataJSON":[1],"authenticatorData":[1],"signature":[1]}}`,
	}
	for _, raw := range cases {
		if _, err := ParseAuthenticationResponse([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}
