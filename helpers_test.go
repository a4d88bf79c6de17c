package goPasskey

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/karmoybt/goPasskey/webauthn"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RelyingParty = RelyingPartyConfig{
		Name:   "Example",
		ID:     "example.com",
		Origin: "https://example.com",
	}
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, reg CredentialRegistry) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRegistry(reg).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

// mockRegistry is an in-memory CredentialRegistry honoring the same
// sentinel and atomicity contracts as the SQLite implementation.
type mockRegistry struct {
	mu          sync.Mutex
	nextID      int
	byHandle    map[string]*Identity
	credentials map[string]*Credential

	failWith error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		byHandle:    make(map[string]*Identity),
		credentials: make(map[string]*Credential),
	}
}

func (m *mockRegistry) credKey(identityID string, credentialID []byte) string {
	return identityID + "|" + string(credentialID)
}

func (m *mockRegistry) FindIdentityByHandle(_ context.Context, handle string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	identity, ok := m.byHandle[handle]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	out := *identity
	return &out, nil
}

func (m *mockRegistry) CreateIdentityAndCredential(_ context.Context, input CreateIdentityInput) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if _, taken := m.byHandle[input.Handle]; taken {
		return nil, ErrConflict
	}
	for _, cred := range m.credentials {
		if string(cred.CredentialID) == string(input.CredentialID) {
			return nil, ErrConflict
		}
	}

	m.nextID++
	identity := &Identity{
		ID:        fmt.Sprintf("usr_%012d", m.nextID),
		Handle:    input.Handle,
		CreatedAt: time.Now(),
	}
	m.byHandle[input.Handle] = identity
	m.credentials[m.credKey(identity.ID, input.CredentialID)] = &Credential{
		IdentityID:       identity.ID,
		CredentialID:     append([]byte{}, input.CredentialID...),
		PublicKey:        append([]byte{}, input.PublicKey...),
		SignatureCounter: input.InitialCounter,
		Transports:       input.Transports,
		CreatedAt:        time.Now(),
	}

	out := *identity
	return &out, nil
}

func (m *mockRegistry) FindCredential(_ context.Context, identityID string, credentialID []byte) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	cred, ok := m.credentials[m.credKey(identityID, credentialID)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	out := *cred
	return &out, nil
}

func (m *mockRegistry) AdvanceCounter(_ context.Context, identityID string, credentialID []byte, newCounter uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	cred, ok := m.credentials[m.credKey(identityID, credentialID)]
	if !ok {
		return ErrCredentialNotFound
	}
	if newCounter <= cred.SignatureCounter {
		return ErrCounterRegression
	}
	cred.SignatureCounter = newCounter
	return nil
}

func (m *mockRegistry) DeleteIdentity(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for handle, identity := range m.byHandle {
		if identity.ID == identityID {
			delete(m.byHandle, handle)
			return nil
		}
	}
	return ErrIdentityNotFound
}

func (m *mockRegistry) storedCounter(t *testing.T, identityID string, credentialID []byte) uint32 {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[m.credKey(identityID, credentialID)]
	if !ok {
		t.Fatalf("credential %x not stored", credentialID)
	}
	return cred.SignatureCounter
}

// testAuthenticator forges registration and assertion payloads the way a
// browser client would, backed by a real P-256 key.
type testAuthenticator struct {
	priv    *ecdsa.PrivateKey
	coseKey []byte
	credID  []byte
}

func newTestAuthenticator(t *testing.T) *testAuthenticator {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	coseKey, err := cbor.Marshal(map[int64]any{
		1:  int64(2),
		3:  webauthn.AlgorithmES256,
		-1: int64(1),
		-2: priv.PublicKey.X.FillBytes(make([]byte, 32)),
		-3: priv.PublicKey.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		t.Fatalf("marshal cose key: %v", err)
	}
	credID := make([]byte, 20)
	if _, err := rand.Read(credID); err != nil {
		t.Fatalf("credential id: %v", err)
	}
	return &testAuthenticator{priv: priv, coseKey: coseKey, credID: credID}
}

func (a *testAuthenticator) authData(t *testing.T, rpID string, flags byte, signCount uint32, attested bool) []byte {
	t.Helper()
	hash := sha256.Sum256([]byte(rpID))
	out := append([]byte{}, hash[:]...)
	out = append(out, flags)
	out = binary.BigEndian.AppendUint32(out, signCount)
	if attested {
		var aaguid [16]byte
		out = append(out, aaguid[:]...)
		out = binary.BigEndian.AppendUint16(out, uint16(len(a.credID)))
		out = append(out, a.credID...)
		out = append(out, a.coseKey...)
	}
	return out
}

func (a *testAuthenticator) clientData(t *testing.T, ceremonyType string, challenge []byte, origin string) []byte {
	t.Helper()
	raw, err := json.Marshal(webauthn.CollectedClientData{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
	if err != nil {
		t.Fatalf("marshal client data: %v", err)
	}
	return raw
}

// register produces a finish-registration payload for the given challenge.
func (a *testAuthenticator) register(t *testing.T, challenge []byte, rpID, origin string, flags byte) []byte {
	t.Helper()

	authData := a.authData(t, rpID, flags|webauthn.FlagAttestedCredentialData, 0, true)
	attObj, err := cbor.Marshal(webauthn.AttestationObject{
		Format:   webauthn.AttestationNone,
		AttStmt:  cbor.RawMessage{0xa0},
		AuthData: authData,
	})
	if err != nil {
		t.Fatalf("marshal attestation object: %v", err)
	}

	payload, err := json.Marshal(webauthn.RegistrationResponse{
		ID:    base64.RawURLEncoding.EncodeToString(a.credID),
		RawID: a.credID,
		Type:  "public-key",
		Response: webauthn.AuthenticatorAttestationResponse{
			ClientDataJSON:    a.clientData(t, webauthn.CeremonyCreate, challenge, origin),
			AttestationObject: attObj,
			Transports:        []string{"internal"},
		},
	})
	if err != nil {
		t.Fatalf("marshal registration payload: %v", err)
	}
	return payload
}

// assert produces a finish-authentication payload signed over the challenge.
func (a *testAuthenticator) assert(t *testing.T, challenge []byte, rpID, origin string, flags byte, signCount uint32) []byte {
	t.Helper()

	authData := a.authData(t, rpID, flags, signCount, false)
	cdJSON := a.clientData(t, webauthn.CeremonyGet, challenge, origin)

	cdHash := sha256.Sum256(cdJSON)
	message := append(append([]byte{}, authData...), cdHash[:]...)
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, a.priv, digest[:])
	if err != nil {
		t.Fatalf("sign assertion: %v", err)
	}

	payload, err := json.Marshal(webauthn.AuthenticationResponse{
		ID:    base64.RawURLEncoding.EncodeToString(a.credID),
		RawID: a.credID,
		Type:  "public-key",
		Response: webauthn.AuthenticatorAssertionResponse{
			ClientDataJSON:    cdJSON,
			AuthenticatorData: authData,
			Signature:         sig,
		},
	})
	if err != nil {
		t.Fatalf("marshal assertion payload: %v", err)
	}
	return payload
}

// registerIdentity runs a full begin/finish registration for handle and
// returns the ceremony result.
func registerIdentity(t *testing.T, engine *Engine, auth *testAuthenticator, handle string) *CeremonyResult {
	t.Helper()
	ctx := context.Background()

	options, err := engine.BeginRegistration(ctx, handle)
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	payload := auth.register(t, options.PublicKey.Challenge, "example.com", "https://example.com", webauthn.FlagUserPresent|webauthn.FlagUserVerified)

	result, err := engine.FinishRegistration(ctx, handle, payload)
	if err != nil {
		t.Fatalf("FinishRegistration failed: %v", err)
	}
	return result
}
