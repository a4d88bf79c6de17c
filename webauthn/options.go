package webauthn

// AttestationNone requests no attestation statement from the authenticator.
const AttestationNone = "none"

// UserVerificationRequirement values for request options.
const (
	UserVerificationRequired  = "required"
	UserVerificationPreferred = "preferred"
)

type RelyingPartyEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserEntity struct {
	ID          Bytes  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type CredentialParameter struct {
	Type      string `json:"type"`
	Algorithm int64  `json:"alg"`
}

type CredentialDescriptor struct {
	Type       string   `json:"type"`
	ID         Bytes    `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

type AuthenticatorSelection struct {
	ResidentKey      string `json:"residentKey,omitempty"`
	UserVerification string `json:"userVerification,omitempty"`
}

// PublicKeyCredentialCreationOptions is sent to the client to start a
// registration ceremony.
type PublicKeyCredentialCreationOptions struct {
	RP                     RelyingPartyEntity      `json:"rp"`
	User                   UserEntity              `json:"user"`
	Challenge              Bytes                   `json:"challenge"`
	PubKeyCredParams       []CredentialParameter   `json:"pubKeyCredParams"`
	Timeout                int64                   `json:"timeout,omitempty"`
	ExcludeCredentials     []CredentialDescriptor  `json:"excludeCredentials,omitempty"`
	AuthenticatorSelection *AuthenticatorSelection `json:"authenticatorSelection,omitempty"`
	Attestation            string                  `json:"attestation,omitempty"`
}

// PublicKeyCredentialRequestOptions is sent to the client to start an
// authentication ceremony. AllowCredentials stays empty on every path so the
// response shape never depends on whether the handle exists.
type PublicKeyCredentialRequestOptions struct {
	Challenge        Bytes                  `json:"challenge"`
	Timeout          int64                  `json:"timeout,omitempty"`
	RPID             string                 `json:"rpId,omitempty"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
	UserVerification string                 `json:"userVerification,omitempty"`
}
