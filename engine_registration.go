package goPasskey

import (
	"context"
	"errors"
	"fmt"

	"github.com/karmoybt/goPasskey/internal/stores"
	"github.com/karmoybt/goPasskey/webauthn"
)

const maxHandleLength = 255

func registrationSubject(handle string) string {
	return "reg:" + handle
}

// BeginRegistration starts a registration ceremony for handle. The returned
// options carry a fresh one-time challenge; issuing again before the finish
// supersedes the previous challenge.
//
// Registration errors are specific: a taken handle returns [ErrConflict]
// because the caller already knows the handle they typed.
func (e *Engine) BeginRegistration(ctx context.Context, handle string) (*RegistrationOptions, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	if handle == "" || len(handle) > maxHandleLength {
		return nil, ErrMalformed
	}

	e.metricInc(MetricRegistrationStarted)
	e.emitAudit(ctx, auditEventRegistrationStarted, true, "", handle, "", nil, nil)

	_, err := e.registry.FindIdentityByHandle(ctx, handle)
	switch {
	case err == nil:
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrConflict, func() map[string]string {
			return map[string]string{
				"reason": "handle_taken",
			}
		})
		return nil, ErrConflict
	case errors.Is(err, ErrIdentityNotFound):
		// expected
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	challenge, err := e.issueChallenge(ctx, registrationSubject(handle), stores.PurposeRegistration)
	if err != nil {
		return nil, err
	}

	params := make([]webauthn.CredentialParameter, 0, len(e.config.Credential.AllowedAlgorithms))
	for _, alg := range e.config.Credential.AllowedAlgorithms {
		params = append(params, webauthn.CredentialParameter{
			Type:      "public-key",
			Algorithm: alg,
		})
	}

	uv := webauthn.UserVerificationPreferred
	if e.config.Credential.RequireUserVerification {
		uv = webauthn.UserVerificationRequired
	}

	return &RegistrationOptions{
		PublicKey: webauthn.PublicKeyCredentialCreationOptions{
			RP: webauthn.RelyingPartyEntity{
				ID:   e.config.RelyingParty.ID,
				Name: e.config.RelyingParty.Name,
			},
			User: webauthn.UserEntity{
				ID:          webauthn.Bytes(handle),
				Name:        handle,
				DisplayName: handle,
			},
			Challenge:        challenge,
			PubKeyCredParams: params,
			Timeout:          e.config.Challenge.TTL.Milliseconds(),
			AuthenticatorSelection: &webauthn.AuthenticatorSelection{
				UserVerification: uv,
			},
			Attestation: webauthn.AttestationNone,
		},
	}, nil
}

// FinishRegistration verifies the authenticator's creation response for
// handle, persists the identity with its first credential, and issues a
// session. The pending challenge is consumed before verification starts, so
// a failed finish always requires a fresh BeginRegistration.
func (e *Engine) FinishRegistration(ctx context.Context, handle string, payload []byte) (*CeremonyResult, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	if handle == "" || len(handle) > maxHandleLength {
		return nil, ErrMalformed
	}

	parsed, err := webauthn.ParseRegistrationResponse(payload)
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrMalformed, func() map[string]string {
			return map[string]string{
				"reason": "malformed_payload",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	challenge, err := e.consumeChallenge(ctx, registrationSubject(handle), stores.PurposeRegistration)
	if err != nil {
		if errors.Is(err, ErrChallengeExpired) {
			e.metricInc(MetricChallengeExpired)
			e.metricInc(MetricRegistrationFailure)
			e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrChallengeExpired, nil)
		}
		return nil, err
	}

	if verifyErr := e.verifyRegistration(parsed, challenge.Value); verifyErr != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrVerificationFailed, func() map[string]string {
			return map[string]string{
				"reason": verifyErr.Error(),
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, verifyErr)
	}

	identity, err := e.registry.CreateIdentityAndCredential(ctx, CreateIdentityInput{
		Handle:         handle,
		CredentialID:   parsed.AuthData.CredentialID,
		PublicKey:      parsed.AuthData.CredentialPublicKey,
		InitialCounter: parsed.AuthData.SignCount,
		Transports:     parsed.Raw.Response.Transports,
	})
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		if errors.Is(err, ErrConflict) {
			e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrConflict, func() map[string]string {
				return map[string]string{
					"reason": "duplicate",
				}
			})
			return nil, ErrConflict
		}
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", handle, "", ErrUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	token, err := e.issueSession(ctx, identity.ID)
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, auditEventRegistrationFailed, false, identity.ID, handle, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistrationSucceeded, true, identity.ID, handle, token.Token, nil, func() map[string]string {
		return map[string]string{
			"credential_algorithm": credentialAlgorithmLabel(parsed.AuthData.CredentialPublicKey),
		}
	})

	return &CeremonyResult{
		Identity:     identity,
		CredentialID: parsed.AuthData.CredentialID,
		Session:      token,
	}, nil
}

// verifyRegistration applies the relying-party checks to an already parsed
// creation response against the consumed challenge.
func (e *Engine) verifyRegistration(parsed *webauthn.ParsedRegistration, challenge []byte) error {
	if err := parsed.ClientData.Verify(webauthn.CeremonyCreate, challenge, e.config.RelyingParty.Origin); err != nil {
		return err
	}
	if err := parsed.AuthData.VerifyRPIDHash(e.config.RelyingParty.ID); err != nil {
		return err
	}
	if !parsed.AuthData.UserPresent() {
		return webauthn.ErrUserNotPresent
	}
	if e.config.Credential.RequireUserVerification && !parsed.AuthData.UserVerified() {
		return webauthn.ErrUserNotVerified
	}

	alg, err := webauthn.COSEAlgorithm(parsed.AuthData.CredentialPublicKey)
	if err != nil {
		return err
	}
	if !e.algorithmAllowed(alg) {
		return webauthn.ErrUnsupportedAlgorithm
	}

	// Reject keys that cannot verify assertions later, before persisting.
	if _, err := webauthn.ParseCOSEKey(parsed.AuthData.CredentialPublicKey); err != nil {
		return err
	}

	return nil
}

func (e *Engine) algorithmAllowed(alg int64) bool {
	for _, allowed := range e.config.Credential.AllowedAlgorithms {
		if alg == allowed {
			return true
		}
	}
	return false
}

func credentialAlgorithmLabel(rawKey []byte) string {
	alg, err := webauthn.COSEAlgorithm(rawKey)
	if err != nil {
		return "unknown"
	}
	switch alg {
	case webauthn.AlgorithmES256:
		return "ES256"
	case webauthn.AlgorithmRS256:
		return "RS256"
	default:
		return "unknown"
	}
}
