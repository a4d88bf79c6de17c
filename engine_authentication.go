package goPasskey

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/karmoybt/goPasskey/internal"
	"github.com/karmoybt/goPasskey/internal/stores"
	"github.com/karmoybt/goPasskey/webauthn"
)

func authenticationSubject(identityID string) string {
	return "auth:" + identityID
}

// BeginAuthentication starts an authentication ceremony for handle. The
// response is shaped identically whether or not the handle exists: unknown
// handles receive a decoy challenge, stored under a random subject no finish
// can ever reference, with an empty allowCredentials list on both paths.
func (e *Engine) BeginAuthentication(ctx context.Context, handle string) (*AuthenticationOptions, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	if handle == "" || len(handle) > maxHandleLength {
		return nil, ErrMalformed
	}

	identity, err := e.registry.FindIdentityByHandle(ctx, handle)
	switch {
	case err == nil:
		challenge, issueErr := e.issueChallenge(ctx, authenticationSubject(identity.ID), stores.PurposeAuthentication)
		if issueErr != nil {
			return nil, issueErr
		}
		e.metricInc(MetricLoginChallengeIssued)
		e.emitAudit(ctx, auditEventLoginChallengeIssued, true, identity.ID, handle, "", nil, nil)
		return e.authenticationOptions(challenge), nil

	case errors.Is(err, ErrIdentityNotFound):
		// Same store write as the real path, keyed by a subject that no
		// FinishAuthentication lookup can reach.
		subject, subjectErr := internal.NewSubjectKey()
		if subjectErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, subjectErr)
		}
		challenge, issueErr := e.issueChallenge(ctx, authenticationSubject(subject), stores.PurposeAuthentication)
		if issueErr != nil {
			return nil, issueErr
		}
		e.metricInc(MetricUnknownHandleProbe)
		e.metricInc(MetricLoginChallengeIssued)
		e.emitAudit(ctx, auditEventLoginNonexistent, true, "", handle, "", nil, nil)
		return e.authenticationOptions(challenge), nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (e *Engine) authenticationOptions(challenge []byte) *AuthenticationOptions {
	uv := webauthn.UserVerificationPreferred
	if e.config.Credential.RequireUserVerification {
		uv = webauthn.UserVerificationRequired
	}

	return &AuthenticationOptions{
		PublicKey: webauthn.PublicKeyCredentialRequestOptions{
			Challenge:        challenge,
			Timeout:          e.config.Challenge.TTL.Milliseconds(),
			RPID:             e.config.RelyingParty.ID,
			AllowCredentials: []webauthn.CredentialDescriptor{},
			UserVerification: uv,
		},
	}
}

// FinishAuthentication verifies an assertion for handle and issues a
// session. Every verification failure surfaces as [ErrInvalidCredential];
// the audit trail records the specific cause. The pending challenge is
// consumed before any verification, so no outcome leaves it reusable.
func (e *Engine) FinishAuthentication(ctx context.Context, handle string, payload []byte) (*CeremonyResult, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}
	if handle == "" || len(handle) > maxHandleLength {
		return nil, ErrMalformed
	}

	parsed, err := webauthn.ParseAuthenticationResponse(payload)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailed, false, "", handle, "", ErrMalformed, func() map[string]string {
			return map[string]string{
				"reason": "malformed_payload",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	identity, err := e.registry.FindIdentityByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailed, false, "", handle, "", ErrIdentityNotFound, func() map[string]string {
				return map[string]string{
					"reason": "unknown_handle",
				}
			})
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	challenge, err := e.consumeChallenge(ctx, authenticationSubject(identity.ID), stores.PurposeAuthentication)
	if err != nil {
		if errors.Is(err, ErrChallengeExpired) {
			e.metricInc(MetricChallengeExpired)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailed, false, identity.ID, handle, "", ErrChallengeExpired, nil)
		}
		return nil, err
	}

	failLogin := func(cause error, reason string) error {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailed, false, identity.ID, handle, "", cause, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return ErrInvalidCredential
	}

	if err := parsed.ClientData.Verify(webauthn.CeremonyGet, challenge.Value, e.config.RelyingParty.Origin); err != nil {
		return nil, failLogin(ErrInvalidCredential, "client_data_mismatch")
	}
	if err := parsed.AuthData.VerifyRPIDHash(e.config.RelyingParty.ID); err != nil {
		return nil, failLogin(ErrInvalidCredential, "rp_id_hash_mismatch")
	}
	if !parsed.AuthData.UserPresent() {
		return nil, failLogin(ErrInvalidCredential, "user_not_present")
	}
	if e.config.Credential.RequireUserVerification && !parsed.AuthData.UserVerified() {
		return nil, failLogin(ErrInvalidCredential, "user_not_verified")
	}

	credential, err := e.registry.FindCredential(ctx, identity.ID, parsed.Raw.RawID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, failLogin(ErrCredentialNotFound, "unknown_credential")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	key, err := webauthn.ParseCOSEKey(credential.PublicKey)
	if err != nil {
		return nil, failLogin(ErrInvalidCredential, "stored_key_unparseable")
	}
	if err := webauthn.VerifyAssertion(key, parsed.RawAuthData, parsed.ClientDataJSON, parsed.Signature); err != nil {
		return nil, failLogin(ErrInvalidCredential, "signature_invalid")
	}

	if err := e.applyCounterPolicy(ctx, identity, credential, parsed.AuthData.SignCount, handle); err != nil {
		return nil, err
	}

	token, err := e.issueSession(ctx, identity.ID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailed, false, identity.ID, handle, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSucceeded, true, identity.ID, handle, token.Token, nil, nil)

	return &CeremonyResult{
		Identity:     identity,
		CredentialID: credential.CredentialID,
		Session:      token,
	}, nil
}

// applyCounterPolicy advances the signature counter after a valid
// assertion. Authenticators that never implement counters report zero
// forever; with AllowZeroCounter set, zero-on-zero passes without a write.
// Any other non-increasing value is treated as a cloned credential.
func (e *Engine) applyCounterPolicy(ctx context.Context, identity *Identity, credential *Credential, newCount uint32, handle string) error {
	if newCount == 0 && credential.SignatureCounter == 0 && e.config.Credential.AllowZeroCounter {
		return nil
	}

	err := e.registry.AdvanceCounter(ctx, identity.ID, credential.CredentialID, newCount)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrCounterRegression) {
		e.metricInc(MetricCounterRegression)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailed, false, identity.ID, handle, "", ErrCounterRegression, func() map[string]string {
			return map[string]string{
				"reason":           "counter_regression",
				"stored_counter":   strconv.FormatUint(uint64(credential.SignatureCounter), 10),
				"asserted_counter": strconv.FormatUint(uint64(newCount), 10),
			}
		})
		return ErrInvalidCredential
	}
	if errors.Is(err, ErrCredentialNotFound) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailed, false, identity.ID, handle, "", ErrCredentialNotFound, nil)
		return ErrInvalidCredential
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
