package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE algorithm identifiers (RFC 9053).
const (
	AlgorithmES256 int64 = -7
	AlgorithmRS256 int64 = -257
)

// COSE key types.
const (
	coseKeyTypeEC2 int64 = 2
	coseKeyTypeRSA int64 = 3
)

// COSE elliptic curves.
const (
	coseCurveP256 int64 = 1
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported cose algorithm")
	ErrSignatureInvalid     = errors.New("signature verification failed")
)

// PublicKey verifies assertion signatures for one registered credential.
type PublicKey interface {
	// Verify checks signature over message and returns ErrSignatureInvalid
	// on mismatch.
	Verify(message, signature []byte) error
	Algorithm() int64
}

// coseKeyHeader carries the labels shared by every key type. EC2 and RSA
// keys reuse negative labels with conflicting meanings, so decoding is two
// passes: header first, then the type-specific struct.
type coseKeyHeader struct {
	KeyType   int64 `cbor:"1,keyasint"`
	Algorithm int64 `cbor:"3,keyasint"`
}

type coseEC2Key struct {
	Curve int64  `cbor:"-1,keyasint"`
	X     []byte `cbor:"-2,keyasint"`
	Y     []byte `cbor:"-3,keyasint"`
}

type coseRSAKey struct {
	Modulus  []byte `cbor:"-1,keyasint"`
	Exponent []byte `cbor:"-2,keyasint"`
}

type es256Key struct {
	pub *ecdsa.PublicKey
}

func (k *es256Key) Algorithm() int64 { return AlgorithmES256 }

func (k *es256Key) Verify(message, signature []byte) error {
	digest := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(k.pub, digest[:], signature) {
		return ErrSignatureInvalid
	}
	return nil
}

type rs256Key struct {
	pub *rsa.PublicKey
}

func (k *rs256Key) Algorithm() int64 { return AlgorithmRS256 }

func (k *rs256Key) Verify(message, signature []byte) error {
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(k.pub, crypto.SHA256, digest[:], signature); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

// ParseCOSEKey decodes raw CBOR COSE key bytes into a verifier. Only ES256
// on P-256 and RS256 are supported.
func ParseCOSEKey(raw []byte) (PublicKey, error) {
	var header coseKeyHeader
	if err := cbor.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode cose key header: %w", err)
	}

	switch {
	case header.KeyType == coseKeyTypeEC2 && header.Algorithm == AlgorithmES256:
		var ec coseEC2Key
		if err := cbor.Unmarshal(raw, &ec); err != nil {
			return nil, fmt.Errorf("decode ec2 key: %w", err)
		}
		if ec.Curve != coseCurveP256 {
			return nil, ErrUnsupportedAlgorithm
		}
		if len(ec.X) == 0 || len(ec.Y) == 0 {
			return nil, errors.New("ec2 key missing coordinates")
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(ec.X),
			Y:     new(big.Int).SetBytes(ec.Y),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, errors.New("ec2 point not on curve")
		}
		return &es256Key{pub: pub}, nil

	case header.KeyType == coseKeyTypeRSA && header.Algorithm == AlgorithmRS256:
		var rk coseRSAKey
		if err := cbor.Unmarshal(raw, &rk); err != nil {
			return nil, fmt.Errorf("decode rsa key: %w", err)
		}
		if len(rk.Modulus) == 0 || len(rk.Exponent) == 0 {
			return nil, errors.New("rsa key missing parameters")
		}
		e := new(big.Int).SetBytes(rk.Exponent)
		if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
			return nil, errors.New("rsa exponent out of range")
		}
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(rk.Modulus),
			E: int(e.Int64()),
		}
		return &rs256Key{pub: pub}, nil

	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// COSEAlgorithm reports the algorithm label of a raw COSE key without fully
// parsing it.
func COSEAlgorithm(raw []byte) (int64, error) {
	var header coseKeyHeader
	if err := cbor.Unmarshal(raw, &header); err != nil {
		return 0, fmt.Errorf("decode cose key header: %w", err)
	}
	return header.Algorithm, nil
}
