// Package secureelement implements a software stand-in for the opaque
// secure element the spec consumes but never specifies: sign_and_store
// and verify_operator_approval (spec §6). The real HSM's signature
// bit-layout is explicitly out of scope; this fake exists so the audit
// sink and the provisioning CLI have something to call in tests and on
// the bench. It is grounded on the teacher's dual-algorithm
// CryptoProvider (internal/federation/crypto_provider.go), narrowed to
// the one algorithm a constrained MCU's secure element would actually
// offer.
package secureelement

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Element is the capability trait the audit sink and the provisioning
// path consume. SignAndStore returns nil, not an error, on failure — mirroring
// the C contract's Option<signature_bytes> return, so callers fall back
// to the unsigned envelope without treating a signing failure as fatal.
type Element interface {
	SignAndStore(record []byte) []byte
	VerifyOperatorApproval(blob []byte) bool
}

// Soft is an in-process fake secure element: an Ed25519 key generated at
// boot and never persisted, plus a bcrypt-hashed two-person approval
// code consumed only by the out-of-core provisioning flow. No bit-layout
// guarantee is made beyond "ed25519.Sign output", since the real HSM's
// layout is opaque to the core by design.
type Soft struct {
	priv         ed25519.PrivateKey
	pub          ed25519.PublicKey
	approvalHash []byte
}

// NewSoft generates a fresh signing key and hashes approvalCode for
// later two-person-approval checks. approvalCode is the out-of-band
// shared secret two operators must independently know; it is never
// logged or stored in the clear.
func NewSoft(approvalCode string) (*Soft, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("secureelement: key generation failed: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(approvalCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("secureelement: approval hash failed: %w", err)
	}
	return &Soft{priv: priv, pub: pub, approvalHash: hash}, nil
}

// SignAndStore signs record and returns the raw signature. It never
// returns an error to match the sign_and_store contract: a failure here
// would be an ed25519 invariant violation, not a recoverable condition,
// so there is nothing for a caller to retry — the sink's fallback path
// exists for the case where the real HSM (unlike this fake) can
// legitimately fail.
func (s *Soft) SignAndStore(record []byte) []byte {
	return ed25519.Sign(s.priv, record)
}

// PublicKey exposes the verification key for audit-trail consumers that
// want to check signatures offline.
func (s *Soft) PublicKey() ed25519.PublicKey {
	return s.pub
}

// VerifyOperatorApproval checks blob against the two-person approval
// code hash. The real secure element's version of this call underpins
// the "return to armed" provisioning path; it is never invoked from the
// Supervisor Loop, only from cmd/provision.
func (s *Soft) VerifyOperatorApproval(blob []byte) bool {
	return bcrypt.CompareHashAndPassword(s.approvalHash, blob) == nil
}

// Failing is an Element that always reports a signing failure, used in
// tests to exercise the Audit Sink's unsigned-envelope fallback path.
type Failing struct{}

func (Failing) SignAndStore([]byte) []byte         { return nil }
func (Failing) VerifyOperatorApproval([]byte) bool { return false }
