package secureelement

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftSignAndVerify(t *testing.T) {
	s, err := NewSoft("shared-approval-code")
	require.NoError(t, err)

	record := []byte(`{"event":"HEARTBEAT"}`)
	sig := s.SignAndStore(record)
	require.NotNil(t, sig)
	assert.True(t, ed25519.Verify(s.PublicKey(), record, sig))
}

func TestSoftVerifyOperatorApproval(t *testing.T) {
	s, err := NewSoft("correct-code")
	require.NoError(t, err)

	assert.True(t, s.VerifyOperatorApproval([]byte("correct-code")))
	assert.False(t, s.VerifyOperatorApproval([]byte("wrong-code")))
}

func TestFailingElementAlwaysFails(t *testing.T) {
	f := Failing{}
	assert.Nil(t, f.SignAndStore([]byte("anything")))
	assert.False(t, f.VerifyOperatorApproval([]byte("anything")))
}
