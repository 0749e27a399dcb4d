// Package identity wires the gRPC Secondary Link to SPIFFE workload
// identity: the primary MCU only trusts a secondary presenting an
// X.509-SVID from the suit's own trust domain, fetched from a SPIRE
// agent over the standard Workload API socket.
package identity

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// SecondaryVerifier authenticates the independent secondary MCU over
// mTLS before the gRPC Secondary Link trusts any frame it returns.
type SecondaryVerifier struct {
	source      *workloadapi.X509Source
	trustDomain string
}

// NewSecondaryVerifier connects to a SPIRE agent at socketPath. A short
// timeout keeps a missing agent from blocking boardinit indefinitely —
// the gRPC backend is a bench/SITL option, not the boot-critical path.
func NewSecondaryVerifier(ctx context.Context, socketPath, trustDomain string) (*SecondaryVerifier, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to SPIRE agent: %w", err)
	}

	slog.Info("connected to SPIRE agent", "socket_path", socketPath)
	return &SecondaryVerifier{source: source, trustDomain: trustDomain}, nil
}

// SecondaryID returns the SPIFFE ID this suit's secondary MCU must
// present.
func (v *SecondaryVerifier) SecondaryID() spiffeid.ID {
	id, _ := spiffeid.FromSegments(
		spiffeid.RequireTrustDomainFromString(v.trustDomain),
		"secondary-mcu",
	)
	return id
}

// ClientTLSConfig returns an mTLS config that authorizes only the
// suit's own secondary-MCU SPIFFE ID, for dialing the gRPC transport.
func (v *SecondaryVerifier) ClientTLSConfig() *tls.Config {
	return tlsconfig.MTLSClientConfig(v.source, v.source, tlsconfig.AuthorizeID(v.SecondaryID()))
}

// ServerTLSConfig returns an mTLS config for the bench harness that
// impersonates the secondary MCU, authorizing any workload in the
// suit's trust domain.
func (v *SecondaryVerifier) ServerTLSConfig() *tls.Config {
	td := spiffeid.RequireTrustDomainFromString(v.trustDomain)
	return tlsconfig.MTLSServerConfig(v.source, v.source, tlsconfig.AuthorizeMemberOf(td))
}

func (v *SecondaryVerifier) Close() error {
	return v.source.Close()
}
