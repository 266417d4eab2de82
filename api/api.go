package api

import (
	"context"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/lifecycle"
	"github.com/fairwind-labs/mintgate/relay"
	"github.com/fairwind-labs/mintgate/session"
	"github.com/fairwind-labs/mintgate/version"
)

// SessionInfo is the operator's view of the session state.
type SessionInfo struct {
	AccountID   ledger.AccountID
	IsConnected bool
}

// RunParams describes one full asset lifecycle run.
type RunParams struct {
	Name        string
	Symbol      string
	NewMetadata string
}

// AmendParams targets an existing unit. Values come in as entered by the
// operator; the pipeline validates and parses them.
type AmendParams struct {
	TokenID      string
	SerialNumber string
	NewMetadata  string
	MetadataKey  string
}

// IGatewayAPI is the full daemon surface: the wallet-facing relay calls plus
// the operator-facing session and lifecycle calls.
type IGatewayAPI interface {
	relay.IRelayAPI

	Connect(ctx context.Context) (*SessionInfo, error)
	Disconnect(ctx context.Context) (*SessionInfo, error)
	SessionInfo(ctx context.Context) (*SessionInfo, error)
	ListConnectedWallets(ctx context.Context) ([]ledger.AccountID, error)

	RunLifecycle(ctx context.Context, params *RunParams) (*lifecycle.RunResult, error)
	AmendMetadata(ctx context.Context, params *AmendParams) error

	Version(ctx context.Context) (string, error)
}

var _ IGatewayAPI = (*GatewayAPIImpl)(nil)

type GatewayAPIImpl struct {
	relay.IRelayAPI
	relay *relay.Relay

	session  *session.Controller
	pipeline *lifecycle.Pipeline
}

func NewGatewayAPIImpl(r *relay.Relay, sessionCtrl *session.Controller, pipeline *lifecycle.Pipeline) *GatewayAPIImpl {
	return &GatewayAPIImpl{
		IRelayAPI: r,
		relay:     r,
		session:   sessionCtrl,
		pipeline:  pipeline,
	}
}

func (g *GatewayAPIImpl) sessionInfo() *SessionInfo {
	return &SessionInfo{
		AccountID:   g.session.AccountID(),
		IsConnected: g.session.IsConnected(),
	}
}

// Connect runs the pairing flow. Pairing failures are absorbed by the
// session controller; the caller observes them through the returned state.
func (g *GatewayAPIImpl) Connect(ctx context.Context) (*SessionInfo, error) {
	g.session.Connect(ctx)
	return g.sessionInfo(), nil
}

func (g *GatewayAPIImpl) Disconnect(ctx context.Context) (*SessionInfo, error) {
	g.session.Disconnect(ctx)
	return g.sessionInfo(), nil
}

func (g *GatewayAPIImpl) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	return g.sessionInfo(), nil
}

func (g *GatewayAPIImpl) ListConnectedWallets(ctx context.Context) ([]ledger.AccountID, error) {
	signers := g.relay.Signers()
	accounts := make([]ledger.AccountID, 0, len(signers))
	for _, signer := range signers {
		accounts = append(accounts, signer.AccountID())
	}
	return accounts, nil
}

func (g *GatewayAPIImpl) RunLifecycle(ctx context.Context, params *RunParams) (*lifecycle.RunResult, error) {
	if params == nil {
		params = &RunParams{}
	}
	return g.pipeline.Run(ctx, params.Name, params.Symbol, params.NewMetadata)
}

func (g *GatewayAPIImpl) AmendMetadata(ctx context.Context, params *AmendParams) error {
	if params == nil {
		params = &AmendParams{}
	}
	return g.pipeline.AmendUnitMetadata(ctx, params.TokenID, params.SerialNumber, params.NewMetadata, params.MetadataKey)
}

func (g *GatewayAPIImpl) Version(ctx context.Context) (string, error) {
	return version.UserVersion, nil
}
