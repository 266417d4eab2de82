package pairing

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/fairwind-labs/mintgate/ledger"
)

var log = logging.Logger("pairing")

// Connector is the external wallet-pairing capability. Initialize is
// expensive and must be invoked at most once per process; the Client below
// owns that guarantee, implementations do not have to.
type Connector interface {
	Initialize(ctx context.Context) error
	// OpenModal runs the pairing flow and returns once a wallet has paired
	// (or the flow was abandoned via ctx).
	OpenModal(ctx context.Context) error
	DisconnectAll(ctx context.Context) error
	// Signers is the ordered set of active signer handles. The first entry
	// is the active signer.
	Signers() []ledger.Signer
}

// Client adapts a Connector for the session controller: it gates
// initialization behind a single shared marker, makes the modal a no-op while
// connected, and keeps disconnect harmless without an active session.
type Client struct {
	connector Connector
	connected func() bool

	initOnce sync.Once
	initErr  error
}

// NewClient wires the adapter. connected reports the session controller's
// current view; the adapter never tracks connection state of its own.
func NewClient(connector Connector, connected func() bool) *Client {
	return &Client{
		connector: connector,
		connected: connected,
	}
}

// Initialize runs the connector's setup exactly once. Concurrent callers
// block until the first invocation finishes and all of them observe the same
// outcome, including a failed one.
func (c *Client) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.connector.Initialize(ctx)
	})
	return c.initErr
}

// OpenPairingModal runs the pairing flow unless a session is already active.
func (c *Client) OpenPairingModal(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return errors.Wrap(err, "initialize pairing connector")
	}
	if c.connected() {
		log.Info("already connected")
		return nil
	}
	if err := c.connector.OpenModal(ctx); err != nil {
		return errors.Wrap(err, "open pairing modal")
	}
	return nil
}

// DisconnectAll tears down the external pairing. Without an active session it
// performs no connector call at all.
func (c *Client) DisconnectAll(ctx context.Context) error {
	if !c.connected() {
		log.Info("no active session to disconnect from")
		return nil
	}
	if err := c.connector.DisconnectAll(ctx); err != nil {
		return errors.Wrap(err, "disconnect wallet")
	}
	return nil
}

// CurrentSigner returns the first entry of the connector's signer set.
func (c *Client) CurrentSigner() (ledger.Signer, bool) {
	signers := c.connector.Signers()
	if len(signers) == 0 {
		return nil, false
	}
	return signers[0], true
}
