package session

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/metrics"
	"github.com/fairwind-labs/mintgate/pairing"
	"github.com/fairwind-labs/mintgate/sessionstore"
)

var log = logging.Logger("session")

// NoAccountConnected is the sentinel handed to the display callback while
// disconnected.
const NoAccountConnected = "no account connected"

// DisplayFunc receives either a connected account id or NoAccountConnected.
type DisplayFunc func(status string)

// Controller owns the connection state machine: Disconnected or
// Connected(account). SyncState is the only authoritative transition; it
// reconciles against the pairing connector's signer set rather than
// subscribing to change events, and must run after every pairing mutation.
type Controller struct {
	lk          sync.Mutex
	accountID   ledger.AccountID
	isConnected bool

	pairing *pairing.Client
	store   sessionstore.Store
	display DisplayFunc
}

func NewController(connector pairing.Connector, store sessionstore.Store, display DisplayFunc) *Controller {
	if display == nil {
		display = func(string) {}
	}
	c := &Controller{
		store:   store,
		display: display,
	}
	c.pairing = pairing.NewClient(connector, c.IsConnected)
	return c
}

// Pairing exposes the gated pairing adapter, e.g. for warm-up at startup.
func (c *Controller) Pairing() *pairing.Client {
	return c.pairing
}

func (c *Controller) IsConnected() bool {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.isConnected
}

func (c *Controller) AccountID() ledger.AccountID {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.accountID
}

// CurrentSigner returns the active signer handle. Handles are borrowed per
// call and must not be cached across reconnects.
func (c *Controller) CurrentSigner() (ledger.Signer, bool) {
	return c.pairing.CurrentSigner()
}

// Connect initializes the pairing connector, runs the modal flow unless
// already connected, then reconciles. Failures are logged and swallowed; the
// page stays interactive and the user can retry.
func (c *Controller) Connect(ctx context.Context) {
	if err := c.pairing.OpenPairingModal(ctx); err != nil {
		log.Errorf("failed to open pairing modal: %v", err)
		return
	}
	c.SyncState(ctx)
}

// Disconnect tears down the pairing. Local state is dropped even when the
// external teardown fails: a consistent local view beats a possibly stale
// remote pairing.
func (c *Controller) Disconnect(ctx context.Context) {
	if !c.IsConnected() {
		log.Info("no active session to disconnect from")
		return
	}
	if err := c.pairing.DisconnectAll(ctx); err != nil {
		log.Errorf("failed to disconnect wallet: %v", err)
		c.setDisconnected(ctx)
		return
	}
	c.SyncState(ctx)
	log.Info("disconnected from wallet")
}

// SyncState reconciles connection state with the connector's signer set and
// mirrors the result into the persistent store and the display.
func (c *Controller) SyncState(ctx context.Context) {
	signer, ok := c.pairing.CurrentSigner()
	if ok && !signer.AccountID().Empty() {
		c.setConnected(ctx, signer.AccountID())
		return
	}
	c.setDisconnected(ctx)
}

// RestoreFromStorage replays a persisted session on startup. The restore is
// optimistic: the signer is not re-verified here, a later SyncState corrects
// a stale session. Invalid or partial persisted state reads as absent.
func (c *Controller) RestoreFromStorage(ctx context.Context) {
	account, ok := c.store.Load()
	if !ok {
		return
	}

	c.lk.Lock()
	c.accountID = ledger.AccountID(account)
	c.isConnected = true
	c.lk.Unlock()

	ctx, _ = tag.New(ctx, tag.Upsert(metrics.AccountKey, account))
	stats.Record(ctx, metrics.SessionRestore.M(1))
	log.Infof("restored session for account %s", account)
	c.display(account)
}

func (c *Controller) setConnected(ctx context.Context, account ledger.AccountID) {
	c.lk.Lock()
	wasConnected := c.isConnected
	c.accountID = account
	c.isConnected = true
	c.lk.Unlock()

	if err := c.store.Save(string(account)); err != nil {
		log.Warnf("persist session for %s: %v", account, err)
	}
	if !wasConnected {
		ctx, _ = tag.New(ctx, tag.Upsert(metrics.AccountKey, string(account)))
		stats.Record(ctx, metrics.SessionConnect.M(1))
		log.Infof("session connected for account %s", account)
	}
	c.display(string(account))
}

func (c *Controller) setDisconnected(ctx context.Context) {
	c.lk.Lock()
	wasConnected := c.isConnected
	account := c.accountID
	c.accountID = ""
	c.isConnected = false
	c.lk.Unlock()

	if err := c.store.Clear(); err != nil {
		log.Warnf("clear persisted session: %v", err)
	}
	if wasConnected {
		ctx, _ = tag.New(ctx, tag.Upsert(metrics.AccountKey, string(account)))
		stats.Record(ctx, metrics.SessionDisconnect.M(1))
	}
	c.display(NoAccountConnected)
}
