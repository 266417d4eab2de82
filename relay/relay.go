package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/metrics"
	"github.com/fairwind-labs/mintgate/pairing"
	"github.com/fairwind-labs/mintgate/types"
)

var log = logging.Logger("pairing_relay")

// RegisterPolicy is what a wallet declares when attaching to the relay.
type RegisterPolicy struct {
	// Account is the ledger account this wallet signs for.
	Account ledger.AccountID
	Origin  string
}

// IRelayAPI is the wallet-facing surface: attach an event channel, answer
// pushed requests. Served over JSON-RPC in the daemon and called directly in
// tests.
type IRelayAPI interface {
	ListenWalletEvent(ctx context.Context, policy *RegisterPolicy) (<-chan *types.RequestEvent, error)
	ResponseWalletEvent(ctx context.Context, resp *types.ResponseEvent) error
}

// Relay is the default pairing connector: wallets register event channels,
// the relay correlates sign requests with their responses, and the connector
// signer set is the registration-ordered set of wallet channels. It plays the
// role the hosted pairing relay plays for a browser page.
type Relay struct {
	cfg     *types.RequestConfig
	connMgr *connMgr

	streamLk sync.Mutex
	stream   *types.EventStream

	// windowLk guards the pairing window. The window opens at construction
	// and on OpenModal, and closes on DisconnectAll, so a detached wallet
	// cannot silently rejoin before the next pairing flow.
	windowLk   sync.Mutex
	windowOpen bool
}

var (
	_ pairing.Connector = (*Relay)(nil)
	_ IRelayAPI         = (*Relay)(nil)
)

func New(cfg *types.RequestConfig) *Relay {
	if cfg == nil {
		cfg = types.DefaultRequestConfig()
	}
	return &Relay{
		cfg:        cfg,
		connMgr:    newConnMgr(),
		windowOpen: true,
	}
}

func (r *Relay) setWindowOpen(open bool) {
	r.windowLk.Lock()
	defer r.windowLk.Unlock()
	r.windowOpen = open
}

func (r *Relay) pairingOpen() bool {
	r.windowLk.Lock()
	defer r.windowLk.Unlock()
	return r.windowOpen
}

// Initialize brings up the event stream and its sweeper. The pairing client
// guarantees at-most-once invocation; a second call is still harmless.
func (r *Relay) Initialize(ctx context.Context) error {
	r.streamLk.Lock()
	defer r.streamLk.Unlock()
	if r.stream != nil {
		return nil
	}
	r.stream = types.NewEventStream(ctx, r.cfg)
	log.Info("pairing relay initialized")
	return nil
}

func (r *Relay) eventStream() (*types.EventStream, error) {
	r.streamLk.Lock()
	defer r.streamLk.Unlock()
	if r.stream == nil {
		return nil, fmt.Errorf("pairing relay not initialized")
	}
	return r.stream, nil
}

// ListenWalletEvent attaches a wallet. The returned channel first carries the
// InitConnect event with the assigned channel id, then sign requests until
// the wallet's context ends.
func (r *Relay) ListenWalletEvent(ctx context.Context, policy *RegisterPolicy) (<-chan *types.RequestEvent, error) {
	if _, err := r.eventStream(); err != nil {
		return nil, err
	}
	if policy == nil || policy.Account.Empty() {
		return nil, fmt.Errorf("register policy requires an account")
	}
	if !r.pairingOpen() {
		return nil, fmt.Errorf("pairing window is closed, wait for the next pairing flow")
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *types.RequestEvent, r.cfg.RequestQueueSize)
	channel := types.NewChannelInfo(policy.Origin, out)
	conn := &walletConn{ChannelInfo: channel, account: policy.Account, cancel: cancel}

	walletLog := log.With("account", policy.Account).With("origin", policy.Origin)
	ctx, _ = tag.New(ctx,
		tag.Upsert(metrics.AccountKey, string(policy.Account)),
		tag.Upsert(metrics.OriginKey, policy.Origin))

	go func() {
		defer close(out)

		connectBytes, err := json.Marshal(types.ConnectedCompleted{ChannelID: channel.ChannelID})
		if err != nil {
			walletLog.Errorf("marshal failed %v", err)
			return
		}

		r.connMgr.add(conn)
		stats.Record(ctx, metrics.WalletRegister.M(1))
		metrics.WalletConnNum.Set(ctx, int64(r.connMgr.count()))
		walletLog.Infof("add new connection %s", channel.ChannelID)

		out <- &types.RequestEvent{
			ID:         uuid.New(),
			Method:     "InitConnect",
			CreateTime: time.Now(),
			Payload:    connectBytes,
		} // not responded to

		<-ctx.Done()
		r.connMgr.remove(conn)
		stats.Record(ctx, metrics.WalletUnregister.M(1))
		metrics.WalletConnNum.Set(ctx, int64(r.connMgr.count()))
		walletLog.Infof("remove connection %s", channel.ChannelID)
	}()

	return out, nil
}

// ResponseWalletEvent resolves one pushed request with the wallet's answer.
func (r *Relay) ResponseWalletEvent(ctx context.Context, resp *types.ResponseEvent) error {
	stream, err := r.eventStream()
	if err != nil {
		return err
	}
	return stream.ResponseEvent(ctx, resp)
}

// OpenModal is the pairing flow: it reopens the pairing window, then
// completes once a wallet channel is registered, or fails when ctx ends
// first.
func (r *Relay) OpenModal(ctx context.Context) error {
	r.setWindowOpen(true)
	for {
		conn, registered := r.connMgr.firstOrNotify()
		if conn != nil {
			return nil
		}
		log.Info("waiting for a wallet to pair")
		select {
		case <-registered:
		case <-ctx.Done():
			return fmt.Errorf("pairing window closed without a wallet: %w", ctx.Err())
		}
	}
}

// DisconnectAll detaches every wallet channel and closes the pairing window.
// Channels are removed from the signer set synchronously; their listeners
// wind down on their own contexts. Wallet clients that retry registration
// are refused until the next OpenModal.
func (r *Relay) DisconnectAll(ctx context.Context) error {
	r.setWindowOpen(false)
	conns := r.connMgr.removeAll()
	for _, conn := range conns {
		conn.cancel()
	}
	log.Infof("disconnected %d wallet connection(s)", len(conns))
	return nil
}

// Signers lists one signer handle per registered wallet, in registration
// order. The first entry is the active signer.
func (r *Relay) Signers() []ledger.Signer {
	conns := r.connMgr.list()
	signers := make([]ledger.Signer, 0, len(conns))
	for _, conn := range conns {
		signers = append(signers, &walletSigner{relay: r, conn: conn})
	}
	return signers
}

// walletSigner submits sign requests to one wallet channel.
type walletSigner struct {
	relay *Relay
	conn  *walletConn
}

var _ ledger.Signer = (*walletSigner)(nil)

func (s *walletSigner) AccountID() ledger.AccountID {
	return s.conn.account
}

func (s *walletSigner) Sign(ctx context.Context, toSign []byte) ([]byte, error) {
	stream, err := s.relay.eventStream()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(&types.SignRequest{
		Account: s.conn.account,
		ToSign:  toSign,
	})
	if err != nil {
		return nil, err
	}

	var sig []byte
	err = stream.SendRequest(ctx, []*types.ChannelInfo{s.conn.ChannelInfo}, "TransactionSign", payload, &sig)
	if err != nil {
		return nil, err
	}
	return sig, nil
}
