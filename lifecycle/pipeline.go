package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/metrics"
	"github.com/fairwind-labs/mintgate/session"
)

var log = logging.Logger("lifecycle")

var (
	// ErrNotConnected aborts any entry point invoked without a paired signer.
	ErrNotConnected = errors.New("no wallet connected")
	// ErrMissingField aborts an operation before any ledger call is attempted.
	ErrMissingField = errors.New("all fields are required")
	// ErrCallTimeout marks a ledger call that exceeded the configured bounded wait.
	ErrCallTimeout = errors.New("ledger call timed out")
)

// Config tunes the pipeline. CallTimeout zero disables the bounded wait and
// lets a stalled network call block its stage.
type Config struct {
	AutoRenewPeriod time.Duration
	// MintMetadata is the content reference stamped on the minted unit. A
	// fixed value keeps the run self-contained; a production caller would
	// supply it per run.
	MintMetadata string
	CallTimeout  time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		AutoRenewPeriod: 7890000 * time.Second,
		MintMetadata:    "ipfs://bafkreialrvklkl5rp5p6wzbyqcdnopqsqyjmhyh3z5gaywb2rwyvkah2ga",
		CallTimeout:     0,
	}
}

// Pipeline chains the three dependent ledger operations against the signer of
// the current session: create an asset class, mint one unit of it, amend the
// unit's metadata. Stages run strictly in sequence; a failed stage aborts the
// run and later stages are never invoked.
type Pipeline struct {
	builder ledger.Builder
	session *session.Controller
	cfg     *Config
}

func NewPipeline(builder ledger.Builder, sessionCtrl *session.Controller, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		builder: builder,
		session: sessionCtrl,
		cfg:     cfg,
	}
}

// runContext threads stage outputs into later stages. It lives for exactly
// one run; authority keys are never reused across runs.
type runContext struct {
	assetClassID ledger.TokenID
	supplyKey    ledger.PrivateKey
	metadataKey  ledger.PrivateKey
	unitSerial   int64
}

// RunResult reports what one completed run produced. The metadata authority
// key is returned so the operator can amend the unit again later via
// AmendUnitMetadata.
type RunResult struct {
	AssetClassID    ledger.TokenID
	UnitSerial      int64
	MetadataKey     string
	MintTransaction ledger.TransactionID
}

// Run executes all three stages. name and symbol describe the asset class;
// newMetadata is the amendment applied to the freshly minted unit in stage 3.
func (p *Pipeline) Run(ctx context.Context, name, symbol, newMetadata string) (*RunResult, error) {
	if name == "" || symbol == "" || newMetadata == "" {
		log.Error("all fields are required")
		return nil, ErrMissingField
	}
	signer, ok := p.session.CurrentSigner()
	if !ok {
		return nil, ErrNotConnected
	}

	run := &runContext{}
	if err := p.createAssetClass(ctx, signer, run, name, symbol); err != nil {
		return nil, errors.Wrap(err, "create asset class")
	}
	mintTx, err := p.mintUnit(ctx, signer, run)
	if err != nil {
		return nil, errors.Wrapf(err, "mint unit of %s", run.assetClassID)
	}
	if err := p.amend(ctx, signer, run.assetClassID, run.unitSerial, run.metadataKey, newMetadata); err != nil {
		return nil, errors.Wrapf(err, "amend metadata of %s", run.assetClassID)
	}

	return &RunResult{
		AssetClassID:    run.assetClassID,
		UnitSerial:      run.unitSerial,
		MetadataKey:     run.metadataKey.String(),
		MintTransaction: mintTx,
	}, nil
}

// createAssetClass is stage 1: generate both authority keys locally, declare
// a unique asset class with the connected account as treasury and auto-renew
// authority, submit via the signer and wait for the assigned class id.
func (p *Pipeline) createAssetClass(ctx context.Context, signer ledger.Signer, run *runContext, name, symbol string) error {
	start := time.Now()

	supplyKey, err := ledger.GeneratePrivateKey()
	if err != nil {
		return err
	}
	metadataKey, err := ledger.GeneratePrivateKey()
	if err != nil {
		return err
	}

	account := signer.AccountID()
	tx := p.builder.NewAssetCreate(ledger.AssetCreateParams{
		Name:             name,
		Symbol:           symbol,
		Type:             ledger.TypeUnique,
		Treasury:         account,
		AutoRenewAccount: account,
		AutoRenewPeriod:  p.cfg.AutoRenewPeriod,
		SupplyKey:        supplyKey.PublicKey(),
		MetadataKey:      metadataKey.PublicKey(),
		TransactionID:    p.builder.NewTransactionID(account),
	})

	res, err := p.execute(ctx, tx, signer)
	if err != nil {
		return err
	}
	receipt, err := p.receipt(ctx, res)
	if err != nil {
		return err
	}
	if receipt.TokenID() == "" {
		return fmt.Errorf("receipt carries no asset class id")
	}

	run.assetClassID = receipt.TokenID()
	run.supplyKey = supplyKey
	run.metadataKey = metadataKey

	ctx, _ = tag.New(ctx, tag.Upsert(metrics.AccountKey, string(account)))
	stats.Record(ctx, metrics.AssetCreate.M(metrics.SinceInMilliseconds(start)))
	log.Infof("created asset class %s for account %s", run.assetClassID, account)
	return nil
}

// mintUnit is stage 2: mint one unit with the configured content reference,
// frozen under the signer and co-signed with the supply authority key. The
// wallet signer authorizes submission and fees; the supply key authorizes the
// minting capability itself.
func (p *Pipeline) mintUnit(ctx context.Context, signer ledger.Signer, run *runContext) (ledger.TransactionID, error) {
	start := time.Now()

	tx := p.builder.NewUnitMint(ledger.MintParams{
		Token:    run.assetClassID,
		Metadata: [][]byte{[]byte(p.cfg.MintMetadata)},
	})
	if err := p.freeze(ctx, tx, signer); err != nil {
		return "", err
	}
	if err := tx.Sign(run.supplyKey); err != nil {
		return "", err
	}
	res, err := p.execute(ctx, tx, signer)
	if err != nil {
		return "", err
	}
	receipt, err := p.receipt(ctx, res)
	if err != nil {
		return "", err
	}
	serials := receipt.Serials()
	if len(serials) == 0 {
		return "", fmt.Errorf("receipt carries no unit serial")
	}
	run.unitSerial = serials[0]

	ctx, _ = tag.New(ctx,
		tag.Upsert(metrics.AccountKey, string(signer.AccountID())),
		tag.Upsert(metrics.TokenKey, string(run.assetClassID)))
	stats.Record(ctx, metrics.UnitMint.M(metrics.SinceInMilliseconds(start)))
	log.Infof("minted unit %d of %s", run.unitSerial, run.assetClassID)
	return res.TransactionID(), nil
}

// AmendUnitMetadata is the standalone amend entry point: all inputs arrive as
// caller-supplied strings and are validated for presence before any ledger
// call. The metadata key typically comes from an earlier run's RunResult.
func (p *Pipeline) AmendUnitMetadata(ctx context.Context, tokenID, serialNumber, newMetadata, metadataKey string) error {
	if strings.TrimSpace(tokenID) == "" || strings.TrimSpace(serialNumber) == "" ||
		strings.TrimSpace(newMetadata) == "" || strings.TrimSpace(metadataKey) == "" {
		log.Error("all fields are required")
		return ErrMissingField
	}

	key, err := ledger.ParsePrivateKey(metadataKey)
	if err != nil {
		return errors.Wrap(err, "parse metadata key")
	}
	serial, err := strconv.ParseInt(strings.TrimSpace(serialNumber), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parse serial number %q", serialNumber)
	}

	signer, ok := p.session.CurrentSigner()
	if !ok {
		return ErrNotConnected
	}
	return p.amend(ctx, signer, ledger.TokenID(tokenID), serial, key, newMetadata)
}

// amend is stage 3 and the body of the standalone entry point: freeze under
// the signer, co-sign with the metadata authority key, submit. The payload is
// the plain UTF-8 bytes of the metadata text, encoded exactly once. No
// receipt is awaited.
func (p *Pipeline) amend(ctx context.Context, signer ledger.Signer, token ledger.TokenID, serial int64, key ledger.PrivateKey, newMetadata string) error {
	start := time.Now()

	tx := p.builder.NewMetadataAmend(ledger.AmendParams{
		Token:    token,
		Serials:  []int64{serial},
		Metadata: []byte(newMetadata),
	})
	if err := p.freeze(ctx, tx, signer); err != nil {
		return err
	}
	if err := tx.Sign(key); err != nil {
		return err
	}
	if _, err := p.execute(ctx, tx, signer); err != nil {
		return err
	}

	ctx, _ = tag.New(ctx,
		tag.Upsert(metrics.AccountKey, string(signer.AccountID())),
		tag.Upsert(metrics.TokenKey, string(token)))
	stats.Record(ctx, metrics.MetadataAmend.M(metrics.SinceInMilliseconds(start)))
	log.Infof("metadata for token %s updated successfully", token)
	return nil
}

func (p *Pipeline) freeze(ctx context.Context, tx ledger.Transaction, signer ledger.Signer) error {
	ctx, cancel, bounded := p.callContext(ctx)
	defer cancel()
	return p.timeoutErr(ctx, bounded, tx.FreezeWithSigner(ctx, signer))
}

func (p *Pipeline) execute(ctx context.Context, tx ledger.Transaction, signer ledger.Signer) (ledger.Result, error) {
	ctx, cancel, bounded := p.callContext(ctx)
	defer cancel()
	res, err := tx.ExecuteWithSigner(ctx, signer)
	return res, p.timeoutErr(ctx, bounded, err)
}

func (p *Pipeline) receipt(ctx context.Context, res ledger.Result) (ledger.Receipt, error) {
	ctx, cancel, bounded := p.callContext(ctx)
	defer cancel()
	receipt, err := res.GetReceipt(ctx)
	return receipt, p.timeoutErr(ctx, bounded, err)
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc, bool) {
	if p.cfg.CallTimeout <= 0 {
		return ctx, func() {}, false
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	return ctx, cancel, true
}

// timeoutErr labels a deadline miss as ErrCallTimeout only when the deadline
// was set here. A caller's own expiring context passes through unwrapped.
func (p *Pipeline) timeoutErr(ctx context.Context, bounded bool, err error) error {
	if err != nil && bounded && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCallTimeout, err)
	}
	return err
}
