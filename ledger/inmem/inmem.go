// Package inmem is a local ledger backend: it executes the gateway's three
// transaction kinds against in-process state and issues receipts, enforcing
// the same dual-authorization rules a network backend would. It backs the
// daemon's local mode and the test suites; network backends plug in behind
// ledger.Builder.
package inmem

import (
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/fairwind-labs/mintgate/ledger"
)

var log = logging.Logger("inmem_ledger")

// TxRecord is the journal entry for one constructed transaction. Counters are
// updated as the orchestration layer drives the freeze/sign/execute sequence,
// so tests can assert the exact collaborator-call pattern.
type TxRecord struct {
	Kind         string
	FreezeCalls  int
	KeySignCalls int
	ExecuteCalls int
	ReceiptCalls int

	Token    ledger.TokenID
	Serials  []int64
	Metadata [][]byte
}

type tokenState struct {
	name            string
	symbol          string
	assetType       ledger.AssetType
	treasury        ledger.AccountID
	autoRenew       ledger.AccountID
	autoRenewPeriod time.Duration
	supplyKey       ledger.PublicKey
	metadataKey     ledger.PublicKey

	units      map[int64][]byte
	nextSerial int64
}

// Ledger is the in-process ledger state shared by all transactions built from
// its Builder.
type Ledger struct {
	lk        sync.Mutex
	tokens    map[ledger.TokenID]*tokenState
	nextToken int64
	journal   []*TxRecord
	fail      bool
	failKinds map[string]bool
	txSeq     int64
}

func New() *Ledger {
	return &Ledger{
		tokens:    make(map[ledger.TokenID]*tokenState),
		nextToken: 1000,
		failKinds: make(map[string]bool),
	}
}

// SetFail makes every subsequent execution fail, for abort-path tests.
func (l *Ledger) SetFail(fail bool) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.fail = fail
}

// SetFailKind makes executions of one transaction kind fail while the others
// keep working.
func (l *Ledger) SetFailKind(kind string) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.failKinds[kind] = true
}

// Journal returns the records of all transactions built so far, in
// construction order.
func (l *Ledger) Journal() []*TxRecord {
	l.lk.Lock()
	defer l.lk.Unlock()
	out := make([]*TxRecord, len(l.journal))
	copy(out, l.journal)
	return out
}

// UnitMetadata reads back the stored metadata of one minted unit.
func (l *Ledger) UnitMetadata(token ledger.TokenID, serial int64) ([]byte, bool) {
	l.lk.Lock()
	defer l.lk.Unlock()
	state, ok := l.tokens[token]
	if !ok {
		return nil, false
	}
	meta, ok := state.units[serial]
	return meta, ok
}

// Token reads back a created asset class.
func (l *Ledger) Token(token ledger.TokenID) (supplyKey, metadataKey ledger.PublicKey, ok bool) {
	l.lk.Lock()
	defer l.lk.Unlock()
	state, found := l.tokens[token]
	if !found {
		return ledger.PublicKey{}, ledger.PublicKey{}, false
	}
	return state.supplyKey, state.metadataKey, true
}

func (l *Ledger) record(rec *TxRecord) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.journal = append(l.journal, rec)
}

// Builder returns the ledger.Builder bound to this ledger instance.
func (l *Ledger) Builder() ledger.Builder {
	return &builder{l: l}
}

type builder struct {
	l *Ledger
}

var _ ledger.Builder = (*builder)(nil)

func (b *builder) NewAssetCreate(params ledger.AssetCreateParams) ledger.Transaction {
	rec := &TxRecord{Kind: "asset_create"}
	b.l.record(rec)
	return &transaction{
		l:      b.l,
		rec:    rec,
		txID:   params.TransactionID,
		create: &params,
	}
}

func (b *builder) NewUnitMint(params ledger.MintParams) ledger.Transaction {
	rec := &TxRecord{Kind: "unit_mint", Token: params.Token, Metadata: params.Metadata}
	b.l.record(rec)
	return &transaction{
		l:    b.l,
		rec:  rec,
		mint: &params,
	}
}

func (b *builder) NewMetadataAmend(params ledger.AmendParams) ledger.Transaction {
	rec := &TxRecord{Kind: "metadata_amend", Token: params.Token, Serials: params.Serials, Metadata: [][]byte{params.Metadata}}
	b.l.record(rec)
	return &transaction{
		l:     b.l,
		rec:   rec,
		amend: &params,
	}
}

func (b *builder) NewTransactionID(payer ledger.AccountID) ledger.TransactionID {
	b.l.lk.Lock()
	defer b.l.lk.Unlock()
	b.l.txSeq++
	now := time.Now()
	return ledger.TransactionID(fmt.Sprintf("%s@%d.%09d", payer, now.Unix(), b.l.txSeq))
}
