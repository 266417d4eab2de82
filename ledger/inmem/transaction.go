package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairwind-labs/mintgate/ledger"
)

// transaction drives one of the three transaction kinds through the
// freeze/sign/execute sequence. Exactly one of create/mint/amend is set.
type transaction struct {
	lk  sync.Mutex
	l   *Ledger
	rec *TxRecord

	create *ledger.AssetCreateParams
	mint   *ledger.MintParams
	amend  *ledger.AmendParams

	txID      ledger.TransactionID
	frozen    bool
	extraKeys []ledger.PublicKey
}

var _ ledger.Transaction = (*transaction)(nil)

func (t *transaction) FreezeWithSigner(ctx context.Context, signer ledger.Signer) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.rec.FreezeCalls++
	if t.frozen {
		return fmt.Errorf("transaction already frozen")
	}
	if t.txID == "" {
		t.txID = t.l.Builder().NewTransactionID(signer.AccountID())
	}
	t.frozen = true
	return nil
}

func (t *transaction) Sign(key ledger.PrivateKey) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.rec.KeySignCalls++
	if key.Empty() {
		return fmt.Errorf("sign with empty key")
	}
	t.extraKeys = append(t.extraKeys, key.PublicKey())
	return nil
}

func (t *transaction) ExecuteWithSigner(ctx context.Context, signer ledger.Signer) (ledger.Result, error) {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.rec.ExecuteCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.txID == "" {
		t.txID = t.l.Builder().NewTransactionID(signer.AccountID())
	}
	// the account signer authorizes submission and fees
	if _, err := signer.Sign(ctx, []byte(t.txID)); err != nil {
		return nil, fmt.Errorf("signer rejected transaction: %w", err)
	}

	t.l.lk.Lock()
	defer t.l.lk.Unlock()
	if t.l.fail || t.l.failKinds[t.rec.Kind] {
		return nil, fmt.Errorf("mock error")
	}

	switch {
	case t.create != nil:
		return t.executeCreate()
	case t.mint != nil:
		return t.executeMint()
	case t.amend != nil:
		return t.executeAmend()
	}
	return nil, fmt.Errorf("empty transaction")
}

func (t *transaction) executeCreate() (ledger.Result, error) {
	params := t.create
	if params.Treasury.Empty() {
		return nil, fmt.Errorf("treasury account required")
	}
	if params.Type != ledger.TypeUnique {
		return nil, fmt.Errorf("unsupported asset type %s", params.Type)
	}

	t.l.nextToken++
	tokenID := ledger.TokenID(fmt.Sprintf("0.0.%d", t.l.nextToken))
	t.l.tokens[tokenID] = &tokenState{
		name:            params.Name,
		symbol:          params.Symbol,
		assetType:       params.Type,
		treasury:        params.Treasury,
		autoRenew:       params.AutoRenewAccount,
		autoRenewPeriod: params.AutoRenewPeriod,
		supplyKey:       params.SupplyKey,
		metadataKey:     params.MetadataKey,
		units:           make(map[int64][]byte),
	}
	t.rec.Token = tokenID
	log.Infof("created asset class %s (%s)", tokenID, params.Symbol)

	return &result{rec: t.rec, txID: t.txID, receipt: &receipt{
		status: "SUCCESS",
		token:  tokenID,
	}}, nil
}

func (t *transaction) executeMint() (ledger.Result, error) {
	params := t.mint
	state, ok := t.l.tokens[params.Token]
	if !ok {
		return nil, fmt.Errorf("token %s not found", params.Token)
	}
	if !t.signedWith(state.supplyKey) {
		return nil, fmt.Errorf("invalid signature: mint requires the supply authority key")
	}
	if len(params.Metadata) == 0 {
		return nil, fmt.Errorf("mint requires unit metadata")
	}

	serials := make([]int64, 0, len(params.Metadata))
	for _, meta := range params.Metadata {
		state.nextSerial++
		state.units[state.nextSerial] = append([]byte(nil), meta...)
		serials = append(serials, state.nextSerial)
	}
	t.rec.Serials = serials
	log.Infof("minted %d unit(s) of %s", len(serials), params.Token)

	return &result{rec: t.rec, txID: t.txID, receipt: &receipt{
		status:      "SUCCESS",
		token:       params.Token,
		serials:     serials,
		totalSupply: uint64(len(state.units)),
	}}, nil
}

func (t *transaction) executeAmend() (ledger.Result, error) {
	params := t.amend
	state, ok := t.l.tokens[params.Token]
	if !ok {
		return nil, fmt.Errorf("token %s not found", params.Token)
	}
	if !t.signedWith(state.metadataKey) {
		return nil, fmt.Errorf("invalid signature: amend requires the metadata authority key")
	}
	for _, serial := range params.Serials {
		if _, ok := state.units[serial]; !ok {
			return nil, fmt.Errorf("serial %d of %s not found", serial, params.Token)
		}
	}
	for _, serial := range params.Serials {
		state.units[serial] = append([]byte(nil), params.Metadata...)
	}
	log.Infof("amended metadata for %d unit(s) of %s", len(params.Serials), params.Token)

	return &result{rec: t.rec, txID: t.txID, receipt: &receipt{
		status:      "SUCCESS",
		token:       params.Token,
		serials:     params.Serials,
		totalSupply: uint64(len(state.units)),
	}}, nil
}

func (t *transaction) signedWith(key ledger.PublicKey) bool {
	if key.Empty() {
		return false
	}
	for _, signed := range t.extraKeys {
		if signed.Equal(key) {
			return true
		}
	}
	return false
}

type result struct {
	rec     *TxRecord
	txID    ledger.TransactionID
	receipt *receipt
}

var _ ledger.Result = (*result)(nil)

func (r *result) TransactionID() ledger.TransactionID {
	return r.txID
}

func (r *result) GetReceipt(ctx context.Context) (ledger.Receipt, error) {
	r.rec.ReceiptCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.receipt, nil
}

type receipt struct {
	status      string
	token       ledger.TokenID
	serials     []int64
	totalSupply uint64
}

var _ ledger.Receipt = (*receipt)(nil)

func (r *receipt) Status() string { return r.status }

func (r *receipt) TokenID() ledger.TokenID { return r.token }

func (r *receipt) Serials() []int64 { return r.serials }

func (r *receipt) TotalSupply() uint64 { return r.totalSupply }
