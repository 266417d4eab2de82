package ledger

import (
	"context"
	"time"
)

// AccountID identifies a ledger account in shard.realm.num form, e.g. "0.0.123".
type AccountID string

// TokenID identifies an asset class on the ledger.
type TokenID string

// TransactionID is the payer-scoped identifier stamped on a transaction
// before submission, e.g. "0.0.123@1700000000.000000001".
type TransactionID string

// AssetType classifies an asset class on creation.
type AssetType string

const (
	// TypeUnique is a non-fungible class whose units carry individual serials.
	TypeUnique AssetType = "NON_FUNGIBLE_UNIQUE"
	// TypeFungible is a common-supply class. The lifecycle pipeline never
	// creates one, but wallets may report existing classes of this type.
	TypeFungible AssetType = "FUNGIBLE_COMMON"
)

func (a AccountID) Empty() bool {
	return a == ""
}

// Signer authorizes and submits transactions for one paired account. It is
// borrowed from the pairing connector and must never be persisted; a fresh
// handle has to be obtained after every reconnection.
type Signer interface {
	AccountID() AccountID
	// Sign authorizes the frozen transaction body on behalf of the paired
	// account. The wallet decides how (and whether) to approve.
	Sign(ctx context.Context, toSign []byte) ([]byte, error)
}

// Transaction is one ledger submission in flight. Concrete encodings are
// supplied by a Builder implementation; the orchestration layer only drives
// the freeze/sign/execute sequence.
type Transaction interface {
	// FreezeWithSigner locks the transaction content under the signer's
	// account so further signatures bind to exactly these bytes.
	FreezeWithSigner(ctx context.Context, signer Signer) error
	// Sign adds an authority-key signature on top of the account signer.
	Sign(key PrivateKey) error
	// ExecuteWithSigner submits the transaction through the signer and
	// returns a handle for the pending result.
	ExecuteWithSigner(ctx context.Context, signer Signer) (Result, error)
}

// Result is the submission handle returned by ExecuteWithSigner.
type Result interface {
	TransactionID() TransactionID
	// GetReceipt waits for the network confirmation record.
	GetReceipt(ctx context.Context) (Receipt, error)
}

// Receipt carries the identifiers and totals assigned by the network.
type Receipt interface {
	Status() string
	TokenID() TokenID
	Serials() []int64
	TotalSupply() uint64
}

// AssetCreateParams describes a new asset class.
type AssetCreateParams struct {
	Name   string
	Symbol string
	Type   AssetType

	Treasury         AccountID
	AutoRenewAccount AccountID
	AutoRenewPeriod  time.Duration

	// SupplyKey must co-sign every mint; MetadataKey must co-sign every
	// metadata amendment. Both are on-ledger authorities independent of the
	// treasury account's signer.
	SupplyKey   PublicKey
	MetadataKey PublicKey

	TransactionID TransactionID
}

// MintParams mints units of an existing class, one per metadata entry.
type MintParams struct {
	Token    TokenID
	Metadata [][]byte
}

// AmendParams rewrites the metadata of already minted units.
type AmendParams struct {
	Token    TokenID
	Serials  []int64
	Metadata []byte
}

// Builder constructs the transaction kinds the lifecycle pipeline submits.
// Wire encoding and fee schedules live entirely behind this interface.
type Builder interface {
	NewAssetCreate(params AssetCreateParams) Transaction
	NewUnitMint(params MintParams) Transaction
	NewMetadataAmend(params AmendParams) Transaction

	// NewTransactionID stamps a fresh payer-scoped transaction identifier.
	NewTransactionID(payer AccountID) TransactionID
}
