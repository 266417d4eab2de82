package types

import (
	"context"

	"github.com/fairwind-labs/mintgate/ledger"
)

// ISignHandler is the wallet-side processor behind a pairing channel: it
// reports the account it signs for and approves transaction bodies pushed by
// the relay.
type ISignHandler interface {
	Account(ctx context.Context) (ledger.AccountID, error)
	Sign(ctx context.Context, account ledger.AccountID, toSign []byte) ([]byte, error)
}
