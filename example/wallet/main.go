package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/filecoin-project/go-jsonrpc"
	"go.uber.org/zap"

	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/relay"
	"github.com/fairwind-labs/mintgate/testhelper"
	"github.com/fairwind-labs/mintgate/types"
)

// relayAPIClient is the wallet-side RPC stub for the daemon's relay surface.
type relayAPIClient struct {
	Internal struct {
		ListenWalletEvent   func(ctx context.Context, policy *relay.RegisterPolicy) (<-chan *types.RequestEvent, error)
		ResponseWalletEvent func(ctx context.Context, resp *types.ResponseEvent) error
	}
}

func (c *relayAPIClient) ListenWalletEvent(ctx context.Context, policy *relay.RegisterPolicy) (<-chan *types.RequestEvent, error) {
	return c.Internal.ListenWalletEvent(ctx, policy)
}

func (c *relayAPIClient) ResponseWalletEvent(ctx context.Context, resp *types.ResponseEvent) error {
	return c.Internal.ResponseWalletEvent(ctx, resp)
}

func main() {
	url := "ws://127.0.0.1:45132/rpc/v0"
	account := "0.0.1234"
	if len(os.Args) > 1 {
		account = os.Args[1]
	}
	if len(os.Args) > 2 {
		url = os.Args[2]
	}

	ctx := context.Background()
	apiClient := &relayAPIClient{}
	closer, err := jsonrpc.NewMergeClient(ctx, url, "Gateway", []interface{}{&apiClient.Internal}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer closer()

	wallet := testhelper.NewMemWallet(ledger.AccountID(account))
	fmt.Printf("wallet for account %s, public key %s\n", account, wallet.PublicKey())

	zapLog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	client := relay.NewWalletEventClient(wallet, apiClient, zapLog.Sugar())
	client.ListenWalletRequest(ctx)
}
