package cmds

import (
	"context"
	"net/url"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"

	"github.com/fairwind-labs/mintgate/api"
	"github.com/fairwind-labs/mintgate/ledger"
	"github.com/fairwind-labs/mintgate/lifecycle"
)

type GatewayAPI struct {
	Connect              func(ctx context.Context) (*api.SessionInfo, error)
	Disconnect           func(ctx context.Context) (*api.SessionInfo, error)
	SessionInfo          func(ctx context.Context) (*api.SessionInfo, error)
	ListConnectedWallets func(ctx context.Context) ([]ledger.AccountID, error)
	RunLifecycle         func(ctx context.Context, params *api.RunParams) (*lifecycle.RunResult, error)
	AmendMetadata        func(ctx context.Context, params *api.AmendParams) error
	Version              func(ctx context.Context) (string, error)
}

func NewGatewayClient(ctx *cli.Context) (*GatewayAPI, jsonrpc.ClientCloser, error) {
	var gatewayAPI = &GatewayAPI{}
	listen := ctx.String("listen")
	addr, err := DialArgs(listen)
	if err != nil {
		return nil, nil, err
	}

	closer, err := jsonrpc.NewMergeClient(ctx.Context, addr,
		"Gateway", []interface{}{gatewayAPI}, nil)
	if err != nil {
		return nil, nil, err
	}
	return gatewayAPI, closer, nil
}

func DialArgs(addr string) (string, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return "", err
		}

		return "ws://" + addr + "/rpc/v0", nil
	}

	_, err = url.Parse(addr)
	if err != nil {
		return "", err
	}
	return addr + "/rpc/v0", nil
}
