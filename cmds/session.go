package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var SessionCmds = &cli.Command{
	Name:        "session",
	Usage:       "wallet session cmds",
	Subcommands: []*cli.Command{sessionStatusCmds, sessionConnectCmds, sessionDisconnectCmds},
}

var sessionStatusCmds = &cli.Command{
	Name:  "status",
	Usage: "show the current session state",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		info, err := api.SessionInfo(cctx.Context)
		if err != nil {
			return err
		}
		infoBytes, err := json.MarshalIndent(info, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(infoBytes))
		return nil
	},
}

var sessionConnectCmds = &cli.Command{
	Name:  "connect",
	Usage: "pair a wallet, waits until one registers with the relay",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		info, err := api.Connect(cctx.Context)
		if err != nil {
			return err
		}
		if !info.IsConnected {
			fmt.Println("pairing did not complete, check the daemon log")
			return nil
		}
		fmt.Printf("connected to account %s\n", info.AccountID)
		return nil
	},
}

var sessionDisconnectCmds = &cli.Command{
	Name:  "disconnect",
	Usage: "tear down the active wallet session",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		info, err := api.Disconnect(cctx.Context)
		if err != nil {
			return err
		}
		if info.IsConnected {
			fmt.Printf("still connected to account %s\n", info.AccountID)
			return nil
		}
		fmt.Println("disconnected")
		return nil
	},
}
