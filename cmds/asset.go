package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	apitypes "github.com/fairwind-labs/mintgate/api"
)

var AssetCmds = &cli.Command{
	Name:        "asset",
	Usage:       "asset lifecycle cmds",
	Subcommands: []*cli.Command{assetRunCmds, assetAmendCmds},
}

var assetRunCmds = &cli.Command{
	Name:  "run",
	Usage: "create an asset class, mint one unit and amend its metadata",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Usage:    "asset class name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "symbol",
			Usage:    "asset class symbol",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "metadata",
			Usage:    "metadata applied to the minted unit in the final stage",
			Required: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		result, err := api.RunLifecycle(cctx.Context, &apitypes.RunParams{
			Name:        cctx.String("name"),
			Symbol:      cctx.String("symbol"),
			NewMetadata: cctx.String("metadata"),
		})
		if err != nil {
			return err
		}
		resultBytes, err := json.MarshalIndent(result, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(resultBytes))
		return nil
	},
}

var assetAmendCmds = &cli.Command{
	Name:  "amend",
	Usage: "amend the metadata of an existing unit",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "asset class id, e.g. 0.0.1001",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "serial",
			Usage:    "unit serial number",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "metadata",
			Usage:    "replacement metadata",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "metadata-key",
			Usage:    "hex encoded metadata authority key of the asset class",
			Required: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		err = api.AmendMetadata(cctx.Context, &apitypes.AmendParams{
			TokenID:      cctx.String("token"),
			SerialNumber: cctx.String("serial"),
			NewMetadata:  cctx.String("metadata"),
			MetadataKey:  cctx.String("metadata-key"),
		})
		if err != nil {
			return err
		}
		fmt.Println("metadata updated")
		return nil
	},
}
