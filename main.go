package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/gorilla/mux"
	"github.com/ipfs-force-community/metrics"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	multiaddr "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/plugin/ochttp"

	"github.com/fairwind-labs/mintgate/api"
	"github.com/fairwind-labs/mintgate/cmds"
	"github.com/fairwind-labs/mintgate/config"
	"github.com/fairwind-labs/mintgate/ledger/inmem"
	"github.com/fairwind-labs/mintgate/lifecycle"
	gwmetrics "github.com/fairwind-labs/mintgate/metrics"
	"github.com/fairwind-labs/mintgate/relay"
	"github.com/fairwind-labs/mintgate/session"
	"github.com/fairwind-labs/mintgate/sessionstore"
	"github.com/fairwind-labs/mintgate/version"
)

var log = logging.Logger("main")

const defaultRepoPath = "~/.mintgate"

func main() {
	_ = logging.SetLogLevel("*", "INFO")

	app := &cli.App{
		Name:  "mintgate",
		Usage: "wallet session gateway and asset lifecycle runner",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "host address and port the api will listen on",
				Value: "/ip4/127.0.0.1/tcp/45132",
			},
			&cli.StringFlag{
				Name:  "repo",
				Usage: "repo directory holding config and session state",
				Value: defaultRepoPath,
			},
		},
		Commands: []*cli.Command{
			runCmd, cmds.SessionCmds, cmds.AssetCmds,
		},
	}
	app.Version = version.UserVersion
	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "start mintgate daemon",
	Action: func(cctx *cli.Context) error {
		repoPath, err := homedir.Expand(cctx.String("repo"))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(repoPath, 0755); err != nil {
			return err
		}

		cfgPath := filepath.Join(repoPath, config.ConfigFile)
		cfg, err := config.ReadConfig(cfgPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			cfg = config.DefaultConfig()
			if err := config.WriteConfig(cfgPath, cfg); err != nil {
				return err
			}
			log.Infof("wrote default config to %s", cfgPath)
		}
		if cctx.IsSet("listen") {
			cfg.API.ListenAddress = cctx.String("listen")
		}
		if cfg.Session.StorePath == "" {
			cfg.Session.StorePath = filepath.Join(repoPath, "session.toml")
		}

		return RunMain(cctx.Context, cfg)
	},
}

func RunMain(ctx context.Context, cfg *config.Config) error {
	log.Infof("mintgate current version %s, listen %s", version.UserVersion, cfg.API.ListenAddress)

	pairingRelay := relay.New(cfg.Pairing.RequestConfig())

	store := sessionstore.NewFileStore(cfg.Session.StorePath)
	ctrl := session.NewController(pairingRelay, store, func(account string) {
		log.Infof("session account: %s", account)
	})

	// bring the relay up front so wallets can register before the first
	// pairing attempt
	if err := ctrl.Pairing().Initialize(ctx); err != nil {
		return err
	}
	ctrl.RestoreFromStorage(ctx)

	localLedger := inmem.New()
	pipeline := lifecycle.NewPipeline(localLedger.Builder(), ctrl, cfg.Lifecycle.PipelineConfig())

	gatewayAPI := api.NewGatewayAPIImpl(pairingRelay, ctrl, pipeline)

	log.Info("Setting up control endpoint at " + cfg.API.ListenAddress)

	router := mux.NewRouter()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register("Gateway", gatewayAPI)
	router.Handle("/rpc/v0", rpcServer)
	router.Handle("/healthcheck", healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("session", healthcheck.CheckerFunc(func(ctx context.Context) error {
			if ctrl.IsConnected() && ctrl.AccountID().Empty() {
				return fmt.Errorf("session state inconsistent")
			}
			return nil
		})),
	))
	router.PathPrefix("/").Handler(http.DefaultServeMux)

	handler := (http.Handler)(router)

	if repoter, err := metrics.SetupJaegerTracing(cfg.Trace.ServerName, cfg.Trace); err != nil {
		return fmt.Errorf("register jaeger exporter failed: %w", err)
	} else if repoter != nil {
		log.Infof("register jaeger-tracing exporter to %s, with node-name:%s", cfg.Trace.JaegerEndpoint, cfg.Trace.ServerName)
		defer metrics.ShutdownJaeger(ctx, repoter) //nolint:errcheck
		handler = &ochttp.Handler{Handler: handler}
	}

	if cfg.Metrics != nil {
		if err := gwmetrics.SetupMetrics(ctx, cfg.Metrics); err != nil {
			return fmt.Errorf("setup metrics failed: %w", err)
		}
	}

	srv := &http.Server{Handler: handler}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warnw("received shutdown", "signal", sig)
		case <-ctx.Done():
			log.Warn("received shutdown")
		}

		log.Info("Shutting down...")
		if err := srv.Shutdown(context.TODO()); err != nil {
			log.Errorf("shutting down RPC server failed: %s", err)
		}
	}()

	addr, err := multiaddr.NewMultiaddr(cfg.API.ListenAddress)
	if err != nil {
		return err
	}

	nl, err := manet.Listen(addr)
	if err != nil {
		return err
	}

	gwmetrics.ApiState.Set(ctx, 1)
	log.Infof("start to rpc listen %s", nl.Addr())
	if err = srv.Serve(manet.NetListener(nl)); err != nil && err != http.ErrServerClosed {
		return err
	}
	gwmetrics.ApiState.Set(ctx, 0)

	log.Info("Graceful shutdown successful")
	return nil
}
