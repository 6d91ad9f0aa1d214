// The sarco-server binary serves the sarcophagus escrow engine over HTTP.
package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/sarcophagus-org/sarco-engine/cmd/flags"
	"github.com/sarcophagus-org/sarco-engine/engine"
	"github.com/sarcophagus-org/sarco-engine/httpserver"
	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
	"github.com/sarcophagus-org/sarco-engine/token"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.EscrowAddrFlag,
	flags.AdminAddrFlag,
	flags.StateFileFlag,
	flags.SaveIntervalFlag,
	flags.GracePeriodFlag,
	flags.ClaimWindowFlag,
	flags.ExpirationThresholdFlag,
	flags.ProtocolFeeFlag,
	flags.CursedBondFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "sarco-server",
		Usage:  "Serve the sarcophagus escrow API",
		Flags:  serverFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	escrowAccount := common.HexToAddress(cCtx.String(flags.EscrowAddrFlag.Name))
	admin := common.HexToAddress(cCtx.String(flags.AdminAddrFlag.Name))
	stateFile := cCtx.String(flags.StateFileFlag.Name)
	saveInterval := time.Duration(cCtx.Int64(flags.SaveIntervalFlag.Name)) * time.Second

	bank := token.NewBank(escrowAccount)
	sink := engine.NewMemorySink(4096)
	eng := engine.New(&engine.Config{
		Token:         bank,
		Verifier:      sigverify.NewEthereumVerifier(),
		Sink:          sink,
		EscrowAccount: escrowAccount,
		Admin:         admin,
		Protocol: interfaces.ProtocolConfig{
			GracePeriod:               cCtx.Int64(flags.GracePeriodFlag.Name),
			EmbalmerClaimWindow:       cCtx.Int64(flags.ClaimWindowFlag.Name),
			ExpirationThreshold:       cCtx.Int64(flags.ExpirationThresholdFlag.Name),
			ProtocolFeeBasePercentage: cCtx.Uint64(flags.ProtocolFeeFlag.Name),
			CursedBondPercentage:      cCtx.Uint64(flags.CursedBondFlag.Name),
		},
		Log: logger,
	})

	if stateFile != "" {
		if err := eng.LoadState(stateFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Error("Failed to load state", "path", stateFile, "err", err)
				return err
			}
			logger.Info("No state snapshot found, starting cold", "path", stateFile)
		}
	}

	handler := httpserver.NewHandler(eng, sink, nil, logger)
	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	stopSaving := make(chan struct{})
	if stateFile != "" {
		go func() {
			ticker := time.NewTicker(saveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := eng.SaveState(stateFile); err != nil {
						logger.Error("Periodic state save failed", "err", err)
					}
				case <-stopSaving:
					return
				}
			}
		}()
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	close(stopSaving)
	if stateFile != "" {
		if err := eng.SaveState(stateFile); err != nil {
			logger.Error("Final state save failed", "err", err)
		}
	}

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}
