// Package flags holds the CLI flags and setup helpers shared by the
// project's binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/sarcophagus-org/sarco-engine/common"
	"github.com/sarcophagus-org/sarco-engine/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}
var EscrowAddrFlag = &cli.StringFlag{
	Name:  "escrow-addr",
	Value: "0x00000000000000000000000000000000000e5c20",
	Usage: "token account holding staked collateral and escrowed fees",
}
var AdminAddrFlag = &cli.StringFlag{
	Name:     "admin-addr",
	Required: true,
	Usage:    "initial protocol admin address",
}
var StateFileFlag = &cli.StringFlag{
	Name:  "state-file",
	Value: "",
	Usage: "path for state snapshots; empty disables persistence",
}
var SaveIntervalFlag = &cli.Int64Flag{
	Name:  "save-interval",
	Value: 60,
	Usage: "seconds between periodic state snapshots",
}
var GracePeriodFlag = &cli.Int64Flag{
	Name:  "grace-period",
	Value: 3600,
	Usage: "seconds after the resurrection time during which keys may be published",
}
var ClaimWindowFlag = &cli.Int64Flag{
	Name:  "embalmer-claim-window",
	Value: 604800,
	Usage: "seconds after the grace period during which only the embalmer may clean",
}
var ExpirationThresholdFlag = &cli.Int64Flag{
	Name:  "expiration-threshold",
	Value: 3600,
	Usage: "maximum age in seconds of negotiated creation parameters",
}
var ProtocolFeeFlag = &cli.Uint64Flag{
	Name:  "protocol-fee-bp",
	Value: 100,
	Usage: "protocol fee in basis points of total digging fees",
}
var CursedBondFlag = &cli.Uint64Flag{
	Name:  "cursed-bond-bp",
	Value: 10000,
	Usage: "cursed bond in basis points of the digging fee",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "sarco-engine",
	Usage: "add 'service' tag to logs",
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
