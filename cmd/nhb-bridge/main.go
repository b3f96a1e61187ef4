package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nhbbridge/bridge"
	"nhbbridge/config"
	"nhbbridge/core"
	"nhbbridge/observability/logging"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a YAML genesis validator file (overrides config GenesisFile)")
	pendingFlag := flag.Bool("pending", false, "Print the committed deposit tallies as JSON and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if path := strings.TrimSpace(*genesisFlag); path != "" {
		cfg.GenesisFile = path
	}
	if env := strings.TrimSpace(os.Getenv("NHB_ENV")); env != "" {
		cfg.Logging.Env = env
	}
	logger := logging.Setup(cfg.LoggingOptions())

	node, err := core.NewNode(cfg, logger)
	if err != nil {
		logger.Error("Failed to start node", slog.Any("error", err))
		os.Exit(1)
	}

	if *pendingFlag {
		err := printPending(node)
		node.Close()
		if err != nil {
			logger.Error("Failed to list pending tallies", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	defer node.Close()

	var srv *http.Server
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.ListenAddress) != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              cfg.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", slog.Any("error", err))
			}
		}()
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.ListenAddress))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	if srv != nil {
		_ = srv.Close()
	}
}

type pendingJSON struct {
	Hash      string   `json:"hash"`
	Nonce     string   `json:"nonce"`
	Transfers int      `json:"transfers"`
	Seen      bool     `json:"seen"`
	Power     string   `json:"votingPower"`
	Voters    []string `json:"voters"`
}

func printPending(node *core.Node) error {
	pending, err := node.PendingEvents()
	if err != nil {
		return err
	}
	out := make([]pendingJSON, 0, len(pending))
	for _, p := range pending {
		out = append(out, toPendingJSON(p))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toPendingJSON(p bridge.PendingEvent) pendingJSON {
	voters := make([]string, 0, len(p.Tally.SeenBy))
	for _, addr := range p.Tally.SeenBy.Validators() {
		voters = append(voters, addr.Hex())
	}
	return pendingJSON{
		Hash:      p.Event.Hash().Hex(),
		Nonce:     p.Event.Nonce.String(),
		Transfers: len(p.Event.Transfers),
		Seen:      p.Tally.Seen,
		Power:     p.Power.String(),
		Voters:    voters,
	}
}
