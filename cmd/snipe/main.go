package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-token-lab/internal/execute"
	"solana-token-lab/internal/observability"
	"solana-token-lab/internal/ratelimit"
	signalpkg "solana-token-lab/internal/signal"
	"solana-token-lab/internal/snipe"
	"solana-token-lab/internal/snipe/persist"
	"solana-token-lab/internal/solana"
	"solana-token-lab/internal/storage/migrations"
	pgstore "solana-token-lab/internal/storage/postgres"
	"solana-token-lab/internal/validate"
)

// dexAliases maps DEX aliases to program IDs, grounded on cmd/ingest/
// main.go's dexAliases table.
var dexAliases = map[string]string{
	"raydium": "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
	"pumpfun": "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
}

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint")
	dex := flag.String("dex", "pumpfun,raydium", "Comma-separated DEX aliases to monitor")
	payerSecret := flag.String("payer-secret", "", "Base58-encoded 64-byte payer secret key")
	launchpadProgram := flag.String("launchpad-program", dexAliases["pumpfun"], "Launchpad program id the buy instruction targets")
	globalFeeVault := flag.String("global-fee-vault", "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM", "Launchpad fee vault account")
	configAuthority := flag.String("config-authority", "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf", "Launchpad config authority account")
	amountLamports := flag.Int64("amount-lamports", 10_000_000, "Native lamports to spend per buy")
	maxSlotLag := flag.Int64("max-slot-lag", 150, "Maximum slots a notification may lag the cached tip before being dropped as stale")
	rateLimit := flag.Float64("rate-limit-rps", 10, "Shared token-bucket refill rate, tokens/second")
	rateLimitBurst := flag.Int("rate-limit-burst", 20, "Shared token-bucket burst capacity")
	reportInterval := flag.Duration("report-interval", 10*time.Second, "Per-source counter report interval (0 disables)")
	metricsAddr := flag.String("metrics-addr", ":9091", "Prometheus metrics HTTP address (empty to disable)")
	postgresDSN := flag.String("postgres-dsn", "", "Optional PostgreSQL DSN for dedup/mint-validation persistence across restarts")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Optional ClickHouse DSN for per-message outcome recording")

	flag.Parse()

	logger := log.New(os.Stdout, "[snipe] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *payerSecret == "" {
		logger.Fatal("--payer-secret is required")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	programs, err := resolvePrograms(*dex)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Monitoring programs: %v", programNames(programs))

	payer, err := solana.KeypairFromBase58(*payerSecret)
	if err != nil {
		logger.Fatalf("parse payer secret: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	cfg := snipe.Config{
		RPCEndpoint:          *rpcEndpoint,
		WSEndpoint:           *wsEndpoint,
		Programs:             programs,
		AmountNativeLamports: *amountLamports,
		MaxSlotLag:           *maxSlotLag,
		RateLimitPerSecond:   *rateLimit,
		RateLimitBurst:       *rateLimitBurst,
		LaunchpadProgram:     solana.MustDecodeAddress(*launchpadProgram),
		GlobalFeeVault:       solana.MustDecodeAddress(*globalFeeVault),
		ConfigAuthority:      solana.MustDecodeAddress(*configAuthority),
		Fingerprints:         snipe.DefaultFingerprints(),
		SignalWeights:        snipe.DefaultSignalWeights(),
		ReportInterval:       int(reportInterval.Seconds()),
		PostgresDSN:          *postgresDSN,
		ClickhouseDSN:        *clickhouseDSN,
	}

	runErr := run(ctx, logger, cfg, payer)

	done <- runErr
	cancel()

	if runErr != nil && runErr != context.Canceled {
		logger.Fatalf("Error: %v", runErr)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg snipe.Config, payer *solana.Keypair) error {
	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	defer limiter.Close()

	metrics := observability.DefaultMetrics

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithRateLimiter(limiter),
		solana.WithMetrics(metrics),
	)

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	var ingestOpts []solana.IngestorOption
	var validatorOpts []validate.ValidatorOption
	var outcomes snipe.OutcomeSink

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		mintCache := persist.NewPostgresMintCache(pool)
		dedupCache := persist.NewPostgresDedupCache(pool)
		ingestOpts = append(ingestOpts, solana.WithDedupCache(dedupCache))
		validatorOpts = append(validatorOpts, validate.WithMintCache(mintCache))
		logger.Println("PostgreSQL persistence enabled for dedup/mint-validation cache")
	}

	if cfg.ClickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer chConn.Close()

		outcomes = persist.NewClickhouseOutcomeSink(chConn)
		logger.Println("ClickHouse outcome recording enabled")
	}

	ingestOpts = append(ingestOpts,
		solana.WithIngestRateLimiter(limiter),
		solana.WithIngestMetrics(metrics),
	)
	ingestor := solana.NewLogIngestor(ws, ingestOpts...)
	defer ingestor.Close()

	// Refresh the ingestor's cached tip once a second for its staleness gate.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if slot, err := rpc.GetSlot(ctx); err == nil {
					ingestor.UpdateSlot(slot)
				}
			}
		}
	}()

	notifications, err := ingestor.SubscribeMany(ctx, cfg.Programs, cfg.MaxSlotLag)
	if err != nil {
		return fmt.Errorf("subscribe programs: %w", err)
	}

	orch := snipe.New(snipe.Options{
		RPC:       rpc,
		Programs:  cfg.Programs,
		Scorer:    signalpkg.NewScorer(cfg.SignalWeights),
		Matcher:   signalpkg.NewMatcher(cfg.Fingerprints),
		Validator: validate.NewMintValidator(rpc, limiter, validatorOpts...),
		Executor: execute.NewExecutor(rpc, execute.Config{
			LaunchpadProgram: cfg.LaunchpadProgram,
			GlobalFeeVault:   cfg.GlobalFeeVault,
			ConfigAuthority:  cfg.ConfigAuthority,
		}),
		Payer:                payer,
		Metrics:              metrics,
		Outcomes:             outcomes,
		AmountNativeLamports: cfg.AmountNativeLamports,
		MaxSlippageSentinel:  cfg.MaxSlippageSentinel,
		ReportInterval:       time.Duration(cfg.ReportInterval) * time.Second,
		Logger:               logger,
	})

	logger.Println("Starting realtime snipe pipeline...")
	orch.Run(ctx, notifications)
	return ctx.Err()
}

// resolvePrograms resolves program descriptors from the comma-
// separated dex alias list.
func resolvePrograms(dex string) ([]solana.ProgramDescriptor, error) {
	var programs []solana.ProgramDescriptor
	for _, alias := range strings.Split(dex, ",") {
		alias = strings.TrimSpace(strings.ToLower(alias))
		if alias == "" {
			continue
		}
		programID, ok := dexAliases[alias]
		if !ok {
			return nil, fmt.Errorf("unknown dex alias %q", alias)
		}
		programs = append(programs, solana.ProgramDescriptor{
			Name:      alias,
			ProgramID: solana.MustDecodeAddress(programID),
		})
	}
	if len(programs) == 0 {
		return nil, fmt.Errorf("no DEX programs specified; use --dex")
	}
	return programs, nil
}

func programNames(programs []solana.ProgramDescriptor) []string {
	names := make([]string, len(programs))
	for i, p := range programs {
		names[i] = p.Name
	}
	return names
}
