package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultScope/internal/aggregate"
	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/httpx"
	"vaultScope/internal/price"
	"vaultScope/internal/server"
	"vaultScope/internal/service"
	"vaultScope/internal/subgraph"
	"vaultScope/internal/vaultcfg"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "Read-only vault balance API",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the balance API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":4000", "listen address")
	serveCmd.Flags().String("graph-url", "", "balance subgraph URL ({chain} placeholder)")
	serveCmd.Flags().String("vault-api-url", "", "vault config API base URL")
	serveCmd.Flags().String("price-api-url", "", "price API base URL")
	serveCmd.Flags().String("price-api-key", "", "price API key")
	serveCmd.Flags().String("rpc-urls", "", "per-chain RPC URLs (comma-separated chain=url)")
	serveCmd.Flags().Duration("cache-ttl", 30*time.Second, "response cache TTL")
	serveCmd.Flags().Duration("http-timeout", 30*time.Second, "upstream HTTP timeout")
	serveCmd.Flags().Int("max-retries", 3, "maximum upstream retry attempts")
	serveCmd.Flags().Duration("retry-delay", time.Second, "initial retry delay")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpx.New(cfg.HTTPTimeout, cfg.MaxRetries, cfg.RetryDelay, logger)

	memo, err := cache.New(logger)
	if err != nil {
		return err
	}
	defer memo.Close()

	configs := vaultcfg.NewResolver(httpClient, cfg.VaultAPIURL, memo, cfg.CacheTTL, logger)
	balances := subgraph.NewClient(httpClient, cfg.GraphURL, logger)
	chains := chain.NewPool(cfg.RPCURLs)
	defer chains.Close()

	var pricer aggregate.Pricer
	if cfg.PriceAPIURL != "" {
		pricer = price.New(httpClient, cfg.PriceAPIURL, cfg.PriceAPIKey, memo, logger)
	}

	svc := service.New(configs, balances, chains, pricer, memo, cfg.CacheTTL, logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(svc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api start",
			zap.String("listen", cfg.Listen),
			zap.String("graph_url", cfg.GraphURL),
			zap.String("vault_api_url", cfg.VaultAPIURL),
			zap.Int("rpc_chains", len(cfg.RPCURLs)),
			zap.Duration("cache_ttl", cfg.CacheTTL),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("api shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
