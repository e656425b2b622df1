package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/custody_bot/config"
	"github.com/custody_bot/handler"
	"github.com/custody_bot/ledger"
	"github.com/custody_bot/model"
	"github.com/custody_bot/repository"
	"github.com/custody_bot/router"
	"github.com/custody_bot/service"
	"github.com/custody_bot/session"
	"github.com/custody_bot/telegram"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db := initDB(cfg.Database.DSN)

	ledgerClient, err := buildLedger(cfg.Ledger)
	if err != nil {
		log.Fatal(err)
	}

	accounts := repository.NewAccountRepository(db)
	sessions := session.NewRegistry()
	wallet := service.NewWalletService(accounts, ledgerClient, sessions, logger, cfg.Ledger.SubmitTimeout)

	bot, err := telegram.New(cfg.Telegram.Token, wallet, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watcher.Enabled {
		watcher := service.NewDepositWatcher(accounts, ledgerClient, cfg.Watcher.Interval, bot.NotifyDeposit, logger)
		go watcher.Start(ctx)
	}

	go bot.Run(ctx)

	walletHandler := handler.NewWalletHandler(wallet)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.SetupRouter(walletHandler),
	}
	go func() {
		logger.Info("ops api listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops api failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops api shutdown", "err", err)
	}
}

func initDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}
	return db
}

func buildLedger(cfg config.LedgerConfig) (ledger.Client, error) {
	switch cfg.Chain {
	case "bitcoin":
		return ledger.NewBitcoinClient(ledger.BitcoinConfig{
			RPCHost: cfg.Bitcoin.RPCHost,
			RPCUser: cfg.Bitcoin.RPCUser,
			RPCPass: cfg.Bitcoin.RPCPass,
			Network: cfg.Bitcoin.Network,
			FeeSats: cfg.Bitcoin.FeeSats,
		})
	default:
		return ledger.NewEthereumClient(cfg.Ethereum.RPCURL, cfg.Ethereum.ChainID)
	}
}
