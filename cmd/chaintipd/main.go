package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ChainTip/internal/account"
	"ChainTip/internal/audit"
	"ChainTip/internal/bot"
	"ChainTip/internal/config"
	"ChainTip/internal/ledger"
	"ChainTip/internal/ledger/ethereum"
	"ChainTip/internal/observability/alerting"
	"ChainTip/internal/reply"
	"ChainTip/internal/transfer"
	"ChainTip/pkg/logger"
)

// main is the chaintipd daemon entry point.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("chaintipd failed: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("CHAINTIP_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "chaintip.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled: cfg.Logging.AuditFile != "",
			Path:    cfg.Logging.AuditFile,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	var store account.Store
	switch cfg.Storage.AccountStore.Driver {
	case "", "memory":
		store = account.NewMemoryStore()
	case "mysql":
		s, err := account.NewMySQLStore(cfg.Storage.AccountStore.DSN)
		if err != nil {
			return err
		}
		store = s
	default:
		return account.ErrUnsupportedDriver
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.L().Warn("closing account store failed", "error", err)
		}
	}()

	client, err := ethereum.NewClient(ctx, ethereum.Config{
		RPCURL:  cfg.Ledger.RPCURL,
		ChainID: cfg.Ledger.ChainID,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	templates := reply.Defaults()
	if cfg.Bot.TemplatesPath != "" {
		templates, err = reply.Load(cfg.Bot.TemplatesPath)
		if err != nil {
			return err
		}
	}

	token, err := cfg.BotToken()
	if err != nil {
		return err
	}

	transport, err := bot.NewTelegram(bot.TelegramConfig{
		Token:       token,
		PollTimeout: time.Duration(cfg.Transport.PollTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer transport.Close()

	alertNotifiers := []alerting.Notifier{alerting.LogNotifier{}}
	if cfg.Bot.OperatorChatID != 0 {
		alertNotifiers = append(alertNotifiers, &alerting.ChatNotifier{
			Sender: transport,
			ChatID: cfg.Bot.OperatorChatID,
		})
	}
	alerts := alerting.NewFanout(alertNotifiers...)

	opts := []transfer.Option{
		transfer.WithAlertDispatcher(alerts),
	}
	if cfg.Cache.Enabled {
		cache, err := ledger.NewBalanceCache(ledger.BalanceCacheConfig{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		defer cache.Close()
		opts = append(opts, transfer.WithBalanceCache(cache))
	}
	if cfg.Audit.Enabled {
		sink, err := audit.NewRabbitMQPublisher(audit.RabbitMQConfig{
			URL:     cfg.Audit.URL,
			Queue:   cfg.Audit.Queue,
			Durable: true,
		})
		if err != nil {
			return err
		}
		defer sink.Close()
		opts = append(opts, transfer.WithAuditPublisher(sink))
	}

	exec := transfer.NewExecutor(store, client, transport, templates, transfer.Config{
		DonationAddress: cfg.Bot.DonationAddress,
		CoinSymbol:      cfg.Ledger.CoinSymbol,
		GasLimit:        cfg.Ledger.GasLimit,
		DryRun:          cfg.Bot.DryRun,
	}, opts...)

	dispatcher := bot.NewDispatcher(transport, store, exec, templates,
		bot.WithAlertDispatcher(alerts))

	go transport.Start()

	logger.L().Info("chaintipd started",
		"store", cfg.Storage.AccountStore.Driver,
		"rpc", cfg.Ledger.RPCURL,
		"dry_run", cfg.Bot.DryRun,
	)

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
