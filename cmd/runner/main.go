package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"etc-arb-bot/config"
	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/internal/engine"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/metrics"
	"etc-arb-bot/order"
	"etc-arb-bot/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	testMode := flag.Bool("test", false, "强制连接测试交易所")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正发送指令")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *testMode {
		cfg.Env = "test"
	}

	appLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Close()

	appLog.Info("starting trading bot",
		zap.String("env", cfg.Env),
		zap.String("team", cfg.Exchange.Team))

	mets := metrics.NewDefault()
	if cfg.MetricsAddr != "" {
		metrics.StartServer(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := gateway.Dial(ctx, gateway.Config{
		Host:         cfg.Exchange.Host,
		Port:         cfg.Exchange.Port,
		Team:         cfg.Exchange.Team,
		TestMode:     cfg.Env == "test",
		DialTimeout:  time.Duration(cfg.Exchange.DialTimeoutMs) * time.Millisecond,
		RetryBackoff: time.Duration(cfg.Exchange.RetryBackoffMs) * time.Millisecond,
		ActionRate:   cfg.Exchange.ActionRate,
		ActionBurst:  cfg.Exchange.ActionBurst,
		DryRun:       *dryRun,
	}, appLog, mets)
	if err != nil {
		appLog.Error("连接交易所失败", zap.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	est := market.NewEstimator(cfg.Estimator.WindowSize)
	ledger := order.NewLedger(client, appLog, mets)
	adrBook := inventory.NewTracker()
	etfBook := inventory.NewTracker()

	eng, err := engine.New(engine.Components{
		Source:    client,
		Ledger:    ledger,
		Estimator: est,
		Bond:      strategy.NewBond(cfg.Bond, ledger, appLog),
		ADR:       strategy.NewADR(cfg.ADR, est, ledger, adrBook, appLog),
		ETF:       strategy.NewETF(cfg.ETF, strategy.DefaultETFLegs(), est, ledger, etfBook, appLog),
		ADRBook:   adrBook,
		ETFBook:   etfBook,
		Logger:    appLog,
		Metrics:   mets,
	})
	if err != nil {
		appLog.Error("初始化引擎失败", zap.Error(err))
		os.Exit(1)
	}

	// 配置热更新：只应用日志级别与出站限速。
	reloader, err := config.NewHotReloader(*cfgPath, 5*time.Second, func(next config.AppConfig) {
		if err := appLog.SetLevel(next.Log.Level); err != nil {
			appLog.Warn("热更新日志级别失败", zap.Error(err))
		}
		client.SetPacing(next.Exchange.ActionRate, next.Exchange.ActionBurst)
		appLog.Info("config reloaded",
			zap.String("log_level", next.Log.Level),
			zap.Float64("action_rate", next.Exchange.ActionRate))
	})
	if err != nil {
		appLog.Warn("配置热更新不可用", zap.Error(err))
	} else {
		go func() { _ = reloader.Start(ctx) }()
	}

	if err := eng.Run(ctx); err != nil {
		appLog.Error("engine terminated", zap.Error(err))
		os.Exit(1)
	}
	appLog.Info("shutdown complete")
}
