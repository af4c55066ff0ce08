package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-desk/internal/application/service"
	"github.com/garyjia/travel-desk/internal/config"
	"github.com/garyjia/travel-desk/internal/container"
	"github.com/garyjia/travel-desk/internal/infrastructure/worker"
	"github.com/garyjia/travel-desk/pkg/utils"
)

// Sends a one-off notice over every configured channel, or with -retry runs
// a single redelivery pass over failed and stale notifications.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	to := flag.String("to", "", "recipient email address")
	subject := flag.String("subject", "Travel Desk notification test", "message subject")
	body := flag.String("body", "<p>This is a test notice from Travel Desk.</p>", "HTML message body")
	retry := flag.Bool("retry", false, "redeliver failed notifications instead of sending a test notice")
	flag.Parse()

	fmt.Println("=== Travel Desk Notification Tool ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	containerCfg := cfg.ToContainerConfig()

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "debug", OutputPath: "stdout", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("\n[Step 1] Opening database...")
	db, err := container.ProvideDatabase(&containerCfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Raw.Close()

	repos, err := container.ProvideRepositories(db.TransactionMgr, logger)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	fmt.Println("\n[Step 2] Creating notification channels...")
	notifiers, err := container.ProvideNotifiers(&containerCfg.Email, &containerCfg.Lark, logger)
	if err != nil {
		log.Fatalf("Failed to create notifiers: %v", err)
	}
	for _, n := range notifiers {
		fmt.Printf("✓ Channel enabled: %s\n", n.Channel())
	}

	if *retry {
		fmt.Println("\n[Step 3] Redelivering failed notifications...")
		redeliveryCfg := worker.DefaultRedeliveryConfig()
		if containerCfg.Worker.RedeliveryMaxAttempts > 0 {
			redeliveryCfg.MaxAttempts = containerCfg.Worker.RedeliveryMaxAttempts
		}
		if containerCfg.Worker.RedeliveryBatchSize > 0 {
			redeliveryCfg.BatchSize = containerCfg.Worker.RedeliveryBatchSize
		}
		w := worker.NewRedeliveryWorker(redeliveryCfg, repos.Notification, notifiers, nil, logger)
		if err := w.RunOnce(ctx); err != nil {
			log.Fatalf("Redelivery failed: %v", err)
		}
		status := w.Status()
		fmt.Printf("✓ Redelivered: %d, still failing: %d\n", status.Processed, status.Failed)
		return
	}

	if *to == "" {
		fmt.Fprintln(os.Stderr, "Usage: send-notification -to <email> [-subject s] [-body html] | -retry")
		os.Exit(2)
	}

	fmt.Printf("\n[Step 3] Sending test notice to %s...\n", *to)
	notifications := service.NewNotificationService(
		repos.User,
		repos.Notification,
		notifiers,
		utils.NewKVLogger(logger),
		service.WithRetry(containerCfg.Notification.MaxRetries, containerCfg.Notification.RetryBackoff),
	)
	if err := notifications.SendDirect(ctx, *to, *subject, *body); err != nil {
		logger.Error("Delivery failed", zap.Error(err))
		fmt.Printf("✗ Failed to send: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Notice sent")
	fmt.Println("\n=== Done ===")
}
