// Package main запускает хост платёжного ядра paygate.
//
// Хост поднимает HTTP health endpoint, опциональный Kafka consumer
// уведомлений о статусе и периодический cleanup локов. Перед ожиданием
// сигнала проводится демонстрационный платёж, чтобы показать полный
// путь запроса через валидацию, роутер и шлюз.
//
// Конфигурация через переменные окружения (internal/config):
//   - APP_ENV (local/docker), LOG_LEVEL, LOG_FORMAT
//   - HEALTH_ADDR
//   - KAFKA_ENABLED, KAFKA_BROKERS, STATUS_TOPIC, CONSUMER_GROUP
//   - REDIS_ENABLED, REDIS_ADDR
//   - GATEWAY_LATENCY, SHUTDOWN_TIMEOUT
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/app"
	"github.com/dkrasnov-dev/paygate/internal/config"
	"github.com/dkrasnov-dev/paygate/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	runDemoPayment(a)

	if err := a.Run(); err != nil {
		log.Fatalf("App run failed: %v", err)
	}
}

// runDemoPayment проводит один демонстрационный платёж через ядро
func runDemoPayment(a *app.App) {
	logger := a.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := domain.PaymentRequest{
		Amount:             decimal.RequireFromString("100"),
		Currency:           domain.CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
		Metadata:           map[string]string{"purpose": "demo"},
	}
	transactionID := "demo-" + uuid.NewString()

	tx, err := a.Processor().Process(ctx, req, transactionID, "")
	if err != nil {
		logger.Warn("demo payment finished with error", zap.Error(err))
		return
	}

	logger.Info("demo payment finished",
		zap.String("transaction_id", tx.ID),
		zap.String("status", string(tx.Status)),
		zap.String("gateway", tx.GatewayUsed),
		zap.String("commission", tx.Commission.String()),
	)
}
