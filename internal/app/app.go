// Package app собирает зависимости платёжного ядра и управляет их жизненным циклом.
package app

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	platformhealth "github.com/dkrasnov-dev/paygate/platform/health/http"
	platformlogging "github.com/dkrasnov-dev/paygate/platform/logging"
	platformshutdown "github.com/dkrasnov-dev/paygate/platform/shutdown"

	"github.com/dkrasnov-dev/paygate/internal/config"
	"github.com/dkrasnov-dev/paygate/internal/domain"
	eventkafka "github.com/dkrasnov-dev/paygate/internal/event/kafka"
	"github.com/dkrasnov-dev/paygate/internal/gateway"
	"github.com/dkrasnov-dev/paygate/internal/gateway/sim"
	"github.com/dkrasnov-dev/paygate/internal/processor"
	"github.com/dkrasnov-dev/paygate/internal/rates"
	"github.com/dkrasnov-dev/paygate/internal/retry"
	"github.com/dkrasnov-dev/paygate/internal/router"
	"github.com/dkrasnov-dev/paygate/internal/validation"
)

// cleanupInterval — период освобождения локов терминальных транзакций
const cleanupInterval = time.Minute

// App содержит все зависимости хоста платёжного ядра
type App struct {
	logger      *zap.Logger
	processor   *processor.Processor
	httpServer  *http.Server
	consumer    *eventkafka.StatusConsumer
	shutdownMgr *platformshutdown.Manager

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// Build создаёт и настраивает все зависимости
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "paygate",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building paygate host",
		zap.String("health_addr", cfg.HealthAddr),
		zap.Bool("kafka_enabled", cfg.KafkaEnabled),
		zap.Bool("redis_enabled", cfg.RedisEnabled),
	)

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	// Кэш курсов: Redis при включённом флаге, иначе in-memory
	var rateCache rates.Cache
	if cfg.RedisEnabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rateCache = rates.NewRedisCache(redisClient, logger)
		shutdownMgr.Add("redis_client", platformshutdown.CloseCloser(redisClient))
		logger.Info("rate cache backed by redis", zap.String("addr", cfg.RedisAddr))
	} else {
		rateCache = rates.NewMemoryCache()
	}
	rateService := rates.NewStaticService(logger, rateCache)

	// Сервис балансов с демо-счетами для локальной разработки
	balances := validation.NewMemoryBalanceService()
	seedDemoBalances(balances)
	validator := validation.New(logger, balances)

	// Эталонные шлюзы за legacy-контрактом (через обратный адаптер)
	gatewayA := sim.NewWithSource("GatewayA", decimal.RequireFromString("0.01"),
		randSource(), cfg.GatewayLatency,
		domain.CurrencyUSD, domain.CurrencyEUR)
	gatewayB := sim.NewWithSource("GatewayB", decimal.RequireFromString("0.015"),
		randSource(), cfg.GatewayLatency,
		domain.CurrencyEUR, domain.CurrencyRUB)

	gatewayRouter := router.New(logger,
		gateway.NewIdempotentAdapter(gatewayA),
		gateway.NewIdempotentAdapter(gatewayB),
	)

	retryPolicy := retry.New(logger)

	proc := processor.New(logger, validator, gatewayRouter, rateService, retryPolicy)

	// HTTP health endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/health", platformhealth.Handler(nil))
	httpServer := &http.Server{
		Addr:    cfg.HealthAddr,
		Handler: mux,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())

	// Consumer уведомлений о статусе (опционально)
	var consumer *eventkafka.StatusConsumer
	if cfg.KafkaEnabled {
		consumer = eventkafka.NewStatusConsumer(logger, cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.StatusTopic, proc)
		shutdownMgr.Add("status_consumer", platformshutdown.CloseCloser(consumer))
	}

	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("background_tasks", platformshutdown.CancelContext(bgCancel))

	return &App{
		logger:      logger,
		processor:   proc,
		httpServer:  httpServer,
		consumer:    consumer,
		shutdownMgr: shutdownMgr,
		bgCtx:       bgCtx,
		bgCancel:    bgCancel,
	}, nil
}

// Processor возвращает платёжный процессор для встраивания
func (a *App) Processor() *processor.Processor {
	return a.processor
}

// Logger возвращает сконфигурированный logger хоста
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run запускает фоновые задачи и блокируется до сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting paygate host", zap.String("health_addr", a.httpServer.Addr))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("health server error", zap.Error(err))
		}
	}()

	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.consumer.Start(a.bgCtx); err != nil {
				a.logger.Error("status consumer error", zap.Error(err))
			}
		}()
	}

	// Периодический cleanup: таблица per-id локов не растёт бесконечно
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.processor.Cleanup()
			case <-a.bgCtx.Done():
				return
			}
		}
	}()

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("paygate host stopped")
	return nil
}

func randSource() rand.Source {
	return rand.NewSource(time.Now().UnixNano())
}

// seedDemoBalances наполняет демо-счета для локальной разработки
func seedDemoBalances(balances *validation.MemoryBalanceService) {
	balances.SetBalance("1234567890", decimal.NewFromInt(50_000), domain.CurrencyUSD)
	balances.SetBalance("0987654321", decimal.NewFromInt(50_000), domain.CurrencyUSD)
	balances.SetBalance("DE44500105175407324931", decimal.NewFromInt(40_000), domain.CurrencyEUR)
	balances.SetBalance("FR1420041010050500013M02606", decimal.NewFromInt(40_000), domain.CurrencyEUR)
	balances.SetBalance("40702810900000005555", decimal.NewFromInt(2_000_000), domain.CurrencyRUB)
	balances.SetBalance("40817810099910004312", decimal.NewFromInt(2_000_000), domain.CurrencyRUB)
}
