// Package retry реализует политику повторов с экспоненциальным backoff.
package retry

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

const defaultMaxRetries = 3

// Sleeper абстрагирует ожидание между попытками
// В тестах подменяется реализацией без реального ожидания
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper ждёт реальное время с учётом отмены контекста
type DefaultSleeper struct{}

func (s *DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy выполняет операцию с повторами: первая попытка + maxRetries повторов.
// Задержка перед n-м повтором — 2^n секунд (2s, 4s, 8s).
// На этом уровне любая ошибка считается повторяемой; при исчерпании попыток
// наружу уходит последняя ошибка. Policy не хранит состояние между вызовами
// и безопасна для конкурентного использования
type Policy struct {
	logger     *zap.Logger
	maxRetries int
	sleeper    Sleeper
}

// New создаёт Policy с дефолтными тремя повторами
func New(logger *zap.Logger) *Policy {
	return NewWithSleeper(logger, defaultMaxRetries, &DefaultSleeper{})
}

// NewWithSleeper создаёт Policy с кастомным sleeper (для тестов)
func NewWithSleeper(logger *zap.Logger, maxRetries int, sleeper Sleeper) *Policy {
	return &Policy{
		logger:     logger,
		maxRetries: maxRetries,
		sleeper:    sleeper,
	}
}

// Do выполняет операцию с повторами
// Отмена контекста прерывает цикл: ошибка отмены возвращается как есть,
// без дальнейших попыток
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff(n) = 2^n секунд, n — номер повтора начиная с 1
			delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			p.logger.Debug("retrying operation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := p.sleeper.Sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		// Отменённый контекст прекращает повторы: отмена уходит наружу как есть
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	p.logger.Debug("all retry attempts exhausted",
		zap.Int("max_retries", p.maxRetries),
		zap.Error(lastErr),
	)
	return lastErr
}
