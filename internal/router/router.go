// Package router выбирает оптимальный шлюз для платёжного запроса.
package router

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
	"github.com/dkrasnov-dev/paygate/internal/gateway"
)

// ErrNoGatewayAvailable возвращается, когда ни один зарегистрированный шлюз
// не поддерживает валюту запроса или не отвечает на проверку доступности
var ErrNoGatewayAvailable = errors.New("no gateway available for request")

// Router хранит зарегистрированный пул шлюзов и выбирает оптимальный:
// доступный, поддерживающий валюту, с минимальной комиссией.
// После создания состояние не мутируется, методы безопасны для конкурентных вызовов
type Router struct {
	logger   *zap.Logger
	gateways []gateway.Gateway
	byName   map[string]gateway.Gateway
}

// New создаёт Router с пулом шлюзов
// Порядок регистрации фиксирует tie-break при равных комиссиях
func New(logger *zap.Logger, gateways ...gateway.Gateway) *Router {
	byName := make(map[string]gateway.Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &Router{
		logger:   logger,
		gateways: gateways,
		byName:   byName,
	}
}

// candidate — шлюз, прошедший фильтры, с известной комиссией
// Кандидаты добавляются в порядке регистрации, стабильная сортировка
// сохраняет этот порядок при равных комиссиях
type candidate struct {
	gw         gateway.Gateway
	commission decimal.Decimal
}

// SelectOptimal выбирает шлюз для запроса:
// фильтр по поддержке валюты и живой доступности, ранжирование по комиссии
// по возрастанию, при равенстве — порядок регистрации.
// Пустой набор кандидатов — ErrNoGatewayAvailable
func (r *Router) SelectOptimal(ctx context.Context, req domain.PaymentRequest) (gateway.Gateway, error) {
	candidates := make([]candidate, 0, len(r.gateways))

	for _, gw := range r.gateways {
		if !gw.SupportsCurrency(req.Currency) {
			continue
		}
		if !gw.IsAvailable(ctx) {
			r.logger.Debug("gateway is not available, skipping",
				zap.String("gateway", gw.Name()),
			)
			continue
		}

		commission, err := gw.GetCommission(ctx, req.Currency)
		if err != nil {
			r.logger.Warn("failed to get gateway commission, skipping",
				zap.String("gateway", gw.Name()),
				zap.Error(err),
			)
			continue
		}

		candidates = append(candidates, candidate{gw: gw, commission: commission})
	}

	if len(candidates) == 0 {
		r.logger.Warn("no gateway available",
			zap.String("currency", req.Currency.String()),
		)
		return nil, ErrNoGatewayAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].commission.LessThan(candidates[j].commission)
	})

	best := candidates[0]
	r.logger.Debug("optimal gateway selected",
		zap.String("gateway", best.gw.Name()),
		zap.String("currency", req.Currency.String()),
		zap.String("commission", best.commission.String()),
	)
	return best.gw, nil
}

// ByName возвращает шлюз по точному имени
func (r *Router) ByName(name string) (gateway.Gateway, bool) {
	gw, ok := r.byName[name]
	return gw, ok
}
