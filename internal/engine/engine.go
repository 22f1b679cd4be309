// Package engine 是事件分发器：从交易所读入一个事件，依次驱动估计器与
// 三个策略，再把产生的指令交给传输层。所有可变状态（窗口、账本、仓位）
// 都只被这一条控制流触碰，单线程串行处理，无需加锁。
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/metrics"
	"etc-arb-bot/order"
	"etc-arb-bot/strategy"
)

// EventSource 提供阻塞式事件读取；与 gateway.Client 对接。
type EventSource interface {
	ReadEvent() (gateway.Event, error)
}

// Components 引擎依赖组件
type Components struct {
	Source    EventSource
	Ledger    *order.Ledger
	Estimator *market.Estimator
	Bond      *strategy.Bond
	ADR       *strategy.ADR
	ETF       *strategy.ETF
	ADRBook   *inventory.Tracker
	ETFBook   *inventory.Tracker
	Logger    *logger.Logger
	Metrics   *metrics.Set
}

// Engine 单线程事件循环。
type Engine struct {
	source EventSource
	ledger *order.Ledger
	est    *market.Estimator
	bond   *strategy.Bond
	adr    *strategy.ADR
	etf    *strategy.ETF

	adrBook *inventory.Tracker
	etfBook *inventory.Tracker

	log  *logger.Logger
	mets *metrics.Set
}

// New 创建引擎并校验组件齐全。
func New(c Components) (*Engine, error) {
	if c.Source == nil {
		return nil, errors.New("event source is required")
	}
	if c.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if c.Bond == nil || c.ADR == nil || c.ETF == nil {
		return nil, errors.New("all three strategies are required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Engine{
		source:  c.Source,
		ledger:  c.Ledger,
		est:     c.Estimator,
		bond:    c.Bond,
		adr:     c.ADR,
		etf:     c.ETF,
		adrBook: c.ADRBook,
		etfBook: c.ETFBook,
		log:     c.Logger,
		mets:    c.Metrics,
	}, nil
}

// Run 挂出初始债券报价后进入阻塞读循环，按到达顺序逐个处理事件。
// 解码失败的行计数后跳过；传输层致命错误上抛终止进程。
func (e *Engine) Run(ctx context.Context) error {
	if err := e.bond.Start(); err != nil {
		return fmt.Errorf("place initial bond quotes: %w", err)
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := e.source.ReadEvent()
		if err != nil {
			if errors.Is(err, gateway.ErrMalformed) {
				if e.mets != nil {
					e.mets.DecodeErrors.Inc()
				}
				e.log.Warn("skipping malformed event", zap.Error(err))
				continue
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("exchange stream: %w", err)
		}
		e.Handle(ev)
	}
}

// Handle 把一个已解码事件路由给相关策略。
// 策略内的发送失败只记录不中断：连接若已断开，下一次读取会按
// 有界重试策略处理。
func (e *Engine) Handle(ev gateway.Event) {
	switch ev := ev.(type) {
	case gateway.Trade:
		e.count("trade")
		e.contain(e.adr.OnTrade(ev))
		e.contain(e.etf.OnTrade(ev))
	case gateway.Book:
		e.count("book")
		e.contain(e.adr.OnBook(ev))
	case gateway.Fill:
		e.count("fill")
		e.contain(e.bond.OnFill(ev))
		e.contain(e.adr.OnFill(ev))
		e.contain(e.etf.OnFill(ev))
	case gateway.Out:
		e.count("out")
		e.ledger.OnOut(ev.OrderID)
	case gateway.Hello:
		// 握手在传输层完成，流中再出现的 hello 忽略。
		e.count("hello")
	}
	e.exportGauges()
}

func (e *Engine) count(eventType string) {
	if e.mets != nil {
		e.mets.Events.WithLabelValues(eventType).Inc()
	}
}

func (e *Engine) contain(err error) {
	if err != nil {
		e.log.LogError(err)
	}
}

// exportGauges 每个事件后刷新仓位与公允价指标。
func (e *Engine) exportGauges() {
	if e.mets == nil {
		return
	}
	for _, book := range []*inventory.Tracker{e.adrBook, e.etfBook} {
		if book == nil {
			continue
		}
		for sym, qty := range book.Snapshot() {
			e.mets.Position.WithLabelValues(sym).Set(float64(qty))
		}
	}
	if e.est != nil {
		for _, sym := range []string{strategy.SymUnderlying, strategy.SymGS, strategy.SymMS, strategy.SymWFC} {
			if fair, ok := e.est.Fair(sym); ok {
				e.mets.FairValue.WithLabelValues(sym).Set(float64(fair))
			}
		}
	}
	if composite, ok := e.etf.Composite(); ok {
		e.mets.FairValue.WithLabelValues(strategy.SymETF).Set(float64(composite))
	}
}
