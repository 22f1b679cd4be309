package strategy

import (
	"go.uber.org/zap"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/order"
)

// ADRConfig ADR 套利参数。
type ADRConfig struct {
	QuoteOffset int    `yaml:"quoteOffset"` // 报价离公允价的距离
	Hysteresis  int    `yaml:"hysteresis"`  // 重报价所需的最小公允价位移
	QuoteSize   int    `yaml:"quoteSize"`   // 单边挂单数量
	ConvertQty  int    `yaml:"convertQty"`  // 转换触发与转换数量（精确相等判定）
	PriceSource string `yaml:"priceSource"` // trade 或 book
	BookDepth   int    `yaml:"bookDepth"`   // book 模式每边采样的档数
}

// DefaultADRConfig 返回默认常数。
func DefaultADRConfig() ADRConfig {
	return ADRConfig{
		QuoteOffset: 10,
		Hysteresis:  5,
		QuoteSize:   5,
		ConvertQty:  10,
		PriceSource: PriceSourceTrade,
		BookDepth:   5,
	}
}

// ADR 存托凭证套利：跟踪正股 VALBZ 的公允价，在 VALE 上双边报价，
// 凭证成交后立即在正股上等量对冲，双腿都打满 ±ConvertQty 时发起转换。
type ADR struct {
	cfg    ADRConfig
	est    *market.Estimator
	ledger *order.Ledger
	pos    *inventory.Tracker
	log    *logger.Logger

	// basis 当前在途报价所依据的公允价，重报价时更新。
	basis int
}

// NewADR 创建 ADR 套利策略。
func NewADR(cfg ADRConfig, est *market.Estimator, ledger *order.Ledger, pos *inventory.Tracker, log *logger.Logger) *ADR {
	return &ADR{cfg: cfg, est: est, ledger: ledger, pos: pos, log: log}
}

// OnTrade 处理正股成交：trade 模式下纳入窗口并尝试重报价。
func (a *ADR) OnTrade(t gateway.Trade) error {
	if a.cfg.PriceSource != PriceSourceTrade || t.Symbol != SymUnderlying {
		return nil
	}
	a.est.Observe(SymUnderlying, t.Price)
	return a.requote()
}

// OnBook 处理正股盘口快照：book 模式下折算一个中间价样本并尝试重报价。
func (a *ADR) OnBook(b gateway.Book) error {
	if a.cfg.PriceSource != PriceSourceBook || b.Symbol != SymUnderlying {
		return nil
	}
	sample, ok := a.bookSample(b)
	if !ok {
		return nil
	}
	a.est.Observe(SymUnderlying, sample)
	return a.requote()
}

// bookSample 取每边最优的至多 BookDepth 档价格求整数均值，
// 再对在场的边取整数中值。快照按优先级排列，直接取前几档。
func (a *ADR) bookSample(b gateway.Book) (int, bool) {
	sideAvg := func(levels []gateway.BookLevel) (int, bool) {
		n := len(levels)
		if n == 0 {
			return 0, false
		}
		if n > a.cfg.BookDepth {
			n = a.cfg.BookDepth
		}
		sum := 0
		for _, lvl := range levels[:n] {
			sum += lvl.Price()
		}
		return sum / n, true
	}

	sum, sides := 0, 0
	if avg, ok := sideAvg(b.Buy); ok {
		sum += avg
		sides++
	}
	if avg, ok := sideAvg(b.Sell); ok {
		sum += avg
		sides++
	}
	if sides == 0 {
		return 0, false
	}
	return sum / sides, true
}

// requote 无在途报价、或公允价相对报价基准移动达到迟滞带宽时，
// 撤掉全部在途单并以新基准挂双边报价。带宽内的波动不动报价。
func (a *ADR) requote() error {
	fair, ok := a.est.Fair(SymUnderlying)
	if !ok {
		return nil
	}
	if a.ledger.OpenCount(NameADR) > 0 && abs(fair-a.basis) < a.cfg.Hysteresis {
		return nil
	}
	a.basis = fair
	if err := a.ledger.CancelAll(NameADR); err != nil {
		return err
	}
	a.log.Debug("adr requote", zap.Int("fair", fair))
	if _, err := a.ledger.Place(NameADR, SymReceipt, gateway.DirBuy, fair-a.cfg.QuoteOffset, a.cfg.QuoteSize); err != nil {
		return err
	}
	if _, err := a.ledger.Place(NameADR, SymReceipt, gateway.DirSell, fair+a.cfg.QuoteOffset, a.cfg.QuoteSize); err != nil {
		return err
	}
	return nil
}

// OnFill 处理成交回报。
// 凭证成交：同侧同价补单、记仓位、并无条件在正股上等量对冲；
// 正股成交：只记仓位。随后检查精确相等的转换触发条件。
// 补单与对冲都沿用报价基准价，不按最新公允价重算。
func (a *ADR) OnFill(f gateway.Fill) error {
	if conv, ok := a.ledger.PendingConversion(f.OrderID); ok {
		if conv.Strategy != NameADR {
			return nil
		}
		// 转换成交：按登记的方向同时调整两腿仓位。
		if conv.Dir == gateway.DirBuy {
			a.pos.Add(SymReceipt, f.Size)
			a.pos.Add(SymUnderlying, -f.Size)
		} else {
			a.pos.Add(SymReceipt, -f.Size)
			a.pos.Add(SymUnderlying, f.Size)
		}
		return nil
	}
	if !a.ledger.IsOpen(NameADR, f.OrderID) {
		return nil
	}

	switch f.Symbol {
	case SymReceipt:
		switch f.Dir {
		case gateway.DirBuy:
			if _, err := a.ledger.Place(NameADR, SymReceipt, gateway.DirBuy, a.basis-a.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
			a.pos.Add(SymReceipt, f.Size)
			if _, err := a.ledger.Place(NameADR, SymUnderlying, gateway.DirSell, a.basis-a.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
		case gateway.DirSell:
			if _, err := a.ledger.Place(NameADR, SymReceipt, gateway.DirSell, a.basis+a.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
			a.pos.Add(SymReceipt, -f.Size)
			if _, err := a.ledger.Place(NameADR, SymUnderlying, gateway.DirBuy, a.basis+a.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
		}
	case SymUnderlying:
		// 对冲腿成交只动仓位，不触发新报价。
		if f.Dir == gateway.DirBuy {
			a.pos.Add(SymUnderlying, f.Size)
		} else {
			a.pos.Add(SymUnderlying, -f.Size)
		}
	}

	return a.maybeConvert()
}

// maybeConvert 两腿仓位精确落在 ±ConvertQty / ∓ConvertQty 时发起转换。
// 是相等判定而非阈值判定：统一的 5/10 挂单量保证只会精确踩上。
func (a *ADR) maybeConvert() error {
	receipt := a.pos.Qty(SymReceipt)
	underlying := a.pos.Qty(SymUnderlying)
	switch {
	case receipt == a.cfg.ConvertQty && underlying == -a.cfg.ConvertQty:
		_, err := a.ledger.Convert(NameADR, SymReceipt, gateway.DirSell, a.basis, a.cfg.ConvertQty)
		return err
	case receipt == -a.cfg.ConvertQty && underlying == a.cfg.ConvertQty:
		_, err := a.ledger.Convert(NameADR, SymReceipt, gateway.DirBuy, a.basis, a.cfg.ConvertQty)
		return err
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
