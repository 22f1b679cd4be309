package strategy

import (
	"go.uber.org/zap"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/order"
)

// ETFConfig ETF 套利参数。
type ETFConfig struct {
	Constant    int `yaml:"constant"`    // 篮子里的债券等价常数
	Scale       int `yaml:"scale"`       // 创建篮子份数
	QuoteOffset int `yaml:"quoteOffset"` // ETF 报价离合成公允价的距离
	Hysteresis  int `yaml:"hysteresis"`  // 重报价所需的最小合成价位移
	QuoteSize   int `yaml:"quoteSize"`   // 单边挂单数量
	HedgeOffset int `yaml:"hedgeOffset"` // 成分对冲价格相对其公允价的偏移
	ConvertQty  int `yaml:"convertQty"`  // 转换数量，亦是 ETF 腿的触发阈值
}

// DefaultETFConfig 返回默认常数。
func DefaultETFConfig() ETFConfig {
	return ETFConfig{
		Constant:    3000,
		Scale:       10,
		QuoteOffset: 25,
		Hysteresis:  10,
		QuoteSize:   50,
		HedgeOffset: 30,
		ConvertQty:  30,
	}
}

// DefaultETFLegs 创建篮子的成分构成：10 份 XLF = 3 BOND + 2 GS + 3 MS + 2 WFC。
func DefaultETFLegs() []market.BasketLeg {
	return []market.BasketLeg{
		{Symbol: SymGS, Weight: 2},
		{Symbol: SymMS, Weight: 3},
		{Symbol: SymWFC, Weight: 2},
	}
}

// ETF 篮子套利：由三个成分的公允价合成 XLF 公允价，在 XLF 上双边报价，
// XLF 成交后按篮子比例在成分上对冲。四个计数器同向越过各自阈值时发起转换。
//
// 成分计数器记的是对冲腿的累计：成分 SELL 成交加、BUY 成交减，
// 与 ETF 腿同号推进，保证阈值能同向共同越过。
type ETF struct {
	cfg    ETFConfig
	legs   []market.BasketLeg
	est    *market.Estimator
	ledger *order.Ledger
	pos    *inventory.Tracker
	log    *logger.Logger

	// basis 当前在途报价所依据的合成公允价。
	basis int
}

// NewETF 创建 ETF 套利策略。
func NewETF(cfg ETFConfig, legs []market.BasketLeg, est *market.Estimator, ledger *order.Ledger, pos *inventory.Tracker, log *logger.Logger) *ETF {
	return &ETF{cfg: cfg, legs: legs, est: est, ledger: ledger, pos: pos, log: log}
}

// OnTrade 处理成分成交：纳入该成分窗口，三个成分都有样本后合成公允价并尝试重报价。
// 合成价就绪前一律不报价，不用占位价。
func (e *ETF) OnTrade(t gateway.Trade) error {
	if !e.isLeg(t.Symbol) {
		return nil
	}
	e.est.Observe(t.Symbol, t.Price)
	composite, ok := e.est.Basket(e.cfg.Constant, e.cfg.Scale, e.legs)
	if !ok {
		return nil
	}
	if e.ledger.OpenCount(NameETF) > 0 && abs(composite-e.basis) < e.cfg.Hysteresis {
		return nil
	}
	e.basis = composite
	if err := e.ledger.CancelAll(NameETF); err != nil {
		return err
	}
	e.log.Debug("etf requote", zap.Int("composite", composite))
	if _, err := e.ledger.Place(NameETF, SymETF, gateway.DirBuy, composite-e.cfg.QuoteOffset, e.cfg.QuoteSize); err != nil {
		return err
	}
	if _, err := e.ledger.Place(NameETF, SymETF, gateway.DirSell, composite+e.cfg.QuoteOffset, e.cfg.QuoteSize); err != nil {
		return err
	}
	return nil
}

// OnFill 处理成交回报。
// XLF 成交：同侧补单、记仓位、并按篮子比例在全部成分上无条件对冲；
// 成分成交：按对冲符号记该成分计数。随后检查阈值式转换触发。
func (e *ETF) OnFill(f gateway.Fill) error {
	if conv, ok := e.ledger.PendingConversion(f.OrderID); ok {
		if conv.Strategy != NameETF {
			return nil
		}
		e.applyConversionFill(conv, f.Size)
		return nil
	}
	if !e.ledger.IsOpen(NameETF, f.OrderID) {
		return nil
	}

	switch {
	case f.Symbol == SymETF:
		switch f.Dir {
		case gateway.DirBuy:
			if _, err := e.ledger.Place(NameETF, SymETF, gateway.DirBuy, e.basis-e.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
			e.pos.Add(SymETF, f.Size)
			if err := e.hedge(gateway.DirSell); err != nil {
				return err
			}
		case gateway.DirSell:
			if _, err := e.ledger.Place(NameETF, SymETF, gateway.DirSell, e.basis+e.cfg.QuoteOffset, f.Size); err != nil {
				return err
			}
			e.pos.Add(SymETF, -f.Size)
			if err := e.hedge(gateway.DirBuy); err != nil {
				return err
			}
		}
	case e.isLeg(f.Symbol):
		// 对冲腿计数与 ETF 腿同号：SELL 成交加、BUY 成交减。
		if f.Dir == gateway.DirSell {
			e.pos.Add(f.Symbol, f.Size)
		} else {
			e.pos.Add(f.Symbol, -f.Size)
		}
	}

	return e.maybeConvert()
}

// hedge 在三个成分上按权重数量挂对冲单。
// 对冲价取成分当前公允价向不利方向偏移 HedgeOffset：
// 卖出对冲挂 fair-offset，买入对冲挂 fair+offset。
func (e *ETF) hedge(dir string) error {
	for _, leg := range e.legs {
		fair, ok := e.est.Fair(leg.Symbol)
		if !ok {
			// 合成价已就绪则每个成分必有样本，此处只是防御性跳过。
			continue
		}
		price := fair - e.cfg.HedgeOffset
		if dir == gateway.DirBuy {
			price = fair + e.cfg.HedgeOffset
		}
		if _, err := e.ledger.Place(NameETF, leg.Symbol, dir, price, leg.Weight); err != nil {
			return err
		}
	}
	return nil
}

// maybeConvert 四个计数器同向越过阈值时发起一笔反向转换。
// ETF 腿阈值为 ConvertQty，成分阈值为 weight*ConvertQty/scale。
// 与 ADR 不同，这里是 ≥/≤ 阈值判定而非精确相等。
func (e *ETF) maybeConvert() error {
	long, short := e.pos.Qty(SymETF) >= e.cfg.ConvertQty, e.pos.Qty(SymETF) <= -e.cfg.ConvertQty
	for _, leg := range e.legs {
		threshold := e.legThreshold(leg)
		long = long && e.pos.Qty(leg.Symbol) >= threshold
		short = short && e.pos.Qty(leg.Symbol) <= -threshold
	}
	switch {
	case long:
		_, err := e.ledger.Convert(NameETF, SymETF, gateway.DirSell, e.basis+e.cfg.QuoteOffset, e.cfg.ConvertQty)
		return err
	case short:
		_, err := e.ledger.Convert(NameETF, SymETF, gateway.DirBuy, e.basis-e.cfg.QuoteOffset, e.cfg.ConvertQty)
		return err
	}
	return nil
}

// applyConversionFill 转换成交后按篮子比例回冲四个计数器。
func (e *ETF) applyConversionFill(conv order.Conversion, size int) {
	sign := -1
	if conv.Dir == gateway.DirBuy {
		sign = 1
	}
	e.pos.Add(SymETF, sign*size)
	for _, leg := range e.legs {
		e.pos.Add(leg.Symbol, sign*leg.Weight*size/e.cfg.Scale)
	}
}

// Composite 返回当前合成公允价；任一成分未就绪时 ok 为 false。
func (e *ETF) Composite() (int, bool) {
	return e.est.Basket(e.cfg.Constant, e.cfg.Scale, e.legs)
}

func (e *ETF) legThreshold(leg market.BasketLeg) int {
	return leg.Weight * e.cfg.ConvertQty / e.cfg.Scale
}

func (e *ETF) isLeg(symbol string) bool {
	for _, leg := range e.legs {
		if leg.Symbol == symbol {
			return true
		}
	}
	return false
}
