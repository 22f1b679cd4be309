package order

import (
	"go.uber.org/zap"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/metrics"
)

// Sender 提供发送指令的抽象；与 gateway.Client 对接。
type Sender interface {
	Send(a gateway.Action) error
}

// Record 在途订单的登记信息。
type Record struct {
	Strategy string
	Symbol   string
	Dir      string
	Price    int
	Size     int
}

// Conversion 未决的转换请求，按方向决定成交后的仓位符号。
type Conversion struct {
	Strategy string
	Symbol   string
	Dir      string
}

// Ledger 分配全局单调递增的订单号，按策略维护在途订单集合。
// 订单号连接生命周期内不复用；集合里的 id 只在收到 out 回报时删除。
type Ledger struct {
	sender Sender
	log    *logger.Logger
	mets   *metrics.Set

	nextID   int64
	open     map[string]map[int64]Record
	converts map[int64]Conversion
}

// NewLedger 创建空账本。mets 可为 nil。
func NewLedger(sender Sender, log *logger.Logger, mets *metrics.Set) *Ledger {
	return &Ledger{
		sender:   sender,
		log:      log,
		mets:     mets,
		open:     make(map[string]map[int64]Record),
		converts: make(map[int64]Conversion),
	}
}

// Place 分配订单号、发送 add 并登记到策略的在途集合。
// 发送失败时不登记，订单号照常消耗（不复用）。
func (l *Ledger) Place(strategy, symbol, dir string, price, size int) (int64, error) {
	id := l.nextID
	l.nextID++
	if err := l.sender.Send(gateway.AddAction(id, symbol, dir, price, size)); err != nil {
		return 0, err
	}
	set, ok := l.open[strategy]
	if !ok {
		set = make(map[int64]Record)
		l.open[strategy] = set
	}
	set[id] = Record{Strategy: strategy, Symbol: symbol, Dir: dir, Price: price, Size: size}
	l.log.Debug("order placed",
		zap.String("strategy", strategy),
		zap.Int64("order_id", id),
		zap.String("symbol", symbol),
		zap.String("dir", dir),
		zap.Int("price", price),
		zap.Int("size", size))
	return id, nil
}

// CancelAll 对策略在途集合中的每个 id 发送 cancel。
// 集合不在此清空：id 只能由 out 回报删除。撤单与成交可能在途中交错，
// 语义上是 at-least-once 撤单。
func (l *Ledger) CancelAll(strategy string) error {
	for id := range l.open[strategy] {
		if err := l.sender.Send(gateway.CancelAction(id)); err != nil {
			return err
		}
	}
	return nil
}

// Convert 分配订单号、发送 convert 并登记为未决转换。
func (l *Ledger) Convert(strategy, symbol, dir string, price, size int) (int64, error) {
	id := l.nextID
	l.nextID++
	if err := l.sender.Send(gateway.ConvertAction(id, symbol, dir, price, size)); err != nil {
		return 0, err
	}
	l.converts[id] = Conversion{Strategy: strategy, Symbol: symbol, Dir: dir}
	if l.mets != nil {
		l.mets.Conversions.WithLabelValues(strategy).Inc()
	}
	l.log.Info("conversion requested",
		zap.String("strategy", strategy),
		zap.Int64("order_id", id),
		zap.String("dir", dir),
		zap.Int("size", size))
	return id, nil
}

// OnOut 将 id 从任一策略的在途集合中删除；找不到则为幂等空操作。
func (l *Ledger) OnOut(id int64) {
	for strategy, set := range l.open {
		if _, ok := set[id]; ok {
			delete(set, id)
			l.log.Debug("order out",
				zap.String("strategy", strategy),
				zap.Int64("order_id", id))
			return
		}
	}
}

// IsOpen 判断 id 是否在策略的在途集合中。
func (l *Ledger) IsOpen(strategy string, id int64) bool {
	_, ok := l.open[strategy][id]
	return ok
}

// OpenCount 返回策略在途订单数。
func (l *Ledger) OpenCount(strategy string) int {
	return len(l.open[strategy])
}

// Lookup 返回 id 的登记信息。
func (l *Ledger) Lookup(id int64) (Record, bool) {
	for _, set := range l.open {
		if rec, ok := set[id]; ok {
			return rec, true
		}
	}
	return Record{}, false
}

// PendingConversion 返回 id 对应的未决转换。
// 条目在转换成交后保留，部分成交逐笔调整仓位。
func (l *Ledger) PendingConversion(id int64) (Conversion, bool) {
	conv, ok := l.converts[id]
	return conv, ok
}
