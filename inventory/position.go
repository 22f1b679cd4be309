package inventory

// Tracker 维护一个产品组的净持仓计数。
// 计数只由成交回报按 符号+方向 调整，从不由订单簿反推；
// 进程生命周期内不会隐式清零，只能被后续成交/转换推回零。
type Tracker struct {
	qty map[string]int
}

// NewTracker 创建空仓位表。
func NewTracker() *Tracker {
	return &Tracker{qty: make(map[string]int)}
}

// Add 按 delta 调整符号净持仓。
func (t *Tracker) Add(symbol string, delta int) {
	t.qty[symbol] += delta
}

// Qty 返回符号当前净持仓。
func (t *Tracker) Qty(symbol string) int {
	return t.qty[symbol]
}

// Snapshot 返回仓位表副本，供指标导出。
func (t *Tracker) Snapshot() map[string]int {
	out := make(map[string]int, len(t.qty))
	for sym, q := range t.qty {
		out[sym] = q
	}
	return out
}
