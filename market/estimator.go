package market

// Window 固定容量的最近成交价序列，满了挤掉最旧的一个。
// 价格为交易所整数报价，均值用截断整除，与盘面报价保持位级一致。
type Window struct {
	capacity int
	prices   []int
}

// NewWindow 创建容量为 capacity 的滚动窗口。
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 10
	}
	return &Window{
		capacity: capacity,
		prices:   make([]int, 0, capacity),
	}
}

// Push 追加一个样本，超容量时逐出最旧样本。
func (w *Window) Push(price int) {
	if len(w.prices) == w.capacity {
		copy(w.prices, w.prices[1:])
		w.prices = w.prices[:w.capacity-1]
	}
	w.prices = append(w.prices, price)
}

// Len 当前样本数。
func (w *Window) Len() int { return len(w.prices) }

// Avg 返回整数均值；窗口为空时 ok 为 false。
func (w *Window) Avg() (avg int, ok bool) {
	if len(w.prices) == 0 {
		return 0, false
	}
	sum := 0
	for _, p := range w.prices {
		sum += p
	}
	return sum / len(w.prices), true
}

// BasketLeg 篮子成分：符号和创建篮子里的权重份数。
type BasketLeg struct {
	Symbol string
	Weight int
}

// Estimator 按符号维护滚动窗口并给出公允价估计。
type Estimator struct {
	capacity int
	windows  map[string]*Window
}

// NewEstimator 创建估计器，所有符号共用同一窗口容量。
func NewEstimator(windowCapacity int) *Estimator {
	return &Estimator{
		capacity: windowCapacity,
		windows:  make(map[string]*Window),
	}
}

// Observe 记录一个成交价样本。
func (e *Estimator) Observe(symbol string, price int) {
	w, ok := e.windows[symbol]
	if !ok {
		w = NewWindow(e.capacity)
		e.windows[symbol] = w
	}
	w.Push(price)
}

// Fair 返回符号当前公允价；尚无样本时 ok 为 false。
// 调用方必须先检查 ok 再报价，不得用占位价。
func (e *Estimator) Fair(symbol string) (fair int, ok bool) {
	w, found := e.windows[symbol]
	if !found {
		return 0, false
	}
	return w.Avg()
}

// Basket 计算篮子合成公允价：(constant + Σ weight*fair) / scale，截断整除。
// 任一成分尚无样本时 ok 为 false，合成价不可用。
func (e *Estimator) Basket(constant, scale int, legs []BasketLeg) (fair int, ok bool) {
	sum := constant
	for _, leg := range legs {
		legFair, ready := e.Fair(leg.Symbol)
		if !ready {
			return 0, false
		}
		sum += leg.Weight * legFair
	}
	if scale <= 0 {
		return 0, false
	}
	return sum / scale, true
}
