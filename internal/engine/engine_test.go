package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/order"
	"etc-arb-bot/strategy"
)

// step 脚本中的一步：事件或错误，二者取一。
type step struct {
	ev  gateway.Event
	err error
}

// scriptedSource 按脚本逐个返回事件，脚本耗尽后返回 context.Canceled，
// 让 Run 正常收尾。
type scriptedSource struct {
	steps []step
}

func (s *scriptedSource) ReadEvent() (gateway.Event, error) {
	if len(s.steps) == 0 {
		return nil, context.Canceled
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	return next.ev, next.err
}

type recorder struct {
	actions []gateway.Action
}

func (r *recorder) Send(a gateway.Action) error {
	r.actions = append(r.actions, a)
	return nil
}

func (r *recorder) ofType(actionType string) []gateway.Action {
	var out []gateway.Action
	for _, a := range r.actions {
		if a.Type == actionType {
			out = append(out, a)
		}
	}
	return out
}

type fixture struct {
	eng     *Engine
	rec     *recorder
	ledger  *order.Ledger
	adrBook *inventory.Tracker
	etfBook *inventory.Tracker
}

func newFixture(t *testing.T, steps []step) *fixture {
	t.Helper()
	rec := &recorder{}
	log := logger.NewNop()
	ledger := order.NewLedger(rec, log, nil)
	est := market.NewEstimator(10)
	adrBook := inventory.NewTracker()
	etfBook := inventory.NewTracker()

	eng, err := New(Components{
		Source:    &scriptedSource{steps: steps},
		Ledger:    ledger,
		Estimator: est,
		Bond:      strategy.NewBond(strategy.DefaultBondConfig(), ledger, log),
		ADR:       strategy.NewADR(strategy.DefaultADRConfig(), est, ledger, adrBook, log),
		ETF:       strategy.NewETF(strategy.DefaultETFConfig(), strategy.DefaultETFLegs(), est, ledger, etfBook, log),
		ADRBook:   adrBook,
		ETFBook:   etfBook,
		Logger:    log,
	})
	require.NoError(t, err)
	return &fixture{eng: eng, rec: rec, ledger: ledger, adrBook: adrBook, etfBook: etfBook}
}

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(Components{})
	require.Error(t, err)
}

func TestRunPlacesInitialBondQuotes(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.eng.Run(context.Background()))

	adds := f.rec.ofType("add")
	require.Len(t, adds, 2)
	assert.Equal(t, strategy.SymBond, adds[0].Symbol)
	assert.Equal(t, 999, adds[0].Price)
	assert.Equal(t, 1001, adds[1].Price)
}

func TestRunRoutesTradesToStrategies(t *testing.T) {
	f := newFixture(t, []step{
		{ev: gateway.Trade{Symbol: strategy.SymUnderlying, Price: 500, Size: 1}},
		{ev: gateway.Trade{Symbol: strategy.SymGS, Price: 100, Size: 1}},
		{ev: gateway.Trade{Symbol: strategy.SymMS, Price: 50, Size: 1}},
		{ev: gateway.Trade{Symbol: strategy.SymWFC, Price: 70, Size: 1}},
	})
	require.NoError(t, f.eng.Run(context.Background()))

	adds := f.rec.ofType("add")
	// 债券双边 + ADR 双边 + ETF 双边。
	require.Len(t, adds, 6)
	assert.Equal(t, strategy.SymReceipt, adds[2].Symbol)
	assert.Equal(t, 490, adds[2].Price)
	assert.Equal(t, strategy.SymETF, adds[4].Symbol)
	assert.Equal(t, 324, adds[4].Price)
}

func TestRunSkipsMalformedLines(t *testing.T) {
	f := newFixture(t, []step{
		{err: fmt.Errorf("%w: unknown type", gateway.ErrMalformed)},
		{ev: gateway.Trade{Symbol: strategy.SymUnderlying, Price: 500, Size: 1}},
	})
	require.NoError(t, f.eng.Run(context.Background()))

	// 坏行被跳过，后续事件照常驱动 ADR 报价。
	adds := f.rec.ofType("add")
	require.Len(t, adds, 4)
}

func TestRunStopsOnFatalStreamError(t *testing.T) {
	f := newFixture(t, []step{
		{err: fmt.Errorf("exchange connection lost after retry")},
	})
	err := f.eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange stream")
}

func TestRunFillAndOutLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.eng.Run(context.Background()))
	buyID := f.rec.actions[0].OrderID

	// 债券买单部分成交：同侧同价补单。
	f.eng.Handle(gateway.Fill{OrderID: buyID, Symbol: strategy.SymBond, Dir: gateway.DirBuy, Price: 999, Size: 20})
	adds := f.rec.ofType("add")
	require.Len(t, adds, 3)
	assert.Equal(t, 20, adds[2].Size)

	// out 之后订单离场，再来的成交不再补单。
	f.eng.Handle(gateway.Out{OrderID: buyID})
	assert.False(t, f.ledger.IsOpen(strategy.NameBond, buyID))
	f.eng.Handle(gateway.Fill{OrderID: buyID, Symbol: strategy.SymBond, Dir: gateway.DirBuy, Price: 999, Size: 5})
	assert.Len(t, f.rec.ofType("add"), 3)
}

func TestRunAppliesBookToADR(t *testing.T) {
	steps := []step{
		{ev: gateway.Book{
			Symbol: strategy.SymUnderlying,
			Buy:    []gateway.BookLevel{{500, 10}, {498, 5}},
			Sell:   []gateway.BookLevel{{504, 10}},
		}},
	}
	cfg := strategy.DefaultADRConfig()
	cfg.PriceSource = strategy.PriceSourceBook
	rec := &recorder{}
	log := logger.NewNop()
	ledger := order.NewLedger(rec, log, nil)
	est := market.NewEstimator(10)
	adrBook := inventory.NewTracker()
	etfBook := inventory.NewTracker()
	eng, err := New(Components{
		Source:    &scriptedSource{steps: steps},
		Ledger:    ledger,
		Estimator: est,
		Bond:      strategy.NewBond(strategy.DefaultBondConfig(), ledger, log),
		ADR:       strategy.NewADR(cfg, est, ledger, adrBook, log),
		ETF:       strategy.NewETF(strategy.DefaultETFConfig(), strategy.DefaultETFLegs(), est, ledger, etfBook, log),
		ADRBook:   adrBook,
		ETFBook:   etfBook,
		Logger:    log,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background()))

	adds := rec.ofType("add")
	// 债券双边 + book 驱动的 ADR 双边：买一均 499、卖一均 504，中值 501。
	require.Len(t, adds, 4)
	assert.Equal(t, strategy.SymReceipt, adds[2].Symbol)
	assert.Equal(t, 491, adds[2].Price)
	assert.Equal(t, 511, adds[3].Price)
}
