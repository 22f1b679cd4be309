package strategy

import (
	"testing"

	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/inventory"
	"etc-arb-bot/market"
	"etc-arb-bot/order"
)

// recorder 记录发出的指令，策略测试共用。
type recorder struct {
	actions []gateway.Action
}

func (r *recorder) Send(a gateway.Action) error {
	r.actions = append(r.actions, a)
	return nil
}

func (r *recorder) reset() { r.actions = nil }

func (r *recorder) ofType(actionType string) []gateway.Action {
	var out []gateway.Action
	for _, a := range r.actions {
		if a.Type == actionType {
			out = append(out, a)
		}
	}
	return out
}

func newBond(t *testing.T) (*Bond, *order.Ledger, *recorder) {
	t.Helper()
	rec := &recorder{}
	ledger := order.NewLedger(rec, logger.NewNop(), nil)
	return NewBond(DefaultBondConfig(), ledger, logger.NewNop()), ledger, rec
}

func newADRFixture(t *testing.T, cfg ADRConfig) (*ADR, *order.Ledger, *inventory.Tracker, *recorder) {
	t.Helper()
	rec := &recorder{}
	ledger := order.NewLedger(rec, logger.NewNop(), nil)
	pos := inventory.NewTracker()
	est := market.NewEstimator(10)
	return NewADR(cfg, est, ledger, pos, logger.NewNop()), ledger, pos, rec
}

func newETFFixture(t *testing.T) (*ETF, *order.Ledger, *inventory.Tracker, *recorder) {
	t.Helper()
	rec := &recorder{}
	ledger := order.NewLedger(rec, logger.NewNop(), nil)
	pos := inventory.NewTracker()
	est := market.NewEstimator(10)
	return NewETF(DefaultETFConfig(), DefaultETFLegs(), est, ledger, pos, logger.NewNop()), ledger, pos, rec
}

func TestBondStartQuotesBothSides(t *testing.T) {
	b, ledger, rec := newBond(t)
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	adds := rec.ofType("add")
	if len(adds) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(adds))
	}
	if adds[0].Symbol != SymBond || adds[0].Dir != gateway.DirBuy || adds[0].Price != 999 || adds[0].Size != 50 {
		t.Fatalf("unexpected buy quote %+v", adds[0])
	}
	if adds[1].Dir != gateway.DirSell || adds[1].Price != 1001 || adds[1].Size != 50 {
		t.Fatalf("unexpected sell quote %+v", adds[1])
	}
	if ledger.OpenCount(NameBond) != 2 {
		t.Fatalf("expected 2 open bond orders, got %d", ledger.OpenCount(NameBond))
	}
}

func TestBondFillReplenishesSameSide(t *testing.T) {
	b, _, rec := newBond(t)
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	buyID := rec.actions[0].OrderID
	rec.reset()

	if err := b.OnFill(gateway.Fill{OrderID: buyID, Symbol: SymBond, Dir: gateway.DirBuy, Size: 12}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	adds := rec.ofType("add")
	if len(adds) != 1 {
		t.Fatalf("expected 1 replenishment, got %d", len(adds))
	}
	if adds[0].Dir != gateway.DirBuy || adds[0].Price != 999 || adds[0].Size != 12 {
		t.Fatalf("replenishment must mirror the fill: %+v", adds[0])
	}
}

func TestBondOutDoesNotReplenish(t *testing.T) {
	b, ledger, rec := newBond(t)
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	sellID := rec.actions[1].OrderID
	ledger.OnOut(sellID)
	rec.reset()

	// 订单已出场：后到的成交回报不可再触发补单。
	if err := b.OnFill(gateway.Fill{OrderID: sellID, Symbol: SymBond, Dir: gateway.DirSell, Size: 5}); err != nil {
		t.Fatal(err)
	}
	if len(rec.actions) != 0 {
		t.Fatalf("no actions expected after out, got %+v", rec.actions)
	}
}

func TestBondIgnoresForeignFills(t *testing.T) {
	b, _, rec := newBond(t)
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	if err := b.OnFill(gateway.Fill{OrderID: 777, Symbol: SymBond, Dir: gateway.DirBuy, Size: 5}); err != nil {
		t.Fatal(err)
	}
	if len(rec.actions) != 0 {
		t.Fatalf("unknown order id must be a no-op, got %+v", rec.actions)
	}
}
