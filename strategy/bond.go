package strategy

import (
	"etc-arb-bot/gateway"
	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/order"
)

// BondConfig 债券做市参数。
type BondConfig struct {
	Fair      int `yaml:"fair"`      // 已知公允价
	Threshold int `yaml:"threshold"` // 买卖报价离公允价的距离
	Size      int `yaml:"size"`      // 双边挂单数量
}

// DefaultBondConfig 返回默认常数。
func DefaultBondConfig() BondConfig {
	return BondConfig{Fair: 1000, Threshold: 1, Size: 50}
}

// Bond 静态双边报价：启动时在公允价两侧各挂一单，成交多少补多少。
// 没有库存上限也不随行情调价。
type Bond struct {
	cfg    BondConfig
	ledger *order.Ledger
	log    *logger.Logger
}

// NewBond 创建债券做市策略。
func NewBond(cfg BondConfig, ledger *order.Ledger, log *logger.Logger) *Bond {
	return &Bond{cfg: cfg, ledger: ledger, log: log}
}

// Start 挂出初始双边报价。
func (b *Bond) Start() error {
	if _, err := b.ledger.Place(NameBond, SymBond, gateway.DirBuy, b.cfg.Fair-b.cfg.Threshold, b.cfg.Size); err != nil {
		return err
	}
	if _, err := b.ledger.Place(NameBond, SymBond, gateway.DirSell, b.cfg.Fair+b.cfg.Threshold, b.cfg.Size); err != nil {
		return err
	}
	return nil
}

// OnFill 同侧同价补单：按账本登记的原始报价参数重挂，数量等于本次成交量。
// out 不补单：订单可能被外部撤掉而非成交，此时不再出新报价。
func (b *Bond) OnFill(f gateway.Fill) error {
	rec, ok := b.ledger.Lookup(f.OrderID)
	if !ok || rec.Strategy != NameBond {
		return nil
	}
	_, err := b.ledger.Place(NameBond, rec.Symbol, rec.Dir, rec.Price, f.Size)
	return err
}
