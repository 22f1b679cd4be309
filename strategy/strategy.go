// Package strategy 实现三条决策规则：债券做市、ADR 套利、ETF 套利。
// 策略是纯决策逻辑：输入一个事件和当前的估计器/账本/仓位状态，
// 产出零或多条指令并同步更新账本与仓位，没有独立的对账流程。
package strategy

// 固定的产品集合。BOND 公允价为已知常数，其余由成交/盘口历史推导。
const (
	SymBond       = "BOND"
	SymUnderlying = "VALBZ"
	SymReceipt    = "VALE"
	SymETF        = "XLF"
	SymGS         = "GS"
	SymMS         = "MS"
	SymWFC        = "WFC"
)

// 策略名，用作账本在途集合的键。
const (
	NameBond = "bond"
	NameADR  = "adr"
	NameETF  = "etf"
)

// ADR 价格来源。
const (
	PriceSourceTrade = "trade"
	PriceSourceBook  = "book"
)
