package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 订单方向，与交易所线协议一致。
const (
	DirBuy  = "BUY"
	DirSell = "SELL"
)

// ErrMalformed 表示一行消息无法解码或缺少必要字段。
// 调用方应跳过该行继续读取，不应视为致命错误。
var ErrMalformed = errors.New("malformed exchange message")

// Event 是交易所入站消息的封闭集合：Hello、Trade、Book、Fill、Out。
type Event interface {
	eventType() string
}

// Hello 握手确认，携带市场符号列表。
type Hello struct {
	Symbols []string
}

// Trade 一笔已成交的市场交易。
type Trade struct {
	Symbol string
	Price  int
	Size   int
}

// BookLevel 盘口一档：[价格, 数量]。
type BookLevel [2]int

// Price 返回该档价格。
func (l BookLevel) Price() int { return l[0] }

// Size 返回该档数量。
func (l BookLevel) Size() int { return l[1] }

// Book 盘口快照。
type Book struct {
	Symbol string
	Buy    []BookLevel
	Sell   []BookLevel
}

// Fill 本客户端的某个订单（部分）成交。
type Fill struct {
	OrderID int64
	Symbol  string
	Dir     string
	Price   int
	Size    int
}

// Out 本客户端的某个订单已不再存活（成交完、撤单或被拒）。
type Out struct {
	OrderID int64
}

func (Hello) eventType() string { return "hello" }
func (Trade) eventType() string { return "trade" }
func (Book) eventType() string  { return "book" }
func (Fill) eventType() string  { return "fill" }
func (Out) eventType() string   { return "out" }

// wireEvent 对应线协议的原始 JSON 结构，仅解码期使用。
type wireEvent struct {
	Type    string      `json:"type"`
	Symbol  string      `json:"symbol"`
	Price   int         `json:"price"`
	Size    int         `json:"size"`
	OrderID *int64      `json:"order_id"`
	Dir     string      `json:"dir"`
	Buy     []BookLevel `json:"buy"`
	Sell    []BookLevel `json:"sell"`
	Symbols []string    `json:"symbols"`
}

// DecodeEvent 将一行 JSON 解码为封闭事件类型。
// 未知类型或缺字段返回包装了 ErrMalformed 的错误。
func DecodeEvent(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	switch w.Type {
	case "hello":
		return Hello{Symbols: w.Symbols}, nil
	case "trade":
		if w.Symbol == "" {
			return nil, fmt.Errorf("%w: trade without symbol", ErrMalformed)
		}
		return Trade{Symbol: w.Symbol, Price: w.Price, Size: w.Size}, nil
	case "book":
		if w.Symbol == "" {
			return nil, fmt.Errorf("%w: book without symbol", ErrMalformed)
		}
		return Book{Symbol: w.Symbol, Buy: w.Buy, Sell: w.Sell}, nil
	case "fill":
		if w.OrderID == nil {
			return nil, fmt.Errorf("%w: fill without order_id", ErrMalformed)
		}
		return Fill{OrderID: *w.OrderID, Symbol: w.Symbol, Dir: w.Dir, Price: w.Price, Size: w.Size}, nil
	case "out":
		if w.OrderID == nil {
			return nil, fmt.Errorf("%w: out without order_id", ErrMalformed)
		}
		return Out{OrderID: *w.OrderID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, w.Type)
	}
}

// Action 出站指令：add、cancel、convert。
type Action struct {
	Type    string `json:"type"`
	OrderID int64  `json:"order_id"`
	Symbol  string `json:"symbol,omitempty"`
	Dir     string `json:"dir,omitempty"`
	Price   int    `json:"price,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// AddAction 构造挂单指令。
func AddAction(orderID int64, symbol, dir string, price, size int) Action {
	return Action{Type: "add", OrderID: orderID, Symbol: symbol, Dir: dir, Price: price, Size: size}
}

// CancelAction 构造撤单指令。
func CancelAction(orderID int64) Action {
	return Action{Type: "cancel", OrderID: orderID}
}

// ConvertAction 构造转换指令（ADR↔正股、ETF↔成分篮子）。
func ConvertAction(orderID int64, symbol, dir string, price, size int) Action {
	return Action{Type: "convert", OrderID: orderID, Symbol: symbol, Dir: dir, Price: price, Size: size}
}

// EncodeAction 将指令编码为一行 JSON（不含换行符）。
func EncodeAction(a Action) ([]byte, error) {
	return json.Marshal(a)
}

type helloMsg struct {
	Type string `json:"type"`
	Team string `json:"team"`
}
