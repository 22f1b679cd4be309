package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/metrics"
)

// Config 连接参数。测试模式下拨号主机名会追加队名。
type Config struct {
	Host        string
	Port        int
	Team        string
	TestMode    bool
	DialTimeout time.Duration
	// RetryBackoff 连接断开后单次重连前的固定等待。
	RetryBackoff time.Duration
	// ActionRate/ActionBurst 出站指令限速，防止被交易所踢出。
	ActionRate  float64
	ActionBurst int
	// DryRun only logs outbound actions without writing to the socket.
	DryRun bool
}

// Client 维护到交易所的 TCP 连接：行分隔 JSON 读写、握手、单次重连。
// 非并发安全，所有调用须来自引擎事件线程。
type Client struct {
	cfg     Config
	log     *logger.Logger
	mets    *metrics.Set
	limiter *rate.Limiter

	ctx     context.Context
	conn    net.Conn
	scanner *bufio.Scanner

	// retried 标记本轮重连预算是否已用掉；读成功后清零。
	retried bool
}

// Dial 建立连接并完成 hello 握手。
func Dial(ctx context.Context, cfg Config, log *logger.Logger, mets *metrics.Set) (*Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 3 * time.Second
	}
	if cfg.ActionRate <= 0 {
		cfg.ActionRate = 10
	}
	if cfg.ActionBurst <= 0 {
		cfg.ActionBurst = 20
	}
	c := &Client{
		cfg:     cfg,
		log:     log,
		mets:    mets,
		limiter: rate.NewLimiter(rate.Limit(cfg.ActionRate), cfg.ActionBurst),
		ctx:     ctx,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Addr 返回实际拨号地址。
func (c *Client) Addr() string {
	host := c.cfg.Host
	if c.cfg.TestMode {
		host += c.cfg.Team
	}
	return fmt.Sprintf("%s:%d", host, c.cfg.Port)
}

func (c *Client) connect() error {
	addr := c.Addr()
	conn, err := net.DialTimeout("tcp", addr, c.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	c.conn = conn
	c.scanner = bufio.NewScanner(conn)
	c.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// ctx 取消时关闭连接，解除阻塞中的 Scan。
	go func(conn net.Conn) {
		<-c.ctx.Done()
		_ = conn.Close()
	}(conn)

	if err := c.handshake(); err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}
	c.log.Info("exchange connected", zap.String("addr", addr), zap.String("team", c.cfg.Team))
	return nil
}

// handshake 发送 hello 并读取服务端应答行。
func (c *Client) handshake() error {
	raw, err := json.Marshal(helloMsg{Type: "hello", Team: c.cfg.Team})
	if err != nil {
		return fmt.Errorf("encode hello: %w", err)
	}
	if err := c.writeLine(raw); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("read hello ack: %w", err)
		}
		return fmt.Errorf("read hello ack: connection closed")
	}
	ev, err := DecodeEvent(c.scanner.Bytes())
	if err != nil {
		return fmt.Errorf("decode hello ack: %w", err)
	}
	if hello, ok := ev.(Hello); ok {
		c.log.Info("hello acknowledged", zap.Strings("symbols", hello.Symbols))
	} else {
		// 有的服务端在 hello 应答前就开始推送行情，不视为错误。
		c.log.Warn("unexpected first message", zap.String("type", fmt.Sprintf("%T", ev)))
	}
	return nil
}

// ReadEvent 阻塞读取下一个事件。
// 解码失败返回包装了 ErrMalformed 的错误，调用方应跳过。
// 连接失败时做一次固定退避的重连；连续第二次失败视为致命，错误上抛。
func (c *Client) ReadEvent() (Event, error) {
	for {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		if c.scanner.Scan() {
			line := c.scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			c.retried = false
			ev, err := DecodeEvent(line)
			if err != nil {
				return nil, err
			}
			return ev, nil
		}

		// 连接可能是因 ctx 取消被关掉的：那不算读失败，直接退出。
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		readErr := c.scanner.Err()
		if readErr == nil {
			readErr = fmt.Errorf("connection closed by exchange")
		}
		if c.retried {
			return nil, fmt.Errorf("exchange stream lost after reconnect: %w", readErr)
		}
		c.retried = true
		c.log.Warn("exchange stream lost, reconnecting",
			zap.Error(readErr),
			zap.Duration("backoff", c.cfg.RetryBackoff))
		_ = c.conn.Close()

		select {
		case <-c.ctx.Done():
			return nil, c.ctx.Err()
		case <-time.After(c.cfg.RetryBackoff):
		}
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("reconnect failed: %w", err)
		}
		if c.mets != nil {
			c.mets.Reconnects.Inc()
		}
	}
}

// Send 编码并发送一条指令，先过限速器。
func (c *Client) Send(a Action) error {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}
	raw, err := EncodeAction(a)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	if c.cfg.DryRun {
		c.log.Info("dry-run action", zap.ByteString("payload", raw))
	} else if err := c.writeLine(raw); err != nil {
		return fmt.Errorf("send %s: %w", a.Type, err)
	}
	if c.mets != nil {
		c.mets.Actions.WithLabelValues(a.Type).Inc()
	}
	c.log.LogAction(a.Type, a.OrderID,
		zap.String("symbol", a.Symbol),
		zap.String("dir", a.Dir),
		zap.Int("price", a.Price),
		zap.Int("size", a.Size))
	return nil
}

// SetPacing 运行时调整出站限速（配置热更新入口）。
func (c *Client) SetPacing(ratePerSec float64, burst int) {
	if ratePerSec > 0 {
		c.limiter.SetLimit(rate.Limit(ratePerSec))
	}
	if burst > 0 {
		c.limiter.SetBurst(burst)
	}
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) writeLine(raw []byte) error {
	if _, err := c.conn.Write(append(raw, '\n')); err != nil {
		return err
	}
	return nil
}
