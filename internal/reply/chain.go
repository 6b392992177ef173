package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"propguru-go/pkg/llm"
	"propguru-go/pkg/log"
)

// ErrEmptyOutput 表示生成器返回了空白文本。
var ErrEmptyOutput = errors.New("reply: generator returned empty output")

var errNoGenerator = errors.New("reply: no generator configured")

// State 是降级链的状态。
type State int

const (
	StatePrimary State = iota
	StateDegraded
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateDegraded:
		return "degraded"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// next 是状态转移函数：Primary → Degraded → Terminal。
func (s State) next() State {
	if s >= StateTerminal {
		return StateTerminal
	}
	return s + 1
}

// Outcome 是降级链的执行结果。
type Outcome struct {
	Text string
	// State 是最终产出文本的状态
	State    State
	Failures []error
}

// Chain 依次尝试主生成器、降级生成器，最后返回固定的致歉文本。
// Run 永远返回非空文本，不会把错误或 panic 抛给调用方。
type Chain struct {
	primary  Generator
	degraded Generator
	timeout  time.Duration
}

// NewChain 创建降级链。timeout 是每一步的超时，<= 0 时不额外限制。
func NewChain(primary, degraded Generator, timeout time.Duration) *Chain {
	return &Chain{primary: primary, degraded: degraded, timeout: timeout}
}

// Run 执行降级链。
func (c *Chain) Run(ctx context.Context, req Request) Outcome {
	var out Outcome
	for state := StatePrimary; ; state = state.next() {
		if state == StateTerminal {
			out.Text = Apology(req.Style, req.Language)
			out.State = StateTerminal
			log.Warnf("[ReplyChain] 进入兜底状态, query: %q, 失败次数: %d", req.Query, len(out.Failures))
			return out
		}

		g := c.generatorFor(state)
		text, err := c.attempt(ctx, g, req)
		if err == nil {
			out.Text = text
			out.State = state
			return out
		}
		out.Failures = append(out.Failures, fmt.Errorf("%s: %w", state, err))
		log.Warnf("[ReplyChain] %s 生成失败, 转入 %s, query: %q, error: %v", state, state.next(), req.Query, err)
	}
}

func (c *Chain) generatorFor(s State) Generator {
	switch s {
	case StatePrimary:
		return c.primary
	case StateDegraded:
		return c.degraded
	default:
		return nil
	}
}

type attemptResult struct {
	text string
	err  error
}

// attempt 在超时内执行一个生成器。超时、错误、panic 和空白输出都视为失败。
// 生成器的流式分块先写入本次尝试的缓冲，只有成功时才转发给 req.Stream；
// 失败或超时的尝试写出的分块全部丢弃，超时后仍在运行的生成器再写也不会到达调用方。
func (c *Chain) attempt(ctx context.Context, g Generator, req Request) (string, error) {
	if g == nil {
		return "", errNoGenerator
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := req.Stream
	if target == nil {
		return c.run(ctx, g, req)
	}
	buf := &attemptBuffer{}
	req.Stream = buf
	text, err := c.run(ctx, g, req)
	chunks := buf.close()
	if err != nil {
		if len(chunks) > 0 {
			log.Infof("[ReplyChain] 丢弃 %s 已输出的 %d 个分块", g.Name(), len(chunks))
		}
		return "", err
	}
	for _, ch := range chunks {
		if werr := target.WriteMessage(ch.messageType, ch.data); werr != nil {
			// 回复文本已经生成，写流失败只影响客户端，不再降级
			log.Warnf("[ReplyChain] 转发 %s 的分块失败: %v", g.Name(), werr)
			break
		}
	}
	return text, nil
}

func (c *Chain) run(ctx context.Context, g Generator, req Request) (string, error) {
	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: fmt.Errorf("generator %s panicked: %v", g.Name(), r)}
			}
		}()
		text, err := g.Generate(ctx, req)
		done <- attemptResult{text: text, err: err}
	}()

	var res attemptResult
	select {
	case res = <-done:
	case <-ctx.Done():
		// 同时就绪时优先采用已完成的结果
		select {
		case res = <-done:
		default:
			return "", fmt.Errorf("generator %s: %w", g.Name(), ctx.Err())
		}
	}

	if res.err != nil {
		return "", fmt.Errorf("generator %s: %w", g.Name(), res.err)
	}
	if strings.TrimSpace(res.text) == "" {
		return "", fmt.Errorf("generator %s: %w", g.Name(), ErrEmptyOutput)
	}
	return res.text, nil
}

type chunk struct {
	messageType int
	data        []byte
}

// attemptBuffer 收集一次尝试的流式分块。close 之后的写入直接丢弃。
type attemptBuffer struct {
	mu     sync.Mutex
	chunks []chunk
	closed bool
}

var _ llm.MessageWriter = (*attemptBuffer)(nil)

func (b *attemptBuffer) WriteMessage(messageType int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.chunks = append(b.chunks, chunk{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (b *attemptBuffer) close() []chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.chunks
}
