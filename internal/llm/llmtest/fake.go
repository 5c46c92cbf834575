// internal/llm/llmtest/fake.go
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/Corphon/SlideCrafter/internal/llm"
)

// Reply 一次调用的脚本化结果
type Reply struct {
	Chunks    []string
	Grounding []llm.GroundingChunk
	// Err 在流开始前返回（StreamCompletion 的同步错误或 CompleteText 的错误）
	Err error
	// StreamErr 在所有 Chunks 之后作为流内错误发送
	StreamErr error
	// Hang 发送完 Chunks 后不结束流，直到 ctx 取消
	Hang bool
}

// Provider 可编程的假提供者，Respond 根据请求决定回复
type Provider struct {
	Respond func(req llm.CompletionRequest) Reply

	mu       sync.Mutex
	requests []llm.CompletionRequest
	apiKey   string
}

// NewProvider 对所有请求给出相同的回复
func NewProvider(reply Reply) *Provider {
	return &Provider{Respond: func(llm.CompletionRequest) Reply { return reply }}
}

func (p *Provider) Initialize(config map[string]string) error {
	if config["api_key"] == "" {
		return errors.New("api_key missing")
	}
	p.apiKey = config["api_key"]
	return nil
}

func (p *Provider) GetName() string { return "fake" }

func (p *Provider) GetSupportedModels() []string { return []string{"fake-model"} }

func (p *Provider) record(req llm.CompletionRequest) Reply {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.Respond(req)
}

// Requests 已收到的请求
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.requests...)
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	reply := p.record(req)
	if reply.Err != nil {
		return nil, reply.Err
	}
	if reply.StreamErr != nil {
		return nil, reply.StreamErr
	}
	text := ""
	for _, c := range reply.Chunks {
		text += c
	}
	return &llm.CompletionResponse{Text: text, ModelName: "fake-model", Grounding: reply.Grounding}, nil
}

func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	reply := p.record(req)
	if reply.Err != nil {
		return nil, reply.Err
	}
	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		send := func(r llm.StreamResponse) bool {
			select {
			case ch <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for i, c := range reply.Chunks {
			r := llm.StreamResponse{Text: c, ModelName: "fake-model"}
			if i == len(reply.Chunks)-1 {
				r.Grounding = reply.Grounding
			}
			if !send(r) {
				return
			}
		}
		if reply.Hang {
			<-ctx.Done()
			return
		}
		if reply.StreamErr != nil {
			send(llm.StreamResponse{Done: true, Err: reply.StreamErr})
			return
		}
		send(llm.StreamResponse{Done: true})
	}()
	return ch, nil
}

// Connector 每次 Open 都返回同一个 Provider，并记录收到的密钥
type Connector struct {
	Provider *Provider
	OpenErr  error

	mu          sync.Mutex
	credentials []string
}

// NewConnector 包装 Provider
func NewConnector(p *Provider) *Connector {
	return &Connector{Provider: p}
}

func (c *Connector) Open(ctx context.Context, credential string) (llm.Provider, error) {
	c.mu.Lock()
	c.credentials = append(c.credentials, credential)
	c.mu.Unlock()
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	return c.Provider, nil
}

// Opens Open 被调用的次数
func (c *Connector) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.credentials)
}
