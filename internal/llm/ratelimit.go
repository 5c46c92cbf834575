// internal/llm/ratelimit.go
package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited 返回的 Connector 打开的提供者在每次调用前等待 limiter。
// 同一个 limiter 在所有密钥之间共享，限制的是整个进程的出站调用速率。
func RateLimited(inner Connector, limiter *rate.Limiter) Connector {
	if limiter == nil {
		return inner
	}
	return ConnectorFunc(func(ctx context.Context, credential string) (Provider, error) {
		p, err := inner.Open(ctx, credential)
		if err != nil {
			return nil, err
		}
		return &pacedProvider{Provider: p, limiter: limiter}, nil
	})
}

type pacedProvider struct {
	Provider
	limiter *rate.Limiter
}

func (p *pacedProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.CompleteText(ctx, req)
}

func (p *pacedProvider) StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan StreamResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.StreamCompletion(ctx, req)
}
