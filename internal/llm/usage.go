// internal/llm/usage.go
package llm

import "context"

// Metered 返回的 Connector 打开的提供者在每次成功调用后回报用量。
// 流式调用在建立流时计一次，token 数记为0。
func Metered(inner Connector, record func(tokens int)) Connector {
	if record == nil {
		return inner
	}
	return ConnectorFunc(func(ctx context.Context, credential string) (Provider, error) {
		p, err := inner.Open(ctx, credential)
		if err != nil {
			return nil, err
		}
		return &meteredProvider{Provider: p, record: record}, nil
	})
}

type meteredProvider struct {
	Provider
	record func(tokens int)
}

func (p *meteredProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.Provider.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}
	p.record(resp.TokensUsed)
	return resp, nil
}

func (p *meteredProvider) StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan StreamResponse, error) {
	ch, err := p.Provider.StreamCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	p.record(0)
	return ch, nil
}
