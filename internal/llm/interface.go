// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"sync"
)

// 错误定义
var ErrUnknownProvider = errors.New("未知的AI提供者")

// Part 请求中的一段内容：文本或内联二进制
type Part struct {
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// TextPart 文本段
func TextPart(text string) Part { return Part{Text: text} }

// InlinePart 内联二进制段
func InlinePart(data []byte, mimeType string) Part {
	return Part{Data: data, MimeType: mimeType}
}

// IsInline 是否为二进制段
func (p Part) IsInline() bool { return len(p.Data) > 0 }

// 请求参数标准化
type CompletionRequest struct {
	// Prompt 非空时作为最后一个文本段追加在 Parts 之后
	Prompt       string  `json:"prompt"`
	Parts        []Part  `json:"parts,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	TopP         float32 `json:"top_p,omitempty"`
	Model        string  `json:"model,omitempty"`
	// JSONResponse 要求模型以 application/json 返回
	JSONResponse bool `json:"json_response,omitempty"`
}

// AllParts 返回 Parts 加上 Prompt
func (r CompletionRequest) AllParts() []Part {
	parts := append([]Part(nil), r.Parts...)
	if r.Prompt != "" {
		parts = append(parts, TextPart(r.Prompt))
	}
	return parts
}

// GroundingChunk 引用来源
type GroundingChunk struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// 响应结构标准化
type CompletionResponse struct {
	Text         string           `json:"text"`
	FinishReason string           `json:"finish_reason,omitempty"`
	TokensUsed   int              `json:"tokens_used,omitempty"`
	PromptTokens int              `json:"prompt_tokens,omitempty"`
	OutputTokens int              `json:"output_tokens,omitempty"`
	ModelName    string           `json:"model_name,omitempty"`
	ProviderName string           `json:"provider_name,omitempty"`
	Grounding    []GroundingChunk `json:"grounding,omitempty"`
}

// 流式响应。Err 非空时为最后一条。
type StreamResponse struct {
	Text         string           `json:"text"`
	FinishReason string           `json:"finish_reason,omitempty"`
	ModelName    string           `json:"model_name,omitempty"`
	Grounding    []GroundingChunk `json:"grounding,omitempty"`
	Done         bool             `json:"done"`
	Err          error            `json:"-"`
}

// Provider 定义所有LLM提供者必须实现的接口
type Provider interface {
	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 获取支持的模型列表
	GetSupportedModels() []string

	// 文本生成
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// 流式响应生成
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan StreamResponse, error)
}

// Connector 用调用方提供的密钥打开一个提供者
type Connector interface {
	Open(ctx context.Context, credential string) (Provider, error)
}

// ConnectorFunc 函数适配器
type ConnectorFunc func(ctx context.Context, credential string) (Provider, error)

// Open 实现 Connector
func (f ConnectorFunc) Open(ctx context.Context, credential string) (Provider, error) {
	return f(ctx, credential)
}

// 注册表和工厂函数类型
type ProviderFactory func() Provider

// Registry 提供者注册表
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// 全局注册表
var DefaultRegistry = NewRegistry()

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// Register 注册一个新的LLM提供者
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = factory
}

// GetProvider 获取指定名称的提供者实例
func (r *Registry) GetProvider(name string, config map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.providers[name]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}

	return provider, nil
}

// GetAvailableProviders 返回所有已注册的提供者名称
func (r *Registry) GetAvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Connector 返回按名称打开提供者的 Connector。
// base 是公共配置（模型等），密钥在每次 Open 时单独传入。
func (r *Registry) Connector(name string, base map[string]string) Connector {
	return ConnectorFunc(func(ctx context.Context, credential string) (Provider, error) {
		cfg := make(map[string]string, len(base)+1)
		for k, v := range base {
			cfg[k] = v
		}
		cfg["api_key"] = credential
		return r.GetProvider(name, cfg)
	})
}

// Register 注册提供者工厂
func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

// GetProvider 创建指定名称的提供者实例
func GetProvider(name string, config map[string]string) (Provider, error) {
	return DefaultRegistry.GetProvider(name, config)
}

// ListProviders 返回所有已注册的提供者名称
func ListProviders() []string {
	return DefaultRegistry.GetAvailableProviders()
}
