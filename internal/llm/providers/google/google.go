// internal/llm/providers/google/google.go
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"google.golang.org/genai"
)

// DefaultModel 默认的文本/视觉模型
const DefaultModel = "gemini-2.5-flash-preview-04-17"

func init() {
	llm.Register("google", func() llm.Provider {
		return &Provider{
			models: []string{
				DefaultModel,
				"gemini-2.5-flash",
				"gemini-2.5-pro",
			},
		}
	})
}

// Provider 基于 google.golang.org/genai 的 Gemini 提供者
type Provider struct {
	client       *genai.Client
	apiKey       string
	baseURL      string
	defaultModel string
	models       []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("google_api密钥未提供")
	}
	p.apiKey = apiKey

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = DefaultModel
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	p.client = client
	return nil
}

func (p *Provider) GetName() string {
	return "google gemini"
}

func (p *Provider) GetSupportedModels() []string {
	return p.models
}

func (p *Provider) model(req llm.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := p.model(req)
	resp, err := p.client.Models.GenerateContent(ctx, model, buildContents(req), buildConfig(req))
	if err != nil {
		return nil, translateError(err)
	}

	out := &llm.CompletionResponse{
		Text:         resp.Text(),
		ModelName:    model,
		ProviderName: p.GetName(),
		Grounding:    groundingFrom(resp),
		FinishReason: finishReason(resp),
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.PromptTokens = int(usage.PromptTokenCount)
		out.OutputTokens = int(usage.CandidatesTokenCount)
		out.TokensUsed = int(usage.TotalTokenCount)
	}
	return out, nil
}

// StreamCompletion 流式生成。
// 通道在流结束、出错或 ctx 取消后关闭；出错时最后一条消息携带 Err。
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	model := p.model(req)
	stream := p.client.Models.GenerateContentStream(ctx, model, buildContents(req), buildConfig(req))

	respChan := make(chan llm.StreamResponse)

	go func() {
		defer close(respChan)

		send := func(r llm.StreamResponse) bool {
			select {
			case respChan <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp, err := range stream {
			if err != nil {
				send(llm.StreamResponse{ModelName: model, Done: true, Err: translateError(err)})
				return
			}
			if !send(llm.StreamResponse{
				Text:         resp.Text(),
				ModelName:    model,
				Grounding:    groundingFrom(resp),
				FinishReason: finishReason(resp),
			}) {
				return
			}
		}
		send(llm.StreamResponse{ModelName: model, Done: true})
	}()

	return respChan, nil
}

func buildContents(req llm.CompletionRequest) []*genai.Content {
	var parts []*genai.Part
	for _, part := range req.AllParts() {
		if part.IsInline() {
			parts = append(parts, genai.NewPartFromBytes(part.Data, part.MimeType))
		} else {
			parts = append(parts, genai.NewPartFromText(part.Text))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(req llm.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := req.Temperature
		config.Temperature = &t
	}
	if req.TopP > 0 {
		topP := req.TopP
		config.TopP = &topP
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	return config
}

// groundingFrom 提取网页引用，丢弃没有 URI 的条目
func groundingFrom(resp *genai.GenerateContentResponse) []llm.GroundingChunk {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var chunks []llm.GroundingChunk
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		chunks = append(chunks, llm.GroundingChunk{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return chunks
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	return string(resp.Candidates[0].FinishReason)
}

// translateError 把 genai.APIError 的状态码映射到错误分类，保留原始消息
func translateError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return err
		}
		apiErr = *apiErrPtr
	}

	switch {
	case apperrors.MentionsInvalidCredential(apiErr.Message),
		apiErr.Code == http.StatusUnauthorized,
		apiErr.Code == http.StatusForbidden:
		return apperrors.NewInvalidCredentialError(apiErr.Message, err)
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED":
		return apperrors.NewQuotaExceededError(apiErr.Message, err)
	default:
		return apperrors.NewNetworkOrServiceError(apiErr.Message, err)
	}
}
