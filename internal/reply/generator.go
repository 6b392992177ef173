package reply

import (
	"context"
	"fmt"
	"strings"

	"propguru-go/internal/config"
	"propguru-go/internal/model"
	"propguru-go/pkg/llm"
)

// Request 是一次生成所需的全部输入。
type Request struct {
	Query     string
	Style     model.Style
	Language  model.Language
	Sentiment model.Sentiment
	Results   []model.RankedResult
	// Stream 非空时，支持流式输出的生成器会把分块同步写给它。
	Stream llm.MessageWriter
}

// Generator 根据检索结果生成回复文本。
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// TemplateGenerator 用模板引擎生成回复。
type TemplateGenerator struct {
	engine *Engine
}

func NewTemplateGenerator(engine *Engine) *TemplateGenerator {
	return &TemplateGenerator{engine: engine}
}

func (g *TemplateGenerator) Name() string { return "template" }

func (g *TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	return g.engine.Render(req.Style, req.Language, req.Query, req.Sentiment, req.Results), nil
}

// PlainGenerator 只输出编号列表，不带开场白和结束语。
type PlainGenerator struct {
	engine *Engine
}

func NewPlainGenerator(engine *Engine) *PlainGenerator {
	return &PlainGenerator{engine: engine}
}

func (g *PlainGenerator) Name() string { return "plain" }

func (g *PlainGenerator) Generate(_ context.Context, req Request) (string, error) {
	if len(req.Results) == 0 {
		return g.engine.NoResults(req.Style, req.Language, req.Query), nil
	}
	return ListingLines(req.Language, req.Results), nil
}

// LLMGenerator 调用大模型，把检索到的房源作为参考资料放进系统提示。
type LLMGenerator struct {
	client llm.Client
	prompt config.LLMPromptConfig
}

func NewLLMGenerator(client llm.Client, prompt config.LLMPromptConfig) *LLMGenerator {
	return &LLMGenerator{client: client, prompt: prompt}
}

func (g *LLMGenerator) Name() string { return "llm" }

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := g.buildMessages(req)
	if req.Stream == nil {
		return g.client.Generate(ctx, messages, nil)
	}

	tee := &teeWriter{next: req.Stream}
	if err := g.client.StreamChatMessages(ctx, messages, nil, tee); err != nil {
		return "", err
	}
	return tee.b.String(), nil
}

func (g *LLMGenerator) buildMessages(req Request) []llm.Message {
	refStart, refEnd := g.prompt.RefStart, g.prompt.RefEnd
	if refStart == "" {
		refStart = "<<REF>>"
	}
	if refEnd == "" {
		refEnd = "<<END>>"
	}

	var sb strings.Builder
	if g.prompt.Rules != "" {
		sb.WriteString(g.prompt.Rules)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "语气: %s\n回复语言: %s\n用户情绪: %s\n", req.Style, languageName(req.Language), req.Sentiment)
	sb.WriteString(refStart)
	sb.WriteString("\n")
	if len(req.Results) == 0 {
		sb.WriteString("（本轮没有检索到匹配的房源）")
	} else {
		sb.WriteString(ListingLines(req.Language, req.Results))
	}
	sb.WriteString("\n")
	sb.WriteString(refEnd)

	return []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: req.Query},
	}
}

func languageName(lang model.Language) string {
	if lang == model.LangEnglish {
		return "English"
	}
	return "Thai"
}

// teeWriter 在转发分块的同时收集完整文本。
type teeWriter struct {
	next llm.MessageWriter
	b    strings.Builder
}

func (w *teeWriter) WriteMessage(messageType int, data []byte) error {
	w.b.Write(data)
	return w.next.WriteMessage(messageType, data)
}
