package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/config"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"github.com/gosimple/slug"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// completer is one chat-completion backend. The seam exists so the
// failover logic is testable without network calls.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

type openaiCompleter struct {
	client openai.Client
	model  string
	name   string
}

func newOpenAICompleter(name, apiKey, baseURL, model string) *openaiCompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openaiCompleter{
		client: openai.NewClient(opts...),
		model:  model,
		name:   name,
	}
}

func (c *openaiCompleter) Name() string { return c.name }

func (c *openaiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Service implements Generator over a primary completer with an
// optional fallback that takes over when the primary errors.
type Service struct {
	primary  completer
	fallback completer
	timeout  time.Duration
	log      logger.Logger
}

// New builds a Service from configuration. A fallback completer is
// wired only when a fallback API key is configured.
func New(cfg config.GeneratorConfig, log logger.Logger) *Service {
	s := &Service{
		primary: newOpenAICompleter("primary", cfg.APIKey, cfg.BaseURL, cfg.Model),
		timeout: cfg.Timeout,
		log:     log.WithComponent(logger.ComponentGenerator),
	}
	if cfg.FallbackAPIKey != "" {
		s.fallback = newOpenAICompleter("fallback", cfg.FallbackAPIKey, cfg.FallbackBaseURL, cfg.FallbackModel)
	}
	return s
}

// complete runs the prompt against the primary and falls over to the
// fallback on any primary error.
func (s *Service) complete(ctx context.Context, system, user string) (content, provider string, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err = s.primary.Complete(ctx, system, user)
	if err == nil {
		return content, s.primary.Name(), nil
	}
	if s.fallback == nil {
		return "", "", err
	}

	s.log.Warn("primary provider failed, trying fallback", "error", err.Error())
	content, ferr := s.fallback.Complete(ctx, system, user)
	if ferr != nil {
		return "", "", fmt.Errorf("all providers failed: primary: %v; fallback: %w", err, ferr)
	}
	return content, s.fallback.Name(), nil
}

func (s *Service) Summarize(ctx context.Context, cfg schedule.ContentConfig) (schedule.Summary, error) {
	content, provider, err := s.complete(ctx, summarySystemPrompt, buildSummaryPrompt(cfg))
	if err != nil {
		return schedule.Summary{}, fmt.Errorf("failed to generate summary: %w", err)
	}

	var summary schedule.Summary
	if err := json.Unmarshal([]byte(extractJSON(content)), &summary); err != nil {
		return schedule.Summary{}, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if summary.Summary == "" {
		return schedule.Summary{}, fmt.Errorf("summary response missing summary text")
	}

	s.log.Debug("summary generated", "provider", provider)
	return summary, nil
}

func (s *Service) Generate(ctx context.Context, req Request) (schedule.GeneratedPost, error) {
	start := time.Now()
	content, provider, err := s.complete(ctx, generateSystemPrompt, buildGeneratePrompt(req))
	if err != nil {
		return schedule.GeneratedPost{}, fmt.Errorf("failed to generate post: %w", err)
	}

	var post schedule.GeneratedPost
	if err := json.Unmarshal([]byte(extractJSON(content)), &post); err != nil {
		return schedule.GeneratedPost{}, fmt.Errorf("failed to parse generation response: %w", err)
	}
	if post.Title == "" || post.Content == "" {
		return schedule.GeneratedPost{}, fmt.Errorf("generation response missing title or content")
	}

	post.Slug = slug.Make(post.Title)
	post.Provider = provider
	post.ProcessingTime = time.Since(start)

	s.log.Info("post generated",
		"provider", provider,
		"title", post.Title,
		"word_count", post.Scores.WordCount,
		"duration", post.ProcessingTime.String())
	return post, nil
}

// extractJSON strips markdown code fences some models wrap around JSON
// output even in JSON mode.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
