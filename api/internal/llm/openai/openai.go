// Package openai is the backend for OpenAI and OpenAI-compatible servers
// (llama.cpp, vLLM and similar local deployments reached through BaseURL).
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/util"
)

type Engine struct {
	Model  string
	client *openai.Client
}

func New(apiKey, model, baseURL string) *Engine {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = u
	}
	return &Engine{Model: strings.TrimSpace(model), client: openai.NewClientWithConfig(cfg)}
}

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, msgs []llm.Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("openai: no messages")
	}
	req := openai.ChatCompletionRequest{
		Model:    e.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    role(m.Role),
			Content: m.Content,
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Describe sends prompt with the image attached as a data URL.
func (e *Engine) Describe(ctx context.Context, prompt, mime string, img []byte) (string, error) {
	dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(img))
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func role(r llm.Role) string {
	switch r {
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
