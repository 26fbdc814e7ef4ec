// Package gemini is the Gemini completion backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"math-bot/api/internal/llm"
)

type Engine struct {
	Model       string
	Temperature *float32
	client      *genai.Client
}

func New(ctx context.Context, apiKey, model string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Engine{Model: strings.TrimSpace(model), client: cl}, nil
}

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Close() error { return e.client.Close() }

// Complete replays all but the last message as chat history and sends the
// last one.
func (e *Engine) Complete(ctx context.Context, msgs []llm.Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("gemini: no messages")
	}
	m := e.client.GenerativeModel(e.Model)
	if e.Temperature != nil {
		m.SetTemperature(*e.Temperature)
	}

	cs := m.StartChat()
	for _, msg := range msgs[:len(msgs)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  role(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	resp, err := cs.SendMessage(ctx, genai.Text(msgs[len(msgs)-1].Content))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return FirstText(resp), nil
}

// Describe sends prompt together with an inline image in one request.
func (e *Engine) Describe(ctx context.Context, prompt, mime string, img []byte) (string, error) {
	m := e.client.GenerativeModel(e.Model)
	m.SetTemperature(0)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt), genai.Blob{MIMEType: mime, Data: img})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return FirstText(resp), nil
}

func role(r llm.Role) string {
	if r == llm.RoleAssistant {
		return "model"
	}
	return "user"
}

// FirstText returns the first text part of the first candidate that has one.
func FirstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
