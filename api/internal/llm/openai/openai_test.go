package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-bot/api/internal/llm"
)

func TestEngine_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "qwen",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "x = 3"},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)

	e := New("test-key", "qwen", srv.URL+"/v1")
	text, err := e.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "2x+4=10"},
		{Role: llm.RoleAssistant, Content: "?"},
		{Role: llm.RoleUser, Content: "solve"},
	})
	require.NoError(t, err)
	assert.Equal(t, "x = 3", text)
	assert.Equal(t, "qwen", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestEngine_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	e := New("k", "m", srv.URL+"/v1")
	_, err := e.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	assert.Error(t, err)
}

func TestEngine_DescribeSendsDataURL(t *testing.T) {
	var got struct {
		Messages []struct {
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"role": "assistant", "content": "2x+4=10"},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	e := New("k", "gpt-4o-mini", srv.URL+"/v1")
	text, err := e.Describe(context.Background(), "read it", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "2x+4=10", text)

	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "read it", got.Messages[0].Content[0].Text)
	assert.Equal(t, "data:image/png;base64,cG5n", got.Messages[0].Content[1].ImageURL.URL)
}
