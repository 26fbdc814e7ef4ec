// Package yandex распознаёт рукописные уравнения через Yandex Vision OCR.
package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"math-bot/api/internal/ocr"
	"math-bot/api/internal/util"
)

const defaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

type Engine struct {
	URL     string
	Model   string   // "handwritten" | "page"
	Langs   []string // ["ru","en"]
	MaxSide int

	iamc     *IamClient
	folderID string
	httpc    *http.Client
}

func New(oauthToken, folderID string) (*Engine, error) {
	if strings.TrimSpace(oauthToken) == "" || strings.TrimSpace(folderID) == "" {
		return nil, errors.New("YC_OAUTH_TOKEN and YC_FOLDER_ID are required")
	}
	return &Engine{
		URL:      defaultOCRURL,
		Model:    "handwritten",
		Langs:    []string{"ru", "en"},
		MaxSide:  ocr.DefaultMaxSide,
		iamc:     NewIamClient(oauthToken),
		folderID: folderID,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (e *Engine) Name() string     { return "yandex" }
func (e *Engine) GetModel() string { return e.Model }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"` // "JPEG" | "PNG"
	LanguageCodes []string `json:"languageCodes,omitempty"`
	Model         string   `json:"model,omitempty"`
}

type line struct {
	Text string `json:"text,omitempty"`
}

type textAnnotation struct {
	FullText string `json:"fullText,omitempty"`
	Blocks   []struct {
		Lines []line `json:"lines,omitempty"`
	} `json:"blocks,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *textAnnotation `json:"textAnnotation,omitempty"`
	} `json:"result,omitempty"`
}

// Recognize отдаёт распознанный текст одной строкой. Пустая строка: на
// картинке ничего не нашлось.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	img, mime, err := ocr.PrepareImage(image, e.MaxSide)
	if err != nil {
		return "", fmt.Errorf("yandex: prepare: %w", err)
	}
	payload, _ := json.Marshal(request{
		Content:       base64.StdEncoding.EncodeToString(img),
		MimeType:      ocrMime(mime),
		LanguageCodes: e.Langs,
		Model:         e.Model,
	})

	resp, err := e.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// один ретрай со свежим токеном
		resp.Body.Close()
		e.iamc.invalidate()
		if resp, err = e.post(ctx, payload); err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, string(x))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("yandex ocr: %w", err)
	}
	return util.StripDollars(joinText(out)), nil
}

func (e *Engine) post(ctx context.Context, payload []byte) (*http.Response, error) {
	token, err := e.iamc.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-folder-id", e.folderID)
	return e.httpc.Do(req)
}

// joinText склеивает строки в одну: уравнение на фото часто разбито
// на несколько строк.
func joinText(r response) string {
	if r.Result == nil || r.Result.TextAnnotation == nil {
		return ""
	}
	ta := r.Result.TextAnnotation
	var lines []string
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	if len(lines) == 0 {
		return strings.Join(strings.Fields(ta.FullText), " ")
	}
	return strings.Join(lines, " ")
}

func ocrMime(mime string) string {
	switch mime {
	case "image/png":
		return "PNG"
	default:
		return "JPEG"
	}
}
