package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider: описание LLM-провайдера из providers.yaml.
type Provider struct {
	Kind         string `yaml:"kind"` // "gemini" | "openai"
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	Mode         string `yaml:"mode"` // "verified" | "direct"
	SystemPrompt string `yaml:"system_prompt"`
	MaxAttempts  int    `yaml:"max_attempts"`

	APIKey string `yaml:"-"`
}

// Catalog: содержимое PROVIDERS_FILE.
type Catalog struct {
	Default   string              `yaml:"default"`
	Providers map[string]Provider `yaml:"providers"`
	// Subjects: название кнопки -> идентификатор предмета.
	Subjects map[string]string `yaml:"subjects"`
}

type Config struct {
	Port             string
	TelegramBotToken string
	WebhookURL       string
	DatabaseURL      string

	OutputChunkSize int
	LLMMaxAttempts  int
	LLMCallTimeout  time.Duration
	LLMRetryBackoff time.Duration
	PipelineTimeout time.Duration
	TGSendRPS       float64
	LogLevel        string

	OCREngine string // gemini | openai | yandex | none
	OCRModel  string // пусто: модель выбранного провайдера
	// Yandex Vision OCR
	YCOAuthToken string
	YCFolderID   string

	ProvidersFile string
	Catalog       Catalog
}

const defaultSystemPrompt = "Ты помощник по математике. Отвечай по-русски, кратко и по шагам."

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return f, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// Load читает .env (если есть), переменные окружения и каталог провайдеров.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env: %w", err)
	}

	c := &Config{
		Port:             getEnv("PORT", "8000"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OCREngine:        getEnv("OCR_ENGINE", "gemini"),
		OCRModel:         os.Getenv("OCR_MODEL"),
		YCOAuthToken:     os.Getenv("YC_OAUTH_TOKEN"),
		YCFolderID:       os.Getenv("YC_FOLDER_ID"),
		ProvidersFile:    getEnv("PROVIDERS_FILE", "configs/providers.yaml"),
	}
	var err error
	if c.OutputChunkSize, err = getInt("OUTPUT_CHUNK_SIZE", 3500); err != nil {
		return nil, err
	}
	if c.LLMMaxAttempts, err = getInt("LLM_MAX_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	if c.LLMCallTimeout, err = getDuration("LLM_CALL_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if c.LLMRetryBackoff, err = getDuration("LLM_RETRY_BACKOFF", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if c.PipelineTimeout, err = getDuration("PIPELINE_TIMEOUT", 3*time.Minute); err != nil {
		return nil, err
	}
	if c.TGSendRPS, err = getFloat("TG_SEND_RPS", 25); err != nil {
		return nil, err
	}

	cat, err := LoadCatalog(c.ProvidersFile)
	if err != nil {
		return nil, err
	}
	c.Catalog = *cat
	return c, nil
}

// LoadCatalog читает YAML-каталог. Если файла нет, собирает единственный
// Gemini-провайдер из GEMINI_API_KEY / GEMINI_MODEL.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fallbackCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("providers file: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return nil, fmt.Errorf("providers file %s: %w", path, err)
	}
	if len(cat.Providers) == 0 {
		return nil, fmt.Errorf("providers file %s: no providers", path)
	}
	for name, p := range cat.Providers {
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		switch p.Kind {
		case "gemini", "openai":
		default:
			return nil, fmt.Errorf("provider %q: unknown kind %q", name, p.Kind)
		}
		if p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
		if p.SystemPrompt == "" {
			p.SystemPrompt = defaultSystemPrompt
		}
		cat.Providers[name] = p
	}
	if cat.Default == "" {
		cat.Default = cat.Names()[0]
	}
	if _, ok := cat.Providers[cat.Default]; !ok {
		return nil, fmt.Errorf("providers file %s: default %q is not defined", path, cat.Default)
	}
	return &cat, nil
}

func fallbackCatalog() *Catalog {
	return &Catalog{
		Default: "gemini",
		Providers: map[string]Provider{
			"gemini": {
				Kind:         "gemini",
				Model:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
				APIKeyEnv:    "GEMINI_API_KEY",
				APIKey:       os.Getenv("GEMINI_API_KEY"),
				Mode:         "verified",
				SystemPrompt: defaultSystemPrompt,
			},
		},
	}
}

// Names: имена провайдеров в алфавитном порядке.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for n := range c.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SubjectNames: названия предметов в алфавитном порядке (для клавиатуры).
func (c *Catalog) SubjectNames() []string {
	names := make([]string, 0, len(c.Subjects))
	for n := range c.Subjects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
