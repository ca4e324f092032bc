package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envInstanceID     = "WHATSAPP_INSTANCE_ID"
	envAPIToken       = "WHATSAPP_TOKEN"
	envAPIHost        = "GREENAPI_API_HOST"
	envBotChatID      = "BOT_ID"
	envWebhookPort    = "PORT"
	envFlowiseURL     = "FLOWISE_URL"
	envFlowiseTimeout = "FLOWISE_TIMEOUT_SECONDS"
	envNoAnswerReply  = "FLOWISE_NO_ANSWER_REPLY"
	envErrorReply     = "FLOWISE_ERROR_REPLY"
	envProviderName   = "AI_PROVIDER"
	envGreetings      = "GREETINGS"
	envGreetingReply  = "GREETING_REPLY"
	envDedupCapacity  = "DEDUP_CAPACITY"
	envRepeatToken    = "REPEAT_TOKEN"
	envRepeatLimit    = "REPEAT_LIMIT"
	envTelegramToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllow  = "TELEGRAM_ALLOW_FROM"
	envGatewayHost    = "GATEWAY_HOST"
	envGatewayPort    = "GATEWAY_PORT"
	envLogFormat      = "TSUNAMIBOT_LOG_FORMAT"
	envLogLevel       = "TSUNAMIBOT_LOG_LEVEL"
	envLogAddSource   = "TSUNAMIBOT_LOG_ADD_SOURCE"
)

const (
	defaultAPIHost        = "https://7105.api.greenapi.com"
	defaultWebhookPort    = 8080
	defaultFlowiseTimeout = 60
	defaultSendTimeout    = 30
	defaultDedupCapacity  = 4096
	defaultRepeatLimit    = 4
	defaultNoAnswerReply  = "🤖 Flowise не ответил."
	defaultErrorReply     = "⚠️ Ошибка при обращении к ИИ. Попробуй позже."
	defaultGreetingReply  = "Привет! Напишите свой вопрос, и я передам его ассистенту."
)

// defaultGreetings matches the Russian-language deployment phrase set.
var defaultGreetings = []string{"start", "hi", "привет", "здравствуйте", "начать"}

// Config is the root runtime configuration, loaded once at startup from the
// process environment (with an optional .env file).
type Config struct {
	Gateway  GatewayConfig
	Logging  LoggingConfig
	Provider ProviderConfig
	Channels ChannelsConfig
	Pipeline PipelineConfig
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string
	Level     string
	AddSource bool
}

// GatewayConfig configures the health/readiness status server bind settings.
type GatewayConfig struct {
	Host string
	Port int
}

// ProviderConfig selects and configures the AI backend client.
type ProviderConfig struct {
	Name    string
	Flowise FlowiseConfig
}

// FlowiseConfig configures the Flowise prediction endpoint client.
type FlowiseConfig struct {
	URL                   string
	RequestTimeoutSeconds int

	// NoAnswerReply is sent when Flowise responds without a text field;
	// ErrorReply when the call itself fails.
	NoAnswerReply string
	ErrorReply    string
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	GreenAPI GreenAPIConfig
	Telegram TelegramConfig
}

// GreenAPIConfig configures the Green API WhatsApp webhook channel.
type GreenAPIConfig struct {
	APIHost            string
	InstanceID         string
	Token              string
	BotChatID          string
	WebhookPort        int
	SendTimeoutSeconds int
}

// TelegramConfig configures the optional Telegram channel.
type TelegramConfig struct {
	Enabled   bool
	Token     string
	AllowFrom []string
}

// PipelineConfig configures admission and sanitizer policy knobs.
type PipelineConfig struct {
	Greetings     []string
	GreetingReply string
	DedupCapacity int

	// RepeatToken/RepeatLimit drive the runaway-repetition check; an empty
	// token disables it. The token is deployment-specific policy, not code.
	RepeatToken string
	RepeatLimit int
}

// LoadConfig reads the environment (plus an optional .env file in the
// working directory) and validates required settings.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Gateway: GatewayConfig{
			Host: strings.TrimSpace(os.Getenv(envGatewayHost)),
			Port: intEnv(envGatewayPort, 0),
		},
		Logging: LoggingConfig{
			Format:    strings.TrimSpace(os.Getenv(envLogFormat)),
			Level:     strings.TrimSpace(os.Getenv(envLogLevel)),
			AddSource: boolEnv(envLogAddSource),
		},
		Provider: ProviderConfig{
			Name: stringEnv(envProviderName, "flowise"),
			Flowise: FlowiseConfig{
				URL:                   strings.TrimSpace(os.Getenv(envFlowiseURL)),
				RequestTimeoutSeconds: intEnv(envFlowiseTimeout, defaultFlowiseTimeout),
				NoAnswerReply:         stringEnv(envNoAnswerReply, defaultNoAnswerReply),
				ErrorReply:            stringEnv(envErrorReply, defaultErrorReply),
			},
		},
		Channels: ChannelsConfig{
			GreenAPI: GreenAPIConfig{
				APIHost:            stringEnv(envAPIHost, defaultAPIHost),
				InstanceID:         strings.TrimSpace(os.Getenv(envInstanceID)),
				Token:              strings.TrimSpace(os.Getenv(envAPIToken)),
				BotChatID:          strings.TrimSpace(os.Getenv(envBotChatID)),
				WebhookPort:        intEnv(envWebhookPort, defaultWebhookPort),
				SendTimeoutSeconds: defaultSendTimeout,
			},
			Telegram: TelegramConfig{
				Token:     strings.TrimSpace(os.Getenv(envTelegramToken)),
				AllowFrom: parseCSV(os.Getenv(envTelegramAllow)),
			},
		},
		Pipeline: PipelineConfig{
			Greetings:     greetingsEnv(),
			GreetingReply: stringEnv(envGreetingReply, defaultGreetingReply),
			DedupCapacity: intEnv(envDedupCapacity, defaultDedupCapacity),
			RepeatToken:   strings.TrimSpace(os.Getenv(envRepeatToken)),
			RepeatLimit:   intEnv(envRepeatLimit, defaultRepeatLimit),
		},
	}
	cfg.Channels.Telegram.Enabled = cfg.Channels.Telegram.Token != ""

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate reports every missing required setting at once so a broken
// deployment fails loudly on the first start.
func (c *Config) validate() error {
	var missing []string

	if c.Channels.GreenAPI.InstanceID == "" {
		missing = append(missing, envInstanceID)
	}
	if c.Channels.GreenAPI.Token == "" {
		missing = append(missing, envAPIToken)
	}
	if c.Channels.GreenAPI.BotChatID == "" {
		missing = append(missing, envBotChatID)
	}
	if c.Provider.Flowise.URL == "" {
		missing = append(missing, envFlowiseURL)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Pipeline.DedupCapacity <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envDedupCapacity, c.Pipeline.DedupCapacity)
	}
	if c.Pipeline.RepeatLimit <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envRepeatLimit, c.Pipeline.RepeatLimit)
	}

	return nil
}

func greetingsEnv() []string {
	if phrases := parseCSV(os.Getenv(envGreetings)); len(phrases) > 0 {
		return phrases
	}

	return slices.Clone(defaultGreetings)
}

// stringEnv returns the trimmed env value or fallback when unset/blank.
func stringEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	return fallback
}

// intEnv returns the env value parsed as int, or fallback when unset or
// unparseable.
func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}

// boolEnv reports whether the env value is a truthy flag; unset is false.
func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	if len(clean) == 0 {
		return nil
	}

	return slices.Clip(clean)
}
