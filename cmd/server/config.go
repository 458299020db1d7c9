package main

import "time"

type Config struct {
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMBaseURL string        `env:"LLM_BASE_URL,default=https://api.openai.com"`
	LLMModel   string        `env:"LLM_MODEL,default=gpt-4o-mini"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT,default=10s"`

	DefaultStyle      string `env:"DEFAULT_STYLE,default=uwu"`
	HistoryCapacity   int    `env:"HISTORY_CAPACITY,default=100"`
	NicknameMaxLength int    `env:"NICKNAME_MAX_LENGTH,default=30"`
	MessageMaxLength  int    `env:"MESSAGE_MAX_LENGTH,default=500"`

	ModerationEnabled         bool   `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxFrameSize         int64         `env:"MAX_FRAME_SIZE,default=8192"`
	ReadTimeout          time.Duration `env:"READ_TIMEOUT,default=60s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`

	QuotaPushInterval time.Duration `env:"QUOTA_PUSH_INTERVAL,default=5s"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3001"`
}
