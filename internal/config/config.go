package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// TypingTTL is how long a typing indicator survives without a refresh.
	TypingTTL time.Duration `mapstructure:"typing_ttl" yaml:"typing_ttl"`
	// SendBuffer is the per-connection outbound event buffer; a connection
	// that falls this far behind is dropped as a slow consumer.
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`
	// MaxMessageLen bounds inbound message text in runes.
	MaxMessageLen int `mapstructure:"max_message_len" yaml:"max_message_len"`
	// HistoryLimit is how many recent messages a joining client receives.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	// MsgRateLimit caps inbound chat messages per connection per minute;
	// zero disables the limit.
	MsgRateLimit int `mapstructure:"msg_rate_limit" yaml:"msg_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "roomcast.db",
		LogLevel:          "info",
		JWTSecret:         "",
		JWTIssuer:         "roomcast",
		JWTAudience:       "roomcast-clients",
		TypingTTL:         3 * time.Second,
		SendBuffer:        32,
		MaxMessageLen:     2000,
		HistoryLimit:      50,
		MsgRateLimit:      120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.TypingTTL != 0 {
		c.TypingTTL = other.TypingTTL
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.MaxMessageLen != 0 {
		c.MaxMessageLen = other.MaxMessageLen
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.MsgRateLimit != 0 {
		c.MsgRateLimit = other.MsgRateLimit
	}
}
