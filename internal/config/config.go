package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// WSActionLimit caps inbound actions per connection per minute; 0 disables.
	WSActionLimit int `mapstructure:"ws_action_limit" yaml:"ws_action_limit"`
	// PostRateLimit caps posts created per user per minute; 0 disables.
	PostRateLimit int `mapstructure:"post_rate_limit" yaml:"post_rate_limit"`
	// DMRateLimit caps direct messages sent per user per minute over REST;
	// 0 disables.
	DMRateLimit int `mapstructure:"dm_rate_limit" yaml:"dm_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "flock.db",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "flock-server",
		JWTAudience:       "flock-client",
		JWTTTL:            24 * time.Hour,
		LogLevel:          "info",
		MaxMessageBytes:   32 * 1024,
		WSActionLimit:     240,
		PostRateLimit:     15,
		DMRateLimit:       60,
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
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.WSActionLimit != 0 {
		c.WSActionLimit = other.WSActionLimit
	}
	if other.PostRateLimit != 0 {
		c.PostRateLimit = other.PostRateLimit
	}
	if other.DMRateLimit != 0 {
		c.DMRateLimit = other.DMRateLimit
	}
}
