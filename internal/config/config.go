package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:""`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	HistoryLimit   int    `envconfig:"HISTORY_LIMIT" default:"100"`
	MaxUploadMB    int64  `envconfig:"MAX_UPLOAD_MB" default:"20"`
	MaxImagePixels int64  `envconfig:"MAX_IMAGE_PIXELS" default:"67108864"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MaxUploadBytes is the multipart body limit applied to image uploads.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return c.MaxUploadMB << 20
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OriginHosts strips the scheme from each allowed origin, giving the host
// patterns the websocket upgrade checks against.
func (c *Config) OriginHosts() []string {
	var out []string
	for _, o := range c.Origins() {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}
