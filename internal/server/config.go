// Package server provides configuration helpers that define runtime defaults,
// validation, and protocol limits for the chat relay service.
package server

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig defines the per-connection message rate limit: at most
// MaxMessages frames are dispatched within any single Window.
type RateLimitConfig struct {
	MaxMessages int
	Window      time.Duration
}

// HeartbeatConfig defines the liveness monitor timings. Interval is
// deliberately shorter than StaleAfter so several missed probes accumulate
// before the sweep evicts a connection.
type HeartbeatConfig struct {
	Interval      time.Duration
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

// HistoryConfig defines how many chat messages a room retains (RoomBuffer)
// and how many of those are returned to clients (ReplyLimit).
type HistoryConfig struct {
	RoomBuffer int
	ReplyLimit int
}

// LimitsConfig bounds the client-supplied fields of inbound frames,
// measured in characters.
type LimitsConfig struct {
	MaxUsernameLen int
	MaxRoomNameLen int
	MaxChatLen     int
}

// Config holds the relay configuration including security controls and
// protocol limits.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxFrameSize   int64
	RateLimit      RateLimitConfig
	Heartbeat      HeartbeatConfig
	History        HistoryConfig
	Limits         LimitsConfig
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxFrameSize: 16384,
		RateLimit: RateLimitConfig{
			MaxMessages: 30,
			Window:      time.Minute,
		},
		Heartbeat: HeartbeatConfig{
			Interval:      30 * time.Second,
			StaleAfter:    2 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		History: HistoryConfig{
			RoomBuffer: 100,
			ReplyLimit: 50,
		},
		Limits: LimitsConfig{
			MaxUsernameLen: 100,
			MaxRoomNameLen: 50,
			MaxChatLen:     1000,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = def.MaxFrameSize
	}
	if cfg.RateLimit.MaxMessages <= 0 {
		cfg.RateLimit.MaxMessages = def.RateLimit.MaxMessages
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = def.RateLimit.Window
	}
	if cfg.Heartbeat.Interval <= 0 {
		cfg.Heartbeat.Interval = def.Heartbeat.Interval
	}
	if cfg.Heartbeat.StaleAfter <= 0 {
		cfg.Heartbeat.StaleAfter = def.Heartbeat.StaleAfter
	}
	if cfg.Heartbeat.SweepInterval <= 0 {
		cfg.Heartbeat.SweepInterval = def.Heartbeat.SweepInterval
	}
	if cfg.History.RoomBuffer <= 0 {
		cfg.History.RoomBuffer = def.History.RoomBuffer
	}
	if cfg.History.ReplyLimit <= 0 {
		cfg.History.ReplyLimit = def.History.ReplyLimit
	}
	if cfg.Limits.MaxUsernameLen <= 0 {
		cfg.Limits.MaxUsernameLen = def.Limits.MaxUsernameLen
	}
	if cfg.Limits.MaxRoomNameLen <= 0 {
		cfg.Limits.MaxRoomNameLen = def.Limits.MaxRoomNameLen
	}
	if cfg.Limits.MaxChatLen <= 0 {
		cfg.Limits.MaxChatLen = def.Limits.MaxChatLen
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_FRAME_SIZE"); maxSize != "" {
		cfg.MaxFrameSize = parseInt64(maxSize, cfg.MaxFrameSize)
	}
	if limit := os.Getenv("RATE_LIMIT_MAX_MESSAGES"); limit != "" {
		cfg.RateLimit.MaxMessages = parseIntValue(limit, cfg.RateLimit.MaxMessages)
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); window != "" {
		cfg.RateLimit.Window = parseSeconds(window, cfg.RateLimit.Window)
	}
	if interval := os.Getenv("HEARTBEAT_INTERVAL_SECONDS"); interval != "" {
		cfg.Heartbeat.Interval = parseSeconds(interval, cfg.Heartbeat.Interval)
	}
	if stale := os.Getenv("STALE_AFTER_SECONDS"); stale != "" {
		cfg.Heartbeat.StaleAfter = parseSeconds(stale, cfg.Heartbeat.StaleAfter)
	}
	if sweep := os.Getenv("SWEEP_INTERVAL_SECONDS"); sweep != "" {
		cfg.Heartbeat.SweepInterval = parseSeconds(sweep, cfg.Heartbeat.SweepInterval)
	}
	if size := os.Getenv("ROOM_HISTORY_SIZE"); size != "" {
		cfg.History.RoomBuffer = parseIntValue(size, cfg.History.RoomBuffer)
	}
	if limit := os.Getenv("HISTORY_REPLY_LIMIT"); limit != "" {
		cfg.History.ReplyLimit = parseIntValue(limit, cfg.History.ReplyLimit)
	}
	if length := os.Getenv("MAX_USERNAME_LENGTH"); length != "" {
		cfg.Limits.MaxUsernameLen = parseIntValue(length, cfg.Limits.MaxUsernameLen)
	}
	if length := os.Getenv("MAX_ROOM_NAME_LENGTH"); length != "" {
		cfg.Limits.MaxRoomNameLen = parseIntValue(length, cfg.Limits.MaxRoomNameLen)
	}
	if length := os.Getenv("MAX_CHAT_LENGTH"); length != "" {
		cfg.Limits.MaxChatLen = parseIntValue(length, cfg.Limits.MaxChatLen)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
