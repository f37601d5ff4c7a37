// Package config handles process settings (environment) and the persistent
// region file (key=value lines).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MinScanInterval is the fastest scan cadence accepted from any source.
const MinScanInterval = 10 * time.Millisecond

// DefaultTargetWords are used when neither the environment nor the config file names any.
var DefaultTargetWords = []string{"Troublemaker", "Sssssss"}

type Config struct {
	HTTPAddr           string
	GRPCAddr           string
	ConfigFile         string
	ScanInterval       time.Duration
	ScanLimit          int
	TargetWords        []string
	ReverseLogic       bool
	MatchKey           string
	AdvanceKey         string
	Preprocess         string // adaptive | global
	OCRLanguages       []string
	OCRScale           float64
	CacheSize          int
	OverlayJoinTimeout time.Duration
	CornerDelay        time.Duration
	NotifyEnabled      bool
	ChimeEnabled       bool
	HotkeysEnabled     bool
	Autosave           bool
	LogFile            string
	Debug              bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", "127.0.0.1:8765"),
		GRPCAddr:           getEnv("GRPC_ADDR", "127.0.0.1:50061"),
		ConfigFile:         getEnv("CONFIG_FILE", ""),
		ScanInterval:       getEnvSeconds("SCAN_INTERVAL", 0.1),
		ScanLimit:          getEnvInt("SCAN_LIMIT", 0),
		TargetWords:        getEnvList("TARGET_WORDS", DefaultTargetWords),
		ReverseLogic:       getEnvBool("REVERSE_LOGIC", false),
		MatchKey:           getEnv("MATCH_KEY", "g"),
		AdvanceKey:         getEnv("ADVANCE_KEY", "down"),
		Preprocess:         getEnv("PREPROCESS", "adaptive"),
		OCRLanguages:       getEnvList("OCR_LANGUAGES", []string{"eng"}),
		OCRScale:           getEnvFloat("OCR_SCALE", 1.0),
		CacheSize:          getEnvInt("CACHE_SIZE", 50),
		OverlayJoinTimeout: getEnvSeconds("OVERLAY_JOIN_TIMEOUT", 1.0),
		CornerDelay:        getEnvSeconds("CORNER_DELAY", 0),
		NotifyEnabled:      getEnvBool("NOTIFY_ENABLED", true),
		ChimeEnabled:       getEnvBool("CHIME_ENABLED", false),
		HotkeysEnabled:     getEnvBool("HOTKEYS_ENABLED", true),
		Autosave:           getEnvBool("AUTOSAVE", false),
		LogFile:            getEnv("LOG_FILE", ""),
		Debug:              getEnvBool("DEBUG", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvSeconds reads a float number of seconds.
func getEnvSeconds(key string, def float64) time.Duration {
	return Seconds(getEnvFloat(key, def))
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		return SplitList(v)
	}
	return def
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// Seconds converts float seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
