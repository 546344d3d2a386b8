// Package config provides environment-driven configuration for go-voicechat commands.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPort        = 8080
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultSubmitDelay = time.Second
	DefaultStoreDir    = ".voicechat"
	DefaultLogLevel    = "info"
)

// Load reads .env files into the process environment.
// Variables already set win; missing files are ignored.
func Load(files ...string) {
	_ = godotenv.Load(files...)
}

// String returns the env var or def when unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns the env var parsed as an int, or def.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Bool returns the env var parsed as a bool, or def.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Duration returns the env var parsed with time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// Port returns the HTTP port from PORT.
func Port() int {
	return Int("PORT", DefaultPort)
}

// LogLevel returns LOG_LEVEL.
func LogLevel() string {
	return String("LOG_LEVEL", DefaultLogLevel)
}

// Providers holds credentials and model choices for the hosted services.
type Providers struct {
	GeminiAPIKey string
	GeminiModel  string
	GeminiADC    bool

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	DeepgramAPIKey string

	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
}

// ProvidersFromEnv reads provider settings from the environment.
func ProvidersFromEnv() Providers {
	return Providers{
		GeminiAPIKey:      String("GEMINI_API_KEY", String("GOOGLE_API_KEY", "")),
		GeminiModel:       String("GEMINI_MODEL", DefaultGeminiModel),
		GeminiADC:         Bool("GEMINI_USE_ADC", false),
		OpenAIAPIKey:      String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     String("OPENAI_BASE_URL", ""),
		OpenAIModel:       String("OPENAI_MODEL", DefaultOpenAIModel),
		DeepgramAPIKey:    String("DEEPGRAM_API_KEY", ""),
		ElevenLabsAPIKey:  String("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: String("ELEVENLABS_VOICE_ID", ""),
	}
}

// Store holds snapshot storage settings.
type Store struct {
	Backend string // file, postgres, minio
	Path    string // directory for the file backend

	DatabaseURL string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3Secure    bool
}

// StoreFromEnv reads snapshot storage settings from the environment.
func StoreFromEnv() Store {
	return Store{
		Backend:     String("STORE_BACKEND", "file"),
		Path:        String("STORE_PATH", DefaultStorePath()),
		DatabaseURL: String("DATABASE_URL", ""),
		S3Endpoint:  String("S3_ENDPOINT", ""),
		S3AccessKey: String("S3_ACCESS_KEY", ""),
		S3SecretKey: String("S3_SECRET_KEY", ""),
		S3Bucket:    String("S3_BUCKET", ""),
		S3Region:    String("S3_REGION", ""),
		S3Secure:    Bool("S3_SECURE", true),
	}
}

// DefaultStorePath returns ~/.voicechat, or ./.voicechat when home is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStoreDir
	}
	return filepath.Join(home, DefaultStoreDir)
}

// SubmitDelay returns SUBMIT_DELAY, the pause between a transcript and its submission.
func SubmitDelay() time.Duration {
	return Duration("SUBMIT_DELAY", DefaultSubmitDelay)
}
