package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

type LogConfig struct {
	Mode     string `yaml:"mode"      env:"LOG_MODE"              env-default:"development"`
	Level    string `yaml:"level"     env:"LOG_LEVEL"             env-default:"debug"`
	Redact   bool   `yaml:"redact"    env:"LOG_REDACTION_ENABLED" env-default:"true"`
	HashSalt string `yaml:"hash_salt" env:"LOG_HASH_SALT"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"HTTP_ADDR"             env-default:":5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"HTTP_MAX_BODY_BYTES"   env-default:"2097152"`
	CORSOrigins     string        `yaml:"cors_origins"     env:"CORS_ALLOWED_ORIGINS"  env-default:"http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"`
}

// Origins splits the comma separated CORS origin list.
func (c HTTPConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LLMConfig describes the chat-completions provider.
type LLMConfig struct {
	Provider         string        `yaml:"provider"          env:"LLM_PROVIDER"          env-default:"openrouter"`
	BaseURL          string        `yaml:"base_url"          env:"LLM_BASE_URL"          env-default:"https://openrouter.ai"`
	ChatPath         string        `yaml:"chat_path"         env:"LLM_CHAT_PATH"         env-default:"/api/v1/chat/completions"`
	APIKey           string        `yaml:"api_key"           env:"OPENROUTER_API_KEY"`
	Model            string        `yaml:"model"             env:"LLM_MODEL"             env-default:"google/gemini-2.0-pro-exp-02-05:free"`
	Referer          string        `yaml:"referer"           env:"APP_URL"               env-default:"http://localhost:5000"`
	Title            string        `yaml:"title"             env:"APP_TITLE"             env-default:"AI Lecture Planner"`
	Timeout          time.Duration `yaml:"timeout"           env:"LLM_TIMEOUT"           env-default:"0s"`
	MaxAttempts      int           `yaml:"max_attempts"      env:"LLM_MAX_ATTEMPTS"      env-default:"3"`
	Backoff          time.Duration `yaml:"backoff"           env:"LLM_BACKOFF"           env-default:"1s"`
	ParseBudget      int           `yaml:"parse_budget"      env:"LLM_PARSE_BUDGET"      env-default:"3"`
	StructuredOutput bool          `yaml:"structured_output" env:"LLM_STRUCTURED_OUTPUT" env-default:"false"`
	StrictTree       bool          `yaml:"strict_tree"       env:"LLM_STRICT_TREE"       env-default:"true"`
	StrictSanitize   bool          `yaml:"strict_sanitize"   env:"LLM_STRICT_SANITIZE"   env-default:"true"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn"    env:"DATABASE_DSN"    env-default:"file:lectureplanner.db?cache=shared"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"     env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
	TTL      time.Duration `yaml:"ttl"      env:"REDIS_TTL"      env-default:"24h"`
	Prefix   string        `yaml:"prefix"   env:"REDIS_PREFIX"   env-default:"lp:course:"`
}

type CacheConfig struct {
	Size int `yaml:"size" env:"CACHE_SIZE" env-default:"256"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"OTEL_ENABLED"                env-default:"false"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME"           env-default:"lectureplanner"`
	Environment string  `yaml:"environment"  env:"APP_ENV"                     env-default:"dev"`
	Endpoint    string  `yaml:"endpoint"     env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `yaml:"insecure"     env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"false"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLER_RATIO"          env-default:"0.1"`
}

type IngestConfig struct {
	Timeout        time.Duration `yaml:"timeout"          env:"INGEST_TIMEOUT"          env-default:"3m"`
	MaxSourceBytes int           `yaml:"max_source_bytes" env:"INGEST_MAX_SOURCE_BYTES" env-default:"200000"`
}
