package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the process logger is built. Zero value gives a
// development logger at debug level with redaction on.
type Options struct {
	Mode          string
	Level         string
	DisableRedact bool
	HashSalt      string
}

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	redactor      *redactor
}

func New(mode string) (*Logger, error) {
	return NewWithOptions(Options{Mode: mode})
}

func NewWithOptions(opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{
		SugaredLogger: zapLogger.Sugar(),
		redactor:      &redactor{enabled: !opts.DisableRedact, salt: opts.HashSalt},
	}, nil
}

// Nop discards everything. Used by tests and by callers that pass a nil logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), redactor: &redactor{enabled: true}}
}

func parseLevel(raw string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(raw))
	if err != nil || strings.TrimSpace(raw) == "" {
		return zap.DebugLevel
	}
	return lvl
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.redactor.kvs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.redactor.kvs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.redactor.kvs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.redactor.kvs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.redactor.kvs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(l.redactor.kvs(keysAndValues)...),
		redactor:      l.redactor,
	}
}

type redactor struct {
	enabled bool
	salt    string
}

const redacted = "[REDACTED]"

func (r *redactor) kvs(kv []interface{}) []interface{} {
	if len(kv) == 0 || r == nil || !r.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := strings.TrimSpace(strings.ToLower(toString(kv[i])))
		out = append(out, toString(kv[i]), r.value(key, kv[i+1]))
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	if key != "" {
		if secretKey(key) {
			return redacted
		}
		if hashedKey(key) {
			return r.hash(val)
		}
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(strings.TrimSpace(strings.ToLower(k)), inner)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(strings.TrimSpace(strings.ToLower(k)), inner)
		}
		return out
	case string:
		if looksLikeBearer(v) {
			return redacted
		}
		return v
	default:
		return val
	}
}

func secretKey(key string) bool {
	for _, frag := range []string{"api_key", "apikey", "authorization", "token", "secret", "password", "cookie"} {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func hashedKey(key string) bool {
	return strings.Contains(key, "session_id") || strings.Contains(key, "client_ip")
}

func (r *redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if r.salt != "" {
		_, _ = h.Write([]byte(r.salt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

// Provider keys look like "sk-or-v1-<hex>"; bearer strings carry them verbatim.
func looksLikeBearer(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(strings.ToLower(t), "bearer ") || strings.HasPrefix(t, "sk-")
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
