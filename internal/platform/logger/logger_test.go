package logger

import "testing"

func TestRedactorMasksSecrets(t *testing.T) {
	r := &redactor{enabled: true, salt: "s"}
	out := r.kvs([]interface{}{
		"api_key", "sk-or-v1-abc",
		"Authorization", "Bearer sk-or-v1-abc",
		"status", 500,
		"header", "Bearer xyz",
		"session_id", "abc-123",
	})
	if len(out) != 10 {
		t.Fatalf("unexpected kv length: %d", len(out))
	}
	if out[1] != redacted || out[3] != redacted || out[7] != redacted {
		t.Fatalf("secrets not redacted: %#v", out)
	}
	if out[5] != 500 {
		t.Fatalf("status should pass through, got %#v", out[5])
	}
	h, ok := out[9].(string)
	if !ok || len(h) != len("hash:")+12 {
		t.Fatalf("session id not hashed: %#v", out[9])
	}
}

func TestRedactorDisabledPassesThrough(t *testing.T) {
	r := &redactor{enabled: false}
	in := []interface{}{"api_key", "sk-1"}
	out := r.kvs(in)
	if out[1] != "sk-1" {
		t.Fatalf("expected passthrough, got %#v", out[1])
	}
}

func TestRedactorOddKVs(t *testing.T) {
	r := &redactor{enabled: true}
	out := r.kvs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %#v", out)
	}
}

func TestNopLoggerWith(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("hello", "token", "x")
	l.Sync()
}
