package intake

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Week 1: Sets", "Week 1: Sets"},
		{"bom and crlf", "\ufeffWeek 1\r\nWeek 2\r\n", "Week 1\nWeek 2"},
		{"lone cr", "a\rb", "a\nb"},
		{"nfc", "Cafe\u0301 culture", "Caf\u00e9 culture"},
		{"control chars", "a\x07b\tc\x1bd", "ab\tcd"},
		{"surrounding space", "  \n topic \n\n", "topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize([]byte(tc.in), 0)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	if _, err := Normalize([]byte(" \r\n\t"), 0); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Normalize([]byte(strings.Repeat("a", 11)), 10); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := Normalize([]byte("PK\x03\x04\x00\x00binary"), 0); !errors.Is(err, ErrBinary) {
		t.Fatalf("expected ErrBinary, got %v", err)
	}
}

func TestNormalizeRepairsStrayBytes(t *testing.T) {
	got, err := Normalize([]byte("ok \xff done"), 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "ok \ufffd done" {
		t.Fatalf("got %q", got)
	}
}
