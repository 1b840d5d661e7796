package orders

import (
	"regexp"
	"testing"
	"time"
)

var orderNumberRe = regexp.MustCompile(`^[A-Z]{2}\d{4}-\d{3}[0-9A-F]{2}$`)

func TestGenerateOrderNumberShape(t *testing.T) {
	now := time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		got := GenerateOrderNumber("Ana Duarte", now)
		if !orderNumberRe.MatchString(got) {
			t.Fatalf("order number %q does not match expected shape", got)
		}
		if got[:6] != "AD2508" {
			t.Fatalf("order number %q: want prefix AD2508", got)
		}
	}
}

func TestFormatOrderNumber(t *testing.T) {
	now := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	got := formatOrderNumber("Bruno Costa", now, 123, 0x7F)
	if got != "BC2412-1237F" {
		t.Fatalf("got %q, want BC2412-1237F", got)
	}
}

func TestInitials(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"two names", "Ana Duarte", "AD"},
		{"three names uses first two", "Ana Maria Duarte", "AM"},
		{"single name uses first two letters", "Ana", "AN"},
		{"single letter padded", "A", "AX"},
		{"lowercase is uppercased", "ana duarte", "AD"},
		{"digits become X", "4you Shop", "XS"},
		{"accented letters become X", "Ágata Íris", "XX"},
		{"empty falls back", "", "CL"},
		{"whitespace only falls back", "   ", "CL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := initials(tc.in); got != tc.want {
				t.Fatalf("initials(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
