package model

import (
	"strings"
	"testing"
)

// TestMapURL_RoundTrip проверяет, что координаты без потерь проходят через ссылку.
func TestMapURL_RoundTrip(t *testing.T) {
	coords := []GPS{
		{Lat: 40.689247, Lon: -74.044502},
		{Lat: -33.856784, Lon: 151.215297},
		{Lat: 48.8583 + 1.0/3600, Lon: 2.2944 + 7.0/60},
		{Lat: 0, Lon: 0},
		{Lat: 90, Lon: -180},
	}

	for _, g := range coords {
		raw := MapURL("", g)
		if !strings.HasPrefix(raw, DefaultMapURL+"?q=") {
			t.Errorf("неожиданный формат ссылки: %s", raw)
		}

		got, err := ParseMapURL(raw)
		if err != nil {
			t.Fatalf("ошибка разбора %s: %v", raw, err)
		}
		if got != g {
			t.Errorf("координаты: ожидалось %+v, получено %+v", g, got)
		}
	}
}

func TestMapURL_Format(t *testing.T) {
	got := MapURL("https://maps.example.org/search", GPS{Lat: 12.5, Lon: -7.25})
	want := "https://maps.example.org/search?q=12.5,-7.25"
	if got != want {
		t.Errorf("ожидалось %q, получено %q", want, got)
	}
}

func TestParseMapURL_Invalid(t *testing.T) {
	cases := []string{
		"https://www.google.com/maps",
		"https://www.google.com/maps?q=abc,1",
		"https://www.google.com/maps?q=1,xyz",
		"://bad",
	}
	for _, raw := range cases {
		if _, err := ParseMapURL(raw); err == nil {
			t.Errorf("ожидалась ошибка для %q", raw)
		}
	}
}
