package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMapURL — базовый адрес карт для ссылки на координаты.
const DefaultMapURL = "https://www.google.com/maps"

// MapURL формирует ссылку вида "<base>?q=<lat>,<lon>".
// Координаты записываются без потери точности.
func MapURL(base string, g GPS) string {
	if base == "" {
		base = DefaultMapURL
	}
	return fmt.Sprintf("%s?q=%s,%s", base,
		strconv.FormatFloat(g.Lat, 'f', -1, 64),
		strconv.FormatFloat(g.Lon, 'f', -1, 64),
	)
}

// ParseMapURL извлекает координаты из ссылки, сформированной MapURL.
func ParseMapURL(raw string) (GPS, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return GPS{}, fmt.Errorf("некорректная ссылка %q: %w", raw, err)
	}

	q := u.Query().Get("q")
	latStr, lonStr, ok := strings.Cut(q, ",")
	if !ok {
		return GPS{}, fmt.Errorf("ссылка %q не содержит координат", raw)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return GPS{}, fmt.Errorf("некорректная широта %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return GPS{}, fmt.Errorf("некорректная долгота %q: %w", lonStr, err)
	}

	return GPS{Lat: lat, Lon: lon}, nil
}
