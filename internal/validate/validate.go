// Package validate содержит чистые функции проверки и нормализации входных данных:
// слагов, URL, цветов, дат истечения и тегов.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidSlug       = errors.New("invalid slug")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidColor      = errors.New("invalid color")
	ErrInvalidExpiration = errors.New("invalid expiration")
	ErrInvalidTag        = errors.New("invalid tag")
)

// MaxSlugLength - максимальная длина слага
const MaxSlugLength = 50

// ReservedSlugs содержит пути, занятые самим сервисом
var ReservedSlugs = map[string]struct{}{
	"api":     {},
	"qr":      {},
	"admin":   {},
	"_next":   {},
	"www":     {},
	"ping":    {},
	"static":  {},
	"assets":  {},
	"health":  {},
	"archive": {},
}

var (
	slugPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	colorPattern = regexp.MustCompile(`^[0-9a-fA-F]{3}([0-9a-fA-F]{3})?$`)
	tagStrip     = regexp.MustCompile(`[^a-z0-9-]+`)
)

// Slug проверяет слаг: длина 1..50, буквы, цифры, дефис и подчёркивание,
// не зарезервированное слово. Регистр значим.
func Slug(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if len(s) > MaxSlugLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSlug, s, MaxSlugLength)
	}
	if !slugPattern.MatchString(s) {
		return fmt.Errorf("%w: %q (use only letters, numbers, hyphens and underscores)", ErrInvalidSlug, s)
	}
	if _, reserved := ReservedSlugs[strings.ToLower(s)]; reserved {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSlug, s)
	}
	return nil
}

// URL проверяет, что строка - абсолютный http(s) URL. Доступность не проверяется.
func URL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http or https", ErrInvalidURL, s)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, s)
	}
	return nil
}

// NormalizeColor принимает hex-цвет из 3 или 6 цифр (с # или без) и возвращает вид #rrggbb
func NormalizeColor(s string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if !colorPattern.MatchString(hex) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	hex = strings.ToLower(hex)
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

// Expiration требует, чтобы candidate был строго позже now
func Expiration(candidate, now time.Time) error {
	if !candidate.After(now) {
		return fmt.Errorf("%w: %s is not after %s", ErrInvalidExpiration,
			candidate.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	return nil
}

// NormalizeTag приводит тег к нижнему регистру и удаляет символы вне [a-z0-9-].
// Пустой результат означает, что тег нужно отбросить.
func NormalizeTag(s string) string {
	return tagStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// Tags нормализует список тегов, убирая пустые и повторы с сохранением порядка
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Tag проверяет одиночный тег, переданный явно
func Tag(s string) (string, error) {
	n := NormalizeTag(s)
	if n == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, s)
	}
	return n, nil
}
