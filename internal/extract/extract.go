// Package extract извлекает из произвольного текста структурированные кандидаты:
// теги, UTM-параметры и дату истечения. Извлечение детерминировано и построено
// на правилах, без обращения к языковой модели.
package extract

import (
	"time"

	"github.com/jamiechicago312/openlinks/internal/validate"
)

// Candidates содержит результат извлечения. Отсутствие совпадения не ошибка:
// пустые Tags/UTMParams и nil ExpiresAt означают «ничего не найдено».
type Candidates struct {
	Tags      []string          `json:"tags"`
	UTMParams map[string]string `json:"utm_params"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// Explicit содержит значения, переданные вызывающим явно.
// Nil-поле означает «не передано» и уступает место извлечённому кандидату.
type Explicit struct {
	Tags      []string
	UTMParams map[string]string
	ExpiresAt *time.Time
}

// Extract прогоняет все три извлекателя по тексту относительно момента now
func Extract(text string, now time.Time) Candidates {
	return Candidates{
		Tags:      Tags(text),
		UTMParams: UTM(text, now),
		ExpiresAt: Expiration(text, now),
	}
}

// Resolve объединяет извлечённые кандидаты с явными аргументами.
// Явное поле всегда заменяет кандидата для того же поля целиком.
func Resolve(text string, explicit Explicit, now time.Time) Candidates {
	c := Extract(text, now)
	if explicit.Tags != nil {
		c.Tags = validate.Tags(explicit.Tags)
	}
	if explicit.UTMParams != nil {
		c.UTMParams = normalizeUTM(explicit.UTMParams)
	}
	if explicit.ExpiresAt != nil {
		t := *explicit.ExpiresAt
		c.ExpiresAt = &t
	}
	return c
}
