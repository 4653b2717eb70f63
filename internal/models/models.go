// Package models содержит типы данных OpenLinks: запись ссылки, конфигурацию сайта,
// фильтры выборки и параметры частичного обновления.
package models

import (
	"sort"
	"strings"
	"time"
)

// Канонические ключи UTM-параметров
const (
	UTMSource   = "source"
	UTMMedium   = "medium"
	UTMCampaign = "campaign"
	UTMContent  = "content"
	UTMTerm     = "term"
)

// UTMKeys перечисляет канонические ключи в порядке отображения
var UTMKeys = []string{UTMSource, UTMMedium, UTMCampaign, UTMContent, UTMTerm}

// DefaultCreatedBy используется, если автор записи не указан
const DefaultCreatedBy = "openlinks-agent"

// QRConfig описывает оформление QR-кода ссылки
type QRConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ForegroundColor string `json:"foreground_color,omitempty" yaml:"foreground_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	Logo            bool   `json:"logo,omitempty" yaml:"logo,omitempty"`
	FilePath        string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// LinkMetadata содержит описательные поля записи
type LinkMetadata struct {
	Description  string    `json:"description"`
	LastModified time.Time `json:"last_modified"`
}

// Link представляет запись короткой ссылки
type Link struct {
	ID                  string            `json:"id"`
	Slug                string            `json:"slug"`
	Destination         string            `json:"destination"`
	CreatedAt           time.Time         `json:"created_at"`
	CreatedBy           string            `json:"created_by,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at"`
	RedirectAfterExpiry string            `json:"redirect_after_expiry,omitempty"`
	Tags                []string          `json:"tags"`
	UTMParams           map[string]string `json:"utm_params"`
	QRConfig            *QRConfig         `json:"qr_config,omitempty"`
	Metadata            LinkMetadata      `json:"metadata"`
}

// IsExpired сообщает, истёк ли срок действия ссылки к моменту now.
// Ссылка с expires_at = t0 ещё действует в момент t0.
func (l Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// HasTags проверяет, что у ссылки есть все перечисленные теги
func (l Link) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range l.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Clone возвращает независимую копию записи
func (l Link) Clone() Link {
	c := l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	if l.Tags != nil {
		c.Tags = append([]string(nil), l.Tags...)
	}
	if l.UTMParams != nil {
		c.UTMParams = make(map[string]string, len(l.UTMParams))
		for k, v := range l.UTMParams {
			c.UTMParams[k] = v
		}
	}
	if l.QRConfig != nil {
		qr := *l.QRConfig
		c.QRConfig = &qr
	}
	return c
}

// UTMKey приводит ключ к каноническому виду без префикса utm_
func UTMKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.TrimPrefix(key, "utm_")
}

// UTMQueryKey возвращает имя query-параметра для ключа UTM
func UTMQueryKey(key string) string {
	return "utm_" + UTMKey(key)
}

// SortedUTMKeys возвращает ключи UTM: сначала канонические, затем остальные по алфавиту
func SortedUTMKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, k := range UTMKeys {
		if _, ok := params[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var extra []string
	for k := range params {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// SiteConfig - общая для процесса запись конфигурации (data/config.json)
type SiteConfig struct {
	BaseURL               string   `json:"base_url" yaml:"base_url"`
	PrimaryDomain         string   `json:"primary_domain" yaml:"primary_domain"`
	DefaultUTMMedium      string   `json:"default_utm_medium,omitempty" yaml:"default_utm_medium,omitempty"`
	DefaultExpirationDays int      `json:"default_expiration_days,omitempty" yaml:"default_expiration_days,omitempty"`
	QRDefaults            QRConfig `json:"qr_defaults" yaml:"qr_defaults"`
}

// ListFilter задаёт выборку активных записей.
// Tags проверяются по И: у записи должны быть все теги.
type ListFilter struct {
	Tags           []string `json:"tags,omitempty"`
	IncludeExpired bool     `json:"include_expired,omitempty"`
	// ExpiredOnly оставляет только истёкшие записи (пресет очистки)
	ExpiredOnly bool `json:"expired_only,omitempty"`
	// Limit ограничивает размер ответа, 0 - без ограничения
	Limit int `json:"limit,omitempty"`
}

// LinkUpdate описывает частичное обновление записи.
// Nil-поля не изменяются; для снятия срока действия используется ClearExpiration.
type LinkUpdate struct {
	Destination         *string           `json:"destination,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	ClearExpiration     bool              `json:"clear_expiration,omitempty"`
	RedirectAfterExpiry *string           `json:"redirect_after_expiry,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	UTMParams           map[string]string `json:"utm_params,omitempty"`
	QRConfig            *QRConfig         `json:"qr_config,omitempty"`
	Description         *string           `json:"description,omitempty"`
}

// Fields возвращает имена полей, которые затрагивает обновление
func (u LinkUpdate) Fields() []string {
	var fields []string
	if u.Destination != nil {
		fields = append(fields, "destination")
	}
	if u.ExpiresAt != nil || u.ClearExpiration {
		fields = append(fields, "expires_at")
	}
	if u.RedirectAfterExpiry != nil {
		fields = append(fields, "redirect_after_expiry")
	}
	if u.Tags != nil {
		fields = append(fields, "tags")
	}
	if u.UTMParams != nil {
		fields = append(fields, "utm_params")
	}
	if u.QRConfig != nil {
		fields = append(fields, "qr_config")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	return fields
}

// IsEmpty сообщает, что обновление ничего не меняет
func (u LinkUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}
