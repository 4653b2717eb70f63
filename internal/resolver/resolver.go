// Package resolver превращает слаг в адрес перенаправления.
//
// Resolve ничего не изменяет и не синхронизирует: он читает локальный индекс
// хранилища, поэтому повторный вызов с тем же моментом времени даёт тот же результат.
package resolver

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jamiechicago312/openlinks/internal/models"
)

// Kind - вариант результата разрешения
type Kind int

const (
	// Found - активная запись, URL содержит назначение с UTM-параметрами
	Found Kind = iota
	// NotFound - записи нет, URL указывает на основной домен
	NotFound
	// Expired - срок действия прошёл, URL указывает на запасной адрес
	Expired
)

// String возвращает имя варианта
func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// MarshalText кодирует вариант именем
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText разбирает имя варианта
func (k *Kind) UnmarshalText(text []byte) error {
	for _, v := range []Kind{Found, NotFound, Expired} {
		if v.String() == string(text) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown resolution kind %q", text)
}

// Result - итог разрешения слага
type Result struct {
	Kind Kind   `json:"kind"`
	URL  string `json:"url"`
}

// Reader - путь чтения хранилища
type Reader interface {
	Get(slug string) (models.Link, bool)
}

// Resolver разрешает слаги по записям хранилища
type Resolver struct {
	reader Reader
	site   *models.SiteConfig
}

// New создаёт Resolver. site задаёт основной домен для ненайденных и истёкших ссылок.
func New(reader Reader, site *models.SiteConfig) *Resolver {
	return &Resolver{reader: reader, site: site}
}

// Resolve возвращает адрес перенаправления для слага в момент now
func (r *Resolver) Resolve(slug string, now time.Time) Result {
	link, ok := r.reader.Get(slug)
	if !ok {
		return Result{Kind: NotFound, URL: r.site.PrimaryDomain}
	}
	if link.IsExpired(now) {
		fallback := link.RedirectAfterExpiry
		if fallback == "" {
			fallback = r.site.PrimaryDomain
		}
		return Result{Kind: Expired, URL: fallback}
	}
	return Result{Kind: Found, URL: MergeUTM(link.Destination, link.UTMParams)}
}

// MergeUTM добавляет UTM-параметры к адресу назначения. Параметр, уже
// присутствующий в query назначения, не перезаписывается.
func MergeUTM(destination string, params map[string]string) string {
	if len(params) == 0 {
		return destination
	}
	u, err := url.Parse(destination)
	if err != nil {
		return destination
	}

	// Существующий query сохраняется как есть, новые параметры дописываются
	// в конец в порядке канонических ключей
	query := u.Query()
	raw := u.RawQuery
	for _, key := range models.SortedUTMKeys(params) {
		qk := models.UTMQueryKey(key)
		if query.Has(qk) {
			continue
		}
		pair := url.QueryEscape(qk) + "=" + url.QueryEscape(params[key])
		if raw == "" {
			raw = pair
		} else {
			raw += "&" + pair
		}
	}
	u.RawQuery = raw
	return u.String()
}
