package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/validate"
)

// timestampLayout используется в id записи и в ключе архивной копии
const timestampLayout = "20060102_150405"

// newID формирует id вида {slug}_{YYYYmmdd_HHMMSS}_{8 hex}
func newID(slug string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", slug, now.UTC().Format(timestampLayout), suffix)
}

// archiveKey возвращает свободный ключ архивной копии {slug}_{timestamp}
func archiveKey(slug string, now time.Time, taken func(string) bool) string {
	key := slug + "_" + now.UTC().Format(timestampLayout)
	if !taken(key) {
		return key
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", key, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Сообщения фиксаций
func addMessage(l models.Link) string {
	return fmt.Sprintf("Add link: %s → %s", l.Slug, l.Destination)
}

func updateMessage(slug string, update models.LinkUpdate) string {
	return fmt.Sprintf("Update link: %s (%s)", slug, strings.Join(update.Fields(), ", "))
}

func deleteMessage(slug string) string {
	return "Delete link: " + slug
}

// normalizeUTM приводит ключи к каноническому виду и отбрасывает пустые значения
func normalizeUTM(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		key := models.UTMKey(k)
		v = strings.TrimSpace(v)
		if key == "" || v == "" {
			continue
		}
		out[key] = v
	}
	return out
}

func normalizeQR(qr *models.QRConfig) (*models.QRConfig, error) {
	if qr == nil {
		return nil, nil
	}
	out := *qr
	for _, color := range []*string{&out.ForegroundColor, &out.BackgroundColor} {
		if *color == "" {
			continue
		}
		normalized, err := validate.NormalizeColor(*color)
		if err != nil {
			return nil, err
		}
		*color = normalized
	}
	return &out, nil
}

// prepareNew проверяет входную запись и заполняет поля, которые присваивает хранилище
func prepareNew(in models.Link, now time.Time) (models.Link, error) {
	if err := validate.Slug(in.Slug); err != nil {
		return models.Link{}, err
	}
	if err := validate.URL(in.Destination); err != nil {
		return models.Link{}, err
	}
	if in.RedirectAfterExpiry != "" {
		if err := validate.URL(in.RedirectAfterExpiry); err != nil {
			return models.Link{}, err
		}
	}
	if in.ExpiresAt != nil {
		if err := validate.Expiration(*in.ExpiresAt, now); err != nil {
			return models.Link{}, err
		}
	}
	qr, err := normalizeQR(in.QRConfig)
	if err != nil {
		return models.Link{}, err
	}

	out := in.Clone()
	out.ID = newID(in.Slug, now)
	out.CreatedAt = now
	out.Metadata.LastModified = now
	if out.CreatedBy == "" {
		out.CreatedBy = models.DefaultCreatedBy
	}
	if out.ExpiresAt != nil {
		t := out.ExpiresAt.UTC()
		out.ExpiresAt = &t
	}
	out.Tags = validate.Tags(in.Tags)
	out.UTMParams = normalizeUTM(in.UTMParams)
	out.QRConfig = qr
	return out, nil
}

// validateUpdate проверяет поля обновления до начала синхронизации
func validateUpdate(update models.LinkUpdate, now time.Time) error {
	if update.Destination != nil {
		if err := validate.URL(*update.Destination); err != nil {
			return err
		}
	}
	if update.RedirectAfterExpiry != nil && *update.RedirectAfterExpiry != "" {
		if err := validate.URL(*update.RedirectAfterExpiry); err != nil {
			return err
		}
	}
	if update.ExpiresAt != nil {
		if err := validate.Expiration(*update.ExpiresAt, now); err != nil {
			return err
		}
	}
	if _, err := normalizeQR(update.QRConfig); err != nil {
		return err
	}
	return nil
}

// applyUpdate применяет обновление к копии записи. id и created_at не меняются.
func applyUpdate(link models.Link, update models.LinkUpdate, now time.Time) models.Link {
	out := link.Clone()
	if update.Destination != nil {
		out.Destination = *update.Destination
	}
	if update.ClearExpiration {
		out.ExpiresAt = nil
	}
	if update.ExpiresAt != nil {
		t := update.ExpiresAt.UTC()
		out.ExpiresAt = &t
	}
	if update.RedirectAfterExpiry != nil {
		out.RedirectAfterExpiry = *update.RedirectAfterExpiry
	}
	if update.Tags != nil {
		out.Tags = validate.Tags(update.Tags)
	}
	if update.UTMParams != nil {
		out.UTMParams = normalizeUTM(update.UTMParams)
	}
	if update.QRConfig != nil {
		// Ошибка уже исключена validateUpdate
		out.QRConfig, _ = normalizeQR(update.QRConfig)
	}
	if update.Description != nil {
		out.Metadata.Description = *update.Description
	}
	out.Metadata.LastModified = now
	return out
}

// matches проверяет запись по фильтру
func matches(l models.Link, filter models.ListFilter, now time.Time) bool {
	expired := l.IsExpired(now)
	if filter.ExpiredOnly && !expired {
		return false
	}
	if expired && !filter.IncludeExpired && !filter.ExpiredOnly {
		return false
	}
	return l.HasTags(validate.Tags(filter.Tags))
}

// sortNewestFirst сортирует по created_at по убыванию, при равенстве по слагу
func sortNewestFirst(links []models.Link) {
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].Slug < links[j].Slug
	})
}

// selectLinks отбирает, сортирует и обрезает выборку
func selectLinks(all map[string]models.Link, filter models.ListFilter, now time.Time) []models.Link {
	out := make([]models.Link, 0, len(all))
	for _, l := range all {
		if matches(l, filter, now) {
			out = append(out, l.Clone())
		}
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// sortArchived сортирует архивные копии: последние изменённые первыми
func sortArchived(links []models.Link) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i].Metadata.LastModified, links[j].Metadata.LastModified
		if !a.Equal(b) {
			return a.After(b)
		}
		return links[i].ID < links[j].ID
	})
}

func countStats(active, archived map[string]models.Link, now time.Time) Stats {
	s := Stats{Active: len(active), Archived: len(archived)}
	for _, l := range active {
		if l.IsExpired(now) {
			s.Expired++
		}
	}
	return s
}
