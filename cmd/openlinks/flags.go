package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/pflag"

	"github.com/jamiechicago312/openlinks/internal/models"
)

// parseUTM разбирает пары key=value; ключ приводится к короткой форме
func parseUTM(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid UTM parameter %q, want key=value", pair)
		}
		params[models.UTMKey(key)] = strings.TrimSpace(value)
	}
	return params, nil
}

// parseTime принимает дату или момент в любом распространённом формате.
// Значение без зоны считается UTC.
func parseTime(value string) (*time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(value), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	t = t.UTC()
	return &t, nil
}

// filterFlags регистрирует флаги выборки записей
func filterFlags(fs *pflag.FlagSet, filter *models.ListFilter) {
	fs.StringSliceVar(&filter.Tags, "tag", nil, "keep links carrying all of these tags")
	fs.BoolVar(&filter.IncludeExpired, "include-expired", false, "include expired links")
	fs.BoolVar(&filter.ExpiredOnly, "expired-only", false, "only expired links")
	fs.IntVar(&filter.Limit, "limit", 0, "maximum number of links, 0 means no limit")
}

// updateFlags описывает флаги частичного обновления с префиксом prefix
type updateFlags struct {
	prefix          string
	destination     string
	expires         string
	clearExpiration bool
	redirect        string
	tags            []string
	utm             []string
	description     string
}

func (u *updateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&u.destination, u.prefix+"destination", "", "new destination URL")
	fs.StringVar(&u.expires, u.prefix+"expires", "", "new expiration date")
	fs.BoolVar(&u.clearExpiration, "clear-expiration", false, "remove the expiration date")
	fs.StringVar(&u.redirect, u.prefix+"redirect", "", "URL to redirect to after expiry")
	fs.StringSliceVar(&u.tags, u.prefix+"tag", nil, "replace tags")
	fs.StringSliceVar(&u.utm, u.prefix+"utm", nil, "replace UTM parameters, key=value")
	fs.StringVar(&u.description, u.prefix+"description", "", "new description")
}

// build переносит в LinkUpdate только флаги, заданные явно
func (u *updateFlags) build(fs *pflag.FlagSet) (models.LinkUpdate, error) {
	var update models.LinkUpdate
	changed := func(name string) bool { return fs.Changed(u.prefix + name) }

	if changed("destination") {
		update.Destination = &u.destination
	}
	if changed("expires") {
		t, err := parseTime(u.expires)
		if err != nil {
			return update, err
		}
		update.ExpiresAt = t
	}
	update.ClearExpiration = u.clearExpiration
	if changed("redirect") {
		update.RedirectAfterExpiry = &u.redirect
	}
	if changed("tag") {
		update.Tags = append([]string{}, u.tags...)
	}
	if changed("utm") {
		params, err := parseUTM(u.utm)
		if err != nil {
			return update, err
		}
		update.UTMParams = params
	}
	if changed("description") {
		update.Description = &u.description
	}
	if update.IsEmpty() {
		return update, fmt.Errorf("nothing to update")
	}
	return update, nil
}
