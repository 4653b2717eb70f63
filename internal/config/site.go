package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/validate"
)

// Значения сайта по умолчанию
const (
	DefaultBaseURL       = "https://go.openhands.dev"
	DefaultPrimaryDomain = "https://openhands.dev"
)

// SitePath - путь записи конфигурации сайта относительно рабочего дерева
var SitePath = "data/config.json"

// DefaultSite возвращает конфигурацию сайта по умолчанию
func DefaultSite() *models.SiteConfig {
	return &models.SiteConfig{
		BaseURL:       DefaultBaseURL,
		PrimaryDomain: DefaultPrimaryDomain,
		QRDefaults: models.QRConfig{
			ForegroundColor: "#000000",
			BackgroundColor: "#ffffff",
		},
	}
}

// LoadSite читает конфигурацию сайта из файла. Расширения .yaml и .yml
// разбираются как YAML, остальные как JSON. Отсутствующий файл даёт значения
// по умолчанию; незаданные поля файла тоже берутся из значений по умолчанию.
func LoadSite(file string) (*models.SiteConfig, error) {
	site := DefaultSite()

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read site config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, site)
	default:
		err = json.Unmarshal(data, site)
	}
	if err != nil {
		return nil, fmt.Errorf("parse site config %s: %w", file, err)
	}

	if err := validateSite(site); err != nil {
		return nil, err
	}
	return site, nil
}

// validateSite проверяет адреса и цвета конфигурации сайта
func validateSite(site *models.SiteConfig) error {
	for _, u := range []string{site.BaseURL, site.PrimaryDomain} {
		if err := validate.URL(u); err != nil {
			return fmt.Errorf("site config: %w", err)
		}
	}
	if site.DefaultExpirationDays < 0 {
		return fmt.Errorf("site config: default_expiration_days must not be negative")
	}
	for _, c := range []*string{&site.QRDefaults.ForegroundColor, &site.QRDefaults.BackgroundColor} {
		if *c == "" {
			continue
		}
		norm, err := validate.NormalizeColor(*c)
		if err != nil {
			return fmt.Errorf("site config: %w", err)
		}
		*c = norm
	}
	return nil
}
