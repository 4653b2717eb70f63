package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/jamiechicago312/openlinks/internal/models"
)

var explicitUTM = regexp.MustCompile(`(?i)\butm_(source|medium|campaign|content|term)\s*[=:]\s*["']?([^\s,;&"']+)`)

// intent - фраза намерения и UTM-параметры, которые она подразумевает
type intent struct {
	pattern *regexp.Regexp
	params  func(match []string) map[string]string
}

// intents проверяются по порядку; более ранний выигрывает у более позднего
var intents = []intent{
	{
		pattern: regexp.MustCompile(`(?i)\bnewsletters?\b`),
		params: func([]string) map[string]string {
			return map[string]string{models.UTMSource: "newsletter", models.UTMMedium: "email"}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(twitter|linkedin|facebook|instagram|youtube|reddit|mastodon|bluesky|tiktok|discord|slack)\b`),
		params: func(m []string) map[string]string {
			return map[string]string{models.UTMSource: strings.ToLower(m[1]), models.UTMMedium: "social"}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bsocial\b`),
		params: func([]string) map[string]string {
			return map[string]string{models.UTMMedium: "social"}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(?:conference|qr(?:[\s-]?codes?)?|booth|flyers?|posters?)\b`),
		params: func([]string) map[string]string {
			return map[string]string{models.UTMMedium: "qr-code"}
		},
	},
}

// UTM извлекает UTM-параметры в два прохода: явные токены utm_key=value и фразы
// намерения. Явные значения всегда выигрывают у выведенных. При наличии даты
// синтезируется campaign вида month-day-year, если она не задана явно.
func UTM(text string, now time.Time) map[string]string {
	params := make(map[string]string)

	for _, m := range explicitUTM.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1])
		if _, set := params[key]; !set {
			params[key] = m[2]
		}
	}

	for _, in := range intents {
		m := in.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for k, v := range in.params(m) {
			if _, set := params[k]; !set {
				params[k] = v
			}
		}
	}

	if len(params) > 0 {
		if _, set := params[models.UTMCampaign]; !set {
			if date, ok := DatePhrase(text, now); ok {
				params[models.UTMCampaign] = CampaignName(date)
			}
		}
	}
	return params
}

// CampaignName форматирует дату как january-15-2025
func CampaignName(t time.Time) string {
	return strings.ToLower(t.Format("January-2-2006"))
}

func normalizeUTM(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := models.UTMKey(k)
		if key == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}
