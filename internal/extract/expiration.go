package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Длительность единиц в днях
const (
	daysPerWeek  = 7
	daysPerMonth = 30
	// maxRelativeCount - наибольшее число единиц в относительной фразе
	maxRelativeCount = 10000
)

var (
	// 3 days, a week, one month, next month
	relativePhrase = regexp.MustCompile(`(?i)\b(?:(\d+|an?|one)\s+|next\s+)(day|week|month)s?\b`)

	isoDate      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDate    = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	monthDayDate = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Expiration ищет сначала относительный срок («in 2 weeks», «next month»),
// затем абсолютную дату. Возвращает nil, если ничего не найдено.
func Expiration(text string, now time.Time) *time.Time {
	if days, ok := relativeDays(text); ok {
		t := now.AddDate(0, 0, days)
		return &t
	}
	if t, ok := DatePhrase(text, now); ok {
		return &t
	}
	return nil
}

func relativeDays(text string) (int, bool) {
	m := relativePhrase.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n := 1
	if m[1] != "" && m[1][0] >= '0' && m[1][0] <= '9' {
		v, err := strconv.Atoi(m[1])
		if err != nil || v > maxRelativeCount {
			return 0, false
		}
		n = v
	}
	switch strings.ToLower(m[2]) {
	case "week":
		n *= daysPerWeek
	case "month":
		n *= daysPerMonth
	}
	return n, true
}

// DatePhrase находит самую раннюю по тексту абсолютную дату: ISO (2025-03-01),
// m/d/yyyy или «March 1[, 2025]». Дата без года берётся в текущем году
// и переносится на следующий, если уже прошла. Время - полночь UTC.
func DatePhrase(text string, now time.Time) (time.Time, bool) {
	var (
		best    time.Time
		bestPos = -1
	)
	consider := func(pos int, t time.Time) {
		if bestPos == -1 || pos < bestPos {
			best, bestPos = t, pos
		}
	}

	for _, re := range []*regexp.Regexp{isoDate, slashDate} {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		t, err := dateparse.ParseIn(text[loc[0]:loc[1]], time.UTC)
		if err != nil {
			continue
		}
		consider(loc[0], midnight(t))
	}

	if loc := monthDayDate.FindStringSubmatchIndex(text); loc != nil {
		if t, ok := monthDay(text, loc, now); ok {
			consider(loc[0], t)
		}
	}

	return best, bestPos != -1
}

func monthDay(text string, loc []int, now time.Time) (time.Time, bool) {
	month := monthsByPrefix[strings.ToLower(text[loc[2]:loc[2]+3])]
	day, err := strconv.Atoi(text[loc[4]:loc[5]])
	if err != nil {
		return time.Time{}, false
	}

	year := now.Year()
	explicitYear := loc[6] != -1
	if explicitYear {
		if year, err = strconv.Atoi(text[loc[6]:loc[7]]); err != nil {
			return time.Time{}, false
		}
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// 31 февраля и подобные time.Date молча переносит на следующий месяц
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	if !explicitYear && !t.After(now) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
