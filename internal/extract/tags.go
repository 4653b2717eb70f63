package extract

import (
	"regexp"

	"github.com/jamiechicago312/openlinks/internal/validate"
)

var (
	// tag this as ..., tagged ..., labels: ..., tag them with ...
	tagIntro = regexp.MustCompile(`(?i)\b(?:tags?|tagged|labels?|label(?:l)?ed)\b(?:\s+(?:this|it|them|these|those|the\s+links?|links?))?(?:\s+(?:as|with|to))?\s*:?\s*`)
	// список заканчивается на конце предложения
	tagListEnd = regexp.MustCompile(`[.;!?\n]`)
	// или на словах, открывающих другую часть запроса
	tagListStop = regexp.MustCompile(`(?i)\b(?:expir\w*|utm\w*|with|for|until|redirect\w*|then)\b`)
	tagListSep  = regexp.MustCompile(`(?i)\s*(?:,|&|\band\b)\s*`)
)

// Tags ищет явный список тегов после ключевого слова (tag, tags, tagged, label).
// Каждый элемент приводится к нижнему регистру, из него удаляются символы вне [a-z0-9-].
func Tags(text string) []string {
	loc := tagIntro.FindStringIndex(text)
	if loc == nil {
		return []string{}
	}
	list := text[loc[1]:]
	if end := tagListEnd.FindStringIndex(list); end != nil {
		list = list[:end[0]]
	}
	if stop := tagListStop.FindStringIndex(list); stop != nil {
		list = list[:stop[0]]
	}
	return validate.Tags(tagListSep.Split(list, -1))
}
