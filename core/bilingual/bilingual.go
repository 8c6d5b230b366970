// Package bilingual decides which of a record's Spanish/English values to show or index.
package bilingual

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Language string

const (
	Spanish Language = "es"
	English Language = "en"
	Both    Language = "both"
)

var (
	Languages = []Language{Spanish, English, Both}
	Locales   = []Language{Spanish, English}
)

func (l Language) IsValid() bool {
	return l == Spanish || l == English || l == Both
}

func (l Language) IsLocale() bool {
	return l == Spanish || l == English
}

// ParseLocale returns the locale named by s, or fallback when s is not "es" or "en".
func ParseLocale(s string, fallback Language) Language {
	if l := Language(strings.ToLower(strings.TrimSpace(s))); l.IsLocale() {
		return l
	}
	return fallback
}

// Text is a value held in both languages.
type Text struct {
	Es string `json:"es"`
	En string `json:"en"`
}

func (t Text) In(l Language) string {
	if l == English {
		return t.En
	}
	return t.Es
}

func (t Text) IsEmpty() bool {
	return isBlank(t.Es) && isBlank(t.En)
}

// Missing returns the languages lang makes authoritative for which t holds no value.
func (t Text) Missing(lang Language) []Language {
	var missing []Language
	for _, l := range Locales {
		if (lang == Both || lang == l) && isBlank(t.In(l)) {
			missing = append(missing, l)
		}
	}
	return missing
}

// Record is anything carrying bilingual fields.
type Record interface {
	// ContentLanguage tells which value of every bilingual field is authoritative.
	ContentLanguage() Language
	// BilingualField returns the values of the named field, false if the record has no such field.
	BilingualField(name string) (Text, bool)
}

func other(l Language) Language {
	if l == English {
		return Spanish
	}
	return English
}

func tag(l Language) string {
	return strings.ToUpper(string(l)) + ": "
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ResolveText picks the display value of t for locale.
//
// For lang "both", the two values are shown tagged, the locale's one first ("ES: …" / "EN: …").
// Otherwise the value in lang is preferred and the other one is the fallback.
// placeholder is returned when there is nothing to show.
func ResolveText(lang Language, t Text, locale Language, placeholder string) string {
	if !locale.IsLocale() {
		locale = Spanish
	}
	if t.IsEmpty() {
		return placeholder
	}

	if lang == Both {
		first, second := locale, other(locale)
		v1, v2 := strings.TrimSpace(t.In(first)), strings.TrimSpace(t.In(second))
		switch {
		case v1 != "" && v2 != "":
			return tag(first) + v1 + " / " + tag(second) + v2
		case v1 != "":
			return v1
		default:
			return v2
		}
	}

	preferred := lang
	if !preferred.IsLocale() {
		preferred = locale
	}
	if v := strings.TrimSpace(t.In(preferred)); v != "" {
		return v
	}
	return strings.TrimSpace(t.In(other(preferred)))
}

// SearchKeyText builds the lower-cased string a record is searched by.
// For lang "both" it holds both values, Spanish first, whatever the locale.
func SearchKeyText(lang Language, t Text, locale Language) string {
	if t.IsEmpty() {
		return ""
	}
	if lang == Both {
		parts := make([]string, 0, 2)
		for _, v := range []string{t.Es, t.En} {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, strings.ToLower(v))
			}
		}
		return strings.Join(parts, " ")
	}
	return strings.ToLower(ResolveText(lang, t, locale, ""))
}

// Resolve is ResolveText applied to a record's field.
func Resolve(rec Record, field string, locale Language, placeholder string) string {
	t, ok := rec.BilingualField(field)
	if !ok {
		return placeholder
	}
	return ResolveText(rec.ContentLanguage(), t, locale, placeholder)
}

// SearchKey is SearchKeyText applied to a record's fields, space-joined.
func SearchKey(rec Record, locale Language, fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		t, ok := rec.BilingualField(f)
		if !ok {
			continue
		}
		if k := SearchKeyText(rec.ContentLanguage(), t, locale); k != "" {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, " ")
}

// Fold lower-cases s, strips accents and collapses whitespace,
// so that "Matemáticas  Básicas" and "matematicas basicas" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Matches reports whether the folded query is contained in the folded key.
func Matches(key, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(Fold(key), q)
}
