package bilingual

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type course struct {
	lang Language
	name Text
	desc Text
}

func (c course) ContentLanguage() Language { return c.lang }

func (c course) BilingualField(name string) (Text, bool) {
	switch name {
	case "name":
		return c.name, true
	case "description":
		return c.desc, true
	}
	return Text{}, false
}

func TestResolveText(t *testing.T) {
	full := Text{Es: "Matemáticas", En: "Mathematics"}

	tests := []struct {
		name   string
		lang   Language
		text   Text
		locale Language
		want   string
	}{
		{name: "both, es locale first", lang: Both, text: full, locale: Spanish, want: "ES: Matemáticas / EN: Mathematics"},
		{name: "both, en locale first", lang: Both, text: full, locale: English, want: "EN: Mathematics / ES: Matemáticas"},
		{name: "both, only es", lang: Both, text: Text{Es: "Matemáticas"}, locale: English, want: "Matemáticas"},
		{name: "both, only en", lang: Both, text: Text{En: "Mathematics"}, locale: Spanish, want: "Mathematics"},
		{name: "en preferred", lang: English, text: full, locale: Spanish, want: "Mathematics"},
		{name: "es preferred", lang: Spanish, text: full, locale: English, want: "Matemáticas"},
		{name: "en falls back to es", lang: English, text: Text{Es: "Matemáticas"}, locale: English, want: "Matemáticas"},
		{name: "whitespace counts as empty", lang: Spanish, text: Text{Es: "   ", En: "Mathematics"}, locale: Spanish, want: "Mathematics"},
		{name: "nothing to show", lang: English, text: Text{Es: " ", En: ""}, locale: English, want: "—"},
		{name: "unknown lang uses locale", lang: "", text: full, locale: English, want: "Mathematics"},
		{name: "unknown locale defaults to es", lang: Both, text: full, locale: "fr", want: "ES: Matemáticas / EN: Mathematics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveText(tt.lang, tt.text, tt.locale, "—"))
		})
	}
}

func TestSearchKeyText(t *testing.T) {
	full := Text{Es: "Matemáticas", En: "Mathematics"}

	tests := []struct {
		name   string
		lang   Language
		text   Text
		locale Language
		want   string
	}{
		{name: "both ignores locale (es)", lang: Both, text: full, locale: Spanish, want: "matemáticas mathematics"},
		{name: "both ignores locale (en)", lang: Both, text: full, locale: English, want: "matemáticas mathematics"},
		{name: "single language", lang: English, text: full, locale: Spanish, want: "mathematics"},
		{name: "single language fallback", lang: English, text: Text{Es: "Matemáticas"}, locale: English, want: "matemáticas"},
		{name: "empty", lang: Both, text: Text{}, locale: English, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchKeyText(tt.lang, tt.text, tt.locale))
		})
	}
}

func TestResolve_Record(t *testing.T) {
	c := course{
		lang: English,
		name: Text{Es: "Física"},
		desc: Text{},
	}
	assert.Equal(t, "Física", Resolve(c, "name", English, "n/a"))
	assert.Equal(t, "n/a", Resolve(c, "description", English, "n/a"))
	assert.Equal(t, "n/a", Resolve(c, "unknown", English, "n/a"))
	assert.Equal(t, "física", SearchKey(c, English, "name", "description", "unknown"))

	// the record is left untouched
	assert.Equal(t, Text{Es: "Física"}, c.name)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "matematicas basicas", Fold("  Matemáticas   Básicas "))
	assert.Equal(t, "nino", Fold("NIÑO"))
	assert.True(t, Matches("ES: Introducción a la Programación / EN: Intro to Programming", "introduccion"))
	assert.True(t, Matches("anything", "  "))
	assert.False(t, Matches("matemáticas", "fisica"))
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, English, ParseLocale(" EN ", Spanish))
	assert.Equal(t, Spanish, ParseLocale("both", Spanish))
	assert.Equal(t, English, ParseLocale("", English))
}

func TestText_Missing(t *testing.T) {
	assert.Empty(t, Text{Es: "Física"}.Missing(Spanish))
	assert.Equal(t, []Language{English}, Text{Es: "Física"}.Missing(English))
	assert.Equal(t, []Language{English}, Text{Es: "Física", En: " "}.Missing(Both))
	assert.Equal(t, []Language{Spanish, English}, Text{}.Missing(Both))
	assert.Empty(t, Text{}.Missing("fr"))
}
