package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Lang is a supported path language prefix.
type Lang string

const (
	EN Lang = "en"
	ID Lang = "id"
)

// Default is the language whose dictionary is complete.
const Default = EN

// Supported lists the languages with a dictionary.
var Supported = []Lang{EN, ID}

// FromPrefix accepts only the exact path segments "en" and "id".
func FromPrefix(segment string) (Lang, bool) {
	switch Lang(segment) {
	case EN, ID:
		return Lang(segment), true
	}
	return "", false
}

// Match resolves a locale string ("id", "id-ID", "en-US") to a supported
// language.
func Match(locale string) (Lang, bool) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch base.String() {
	case string(EN):
		return EN, true
	case string(ID):
		return ID, true
	}
	return "", false
}

// Negotiate picks the first supported language from an Accept-Language
// header, or Default.
func Negotiate(acceptLanguage string) Lang {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return Default
	}
	for _, tag := range tags {
		if lang, ok := Match(tag.String()); ok {
			return lang
		}
	}
	return Default
}

// Tag returns the x/text tag used for number formatting.
func (l Lang) Tag() language.Tag {
	if l == ID {
		return language.Indonesian
	}
	return language.English
}
