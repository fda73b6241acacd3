package domain

import (
	"sort"

	"golang.org/x/text/language"
)

// MultilingualString maps language tags to text. The empty tag holds text
// without a language.
type MultilingualString map[string]string

// NewMultilingualString builds a MultilingualString from literal values.
// References and scalars are stored under the empty tag. The first value seen
// for a language wins.
func NewMultilingualString(values []Value) MultilingualString {
	if len(values) == 0 {
		return nil
	}
	m := make(MultilingualString, len(values))
	for _, v := range values {
		lang := ""
		if lit, ok := v.(LocalizedLiteral); ok {
			lang = lit.Language
		}
		if _, exists := m[lang]; !exists {
			m[lang] = ValueString(v)
		}
	}
	return m
}

// Languages returns the language tags present, sorted.
func (m MultilingualString) Languages() []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Value returns the text in the language best matching preferred. When no
// language matches, the language-less text is used, then the text of the
// lexically first language.
func (m MultilingualString) Value(preferred language.Tag) string {
	if len(m) == 0 {
		return ""
	}
	langs := m.Languages()

	var tags []language.Tag
	var tagLangs []string
	for _, lang := range langs {
		if lang == "" {
			continue
		}
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		tagLangs = append(tagLangs, lang)
	}
	if len(tags) > 0 {
		matcher := language.NewMatcher(tags)
		_, idx, conf := matcher.Match(preferred)
		if conf != language.No {
			return m[tagLangs[idx]]
		}
	}
	if text, ok := m[""]; ok {
		return text
	}
	return m[langs[0]]
}

// All returns every text of the string ordered by language tag.
func (m MultilingualString) All() []string {
	out := make([]string, 0, len(m))
	for _, lang := range m.Languages() {
		out = append(out, m[lang])
	}
	return out
}
