// Package i18n holds the bot's translated strings.
//
// Translations live in locales/<code>.yaml and are embedded at compile
// time. English is the reference language: every other language must
// define the same keys, and lookups fall back to English and then to the
// key itself.
package i18n

import (
	"embed"
	"fmt"
	"sort"

	"github.com/user/movie-bot-go/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

// Table maps (language, key) to a display string
type Table struct {
	texts map[model.Language]map[string]string
}

// Load parses the embedded locale files and checks they are complete
func Load() (*Table, error) {
	texts := make(map[model.Language]map[string]string, len(model.Languages))
	for _, lang := range model.Languages {
		raw, err := localeFiles.ReadFile("locales/" + string(lang) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", lang, err)
		}
		var m map[string]string
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", lang, err)
		}
		texts[lang] = m
	}

	t := New(texts)
	if missing := t.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("incomplete locales: %v", missing)
	}
	return t, nil
}

// MustLoad is like Load but panics on error. Embedded data is fixed at
// build time, so a failure here is a programming error.
func MustLoad() *Table {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// New builds a table from in-memory translations
func New(texts map[model.Language]map[string]string) *Table {
	return &Table{texts: texts}
}

// Text returns the string for key in lang
func (t *Table) Text(lang model.Language, key string) string {
	if m, ok := t.texts[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := t.texts[model.DefaultLanguage][key]; ok {
		return s
	}
	return key
}

// Format returns the string for key in lang with args substituted
func (t *Table) Format(lang model.Language, key string, args ...any) string {
	return fmt.Sprintf(t.Text(lang, key), args...)
}

// Keys returns the reference key set in sorted order
func (t *Table) Keys() []string {
	ref := t.texts[model.DefaultLanguage]
	keys := make([]string, 0, len(ref))
	for k := range ref {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing lists "lang:key" entries that exist in English but not in
// another supported language
func (t *Table) Missing() []string {
	var missing []string
	for _, lang := range model.Languages {
		if lang == model.DefaultLanguage {
			continue
		}
		m := t.texts[lang]
		for _, key := range t.Keys() {
			if _, ok := m[key]; !ok {
				missing = append(missing, string(lang)+":"+key)
			}
		}
	}
	return missing
}
