// Package catalog loads YAML message catalogs and registers them with
// golang.org/x/text/message.
//
// A catalog filesystem holds locales/<locale>/<namespace>.yaml files. Every
// message key starts with its namespace, so "combat.tracker.title" lives in
// combat.yaml, and keys are unique within a locale.
package catalog

import (
	"bytes"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale must be present and is the fallback for every lookup.
const BaseLocale = "en-US"

const catalogGlob = "locales/*/*.yaml"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every locale loaded from one filesystem.
type Bundle struct {
	// messages maps locale to key to text.
	messages map[string]map[string]string
	matcher  language.Matcher
	tags     []language.Tag
}

// LoadFromFS loads and validates every catalog file in catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, catalogGlob)
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	slices.Sort(paths)

	b := &Bundle{messages: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		file, err := decodeFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	if err := b.buildMatcher(); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeFile(data []byte) (catalogFile, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return catalogFile{}, err
	}
	if len(file.Messages) == 0 {
		return catalogFile{}, fmt.Errorf("missing messages")
	}
	return file, nil
}

// add checks file against its path and merges its messages.
func (b *Bundle) add(p string, file catalogFile) error {
	wantLocale := path.Base(path.Dir(p))
	wantNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	switch {
	case locale == "":
		return fmt.Errorf("locale is required")
	case locale != wantLocale:
		return fmt.Errorf("locale %q must match path locale %q", locale, wantLocale)
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("parse locale %q: %w", locale, err)
	}
	namespace := strings.TrimSpace(file.Namespace)
	switch {
	case namespace == "":
		return fmt.Errorf("namespace is required")
	case namespace != wantNamespace:
		return fmt.Errorf("namespace %q must match file name %q", namespace, wantNamespace)
	}

	messages, ok := b.messages[locale]
	if !ok {
		messages = map[string]string{}
		b.messages[locale] = messages
	}
	for key, text := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("message key cannot be blank")
		}
		if !strings.HasPrefix(key, namespace+".") {
			return fmt.Errorf("key %q must be prefixed by namespace %q", key, namespace)
		}
		if _, dup := messages[key]; dup {
			return fmt.Errorf("duplicate key %q in locale %q", key, locale)
		}
		messages[key] = text
	}
	return nil
}

// buildMatcher puts the base locale first so the matcher falls back to it.
func (b *Bundle) buildMatcher() error {
	tags := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags = append(tags, tag)
	}
	b.tags = tags
	b.matcher = language.NewMatcher(tags)
	return nil
}

// Register adds every message to the x/text/message catalog under its
// locale tag and, when different, the bare language tag.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag.String() != tag.String() {
				tags = append(tags, baseTag)
			}
		}
		messages := b.messages[locale]
		for _, key := range slices.Sorted(maps.Keys(messages)) {
			for _, t := range tags {
				if err := message.SetString(t, key, messages[key]); err != nil {
					return fmt.Errorf("register %s %q: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// Resolve returns the loaded locale closest to locale, or BaseLocale.
func (b *Bundle) Resolve(locale string) string {
	if b == nil {
		return BaseLocale
	}
	locale = strings.TrimSpace(locale)
	if b.HasLocale(locale) {
		return locale
	}
	requested, err := language.Parse(locale)
	if err != nil {
		return BaseLocale
	}
	_, index, conf := b.matcher.Match(requested)
	if conf == language.No || index < 0 || index >= len(b.tags) {
		return BaseLocale
	}
	return b.tags[index].String()
}

// HasLocale reports whether locale was loaded.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.messages[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the loaded locales, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(b.messages))
}

// Message returns the text for key in locale, falling back to BaseLocale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if text, ok := b.messages[strings.TrimSpace(locale)][key]; ok {
		return text, true
	}
	text, ok := b.messages[BaseLocale][key]
	return text, ok
}

// MissingKeys lists keys present in BaseLocale but absent from locale.
func (b *Bundle) MissingKeys(locale string) []string {
	if b == nil {
		return nil
	}
	target := b.messages[strings.TrimSpace(locale)]
	var missing []string
	for key := range b.messages[BaseLocale] {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	slices.Sort(missing)
	return missing
}
