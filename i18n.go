package main

import (
	"embed"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed lang/*.yaml
var langFS embed.FS

const defaultLanguage = "en"

// I18n holds the message catalogs and the active language
type I18n struct {
	mu       sync.RWMutex
	language string
	messages map[string]map[string]string
	codes    []string
	matcher  language.Matcher
	logger   *zap.Logger

	OnLanguageChanged Emitter[string]
}

// NewI18n loads the embedded catalogs
func NewI18n(logger *zap.Logger) (*I18n, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &I18n{
		language: defaultLanguage,
		messages: map[string]map[string]string{},
		logger:   logger.Named("i18n"),
	}

	entries, err := langFS.ReadDir("lang")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := langFS.ReadFile(path.Join("lang", e.Name()))
		if err != nil {
			return nil, err
		}
		code := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if err := i.AddCatalog(code, data); err != nil {
			return nil, err
		}
	}
	if _, ok := i.messages[defaultLanguage]; !ok {
		return nil, fmt.Errorf("missing %s catalog", defaultLanguage)
	}
	return i, nil
}

// AddCatalog parses a YAML message tree and registers it under code
func (i *I18n) AddCatalog(code string, data []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("catalog %s: %w", code, err)
	}

	flat := map[string]string{}
	flattenMessages("", tree, flat)

	i.mu.Lock()
	defer i.mu.Unlock()
	code = strings.ToLower(code)
	if _, exists := i.messages[code]; !exists {
		i.codes = append(i.codes, code)
	}
	i.messages[code] = flat

	// the first tag is the matcher's fallback
	slices.SortFunc(i.codes, func(a, b string) int {
		switch {
		case a == defaultLanguage:
			return -1
		case b == defaultLanguage:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	tags := make([]language.Tag, len(i.codes))
	for n, c := range i.codes {
		tags[n] = language.Make(c)
	}
	i.matcher = language.NewMatcher(tags)
	return nil
}

func flattenMessages(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenMessages(key, child, out)
		}
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

// Languages returns the available catalog codes, default first
func (i *I18n) Languages() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]string(nil), i.codes...)
}

func (i *I18n) Language() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.language
}

// Match maps a requested language to the closest available catalog
func (i *I18n) Match(code string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	tag, err := language.Parse(code)
	if err != nil {
		return defaultLanguage
	}
	_, idx, conf := i.matcher.Match(tag)
	if conf == language.No {
		return defaultLanguage
	}
	return i.codes[idx]
}

// SetLanguage switches the active language and announces the change
func (i *I18n) SetLanguage(code string) {
	matched := i.Match(code)

	i.mu.Lock()
	if i.language == matched {
		i.mu.Unlock()
		return
	}
	i.language = matched
	i.mu.Unlock()

	i.logger.Debug("Language changed", zap.String("requested", code), zap.String("language", matched))
	i.OnLanguageChanged.Emit(matched)
}

// Message looks key up in lang, then English, then returns a {key} placeholder
func (i *I18n) Message(key, lang string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	lang = strings.ToLower(lang)
	if msg, ok := i.messages[lang][key]; ok {
		return msg
	}
	if msg, ok := i.messages[defaultLanguage][key]; ok {
		i.logger.Warn("Message missing, falling back to English", zap.String("key", key), zap.String("language", lang))
		return msg
	}
	i.logger.Warn("Message missing", zap.String("key", key), zap.String("language", lang))
	return "{" + key + "}"
}

// T translates key in the active language
func (i *I18n) T(key string) string {
	return i.Message(key, i.Language())
}
