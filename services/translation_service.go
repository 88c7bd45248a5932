package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/cache"
	"medpipe_backend/platform/translator"
)

// WorkingLanguage is the language every pipeline step runs in.
const WorkingLanguage = "en"

// deeplCodes maps detected language tags to DeepL target codes.
var deeplCodes = map[string]string{
	"bg":      "BG",
	"cs":      "CS",
	"da":      "DA",
	"nl":      "NL",
	"en":      "EN-US",
	"et":      "ET",
	"fi":      "FI",
	"fr":      "FR",
	"de":      "DE",
	"el":      "EL",
	"hu":      "HU",
	"id":      "ID",
	"it":      "IT",
	"ja":      "JA",
	"ko":      "KO",
	"lv":      "LV",
	"lt":      "LT",
	"nb":      "NB",
	"pl":      "PL",
	"pt":      "PT-PT",
	"ro":      "RO",
	"ru":      "RU",
	"sk":      "SK",
	"sl":      "SL",
	"es":      "ES",
	"sv":      "SV",
	"tr":      "TR",
	"uk":      "UK",
	"zh-Hans": "ZH",
	"zh-Hant": "ZH",
}

// ResolveProviderCode returns the DeepL code for a detected language tag,
// or false when DeepL does not support it.
func ResolveProviderCode(lang string) (string, bool) {
	if lang == "" {
		return "", false
	}
	if code, ok := deeplCodes[lang]; ok {
		return code, true
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	if base.String() == "zh" {
		return "ZH", true
	}
	code, ok := deeplCodes[base.String()]
	return code, ok
}

func isWorkingLanguage(lang string) bool {
	if lang == "" || lang == WorkingLanguage {
		return true
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == WorkingLanguage
}

type LanguageDetector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// TranslationBridge sends working-language text back to a document language.
// DeepL handles the languages in its dictionary, everything else goes through
// the inverse provider.
type TranslationBridge struct {
	deepl    translator.Translator
	inverse  translator.Translator
	detector LanguageDetector
	cache    *cache.TypedCache[string]
	ttl      time.Duration
}

func NewTranslationBridge(deepl, inverse translator.Translator, detector LanguageDetector, cacheService cache.CacheService, ttl time.Duration) *TranslationBridge {
	b := &TranslationBridge{
		deepl:    deepl,
		inverse:  inverse,
		detector: detector,
		ttl:      ttl,
	}
	if cacheService != nil {
		b.cache = cache.NewTypedCache[string](cacheService)
	}
	return b
}

func (b *TranslationBridge) providerFor(lang string) (translator.Translator, string) {
	if code, ok := ResolveProviderCode(lang); ok && b.deepl != nil {
		return b.deepl, code
	}
	return b.inverse, lang
}

func (b *TranslationBridge) TranslateText(ctx context.Context, text, lang string) (string, error) {
	if text == "" || isWorkingLanguage(lang) {
		return text, nil
	}
	provider, code := b.providerFor(lang)
	if provider == nil {
		return "", fmt.Errorf("%s: %w", lang, models.ErrUnsupportedLanguage)
	}
	if b.cache == nil {
		return provider.Translate(ctx, text, code)
	}
	sum := sha256.Sum256([]byte(text))
	key := "tr:" + provider.Name() + ":" + code + ":" + hex.EncodeToString(sum[:])
	return b.cache.GetOrLoad(key, b.ttl, func() (string, error) {
		return provider.Translate(ctx, text, code)
	})
}

// TranslateList keeps length and order; nil stays nil.
func (b *TranslationBridge) TranslateList(ctx context.Context, items []string, lang string) ([]string, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		t, err := b.TranslateText(ctx, item, lang)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// TranslateFields translates string values directly and arrays element by
// element. Other values are copied as they are.
func (b *TranslationBridge) TranslateFields(ctx context.Context, fields map[string]any, lang string) (map[string]any, error) {
	if fields == nil {
		return nil, nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			s, err := b.TranslateText(ctx, t, lang)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = s
		case []string:
			list, err := b.TranslateList(ctx, t, lang)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = list
		case []any:
			list := make([]any, len(t))
			for i, item := range t {
				s, ok := item.(string)
				if !ok {
					list[i] = item
					continue
				}
				tr, err := b.TranslateText(ctx, s, lang)
				if err != nil {
					return nil, fmt.Errorf("field %s[%d]: %w", k, i, err)
				}
				list[i] = tr
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out, nil
}

func (b *TranslationBridge) DetectLanguage(ctx context.Context, text string) (string, error) {
	if b.detector == nil {
		return "", fmt.Errorf("no language detector configured: %w", models.ErrUnsupportedLanguage)
	}
	lang, err := b.detector.Detect(ctx, text)
	if err != nil {
		logging.Logger.Error("fail DetectLanguage", "error", err)
		return "", err
	}
	return lang, nil
}
