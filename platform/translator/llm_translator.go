package translator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"medpipe_backend/models"
	"medpipe_backend/platform/llm"
)

// LLMTranslator stands in for Microsoft when no translator key is configured.
type LLMTranslator struct {
	model llm.LanguageModel
}

func NewLLMTranslator(model llm.LanguageModel) *LLMTranslator {
	return &LLMTranslator{model: model}
}

func (t *LLMTranslator) Name() string { return "llm" }

func (t *LLMTranslator) Translate(ctx context.Context, text, targetCode string) (string, error) {
	if text == "" {
		return "", nil
	}
	prompt := fmt.Sprintf("Translate the following medical text from English into the language with code %q. "+
		"Keep the meaning, formatting and any placeholders such as [PERSON_1] unchanged. "+
		"Answer only with the translation.\n\n%s", targetCode, text)
	out, err := t.model.Complete(ctx, llm.ProfileStandard, []llm.Message{
		{Role: "system", Content: "You are a professional medical translator."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Detect asks the model for the BCP 47 tag of text and normalises the answer.
func (t *LLMTranslator) Detect(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text: %w", models.ErrInvalidInput)
	}
	out, err := t.model.Complete(ctx, llm.ProfileStandard, []llm.Message{
		{Role: "system", Content: "You identify languages. Answer only with the BCP 47 language tag, for example en, es, pt or zh-Hans."},
		{Role: "user", Content: text},
	})
	if err != nil {
		return "", err
	}
	tag, err := language.Parse(strings.Trim(strings.TrimSpace(out), "\"'`."))
	if err != nil {
		return "", fmt.Errorf("model answered %q: %w", out, models.ErrMalformedOutput)
	}
	return tag.String(), nil
}
