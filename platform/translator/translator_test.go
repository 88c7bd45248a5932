package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medpipe_backend/models"
	"medpipe_backend/platform/llm"
)

func TestDeepLTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key secret" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if r.PostForm.Get("target_lang") != "ES" || r.PostForm.Get("text") != "chest pain" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"dolor torácico"}]}`))
	}))
	defer srv.Close()

	c := NewDeepLClient(srv.URL, "secret")
	got, err := c.Translate(context.Background(), "chest pain", "ES")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "dolor torácico" {
		t.Errorf("got %q", got)
	}
}

func TestDeepLRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDeepLClient(srv.URL, "k").Translate(context.Background(), "x", "DE")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestDeepLEmptyTextSkipsCall(t *testing.T) {
	c := NewDeepLClient("http://127.0.0.1:0", "k")
	got, err := c.Translate(context.Background(), "", "DE")
	if err != nil || got != "" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestMicrosoftTranslateAndDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "ms-key" {
			t.Errorf("missing subscription key")
		}
		if r.Header.Get("Ocp-Apim-Subscription-Region") != "westeurope" {
			t.Errorf("missing region")
		}
		var body []msText
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) != 1 {
			t.Errorf("body: %v %v", body, err)
			return
		}
		switch r.URL.Path {
		case "/translate":
			if r.URL.Query().Get("from") != "en" || r.URL.Query().Get("to") != "uk" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"translations":[{"text":"біль","to":"uk"}]}]`))
		case "/detect":
			_, _ = w.Write([]byte(`[{"language":"uk","score":0.98}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewMicrosoftClient(srv.URL+"/", "ms-key", "westeurope")
	got, err := c.Translate(context.Background(), "pain", "uk")
	if err != nil || got != "біль" {
		t.Errorf("Translate = %q, %v", got, err)
	}
	lang, err := c.Detect(context.Background(), "біль у грудях")
	if err != nil || lang != "uk" {
		t.Errorf("Detect = %q, %v", lang, err)
	}
	if _, err := c.Detect(context.Background(), "   "); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("blank Detect err = %v", err)
	}
}

func TestMicrosoftServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewMicrosoftClient(srv.URL, "k", "").Translate(context.Background(), "x", "fr")
	if err == nil || errors.Is(err, models.ErrRateLimited) {
		t.Errorf("err = %v", err)
	}
}

type scriptedModel struct {
	answer string
	got    []llm.Message
}

func (m *scriptedModel) Complete(ctx context.Context, profile llm.ModelProfile, messages []llm.Message) (string, error) {
	m.got = messages
	return m.answer, nil
}

func TestLLMTranslatorDetect(t *testing.T) {
	m := &scriptedModel{answer: " \"pt-BR\".\n"}
	lang, err := NewLLMTranslator(m).Detect(context.Background(), "dor no peito")
	if err != nil || lang != "pt-BR" {
		t.Errorf("Detect = %q, %v", lang, err)
	}

	m.answer = "I think it is Portuguese"
	if _, err := NewLLMTranslator(m).Detect(context.Background(), "dor"); !errors.Is(err, models.ErrMalformedOutput) {
		t.Errorf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestLLMTranslatorTranslate(t *testing.T) {
	m := &scriptedModel{answer: "  douleur  "}
	got, err := NewLLMTranslator(m).Translate(context.Background(), "pain", "fr")
	if err != nil || got != "douleur" {
		t.Errorf("Translate = %q, %v", got, err)
	}
	if len(m.got) != 2 || m.got[0].Role != "system" {
		t.Errorf("messages = %+v", m.got)
	}
}
