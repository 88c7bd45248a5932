package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"medpipe_backend/models"
	"medpipe_backend/utils"
)

const summaryAnswer = `{"DocumentPurpose": "follow-up", "PatientIntroduction": "adult patient", "Anomalies": ["high BP"]}`

func summaryFixture(t *testing.T, reply func(system, user string) (string, error)) (*SummarizationService, *fakeStore, *fakeNotifier, *fakeDocRepo) {
	t.Helper()
	store := newFakeStore()
	notifier := &fakeNotifier{}
	docRepo := newFakeDocRepo(&models.Document{ID: "doc-1", PatientID: "p1", UserID: "u1", URL: "doc-1/report.pdf", Language: "es"})
	s := NewSummarizationService(store, newTestGateway(&fakeModel{reply: reply}),
		newTestBridge(&fakeProvider{name: "deepl"}, nil), notifier, docRepo, testPipeline())
	return s, store, notifier, docRepo
}

func testRequest(task SummarizationTask) SummaryRequest {
	return SummaryRequest{PatientID: "p1", DocID: "doc-1", DocURL: "doc-1/report.pdf", UserID: "u1", Lang: "es", Task: task}
}

func TestSummarizeMapReduce(t *testing.T) {
	var mapped []string
	var reduceInput string
	s, store, notifier, docRepo := summaryFixture(t, func(system, user string) (string, error) {
		if system == categorizeSystem {
			mapped = append(mapped, user)
			return "category", nil
		}
		reduceInput = user
		return summaryAnswer, nil
	})
	text := strings.Repeat("Patient has high blood pressure. ", 6)
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted_translated.txt", text)

	res, err := s.run(context.Background(), testRequest(TaskPhysician))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mapped) < 2 {
		t.Fatalf("expected several map calls, got %d", len(mapped))
	}
	if !strings.Contains(reduceInput, "<Complete Document 1>\ncategory\n</Complete Document 1>") ||
		!strings.Contains(reduceInput, "<Complete Document 2>") {
		t.Errorf("reduce input = %q", reduceInput)
	}
	if res.Result["KeyInformation"] == nil {
		t.Error("missing key was not filled")
	}

	working, ok := store.get("p1", "doc-1/summary_translated.txt")
	if !ok {
		t.Fatal("working-language summary not stored")
	}
	var w map[string]any
	if err := json.Unmarshal([]byte(working), &w); err != nil {
		t.Fatal(err)
	}
	if w["DocumentPurpose"] != "follow-up" {
		t.Errorf("working summary = %v", w)
	}

	local, _ := store.get("p1", "doc-1/summary.txt")
	var l map[string]any
	if err := json.Unmarshal([]byte(local), &l); err != nil {
		t.Fatal(err)
	}
	if l["DocumentPurpose"] != "deepl:ES:follow-up" {
		t.Errorf("local summary = %v", l)
	}

	if got := notifier.steps(); len(got) != 2 || got[0] != models.StepSummary || got[1] != models.StepSummaryReady {
		t.Errorf("steps = %v", got)
	}
	doc, _ := docRepo.GetByID(context.Background(), "doc-1")
	if len(doc.Artifacts) != 2 {
		t.Errorf("artifacts = %v", doc.Artifacts)
	}
}

func TestSummarizeFallsBackToOriginalText(t *testing.T) {
	var reduceInput string
	s, store, _, _ := summaryFixture(t, func(system, user string) (string, error) {
		reduceInput = user
		return `{"Transcript": "ok"}`, nil
	})
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted.txt", "original text")

	if _, err := s.run(context.Background(), testRequest(TaskTranscript)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(reduceInput, "original text") {
		t.Errorf("reduce input = %q", reduceInput)
	}
}

func TestSummarizeStoresRawOnMalformedAnswer(t *testing.T) {
	s, store, _, _ := summaryFixture(t, func(system, user string) (string, error) {
		return "Sorry, I cannot produce JSON", nil
	})
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted_translated.txt", "text")

	res, err := s.run(context.Background(), testRequest(TaskTimeline))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Raw != "Sorry, I cannot produce JSON" || res.Result != nil {
		t.Errorf("result = %+v", res)
	}
	for _, key := range []string{"doc-1/timeline_translated.txt", "doc-1/timeline.txt"} {
		if v, _ := store.get("p1", key); v != res.Raw {
			t.Errorf("%s = %q", key, v)
		}
	}
}

func TestSummarizeErrors(t *testing.T) {
	s, store, notifier, _ := summaryFixture(t, func(system, user string) (string, error) {
		return summaryAnswer, nil
	})
	ctx := context.Background()

	if _, err := s.run(ctx, testRequest(TaskPhysician)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing text: %v", err)
	}
	if got := notifier.steps(); got[len(got)-1] != models.StepSummaryError {
		t.Errorf("steps = %v", got)
	}

	_ = store.Upload(ctx, "p1", "doc-1/extracted.txt", "   ")
	if _, err := s.run(ctx, testRequest(TaskPhysician)); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("blank text: %v", err)
	}
	if _, err := s.run(ctx, testRequest("poem")); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unknown task: %v", err)
	}
}

func TestSummarizeSymptoms(t *testing.T) {
	s, store, notifier, _ := summaryFixture(t, func(system, user string) (string, error) {
		if system == symptomsSystem {
			return "The document lists no symptoms.", nil
		}
		return "category", nil
	})
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted.txt", "Control visit, nothing to report.")

	s.Summarize(context.Background(), testRequest(TaskSymptoms))

	for _, key := range []string{"doc-1/symptoms_translated.txt", "doc-1/symptoms.txt"} {
		if _, ok := store.get("p1", key); !ok {
			t.Errorf("%s not stored", key)
		}
	}
	if got := notifier.steps(); len(got) != 2 || got[0] != models.StepSymptoms || got[1] != models.StepSymptomsReady {
		t.Errorf("steps = %v", got)
	}
}

func TestSummarizeSymptomsFillsMissingKey(t *testing.T) {
	s, store, _, _ := summaryFixture(t, func(system, user string) (string, error) {
		if system == symptomsSystem {
			return `{"Other": "x"}`, nil
		}
		return "category", nil
	})
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted_translated.txt", "Control visit.")

	res, err := s.run(context.Background(), testRequest(TaskSymptoms))
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := store.get("p1", "doc-1/symptoms_translated.txt")
	if !ok {
		t.Fatal("symptoms not stored")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatal(err)
	}
	list, ok := out["Symptoms"].([]any)
	if !ok || len(list) != 1 || list[0] != "Not provided" {
		t.Errorf("Symptoms = %v", out["Symptoms"])
	}
	if res.Result["Symptoms"] == nil {
		t.Errorf("result = %v", res.Result)
	}
}

func TestTimelineAndTranscriptRunsBothBranches(t *testing.T) {
	s, store, notifier, _ := summaryFixture(t, func(system, user string) (string, error) {
		switch system {
		case timelineSystem:
			return "", errors.New("timeline model down")
		case transcriptSystem:
			return `{"Transcript": "story"}`, nil
		}
		return "", errors.New("unexpected prompt")
	})
	_ = store.Upload(context.Background(), "p1", "doc-1/extracted_translated.txt", "text")

	resp := s.TimelineAndTranscript(context.Background(), testRequest(TaskTimeline))
	if resp.Timeline.Error == "" || resp.Timeline.Task != string(TaskTimeline) {
		t.Errorf("timeline = %+v", resp.Timeline)
	}
	if resp.Transcript.Error != "" || resp.Transcript.Result["Transcript"] != "story" {
		t.Errorf("transcript = %+v", resp.Transcript)
	}
	if resp.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
	if _, ok := store.get("p1", utils.DocumentArtifactKey("doc-1/report.pdf", utils.ArtifactTranscript, false)); !ok {
		t.Error("transcript not stored")
	}
	steps := notifier.steps()
	for _, want := range []string{models.StepTimeline, models.StepTimelineError, models.StepTranscript, models.StepTranscriptReady} {
		if !slices.Contains(steps, want) {
			t.Errorf("missing step %q in %v", want, steps)
		}
	}
	if slices.Contains(steps, models.StepTimelineReady) {
		t.Errorf("failed timeline reported ready: %v", steps)
	}
}

func TestParseSummarizationTask(t *testing.T) {
	if task, ok := ParseSummarizationTask(""); !ok || task != TaskPhysician {
		t.Errorf("empty = %q, %v", task, ok)
	}
	if task, ok := ParseSummarizationTask("young"); !ok || task != TaskYoung {
		t.Errorf("young = %q, %v", task, ok)
	}
	if _, ok := ParseSummarizationTask("poem"); ok {
		t.Error("unknown task accepted")
	}
}
