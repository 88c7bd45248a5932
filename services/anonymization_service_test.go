package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"medpipe_backend/models"
)

func anonymizeFixture(docs ...*models.Document) (*AnonymizationService, *fakeStore, *fakeDocRepo, *fakeModel) {
	store := newFakeStore()
	docRepo := newFakeDocRepo(docs...)
	state := NewStateTracker(newFakePatientRepo(), docRepo)
	model := &fakeModel{reply: func(system, user string) (string, error) {
		return strings.ReplaceAll(user, "John Smith", "[PERSON_1]"), nil
	}}
	s := NewAnonymizationService(store, newTestGateway(model), newTestBridge(&fakeProvider{name: "deepl"}, nil),
		&fakeNotifier{}, docRepo, state, testPipeline())
	return s, store, docRepo, model
}

func TestAnonymizeTranslatedBranch(t *testing.T) {
	s, store, _, model := anonymizeFixture()
	text := "John Smith was admitted.\n\nJohn Smith left on Monday after a long stay."
	_ = store.Upload(context.Background(), "p1", "doc-1/fast_extracted_translated.txt", text)

	ok := s.Anonymize(context.Background(), AnonymizeRequest{PatientID: "p1", DocID: "doc-1", DocURL: "doc-1/scan.pdf", UserID: "u1", Lang: "de"})
	if !ok {
		t.Fatal("Anonymize failed")
	}
	if n := len(model.profiles()); n < 2 {
		t.Errorf("expected chunked calls, got %d", n)
	}
	working, _ := store.get("p1", "doc-1/anonymized_translated.txt")
	want := "[PERSON_1] was admitted.\n\n[PERSON_1] left on Monday after a long stay."
	if working != want {
		t.Errorf("working = %q", working)
	}
	local, _ := store.get("p1", "doc-1/anonymized.txt")
	if local != "deepl:DE:"+want {
		t.Errorf("local = %q", local)
	}
}

func TestAnonymizeUntranslatedBranch(t *testing.T) {
	s, store, _, _ := anonymizeFixture()
	_ = store.Upload(context.Background(), "p1", "doc-1/fast_extracted.txt", "John Smith")

	if !s.Anonymize(context.Background(), AnonymizeRequest{PatientID: "p1", DocID: "doc-1", DocURL: "doc-1/scan.pdf", Lang: "en"}) {
		t.Fatal("Anonymize failed")
	}
	if got, _ := store.get("p1", "doc-1/anonymized.txt"); got != "[PERSON_1]" {
		t.Errorf("anonymized = %q", got)
	}
	if _, ok := store.get("p1", "doc-1/anonymized_translated.txt"); ok {
		t.Error("translated artifact written without a translated source")
	}
}

func TestAnonymizeDocumentClaims(t *testing.T) {
	ctx := context.Background()
	s, store, docRepo, model := anonymizeFixture(
		&models.Document{ID: "doc-1", PatientID: "p1", URL: "doc-1/a.pdf"},
		&models.Document{ID: "doc-2", PatientID: "p1", URL: "doc-2/b.pdf", Anonymized: models.StateTrue},
	)
	_ = store.Upload(ctx, "p1", "doc-1/fast_extracted.txt", "John Smith")

	ok, err := s.AnonymizeDocument(ctx, "doc-1")
	if err != nil || !ok {
		t.Fatalf("AnonymizeDocument = %v, %v", ok, err)
	}
	if got := docRepo.state("doc-1"); got != models.StateTrue {
		t.Errorf("state = %s", got)
	}

	calls := len(model.profiles())
	ok, err = s.AnonymizeDocument(ctx, "doc-2")
	if err != nil || ok {
		t.Errorf("already anonymized: %v, %v", ok, err)
	}
	if len(model.profiles()) != calls {
		t.Error("model called for an anonymized document")
	}
}

func TestRunClaimedFailureResetsState(t *testing.T) {
	ctx := context.Background()
	s, _, docRepo, _ := anonymizeFixture(&models.Document{ID: "doc-1", PatientID: "p1", URL: "doc-1/a.pdf", Anonymized: models.StateInProcess})

	ok, err := s.RunClaimed(ctx, "doc-1")
	if err != nil || ok {
		t.Errorf("RunClaimed = %v, %v", ok, err)
	}
	if got := docRepo.state("doc-1"); got != models.StateFalse {
		t.Errorf("state = %s", got)
	}
	if _, err := s.RunClaimed(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing doc: %v", err)
	}
}

func TestAnonymizePending(t *testing.T) {
	ctx := context.Background()
	s, store, docRepo, _ := anonymizeFixture(
		&models.Document{ID: "doc-1", PatientID: "p1", URL: "doc-1/a.pdf"},
		&models.Document{ID: "doc-2", PatientID: "p1", URL: "doc-2/b.pdf"},
		&models.Document{ID: "doc-3", PatientID: "p1", URL: "doc-3/c.pdf"},
		&models.Document{ID: "doc-4", PatientID: "p1", URL: "doc-4/d.pdf", Anonymized: models.StateTrue},
		&models.Document{ID: "doc-5", PatientID: "p2", URL: "doc-5/e.pdf"},
	)
	for _, k := range []string{"doc-1/fast_extracted.txt", "doc-2/fast_extracted.txt"} {
		_ = store.Upload(ctx, "p1", k, "John Smith")
	}

	var inFlight, peak atomic.Int32
	s.gateway.model = &fakeModel{reply: func(system, user string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return user, nil
	}}

	n, err := s.AnonymizePending(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("anonymized %d, want 2", n)
	}
	want := map[string]string{
		"doc-1": models.StateTrue,
		"doc-2": models.StateTrue,
		"doc-3": models.StateFalse,
		"doc-4": models.StateTrue,
		"doc-5": models.StateFalse,
	}
	for id, st := range want {
		if got := docRepo.state(id); got != st {
			t.Errorf("%s state = %s, want %s", id, got, st)
		}
	}
	if p := peak.Load(); p > int32(s.concurrency) {
		t.Errorf("peak concurrency %d above limit %d", p, s.concurrency)
	}
}
