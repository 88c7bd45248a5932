package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"medpipe_backend/models"
	"medpipe_backend/utils"
)

func indexFixture(docs ...*models.Document) (*IndexLifecycleService, *fakeIndex, *fakeStore, *fakeDocRepo) {
	idx := newFakeIndex()
	store := newFakeStore()
	docRepo := newFakeDocRepo(docs...)
	s := NewIndexLifecycleService(idx, docRepo, store, fakeEmbedder{}, &fakeNotifier{}, testPipeline())
	return s, idx, store, docRepo
}

func seedEntries(idx *fakeIndex, index string, docIDs ...string) {
	for i, id := range docIDs {
		_ = idx.UpsertEntries(context.Background(), index, []*models.IndexEntry{
			{ID: id + "-e" + string(rune('a'+i)), DocID: id, Content: "x"},
		})
	}
}

func TestOnDocumentDeletedTeardown(t *testing.T) {
	for _, remaining := range []int{0, 1} {
		var docs []*models.Document
		for i := 0; i < remaining; i++ {
			docs = append(docs, &models.Document{ID: "other", PatientID: "p1"})
		}
		s, idx, _, _ := indexFixture(docs...)
		seedEntries(idx, "p1", "gone", "other")
		seedEntries(idx, "convmemoryp1", "chat")

		teardown, err := s.OnDocumentDeleted(context.Background(), "p1", "gone")
		if err != nil || !teardown {
			t.Fatalf("remaining %d: teardown=%v err=%v", remaining, teardown, err)
		}
		if want := []string{"p1", "convmemoryp1"}; !slices.Equal(idx.dropped, want) {
			t.Errorf("remaining %d: dropped %v", remaining, idx.dropped)
		}
		if len(idx.entries["p1"]) != 0 || len(idx.entries["convmemoryp1"]) != 0 {
			t.Errorf("remaining %d: entries left %v", remaining, idx.entries)
		}
	}
}

func TestOnDocumentDeletedPartial(t *testing.T) {
	s, idx, _, _ := indexFixture(
		&models.Document{ID: "a", PatientID: "p1"},
		&models.Document{ID: "b", PatientID: "p1"},
	)
	seedEntries(idx, "p1", "gone", "a", "gone", "b")
	seedEntries(idx, "convmemoryp1", "chat")

	teardown, err := s.OnDocumentDeleted(context.Background(), "p1", "gone")
	if err != nil || teardown {
		t.Fatalf("teardown=%v err=%v", teardown, err)
	}
	if len(idx.dropped) != 0 {
		t.Errorf("dropped %v", idx.dropped)
	}
	for _, e := range idx.entries["p1"] {
		if e.DocID == "gone" {
			t.Errorf("entry %s of deleted document kept", e.ID)
		}
	}
	if len(idx.entries["p1"]) != 2 || len(idx.entries["convmemoryp1"]) != 1 {
		t.Errorf("entries = %v", idx.entries)
	}
}

func TestOnDocumentDeletedHonoursThreshold(t *testing.T) {
	s, idx, _, _ := indexFixture(
		&models.Document{ID: "a", PatientID: "p1"},
		&models.Document{ID: "b", PatientID: "p1"},
	)
	s.teardownMax = 2
	teardown, err := s.OnDocumentDeleted(context.Background(), "p1", "gone")
	if err != nil || !teardown || len(idx.dropped) != 2 {
		t.Errorf("teardown=%v err=%v dropped=%v", teardown, err, idx.dropped)
	}
}

func TestIndexDocument(t *testing.T) {
	ctx := context.Background()
	s, idx, store, _ := indexFixture(&models.Document{ID: "d1", PatientID: "p1", UserID: "u1", URL: "d1/a.pdf", Filename: "a.pdf"})
	text := strings.Repeat("Clean sentence number one. ", 4)
	_ = store.Upload(ctx, "p1", "d1/clean_translated.txt", text)

	if err := s.IndexDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	first := idx.entries["p1"]
	if len(first) < 2 {
		t.Fatalf("entries = %d", len(first))
	}
	var joined strings.Builder
	for i, e := range first {
		if e.Position != int32(i) || e.DocID != "d1" || e.IndexName != "p1" || e.ID == "" {
			t.Errorf("entry %d = %+v", i, e)
		}
		if len(e.Embedding.Slice()) != 2 {
			t.Errorf("entry %d embedding = %v", i, e.Embedding.Slice())
		}
		joined.WriteString(e.Content)
	}
	if joined.String() != text {
		t.Error("entries do not cover the clean text")
	}

	if err := s.IndexDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if n := len(idx.entries["p1"]); n != len(first) {
		t.Errorf("re-indexing left %d entries, want %d", n, len(first))
	}
}

func TestIndexDocumentWithoutText(t *testing.T) {
	s, _, store, _ := indexFixture(&models.Document{ID: "d1", PatientID: "p1", URL: "d1/a.pdf"})
	if err := s.IndexDocument(context.Background(), "d1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing text: %v", err)
	}
	_ = store.Upload(context.Background(), "p1", "d1/clean.txt", "")
	if err := s.IndexDocument(context.Background(), "d1"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty text: %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s, idx, store, docRepo := indexFixture(
		&models.Document{ID: "d1", PatientID: "p1", URL: "d1/a.pdf"},
		&models.Document{ID: "d2", PatientID: "p1", URL: "d2/b.pdf"},
		&models.Document{ID: "d3", PatientID: "p1", URL: "d3/c.pdf"},
	)
	for _, k := range []string{"d1/a.pdf", "d1/summary.txt", "d10/summary.txt", "d2/summary.txt", utils.PatientCardKey(false)} {
		_ = store.Upload(ctx, "p1", k, "x")
	}
	seedEntries(idx, "p1", "d1", "d2")

	resp, err := s.DeleteDocument(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.DocID != "d1" || resp.Teardown {
		t.Errorf("resp = %+v", resp)
	}
	keys, _ := store.List(ctx, "p1", "")
	if want := []string{"d10/summary.txt", "d2/summary.txt"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v", keys)
	}
	if _, err := docRepo.GetByID(ctx, "d1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("row still there: %v", err)
	}
	if len(idx.entries["p1"]) != 1 {
		t.Errorf("entries = %v", idx.entries["p1"])
	}

	if _, err := s.DeleteDocument(ctx, "d2"); err != nil {
		t.Fatal(err)
	}
	resp, err = s.DeleteDocument(ctx, "d3")
	if err != nil || !resp.Teardown {
		t.Errorf("last document: %+v, %v", resp, err)
	}
	if _, err := s.DeleteDocument(ctx, "d3"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestConversationIndex(t *testing.T) {
	s, _, _, _ := indexFixture()
	if got := s.ConversationIndex("p9"); got != "convmemoryp9" {
		t.Errorf("got %q", got)
	}
}
