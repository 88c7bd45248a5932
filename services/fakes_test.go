package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/platform/llm"
	"medpipe_backend/platform/redis"
	"medpipe_backend/platform/translator"
)

type fakeModel struct {
	mu    sync.Mutex
	calls []llm.ModelProfile
	reply func(system, user string) (string, error)
}

func (m *fakeModel) Complete(ctx context.Context, profile llm.ModelProfile, messages []llm.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, profile)
	m.mu.Unlock()
	var system, user string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			user = msg.Content
		}
	}
	return m.reply(system, user)
}

func (m *fakeModel) profiles() []llm.ModelProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func newTestGateway(m llm.LanguageModel) *Gateway {
	g := NewGateway(m, 20*time.Second, 0)
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return g
}

type fakeStore struct {
	mu    sync.Mutex
	blobs map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string]map[string]string)}
}

func (s *fakeStore) Download(ctx context.Context, container, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.blobs[container][key]
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", container, key, models.ErrNotFound)
	}
	return v, nil
}

func (s *fakeStore) Upload(ctx context.Context, container, key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs[container] == nil {
		s.blobs[container] = make(map[string]string)
	}
	s.blobs[container][key] = content
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, container, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[container][key]
	return ok, nil
}

func (s *fakeStore) List(ctx context.Context, container, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.blobs[container] {
		if strings.HasPrefix(k, strings.TrimPrefix(prefix, "/")) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeStore) DeleteFolder(ctx context.Context, container, prefix string) error {
	keys, _ := s.List(ctx, container, prefix)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.blobs[container], k)
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) get(container, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.blobs[container][key]
	return v, ok
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[string]*models.Patient
}

func newFakePatientRepo(ps ...*models.Patient) *fakePatientRepo {
	r := &fakePatientRepo{patients: make(map[string]*models.Patient)}
	for _, p := range ps {
		if p.Summary == "" {
			p.Summary = models.StateFalse
		}
		r.patients[p.ID] = p
	}
	return r
}

func (r *fakePatientRepo) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, models.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *fakePatientRepo) ClaimSummary(ctx context.Context, id string, from []string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || !slices.Contains(from, p.Summary) {
		return false, nil
	}
	p.Summary = models.StateInProcess
	p.SummaryDate = &at
	return true, nil
}

func (r *fakePatientRepo) SetSummaryState(ctx context.Context, id string, state string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Summary = state
	if at != nil {
		p.SummaryDate = at
	}
	return nil
}

func (r *fakePatientRepo) SetDonation(ctx context.Context, id string, donation bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Donation = donation
	return nil
}

func (r *fakePatientRepo) SetLanguage(ctx context.Context, id string, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Language = lang
	return nil
}

func (r *fakePatientRepo) summary(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patients[id].Summary
}

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newFakeDocRepo(ds ...*models.Document) *fakeDocRepo {
	r := &fakeDocRepo{docs: make(map[string]*models.Document)}
	for _, d := range ds {
		if d.Anonymized == "" {
			d.Anonymized = models.StateFalse
		}
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocRepo) list(patientID string, keep func(*models.Document) bool) []*models.Document {
	var out []*models.Document
	for _, d := range r.docs {
		if d.PatientID == patientID && keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeDocRepo) ListByPatient(ctx context.Context, patientID string) ([]*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(patientID, func(*models.Document) bool { return true }), nil
}

func (r *fakeDocRepo) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	docs, _ := r.ListByPatient(ctx, patientID)
	return int64(len(docs)), nil
}

func (r *fakeDocRepo) ListPendingAnonymization(ctx context.Context, patientID string) ([]*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(patientID, func(d *models.Document) bool { return d.Anonymized == models.StateFalse }), nil
}

func (r *fakeDocRepo) ClaimAnonymization(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.Anonymized != models.StateFalse {
		return false, nil
	}
	d.Anonymized = models.StateInProcess
	return true, nil
}

func (r *fakeDocRepo) SetAnonymizedState(ctx context.Context, id string, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	d.Anonymized = state
	return nil
}

func (r *fakeDocRepo) SetLanguage(ctx context.Context, id string, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	d.Language = lang
	return nil
}

func (r *fakeDocRepo) AddArtifact(ctx context.Context, id string, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	if !slices.Contains(d.Artifacts, key) {
		d.Artifacts = append(d.Artifacts, key)
	}
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo) state(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].Anonymized
}

type fakeEventRepo struct {
	events []*models.ClinicalEvent
}

func (r *fakeEventRepo) Find(ctx context.Context, patientID string, filter models.EventFilter) ([]*models.ClinicalEvent, error) {
	var out []*models.ClinicalEvent
	for _, ev := range r.events {
		if ev.PatientID != patientID {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, ev.Type) {
			continue
		}
		if filter.CheckedOnly && (ev.Checked == nil || !*ev.Checked) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *fakeEventRepo) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	evs, _ := r.Find(ctx, patientID, models.EventFilter{})
	return int64(len(evs)), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (n *fakeNotifier) Publish(ctx context.Context, userID string, event *models.ProgressEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *event)
	return nil
}

func (n *fakeNotifier) steps() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, ev := range n.events {
		out = append(out, ev.Step)
	}
	return out
}

// fakeProvider prefixes text with its name and target code.
type fakeProvider struct {
	mu    sync.Mutex
	name  string
	calls int
	err   error

	// verbatim returns the text untouched instead of tagging it
	verbatim bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Translate(ctx context.Context, text, targetCode string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if p.verbatim {
		return text, nil
	}
	return p.name + ":" + targetCode + ":" + text, nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeDetector struct {
	lang string
	err  error
}

func (d *fakeDetector) Detect(ctx context.Context, text string) (string, error) {
	return d.lang, d.err
}

type fakeIndex struct {
	mu      sync.Mutex
	entries map[string][]*models.IndexEntry
	dropped []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string][]*models.IndexEntry)}
}

func (x *fakeIndex) DeleteIndex(ctx context.Context, name string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, existed := x.entries[name]
	delete(x.entries, name)
	x.dropped = append(x.dropped, name)
	return existed, nil
}

func (x *fakeIndex) DeleteDocuments(ctx context.Context, indexName string, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	kept := x.entries[indexName][:0]
	for _, e := range x.entries[indexName] {
		if !slices.Contains(ids, e.ID) {
			kept = append(kept, e)
		}
	}
	x.entries[indexName] = kept
	return nil
}

func (x *fakeIndex) FindDocumentEntryIDs(ctx context.Context, indexName, docID string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	var ids []string
	for _, e := range x.entries[indexName] {
		if e.DocID == docID {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (x *fakeIndex) UpsertEntries(ctx context.Context, indexName string, entries []*models.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, e := range entries {
		e.IndexName = indexName
	}
	x.entries[indexName] = append(x.entries[indexName], entries...)
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), float32(i)}
	}
	return out, nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []*models.Task
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, task *models.Task) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *fakeDispatcher) kinds() []models.TaskKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.TaskKind
	for _, t := range d.tasks {
		out = append(out, t.Kind)
	}
	return out
}

func testPipeline() config.PipelineConfig {
	p := config.DefaultPipeline()
	p.SummaryChunkSize = 60
	p.AnonymizeChunkSize = 40
	p.IndexChunkSize = 30
	return p
}

func newTestBridge(deepl, inverse *fakeProvider) *TranslationBridge {
	var d, inv translator.Translator
	if deepl != nil {
		d = deepl
	}
	if inverse != nil {
		inv = inverse
	}
	return NewTranslationBridge(d, inv, &fakeDetector{lang: "es"}, nil, time.Hour)
}

// fakeMQ is a channel backed queue with in-memory locks.
type fakeMQ struct {
	items  chan string
	mu     sync.Mutex
	locks  map[string]bool
	pushes int
}

func newFakeMQ() *fakeMQ {
	return &fakeMQ{items: make(chan string, 16), locks: make(map[string]bool)}
}

func (m *fakeMQ) PushToQueue(ctx context.Context, queueName string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pushes++
	m.mu.Unlock()
	m.items <- string(data)
	return nil
}

func (m *fakeMQ) pushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

func (m *fakeMQ) PopFromQueue(ctx context.Context, queueName string, timeout time.Duration) (string, error) {
	select {
	case v := <-m.items:
		return v, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", redis.ErrQueueEmpty
	}
}

func (m *fakeMQ) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *fakeMQ) ReleaseLock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}
