package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
	"github.com/zatekoja/druglabels/backend/pkg/retry"
)

// MockCacheProvider for testing
type MockCacheProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
	ttls map[string]int
	err  error
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{
		data: make(map[string][]byte),
		ttls: make(map[string]int),
	}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = expirationSeconds
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

func (m *MockCacheProvider) ttl(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ttls[key]
}

func (m *MockCacheProvider) raw(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}

// fakeGenerator answers by schema name and counts calls. Queued errors are
// returned, one per call, before any successful response for that operation.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	errs     map[string][]error
	override map[string]string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:    make(map[string]int),
		errs:     make(map[string][]error),
		override: make(map[string]string),
	}
}

func (f *fakeGenerator) Name() string { return "fake/test" }

func (f *fakeGenerator) failWith(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *fakeGenerator) respond(op, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.override[op] = text
}

func (f *fakeGenerator) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGenerator) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func opOf(req providers.GenerationRequest) string {
	switch req.SchemaName {
	case "":
		return opSummary
	case "enhanced_sections":
		return opSectionBatch
	default:
		return req.SchemaName
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	op := opOf(req)

	f.mu.Lock()
	f.calls[op]++
	if queued := f.errs[op]; len(queued) > 0 {
		f.errs[op] = queued[1:]
		f.mu.Unlock()
		return "", queued[0]
	}
	override, hasOverride := f.override[op]
	f.mu.Unlock()

	if hasOverride {
		return override, nil
	}

	switch op {
	case opSEOMetadata:
		return `{"title":"Generated Title","description":"Generated description."}`, nil
	case opSummary:
		return "Generated summary.", nil
	default:
		out := map[string]string{}
		required, _ := req.Schema["required"].([]string)
		for _, key := range required {
			out[key] = "Plain " + key
		}
		data, _ := json.Marshal(out)
		return string(data), nil
	}
}

// failingGateway fails every operation.
type failingGateway struct{ err error }

func (g failingGateway) Enabled() bool { return true }

func (g failingGateway) GenerateTitleAndDescription(context.Context, *entities.DrugRecord) (entities.SEOMetadata, error) {
	return entities.SEOMetadata{}, g.err
}

func (g failingGateway) GenerateSummary(context.Context, *entities.DrugRecord) (string, error) {
	return "", g.err
}

func (g failingGateway) GenerateSectionBatch(context.Context, *entities.DrugRecord, map[entities.FieldKey]string) (map[entities.FieldKey]string, error) {
	return map[entities.FieldKey]string{}, g.err
}

var errProviderDown = fmt.Errorf("%w: connection refused", providers.ErrGenerationUnavailable)

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleep) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testPolicy(sleep *recordingSleep) retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = sleep.Sleep
	return p
}

func aspirinRecord() *entities.DrugRecord {
	return &entities.DrugRecord{
		ID:          "123",
		DrugName:    "Aspirin",
		GenericName: "acetylsalicylic-acid",
		Labeler:     "Test Pharma",
		Fields: map[entities.FieldKey]string{
			entities.FieldIndicationsAndUsage:     "Pain relief",
			entities.FieldDosageAndAdministration: "325mg daily",
		},
	}
}

type staticLookup map[string]*entities.DrugRecord

func (l staticLookup) GetByID(_ context.Context, id string) (*entities.DrugRecord, error) {
	if r, ok := l[id]; ok {
		return r, nil
	}
	return nil, notFound(id)
}

func (l staticLookup) GetByNames(_ context.Context, drugName, _ string) (*entities.DrugRecord, error) {
	for _, r := range l {
		if r.DrugName == drugName {
			return r, nil
		}
	}
	return nil, notFound(drugName)
}

func (l staticLookup) All() []*entities.DrugRecord {
	var out []*entities.DrugRecord
	for _, r := range l {
		out = append(out, r)
	}
	return out
}

func notFound(name string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("drug %s not found", name))
}

var errBoom = errors.New("boom")
