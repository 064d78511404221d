package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/clientpulse/internal/engine"
	"github.com/crimson-sun/clientpulse/internal/engine/aggregator"
	"github.com/crimson-sun/clientpulse/internal/engine/coercer"
	"github.com/crimson-sun/clientpulse/internal/engine/dedup"
	"github.com/crimson-sun/clientpulse/internal/engine/resolver"
	"github.com/crimson-sun/clientpulse/internal/engine/segmenter"
	"github.com/crimson-sun/clientpulse/internal/engine/taxonomy"
	"github.com/crimson-sun/clientpulse/internal/engine/testdata"
	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/output"
	"github.com/crimson-sun/clientpulse/internal/source"

	_ "github.com/crimson-sun/clientpulse/internal/source/csvfile"
)

// --- mocks ---

// mockSource returns a fixed table; identity is whatever the test sets.
type mockSource struct {
	table    *model.Table
	identity atomic.Value // string
	loads    atomic.Int32
	err      error
}

func newMockSource(identity string) *mockSource {
	s := &mockSource{table: &model.Table{
		Columns: []string{"client_id", "score"},
		Rows:    [][]string{{"a", "9"}, {"b", "2"}},
	}}
	s.identity.Store(identity)
	return s
}

func (s *mockSource) Load(_ context.Context, _ source.Config, _ source.LoadParams) (*model.Table, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

func (s *mockSource) Identity(_ context.Context, _ source.Config) (string, error) {
	return s.identity.Load().(string), nil
}

// plainSource has no identity, so it is never cached.
type plainSource struct{ inner *mockSource }

func (s *plainSource) Load(ctx context.Context, cfg source.Config, params source.LoadParams) (*model.Table, error) {
	return s.inner.Load(ctx, cfg, params)
}

// mockProcessor builds one record per row, every one Regular.
type mockProcessor struct {
	processed  atomic.Int32
	summarized atomic.Int32
}

func (m *mockProcessor) Process(src string, t *model.Table) *model.Dataset {
	n := m.processed.Add(1)
	recs := make([]model.Record, t.Len())
	for i, row := range t.Rows {
		recs[i] = model.Record{ClientID: row[0], Cluster: model.Regular}
	}
	return &model.Dataset{ID: string(rune('A' + n - 1)), Source: src, Records: recs}
}

func (m *mockProcessor) Summarize(ds *model.Dataset, f model.Filter) (model.Metrics, []model.Fallback) {
	m.summarized.Add(1)
	return model.Metrics{Records: len(f.Apply(ds.Records))}, nil
}

type mockOutput struct {
	mu      sync.Mutex
	reports []model.Report
	err     error
}

func (m *mockOutput) Write(_ context.Context, r model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func (m *mockOutput) Close() error { return nil }

func (m *mockOutput) Reports() []model.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Report(nil), m.reports...)
}

var fixedNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// --- tests ---

func TestRunWritesReport(t *testing.T) {
	src := newMockSource("v1")
	out := &mockOutput{}
	p := New(src, source.Config{Provider: "mock"}, &mockProcessor{}, out, WithClock(clock))

	report, err := p.Run(context.Background(), model.FilterAll)
	require.NoError(t, err)

	got := out.Reports()
	require.Len(t, got, 1)
	assert.Equal(t, report.RunID, got[0].RunID)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "A", report.DatasetID)
	assert.Equal(t, "mock", report.Source)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Len(t, report.Records, 2)
	assert.Equal(t, 2, report.Metrics.Records)
}

func TestRunSummaryVerbosityOmitsRecords(t *testing.T) {
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, &mockOutput{}, WithVerbosity(output.Summary))
	report, err := p.Run(context.Background(), model.FilterAll)
	require.NoError(t, err)
	assert.Nil(t, report.Records)
}

func TestRunFilterSelectsRecords(t *testing.T) {
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, &mockOutput{})
	report, err := p.Run(context.Background(), model.Filter(model.ChurnRisk))
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Equal(t, 0, report.Metrics.Records)
}

func TestCacheReusesDatasetForSameIdentity(t *testing.T) {
	src := newMockSource("v1")
	proc := &mockProcessor{}
	p := New(src, source.Config{}, proc, &mockOutput{}, WithCache(NewCache()))
	ctx := context.Background()

	first, err := p.Run(ctx, model.FilterAll)
	require.NoError(t, err)
	second, err := p.Run(ctx, model.FilterAll)
	require.NoError(t, err)

	assert.EqualValues(t, 1, src.loads.Load())
	assert.EqualValues(t, 1, proc.processed.Load())
	assert.EqualValues(t, 1, proc.summarized.Load(), "aggregation must be served from cache")
	assert.Equal(t, first.DatasetID, second.DatasetID)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestCacheInvalidatesOnIdentityChange(t *testing.T) {
	src := newMockSource("v1")
	proc := &mockProcessor{}
	p := New(src, source.Config{}, proc, &mockOutput{}, WithCache(NewCache()))
	ctx := context.Background()

	first, err := p.Run(ctx, model.FilterAll)
	require.NoError(t, err)

	src.identity.Store("v2")
	second, err := p.Run(ctx, model.FilterAll)
	require.NoError(t, err)

	assert.EqualValues(t, 2, src.loads.Load())
	assert.EqualValues(t, 2, proc.summarized.Load())
	assert.NotEqual(t, first.DatasetID, second.DatasetID)
}

func TestSourceWithoutIdentityIsNeverCached(t *testing.T) {
	inner := newMockSource("")
	p := New(&plainSource{inner}, source.Config{}, &mockProcessor{}, nil, WithCache(NewCache()))
	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background(), model.FilterAll)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, inner.loads.Load())
}

func TestLoadErrorIsWrapped(t *testing.T) {
	src := newMockSource("v1")
	src.err = errors.New("boom")
	out := &mockOutput{}
	p := New(src, source.Config{}, &mockProcessor{}, out)

	_, err := p.Run(context.Background(), model.FilterAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)
	assert.Empty(t, out.Reports())
}

func TestOutputErrorReturnsReport(t *testing.T) {
	out := &mockOutput{err: errors.New("sink down")}
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, out)
	report, err := p.Run(context.Background(), model.FilterAll)
	require.ErrorIs(t, err, out.err)
	assert.NotEmpty(t, report.RunID)
}

func TestSummaryBeforeLoad(t *testing.T) {
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, nil)
	assert.Nil(t, p.Dataset())
	_, _, err := p.Summary(model.FilterAll)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestSummaryUsesCurrentDataset(t *testing.T) {
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, nil, WithCache(NewCache()))
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	m, _, err := p.Summary(model.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Records)
	assert.Equal(t, "A", p.Dataset().ID)
}

func TestWatchRunsPerSignal(t *testing.T) {
	out := &mockOutput{}
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, out)

	changes := make(chan struct{}, 3)
	changes <- struct{}{}
	changes <- struct{}{}
	close(changes)

	require.NoError(t, p.Watch(context.Background(), changes, model.FilterAll))
	assert.Len(t, out.Reports(), 2)
}

func TestWatchKeepsGoingAfterFailure(t *testing.T) {
	src := newMockSource("v1")
	src.err = errors.New("transient")
	out := &mockOutput{}
	p := New(src, source.Config{}, &mockProcessor{}, out)

	changes := make(chan struct{}, 2)
	changes <- struct{}{}
	changes <- struct{}{}
	close(changes)

	require.NoError(t, p.Watch(context.Background(), changes, model.FilterAll))
	assert.EqualValues(t, 2, src.loads.Load())
	assert.Empty(t, out.Reports())
}

func TestWatchStopsOnCancel(t *testing.T) {
	p := New(newMockSource("v1"), source.Config{}, &mockProcessor{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Watch(ctx, make(chan struct{}), model.FilterAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentReadsDuringRun(t *testing.T) {
	src := newMockSource("v1")
	p := New(src, source.Config{}, &mockProcessor{}, nil, WithCache(NewCache()))
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				src.identity.Store("v" + string(rune('0'+i)))
				p.Run(context.Background(), model.FilterAll)
				return
			}
			p.Summary(model.FilterAll)
			p.Dataset()
		}(i)
	}
	wg.Wait()
	assert.NotNil(t, p.Dataset())
}

// --- end to end over the csv source and the real engine ---

func newEngine() *engine.Engine {
	return engine.New(
		resolver.DefaultAliases(),
		coercer.New(coercer.WithSeed(1), coercer.WithClock(clock)),
		segmenter.New(segmenter.DefaultRules()),
		aggregator.New(taxonomy.Default(), aggregator.WithClock(clock)),
		engine.WithDedup(dedup.New(dedup.Config{})),
		engine.WithClock(clock),
	)
}

func TestRunContractsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.csv")
	require.NoError(t, os.WriteFile(path, testdata.ContractsCSV(), 0o644))

	src, err := source.Get("csv")
	require.NoError(t, err)
	out := &mockOutput{}
	p := New(src(), source.Config{Provider: "csv", Path: path}, newEngine(), out, WithCache(NewCache()))

	report, err := p.Run(context.Background(), model.FilterAll)
	require.NoError(t, err)

	assert.Len(t, report.Records, 20)
	assert.Equal(t, 20, report.Metrics.TotalClients)
	sum := 0
	for _, c := range model.Clusters() {
		sum += report.Metrics.TotalByCluster[c]
	}
	assert.Equal(t, 20, sum)

	churn, err := p.Run(context.Background(), model.Filter(model.ChurnRisk))
	require.NoError(t, err)
	assert.Equal(t, report.DatasetID, churn.DatasetID)
	assert.Equal(t, report.Metrics.TotalByCluster[model.ChurnRisk], churn.Metrics.TotalClients)
	for _, r := range churn.Records {
		assert.Equal(t, model.ChurnRisk, r.Cluster)
	}
}
