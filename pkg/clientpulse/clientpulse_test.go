package clientpulse

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/clientpulse/internal/engine/testdata"
	"github.com/crimson-sun/clientpulse/internal/model"
)

var fixedNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func newTestClient(opts ...Option) *Client {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestReadCSVContracts(t *testing.T) {
	a, err := newTestClient(WithDedup()).ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
	require.NoError(t, err)

	assert.Len(t, a.Records(), 20)
	assert.Empty(t, a.Fallbacks())
	assert.NotEmpty(t, a.ID())

	m, err := a.Metrics("All")
	require.NoError(t, err)
	assert.Equal(t, 20, m.TotalClients)
	assert.False(t, m.Synthetic)
}

func TestReadCSVWithoutDedupKeepsDuplicate(t *testing.T) {
	a, err := newTestClient().ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
	require.NoError(t, err)
	assert.Len(t, a.Records(), 21)
}

func TestTopChurnRisk(t *testing.T) {
	a, err := newTestClient(WithDedup()).ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
	require.NoError(t, err)

	top := a.Top(ChurnRisk, 2)
	require.Len(t, top, 2)
	for _, r := range top {
		assert.Equal(t, ChurnRisk, r.Cluster)
	}
	assert.Equal(t, "C002", top[0].ClientID)
}

func TestMetricsFilterIsCaseInsensitive(t *testing.T) {
	a, err := newTestClient(WithDedup()).ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
	require.NoError(t, err)

	m, err := a.Metrics("churnrisk")
	require.NoError(t, err)
	assert.Equal(t, m.TotalClients, m.TotalByCluster[ChurnRisk])
	assert.Zero(t, m.TotalByCluster[Regular])
}

func TestMetricsUnknownCluster(t *testing.T) {
	a := newTestClient().Analyze([]string{"client_id", "score"}, [][]string{{"a", "5"}})
	_, err := a.Metrics("Todos")
	assert.True(t, errors.Is(err, model.ErrUnknownFilter))
}

func TestAnalyzePadsShortRowsAndKeepsInput(t *testing.T) {
	cols := []string{"client_id", "value", "signed_at", "status", "score"}
	rows := [][]string{
		{"a", "1000", "2025-01-10", "ATIVO", "2"},
		{"b"},
	}
	a := newTestClient().Analyze(cols, rows)

	recs := a.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].ClientID)
	assert.Nil(t, recs[1].Value)
	assert.Nil(t, recs[1].Score)
	assert.Len(t, rows[1], 1, "input rows must not be padded in place")
}

func TestAnalyzeMissingColumnsAreSynthetic(t *testing.T) {
	a := newTestClient(WithSeed(3)).Analyze([]string{"client_id"}, [][]string{{"a"}, {"b"}, {"c"}})

	fields := map[string]bool{}
	for _, fb := range a.Fallbacks() {
		fields[fb.Field] = true
	}
	for _, f := range []string{model.ColValue, model.ColSignedAt, model.ColStatus, model.ColScore} {
		assert.True(t, fields[f], "expected a fallback for %s", f)
	}
	for _, r := range a.Records() {
		require.NotNil(t, r.Value)
		require.NotNil(t, r.Score)
	}
}

func TestWithColumnsOverridesAliases(t *testing.T) {
	a := newTestClient(WithColumns(map[string][]string{"score": {"nota"}})).
		Analyze([]string{"client_id", "nota"}, [][]string{{"a", "10"}})

	require.Len(t, a.Records(), 1)
	require.NotNil(t, a.Records()[0].Score)
	assert.Equal(t, 10, *a.Records()[0].Score)
	assert.Equal(t, Promoter, a.Records()[0].Category)
}

func TestWithDemoInflation(t *testing.T) {
	a, err := newTestClient(WithDedup(), WithDemoInflation()).ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
	require.NoError(t, err)

	m, err := a.Metrics("")
	require.NoError(t, err)
	assert.True(t, m.Synthetic)
	assert.Equal(t, 700, m.TotalClients)
}

func TestWriteCSV(t *testing.T) {
	a := newTestClient().Analyze(
		[]string{"CD_CLIENTE", "resposta_NPS_x", "UF"},
		[][]string{{"a", "9", "SP"}},
	)
	var buf bytes.Buffer
	require.NoError(t, a.WriteCSV(&buf, ','))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(append(model.AnnotatedColumns(), "UF"), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "a,"))
	assert.True(t, strings.HasSuffix(lines[1], ",SP"))
}

func TestReadCSVDecodeError(t *testing.T) {
	_, err := newTestClient(WithEncoding("ebcdic")).ReadCSV(strings.NewReader("a;b\n1;2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clientpulse:")
}

func TestConcurrentAnalyses(t *testing.T) {
	c := newTestClient(WithDedup())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := c.ReadCSV(bytes.NewReader(testdata.ContractsCSV()))
			if assert.NoError(t, err) {
				assert.Len(t, a.Records(), 20)
			}
		}()
	}
	wg.Wait()
}
