// Package demo generates a synthetic contract export shaped like the real
// one: raw column names, Brazilian number and date formats, and weighted
// status, score and state distributions.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source"
)

const (
	DefaultRows = 2000
	DefaultSeed = 42
)

// Columns is the header of a generated table.
var Columns = []string{
	"CD_CLIENTE",
	"VL_TOTAL_CONTRATO",
	"DT_ASSINATURA_CONTRATO",
	"SITUACAO_CONTRATO",
	"resposta_NPS_x",
	"DS_SEGMENTO",
	"UF",
}

type weighted struct {
	values  []string
	weights []float64
	total   float64
}

func newWeighted(values []string, weights []float64) weighted {
	w := weighted{values: values, weights: weights}
	for _, x := range weights {
		w.total += x
	}
	return w
}

func (w weighted) pick(rng *rand.Rand) string {
	x := rng.Float64() * w.total
	for i, wt := range w.weights {
		if x < wt {
			return w.values[i]
		}
		x -= wt
	}
	return w.values[len(w.values)-1]
}

var (
	statuses = newWeighted(
		[]string{"ATIVO", "VIGENTE", "REGULAR", "CANCELADO", "ENCERRADO", "INATIVO"},
		[]float64{0.85, 0.125, 0.025, 0.01, 0.005, 0.005},
	)
	scores = newWeighted(
		[]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		[]float64{0.02, 0.03, 0.05, 0.08, 0.12, 0.15, 0.20, 0.15, 0.10, 0.07, 0.03},
	)
	states = newWeighted(
		[]string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "GO", "PE"},
		[]float64{0.3, 0.15, 0.12, 0.08, 0.08, 0.06, 0.06, 0.08, 0.07},
	)
	segments = []string{"MANUFATURA", "SERVIÇOS", "VAREJO", "FINANCEIRO", "TECNOLOGIA"}
)

// Generate returns rows synthetic contracts signed 1 to 999 days before now.
// The same seed, row count and day always produce the same table.
func Generate(rows int, seed int64, now time.Time) *model.Table {
	rng := rand.New(rand.NewSource(seed))
	today := now.UTC().Truncate(24 * time.Hour)

	t := &model.Table{Columns: append([]string(nil), Columns...)}
	t.Rows = make([][]string, rows)
	for i := range t.Rows {
		value := 1000 + rng.Float64()*99000
		signed := today.AddDate(0, 0, -(1 + rng.Intn(999)))
		t.Rows[i] = []string{
			fmt.Sprintf("C%05d", i),
			FormatBRL(value),
			signed.Format("02/01/2006"),
			statuses.pick(rng),
			scores.pick(rng),
			segments[rng.Intn(len(segments))],
			states.pick(rng),
		}
	}
	return t
}

// FormatBRL renders v with '.' thousands and ',' decimal separators.
func FormatBRL(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "," + frac
}

func init() {
	source.Register("demo", func() source.Source {
		return &Source{now: time.Now}
	})
}

// Source implements source.Source by generating a table in memory.
type Source struct {
	now func() time.Time
}

// NewSource creates a demo source with a fixed clock.
func NewSource(now func() time.Time) *Source {
	return &Source{now: now}
}

// Load generates cfg.Rows rows (DefaultRows when unset), capped by params.Limit.
func (s *Source) Load(ctx context.Context, cfg source.Config, params source.LoadParams) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, seed := settings(cfg)
	if params.Limit > 0 && params.Limit < rows {
		rows = params.Limit
	}
	return Generate(rows, seed, s.now()), nil
}

// Identity changes only with the settings and the calendar day.
func (s *Source) Identity(_ context.Context, cfg source.Config) (string, error) {
	rows, seed := settings(cfg)
	return fmt.Sprintf("demo:%d:%d:%s", seed, rows, s.now().UTC().Format(model.DateLayout)), nil
}

func settings(cfg source.Config) (rows int, seed int64) {
	rows, seed = cfg.Rows, cfg.Seed
	if rows <= 0 {
		rows = DefaultRows
	}
	if seed == 0 {
		seed = DefaultSeed
	}
	return rows, seed
}
