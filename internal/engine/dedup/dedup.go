package dedup

import (
	"strings"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// Config controls deduplication behavior.
type Config struct {
	Columns []string // key columns; empty means every column
}

// Deduplicator drops repeated rows from a raw table.
type Deduplicator struct {
	cfg Config
}

// New creates a Deduplicator with the given config.
func New(cfg Config) *Deduplicator {
	return &Deduplicator{cfg: cfg}
}

// DeduplicateTable removes rows whose key columns repeat an earlier row,
// keeping the first occurrence and the original order. Key columns missing
// from the table are ignored; if none of them exist the table is returned
// untouched. Returns the number of rows dropped.
func (d *Deduplicator) DeduplicateTable(t *model.Table) int {
	if t == nil || len(t.Rows) == 0 {
		return 0
	}

	idx := d.keyIndexes(t)
	if len(idx) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for _, i := range idx {
			if i < len(row) {
				b.WriteString(row[i])
			}
			b.WriteByte(0x1f)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}

	dropped := len(t.Rows) - len(kept)
	t.Rows = kept
	return dropped
}

func (d *Deduplicator) keyIndexes(t *model.Table) []int {
	if len(d.cfg.Columns) == 0 {
		idx := make([]int, len(t.Columns))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	var idx []int
	for _, name := range d.cfg.Columns {
		if i := t.Index(name); i >= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}
