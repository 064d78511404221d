// Package resolver maps heterogeneous source column names onto the
// canonical record fields.
package resolver

import (
	"github.com/crimson-sun/clientpulse/internal/model"
)

// Field is a logical record attribute.
type Field string

const (
	ClientID Field = model.ColClientID
	Value    Field = model.ColValue
	SignedAt Field = model.ColSignedAt
	Status   Field = model.ColStatus
	Score    Field = model.ColScore
)

// Fields returns every logical field in resolution order.
func Fields() []Field {
	return []Field{ClientID, Value, SignedAt, Status, Score}
}

// Aliases maps each field to its ordered candidate column names.
type Aliases map[Field][]string

// DefaultAliases lists the canonical name first so already-normalized
// tables resolve to themselves.
func DefaultAliases() Aliases {
	return Aliases{
		ClientID: {"client_id", "cliente_id", "CD_CLIENTE", "CLIENTE", "CD_CLI", "CODIGO_ORGANIZACAO", "CODIGO_CLIENTE", "ID_CLIENTE"},
		Value:    {"value", "VL_TOTAL_CONTRATO", "VALOR_CONTRATO", "VL_CONTRATO"},
		SignedAt: {"signed_at", "DT_ASSINATURA_CONTRATO", "DATA_ASSINATURA", "DT_CONTRATO"},
		Status:   {"status", "SITUACAO_CONTRATO", "STATUS_CONTRATO", "SITUACAO"},
		Score:    {"score", "resposta_NPS_x", "NPS", "NOTA_NPS", "Nota NPS_x"},
	}
}

// Merge returns a copy of a where every field present in override replaces
// the default candidate list.
func (a Aliases) Merge(override map[string][]string) Aliases {
	out := make(Aliases, len(a))
	for f, c := range a {
		out[f] = append([]string(nil), c...)
	}
	for name, c := range override {
		if len(c) == 0 {
			continue
		}
		out[Field(name)] = append([]string(nil), c...)
	}
	return out
}

// Resolve returns the first candidate present in columns.
func Resolve(columns []string, candidates []string) (string, bool) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := present[c]; ok {
			return c, true
		}
	}
	return "", false
}

// Resolution records which fields were found in the table, and under which
// original header.
type Resolution map[Field]string

// Found reports whether f was resolved.
func (r Resolution) Found(f Field) bool {
	_, ok := r[f]
	return ok
}

// Apply resolves every field against t and renames matched columns to their
// canonical names in place. A column that already carries a canonical name
// but lost to another alias is moved aside as "<name>_orig".
func (a Aliases) Apply(t *model.Table) Resolution {
	res := make(Resolution)
	for _, f := range Fields() {
		src, ok := Resolve(t.Columns, a[f])
		if !ok {
			continue
		}
		res[f] = src
		canonical := string(f)
		if src == canonical {
			continue
		}
		if t.Has(canonical) {
			t.Rename(canonical, canonical+"_orig")
		}
		t.Rename(src, canonical)
	}
	return res
}
