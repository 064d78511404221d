package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// Encode writes t as UTF-8 delimited text with a header row.
func Encode(w io.Writer, t *model.Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}
