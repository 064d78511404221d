// Package testdata embeds a small contract export shaped like the real one:
// raw column names, semicolon delimiter, Brazilian number and date formats,
// a few unparseable cells and one duplicated row.
package testdata

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"

	"github.com/crimson-sun/clientpulse/internal/model"
)

//go:embed contracts.csv
var contractsCSV []byte

// ContractsCSV returns a copy of the raw embedded file.
func ContractsCSV() []byte {
	return bytes.Clone(contractsCSV)
}

// Contracts parses the embedded file into a raw table.
func Contracts() (*model.Table, error) {
	r := csv.NewReader(bytes.NewReader(contractsCSV))
	r.Comma = ';'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse contracts.csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse contracts.csv: empty file")
	}
	return &model.Table{Columns: records[0], Rows: records[1:]}, nil
}
