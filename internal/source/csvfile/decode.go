package csvfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("csv: no header row")

// Options controls decoding.
type Options struct {
	Encoding  string // utf-8 (default), latin1, windows-1252
	Delimiter rune   // 0 means detect from the header line
	Limit     int    // maximum data rows; <= 0 means no limit
}

// candidates are tried by delimiter detection, most likely first.
var candidates = []rune{';', ',', '\t', '|'}

// Decode reads a delimited table. The header row becomes Columns (trimmed);
// short rows are padded with empty cells, blank lines are skipped.
func Decode(r io.Reader, opts Options) (*model.Table, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(transform.NewReader(r, dec), 64<<10)

	comma := opts.Delimiter
	if comma == 0 {
		head, _ := br.Peek(64 << 10)
		comma = Detect(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	t := &model.Table{Columns: header}
	for opts.Limit <= 0 || len(t.Rows) < opts.Limit {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(t.Rows)+1, err)
		}
		if blank(row) {
			continue
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Detect picks the delimiter that occurs most often on the first line of
// head, outside quotes. Ties go to the earlier candidate; no hit means ','.
func Detect(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	counts := make(map[rune]int, len(candidates))
	quoted := false
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		head = head[size:]
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}
	best, bestN := ',', 0
	for _, c := range candidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

// decoder maps an encoding name to a transformer that yields UTF-8 with any
// byte order mark removed.
func decoder(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "latin1", "latin-1", "iso-8859-1":
		enc = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
