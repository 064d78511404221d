package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source"
)

func TestDetect(t *testing.T) {
	cases := map[string]rune{
		"a;b;c\n1;2;3":         ';',
		"a,b,c\n":              ',',
		"a\tb\tc":              '\t',
		`"x;y",b,c`:            ',',
		"single":               ',',
		"a|b|c":                '|',
		"CD_CLIENTE;VL, total": ';',
	}
	for in, want := range cases {
		assert.Equal(t, string(want), string(Detect([]byte(in))), "Detect(%q)", in)
	}
}

func TestDecodeSemicolonWithPadding(t *testing.T) {
	in := "CD_CLIENTE ; VL_TOTAL_CONTRATO;UF\nC1;1.000,00;SP\nC2;2.000,00\n\nC3;;RJ\n"
	tbl, err := Decode(strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"CD_CLIENTE", "VL_TOTAL_CONTRATO", "UF"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"C1", "1.000,00", "SP"},
		{"C2", "2.000,00", ""},
		{"C3", "", "RJ"},
	}, tbl.Rows)
}

func TestDecodeStripsBOM(t *testing.T) {
	in := "\ufeffclient_id,score\nC1,9\n"
	tbl, err := Decode(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, "client_id", tbl.Columns[0])
}

func TestDecodeLatin1(t *testing.T) {
	// "SITUAÇÃO;UF\nATIVO;SÃO PAULO" in ISO-8859-1.
	in := []byte("SITUA\xc7\xc3O;UF\nATIVO;S\xc3O PAULO\n")
	tbl, err := Decode(bytes.NewReader(in), Options{Encoding: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, "SITUAÇÃO", tbl.Columns[0])
	assert.Equal(t, "SÃO PAULO", tbl.Rows[0][1])
}

func TestDecodeWindows1252(t *testing.T) {
	// 0x80 is the euro sign in Windows-1252 only.
	in := []byte("moeda\n\x80\n")
	tbl, err := Decode(bytes.NewReader(in), Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "€", tbl.Rows[0][0])
}

func TestDecodeUnsupportedEncoding(t *testing.T) {
	_, err := Decode(strings.NewReader("a\n"), Options{Encoding: "ebcdic"})
	assert.Error(t, err)
}

func TestDecodeLimit(t *testing.T) {
	in := "a\n1\n2\n3\n4\n"
	tbl, err := Decode(strings.NewReader(in), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestEncodeRoundTrip(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"client_id", "status"},
		Rows:    [][]string{{"C1", "ATIVO"}, {"C2", "CANCELADO; com nota"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tbl, ';'))

	back, err := Decode(&buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ";": ';', "tab": '\t', `\t`: '\t', ",": ','} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDelimiter(";;")
	assert.Error(t, err)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contracts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadThroughRegistry(t *testing.T) {
	path := writeFile(t, "CD_CLIENTE;resposta_NPS_x\nC1;9\nC2;3\n")

	ctor, err := source.Get("csv")
	require.NoError(t, err)
	tbl, err := ctor().Load(context.Background(), source.Config{Path: path}, source.LoadParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CD_CLIENTE", "resposta_NPS_x"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := (&Source{}).Load(context.Background(), source.Config{Path: "/nonexistent/x.csv"}, source.LoadParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "error should wrap os.ErrNotExist: %v", err)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := (&Source{}).Load(context.Background(), source.Config{}, source.LoadParams{})
	assert.Error(t, err)
}

func TestIdentityChangesWithContent(t *testing.T) {
	path := writeFile(t, "a\n1\n")
	s := &Source{}
	first, err := s.Identity(context.Background(), source.Config{Path: path})
	require.NoError(t, err)

	again, err := s.Identity(context.Background(), source.Config{Path: path})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err := s.Identity(context.Background(), source.Config{Path: path})
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
