package csvreader

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   rune
	}{
		{"semicolons", "a;b;c\n1,5;2;3", ';'},
		{"commas", "a,b,c\n1;2;3;4;5;6", ','},
		{"tie prefers comma", "a;b,c", ','},
		{"no separators", "header", ','},
		{"only first line counts", "a,b\r\n;;;;;;", ','},
		{"empty", "", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter([]byte(tt.sample)))
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	actual := []string{"Polis->Polisnummer_1", " Polis->Relatienummer ", "Polis->Clausule 10", "Polis->Polisnummer", "Polis->Clausule 1_2", "Polis->Kenteken_x"}
	expected := []string{"Polis->Polisnummer", "Polis->Relatienummer", "Polis->Clausule 1", "Polis->Clausule 10", "Polis->Kenteken", "Polis->Termijn"}

	lookup := ResolveHeaders(actual, expected)

	assert.Equal(t, 3, lookup["Polis->Polisnummer"], "exact match beats suffixed")
	assert.Equal(t, 1, lookup["Polis->Relatienummer"])
	assert.Equal(t, 4, lookup["Polis->Clausule 1"], "suffix must be _digits, not a longer label")
	assert.Equal(t, 2, lookup["Polis->Clausule 10"])
	assert.NotContains(t, lookup, "Polis->Kenteken")
	assert.NotContains(t, lookup, "Polis->Termijn")
}

func TestNewReader_Latin1Semicolon(t *testing.T) {
	raw := []byte("Relatie->Relatienummer;Relatie->Telefoonnummer priv\xe9;Relatie->Woonplaats\r\n" +
		"1001;06-123;'s-Hertogenbosch\r\n" +
		"\r\n" +
		";;\r\n" +
		"1002;;Zo\xebtermeer\r\n")

	expected := []string{"Relatie->Relatienummer", "Relatie->Telefoonnummer privé", "Relatie->Woonplaats", "Relatie->Land"}
	r, err := NewReader(bytes.NewReader(raw), expected, Options{})
	require.NoError(t, err)

	assert.Equal(t, ';', r.Delimiter())
	assert.Equal(t, []string{"Relatie->Land"}, r.Unmatched())

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row.Line)
	v, ok := row.Get("Relatie->Telefoonnummer privé")
	assert.True(t, ok)
	assert.Equal(t, "06-123", v)
	_, ok = row.Get("Relatie->Land")
	assert.False(t, ok)

	row, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 5, row.Line)
	v, _ = row.Get("Relatie->Woonplaats")
	assert.Equal(t, "Zoëtermeer", v)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(len(raw)), r.BytesRead())
}

func TestNewReader_QuotedCommaFile(t *testing.T) {
	raw := "Polis->Polisnummer,DekkingOms->Dekking,Polis->Termijn\n" +
		"POL1,\"Casco, beperkt\",12\n" +
		"POL2,WA\n"

	r, err := NewReader(strings.NewReader(raw), []string{"Polis->Polisnummer", "DekkingOms->Dekking", "Polis->Termijn"}, Options{Encoding: EncodingUTF8})
	require.NoError(t, err)
	assert.Equal(t, ',', r.Delimiter())

	row, err := r.Next()
	require.NoError(t, err)
	v, _ := row.Get("DekkingOms->Dekking")
	assert.Equal(t, "Casco, beperkt", v)

	row, err = r.Next()
	require.NoError(t, err)
	_, ok := row.Get("Polis->Termijn")
	assert.False(t, ok, "short rows resolve missing columns as absent")
}

func TestNewReader_UTF8BOM(t *testing.T) {
	raw := "\xEF\xBB\xBFid,naam\n1,x\n"
	r, err := NewReader(strings.NewReader(raw), []string{"id"}, Options{Encoding: "utf8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "naam"}, r.Headers())
}

func TestNewReader_Errors(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), nil, Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = NewReader(strings.NewReader("a,b"), nil, Options{Encoding: "ebcdic"})
	assert.Error(t, err)
}
