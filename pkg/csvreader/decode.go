package csvreader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	EncodingLatin1      = "iso-8859-1"
	EncodingWindows1252 = "windows-1252"
	EncodingUTF8        = "utf-8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decoder converts the export bytes to UTF-8. The mainframe writes
// ISO-8859-1, which is also the default for an empty encoding.
func Decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingLatin1, "latin1", "latin-1", "iso8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case EncodingWindows1252, "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case EncodingUTF8, "utf8":
		return &bomSkipper{r: r}, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

type bomSkipper struct {
	r       io.Reader
	checked bool
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if b.checked {
		return b.r.Read(p)
	}
	b.checked = true

	head := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(b.r, head)
	head = head[:n]
	if bytes.Equal(head, utf8BOM) {
		head = nil
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		b.r = bytes.NewReader(head)
	} else if err != nil {
		return 0, err
	} else {
		b.r = io.MultiReader(bytes.NewReader(head), b.r)
	}
	return b.r.Read(p)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
