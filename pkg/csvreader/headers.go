package csvreader

import (
	"bytes"
	"strings"
)

// SampleSize is how much of the file is inspected for the delimiter.
const SampleSize = 4096

// DetectDelimiter counts semicolons and commas on the first line of sample
// and returns ';' only when semicolons are the majority.
func DetectDelimiter(sample []byte) rune {
	if i := bytes.IndexAny(sample, "\r\n"); i >= 0 {
		sample = sample[:i]
	}
	if bytes.Count(sample, []byte{';'}) > bytes.Count(sample, []byte{','}) {
		return ';'
	}
	return ','
}

// ResolveHeaders maps each expected header to a column index in actual. An
// exact match wins; otherwise the first column named expected + "_" + digits
// is used, the form the export gives to repeated labels. Expected headers
// without a column are absent from the result.
func ResolveHeaders(actual, expected []string) map[string]int {
	exact := make(map[string]int, len(actual))
	for i, h := range actual {
		h = strings.TrimSpace(h)
		if _, seen := exact[h]; !seen {
			exact[h] = i
		}
	}

	lookup := make(map[string]int, len(expected))
	for _, want := range expected {
		if i, ok := exact[want]; ok {
			lookup[want] = i
			continue
		}
		for i, h := range actual {
			if isSuffixed(strings.TrimSpace(h), want) {
				lookup[want] = i
				break
			}
		}
	}
	return lookup
}

func isSuffixed(header, base string) bool {
	rest, ok := strings.CutPrefix(header, base+"_")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
