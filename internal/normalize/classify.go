package normalize

import (
	"bytes"
	"unicode/utf8"
)

// Format is the true content type of a downloaded export
type Format int

const (
	// FormatSpreadsheet is a genuine spreadsheet or delimited text file
	FormatSpreadsheet Format = iota
	// FormatHTML is markup saved under a spreadsheet extension
	FormatHTML
)

func (f Format) String() string {
	if f == FormatHTML {
		return "html"
	}
	return "spreadsheet"
}

// SniffLength is how many leading bytes Classify inspects
const SniffLength = 1000

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")

	markupSignatures = [][]byte{
		[]byte("<!doctype html"),
		[]byte("<html"),
		[]byte("<form"),
	}
)

// Classify decides from content alone whether data is HTML or a
// spreadsheet. Rules, applied to the first SniffLength bytes:
//
//   - an OLE2 (legacy .xls) or ZIP (.xlsx) signature is a spreadsheet
//   - bytes that are not valid UTF-8 text are a spreadsheet
//   - text containing <!doctype html, <html or <form in any case is HTML
//   - anything else is a spreadsheet
func Classify(data []byte) Format {
	if len(data) > SniffLength {
		data = data[:SniffLength]
	}

	if bytes.HasPrefix(data, oleMagic) || bytes.HasPrefix(data, zipMagic) {
		return FormatSpreadsheet
	}
	if !isText(data) {
		return FormatSpreadsheet
	}

	lower := bytes.ToLower(data)
	for _, sig := range markupSignatures {
		if bytes.Contains(lower, sig) {
			return FormatHTML
		}
	}
	return FormatSpreadsheet
}

// isText reports whether data decodes as UTF-8. A multi-byte rune cut off
// by the sniff window does not count as invalid.
func isText(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return !utf8.FullRune(data)
		}
		data = data[size:]
	}
	return true
}
