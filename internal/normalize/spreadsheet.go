package normalize

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/toolstock/gls-rpa/internal/sheet"
)

// ExcelizeStrategy reads Office Open XML workbooks
type ExcelizeStrategy struct{}

func (s *ExcelizeStrategy) Name() string { return "excelize" }

func (s *ExcelizeStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	return sheet.Read(path)
}

// XLSXStrategy is a second, more permissive Office Open XML reader
type XLSXStrategy struct{}

func (s *XLSXStrategy) Name() string { return "xlsx" }

func (s *XLSXStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open file: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return sheet.FromRows(rows)
}

// BIFFStrategy reads legacy binary .xls workbooks
type BIFFStrategy struct{}

func (s *BIFFStrategy) Name() string { return "xls" }

func (s *BIFFStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	// xls.Open never closes the file it opens
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xls: open file: %w", err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("xls: open workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("xls: no workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("xls: workbook has no sheets")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, errors.New("xls: first sheet unreadable")
	}

	// MaxRow is the last row index, not a count
	var rows [][]string
	width := 0
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := biffRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		if row.LastCol() > width {
			width = row.LastCol()
		}
		cells := make([]string, width)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return sheet.FromRows(rows)
}

// biffRow returns nil for a row index the sheet never defined.
// WorkSheet.Row dereferences the missing entry instead.
func biffRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// CSVStrategy reads delimited text exports. The delimiter is whichever
// of ';', ',' or tab is most frequent in the first line, and text that
// is not UTF-8 is decoded as Windows-1252.
type CSVStrategy struct{}

func (s *CSVStrategy) Name() string { return "csv" }

func (s *CSVStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csv: read file: %w", err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, errors.New("csv: binary content")
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		if data, err = charmap.Windows1252.NewDecoder().Bytes(data); err != nil {
			return nil, fmt.Errorf("csv: decode: %w", err)
		}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, errors.New("csv: not a delimited table")
	}
	return sheet.FromRows(rows)
}

func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ';', -1
	for _, d := range []byte{';', ',', '\t'} {
		if n := bytes.Count(line, []byte{d}); n > bestCount {
			best, bestCount = rune(d), n
		}
	}
	return best
}
