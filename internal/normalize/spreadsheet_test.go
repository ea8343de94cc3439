package normalize

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/toolstock/gls-rpa/internal/sheet"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sh.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

// copyFixture places the BIFF8 workbook from testdata under name. The
// workbook holds Code, Name and Description for code1 to code11.
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "table.xls"))
	require.NoError(t, err)
	return writeFile(t, name, data)
}

func fixtureTable() *sheet.Table {
	want := &sheet.Table{Header: []string{"Code", "Name", "Description"}}
	for i := 1; i <= 11; i++ {
		n := strconv.Itoa(i)
		want.Rows = append(want.Rows, []string{"code" + n, "name" + n, "description" + n})
	}
	return want
}

// openHandles counts this process's descriptors that point at path
func openHandles(t *testing.T, path string) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("descriptor table not available on this platform")
	}
	target, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)

	count := 0
	for _, e := range entries {
		link, err := os.Readlink(filepath.Join("/proc/self/fd", e.Name()))
		if err == nil && link == target {
			count++
		}
	}
	return count
}

func TestBIFFStrategy(t *testing.T) {
	path := copyFixture(t, "GLS_20240604.xls")

	tbl, err := (&BIFFStrategy{}).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, fixtureTable(), tbl)
}

func TestBIFFStrategy_ReleasesFile(t *testing.T) {
	oleStub := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 1024)...)

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr bool
	}{
		{"workbook", func(t *testing.T) string { return copyFixture(t, "GLS_20240604.xls") }, false},
		{"corrupt container", func(t *testing.T) string { return writeFile(t, "GLS_20240604.xls", oleStub) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			require.Zero(t, openHandles(t, path))

			_, err := safeParse(context.Background(), &BIFFStrategy{}, path)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Zero(t, openHandles(t, path))
			assert.NoError(t, os.Remove(path))
		})
	}
}

func TestXLSXStrategy(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Expedicion", "DptoDst"},
		{"0001", "402-111"},
		{"0002", "ABCDEF"},
	})

	tbl, err := (&XLSXStrategy{}).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Expedicion", "DptoDst"}, tbl.Header)
	assert.Equal(t, [][]string{{"0001", "402-111"}, {"0002", "ABCDEF"}}, tbl.Rows)
}

func TestExcelizeStrategy_ReadsCanonicalOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20240604.xlsx")
	want := &sheet.Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	require.NoError(t, sheet.Write(path, want))

	got, err := (&ExcelizeStrategy{}).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSpreadsheetEngines_RejectText(t *testing.T) {
	path := writeFile(t, "GLS_20240604.xls", []byte("Expedicion;DptoDst\n1;X\n"))

	for _, s := range []Strategy{&ExcelizeStrategy{}, &XLSXStrategy{}, &BIFFStrategy{}} {
		t.Run(s.Name(), func(t *testing.T) {
			_, err := safeParse(context.Background(), s, path)
			assert.Error(t, err)
		})
	}
}

func TestCSVStrategy(t *testing.T) {
	s := &CSVStrategy{}

	t.Run("semicolon windows-1252", func(t *testing.T) {
		path := writeFile(t, "GLS_20240604.xls", []byte("Expedicion;Poblaci\xf3n;DptoDst\r\n0001;Le\xf3n;X\r\n"))

		tbl, err := s.Parse(context.Background(), path)

		require.NoError(t, err)
		assert.Equal(t, []string{"Expedicion", "Población", "DptoDst"}, tbl.Header)
		assert.Equal(t, [][]string{{"0001", "León", "X"}}, tbl.Rows)
	})

	t.Run("comma with bom and quotes", func(t *testing.T) {
		path := writeFile(t, "export.csv", []byte("\xef\xbb\xbfa,b\n\"1,5\",2\n"))

		tbl, err := s.Parse(context.Background(), path)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tbl.Header)
		assert.Equal(t, [][]string{{"1,5", "2"}}, tbl.Rows)
	})

	t.Run("single column is not a table", func(t *testing.T) {
		path := writeFile(t, "notes.csv", []byte("just some text\nmore text\n"))

		_, err := s.Parse(context.Background(), path)
		assert.Error(t, err)
	})

	t.Run("inconsistent field counts", func(t *testing.T) {
		path := writeFile(t, "broken.csv", []byte("a;b\n1;2;3\n"))

		_, err := s.Parse(context.Background(), path)
		assert.Error(t, err)
	})

	t.Run("binary content", func(t *testing.T) {
		path := writeFile(t, "bin.xls", []byte{0xD0, 0xCF, 0x00, ';', 0x01})

		_, err := s.Parse(context.Background(), path)
		assert.Error(t, err)
	})
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', detectDelimiter([]byte("a;b;c\n1,5;2;3")))
	assert.Equal(t, ',', detectDelimiter([]byte("a,b,c")))
	assert.Equal(t, '\t', detectDelimiter([]byte("a\tb\n")))
}
