package normalize

import (
	"context"
	"errors"
	"fmt"

	"github.com/toolstock/gls-rpa/internal/sheet"
)

var (
	// ErrNoTable is returned when an HTML document contains no usable table
	ErrNoTable = errors.New("no table found")
	// ErrAllStrategiesFailed is returned when every parse strategy failed
	ErrAllStrategiesFailed = errors.New("all parse strategies failed")
)

// Strategy turns a downloaded file into a table. Strategies are tried in
// order until one succeeds.
type Strategy interface {
	Name() string
	Parse(ctx context.Context, path string) (*sheet.Table, error)
}

// DefaultHTMLStrategies returns the HTML readers in priority order
func DefaultHTMLStrategies() []Strategy {
	return []Strategy{
		&DocumentTableStrategy{},
		&ManualTableStrategy{},
	}
}

// DefaultSpreadsheetStrategies returns the spreadsheet engines in priority order
func DefaultSpreadsheetStrategies() []Strategy {
	return []Strategy{
		&ExcelizeStrategy{},
		&XLSXStrategy{},
		&BIFFStrategy{},
		&CSVStrategy{},
	}
}

// safeParse runs a strategy, converting a panic inside a third-party
// reader into an error.
func safeParse(ctx context.Context, s Strategy, path string) (t *sheet.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%s panicked: %v", s.Name(), r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Parse(ctx, path)
}
