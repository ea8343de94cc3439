package normalize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/toolstock/gls-rpa/internal/sheet"
)

var errRaggedTable = errors.New("table rows do not match header width")

// DocumentTableStrategy reads the first table of a document with a CSS
// selector engine. It is strict: the header comes from the first row and
// every body row, after colspan expansion, must have the same width.
type DocumentTableStrategy struct{}

func (s *DocumentTableStrategy) Name() string { return "html-document" }

func (s *DocumentTableStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Rows of nested tables belong to those tables
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}

		var cells []string
		tr.Children().Filter("th, td").Each(func(_ int, cell *goquery.Selection) {
			span := 1
			if v, ok := cell.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
					span = n
				}
			}
			text := collapseSpace(cell.Text())
			for i := 0; i < span; i++ {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})

	if len(rows) == 0 {
		return nil, ErrNoTable
	}

	width := len(rows[0])
	for i, r := range rows[1:] {
		if len(r) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", errRaggedTable, i+1, len(r), width)
		}
	}

	return sheet.FromRows(rows)
}

// ManualTableStrategy walks the parsed tree of the first table. Header
// cells are every th in the table; data rows are every tr holding at
// least one td. Rows are padded or cut to the header width.
type ManualTableStrategy struct{}

func (s *ManualTableStrategy) Name() string { return "html-manual" }

func (s *ManualTableStrategy) Parse(ctx context.Context, path string) (*sheet.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	table := findElement(root, "table")
	if table == nil {
		return nil, ErrNoTable
	}

	var header []string
	for _, th := range findAll(table, "th") {
		header = append(header, collapseSpace(nodeText(th)))
	}

	var rows [][]string
	if len(header) > 0 {
		rows = append(rows, header)
	}
	for _, tr := range findAll(table, "tr") {
		var cells []string
		for _, td := range findAll(tr, "td") {
			cells = append(cells, collapseSpace(nodeText(td)))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoTable
	}
	return sheet.FromRows(rows)
}

// findElement returns the first element named tag in document order
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant element named tag
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
