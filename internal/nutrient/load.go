package nutrient

import (
	"context"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/fetcher"
	"github.com/sells-group/gutlog/internal/model"
)

// ErrNoNameColumn means no header matched a known food-name column.
var ErrNoNameColumn = eris.New("nutrient table has no food name column")

type column int

const (
	colName column = iota
	colProtein
	colFat
	colCarbs
	colFiber
)

// headerAliases maps a squashed header (lower case, no whitespace) to its
// column. English and Korean exports are both accepted.
var headerAliases = map[string]column{
	"food_name":        colName,
	"foodname":         colName,
	"food":             colName,
	"name":             colName,
	"description":      colName,
	"식품명":              colName,
	"음식명":              colName,
	"protein":          colProtein,
	"protein_g":        colProtein,
	"protein(g)":       colProtein,
	"protein_per_100g": colProtein,
	"단백질":              colProtein,
	"단백질(g)":           colProtein,
	"fat":              colFat,
	"fat_g":            colFat,
	"fat(g)":           colFat,
	"total_fat":        colFat,
	"fat_per_100g":     colFat,
	"지방":               colFat,
	"지방(g)":            colFat,
	"carbs":            colCarbs,
	"carbs_g":          colCarbs,
	"carbohydrate":     colCarbs,
	"carbohydrates":    colCarbs,
	"carbohydrate(g)":  colCarbs,
	"carbs_per_100g":   colCarbs,
	"탄수화물":             colCarbs,
	"탄수화물(g)":          colCarbs,
	"fiber":            colFiber,
	"fibre":            colFiber,
	"fiber_g":          colFiber,
	"fiber(g)":         colFiber,
	"dietary_fiber":    colFiber,
	"fiber_per_100g":   colFiber,
	"식이섬유":             colFiber,
	"식이섬유(g)":          colFiber,
	"총식이섬유(g)":         colFiber,
}

func squashHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(NormalizeKey(h)), ""))
}

// LoadOptions configures LoadTable.
type LoadOptions struct {
	// Encoding is the CSV charset, e.g. "euc-kr". Empty means UTF-8.
	Encoding string
	// Sheet selects an XLSX sheet by name; the first sheet by default.
	Sheet string
	// Sources resolves http(s) and ftp URLs.
	Sources fetcher.Sources
}

// LoadTable reads a CSV or XLSX nutrient table from a local path or an
// http(s):// or ftp:// URL. The format is chosen by file extension.
func LoadTable(ctx context.Context, source string, opts LoadOptions) (*Table, error) {
	var rows [][]string
	var err error

	switch sourceExt(source) {
	case ".xlsx":
		rows, err = loadXLSX(ctx, source, opts)
	case ".csv", ".txt", "":
		rows, err = loadCSV(ctx, source, opts)
	default:
		return nil, eris.Errorf("nutrient: unsupported table format %q", source)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "nutrient: load %s", source)
	}

	t, err := FromRows(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "nutrient: load %s", source)
	}
	zap.L().Info("nutrient table loaded", zap.String("source", source), zap.Int("foods", t.Len()))
	return t, nil
}

func sourceExt(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

func loadCSV(ctx context.Context, source string, opts LoadOptions) ([][]string, error) {
	rc, err := fetcher.Open(ctx, source, opts.Sources)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	r, err := fetcher.DecodeReader(rc, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})
}

func loadXLSX(ctx context.Context, source string, opts LoadOptions) ([][]string, error) {
	data, err := fetcher.ReadAll(ctx, source, opts.Sources)
	if err != nil {
		return nil, err
	}
	return fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{SheetName: opts.Sheet})
}

// FromRows builds a table from a header row followed by data rows. Blank
// or unparseable numeric cells count as 0 and the first row for a
// repeated name wins.
func FromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoNameColumn
	}

	idx := map[column]int{}
	for i, h := range rows[0] {
		c, ok := headerAliases[squashHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[c]; !seen {
			idx[c] = i
		}
	}
	nameIdx, ok := idx[colName]
	if !ok {
		return nil, eris.Wrapf(ErrNoNameColumn, "header %v", rows[0])
	}

	t := NewTable()
	dupes := 0
	for _, row := range rows[1:] {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		p := model.NutrientProfile{
			ProteinG: numeric(row, idx, colProtein),
			FatG:     numeric(row, idx, colFat),
			CarbsG:   numeric(row, idx, colCarbs),
			FiberG:   numeric(row, idx, colFiber),
		}
		if !t.Add(name, p) {
			dupes++
		}
	}
	if dupes > 0 {
		zap.L().Debug("nutrient table duplicates ignored", zap.Int("rows", dupes))
	}
	return t, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func numeric(row []string, idx map[column]int, c column) float64 {
	i, ok := idx[c]
	if !ok {
		return 0
	}
	s := strings.ReplaceAll(cell(row, i), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
