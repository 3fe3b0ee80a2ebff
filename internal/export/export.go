// Package export writes final-size distributions and ensemble trajectories as
// CSV or XLSX tables.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reedfrost/domain/epidemic"

	"github.com/xuri/excelize/v2"
)

// Table is a named grid of pre-formatted cells. In XLSX output each table is a sheet.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Format selects the file type written by Write
type Format string

const maxExactInteger = 1 << 53

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath infers the format from a file extension, defaulting to XLSX
func FormatFromPath(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return FormatCSV
	}
	return FormatXLSX
}

// ParseFormat accepts "csv" or "xlsx" in any case; empty infers from path
func ParseFormat(name, path string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return FormatFromPath(path), nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// DistributionTable lists every final-size outcome in order of total infected
func DistributionTable(dist epidemic.Distribution) Table {
	t := Table{
		Name:    "distribution",
		Headers: []string{"s_inf", "final_size", "total_infected", "probability"},
		Rows:    make([][]string, 0, len(dist.Outcomes)),
	}
	for _, o := range dist.Outcomes {
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(o.SInf), 10),
			strconv.FormatUint(uint64(o.FinalSize), 10),
			strconv.FormatUint(uint64(o.TotalInfected), 10),
			fToStr(o.Probability, 12),
		})
	}
	return t
}

// TrajectoryTable has one row per run: its seed, final size and the new
// infections of every generation.
func TrajectoryTable(run *epidemic.EnsembleRun) Table {
	generations := int(run.Params.S0) + 1
	headers := make([]string, 0, generations+2)
	headers = append(headers, "seed", "final_size")
	for g := 0; g < generations; g++ {
		headers = append(headers, "gen_"+strconv.Itoa(g))
	}

	t := Table{Name: "trajectories", Headers: headers, Rows: make([][]string, 0, len(run.Trajectories))}
	for k, traj := range run.Trajectories {
		row := make([]string, 0, len(headers))
		row = append(row,
			strconv.FormatUint(epidemic.SeedFor(run.BaseSeed, k), 10),
			strconv.FormatUint(uint64(traj.NewInfections()), 10),
		)
		for _, c := range traj {
			row = append(row, strconv.FormatUint(uint64(c), 10))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SummaryTable holds the ensemble's descriptive statistics as name/value pairs
func SummaryTable(run *epidemic.EnsembleRun) Table {
	s := run.Summary
	return Table{
		Name:    "summary",
		Headers: []string{"statistic", "value"},
		Rows: [][]string{
			{"runs", strconv.Itoa(run.Runs)},
			{"base_seed", strconv.FormatUint(run.BaseSeed, 10)},
			{"algorithm", run.Algorithm},
			{"mean", fToStr(s.Mean, 6)},
			{"median", fToStr(s.Median, 6)},
			{"std_dev", fToStr(s.StdDev, 6)},
			{"p05", fToStr(s.Percentile5, 6)},
			{"p95", fToStr(s.Percentile95, 6)},
			{"min", fToStr(s.Min, 6)},
			{"max", fToStr(s.Max, 6)},
		},
	}
}

// Write stores tables in the given format. CSV holds a single table, so
// additional tables go to sibling files named <base>_<table>.csv.
func Write(path string, format Format, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("nothing to export")
	}
	switch format {
	case FormatCSV:
		if err := WriteCSV(path, tables[0]); err != nil {
			return err
		}
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for _, t := range tables[1:] {
			if err := WriteCSV(base+"_"+t.Name+".csv", t); err != nil {
				return err
			}
		}
		return nil
	case FormatXLSX:
		return WriteXLSX(path, tables...)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteCSV writes one table with a header row
func WriteCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes each table to its own sheet. Numeric cells that a float64
// holds exactly are stored as numbers.
func WriteXLSX(path string, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for k, t := range tables {
		sheet := t.Name
		if k == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		// Header row
		for i, h := range t.Headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}

		// Data rows
		for r := 0; r < len(t.Rows); r++ {
			rowIdx := r + 2
			for c, v := range t.Rows[r] {
				cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
				if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
					return err
				}
			}
		}
	}

	return f.SaveAs(path)
}

func cellValue(v string) interface{} {
	n, err := strconv.ParseFloat(v, 64)
	if err == nil && math.Abs(n) <= maxExactInteger {
		return n
	}
	return v
}

func fToStr(x float64, decimals int) string {
	p := math.Pow10(decimals)
	x = math.Round(x*p) / p
	return strconv.FormatFloat(x, 'f', decimals, 64)
}
