package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"reedfrost/domain/epidemic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRun() *epidemic.EnsembleRun {
	run := &epidemic.EnsembleRun{
		Params:       epidemic.Params{S0: 3, I0: 1, P: 0.2},
		BaseSeed:     44,
		Algorithm:    "pcg",
		Trajectories: []epidemic.Trajectory{{1, 0, 0, 0}, {1, 2, 1, 0}},
		Summary:      epidemic.Summary{Mean: 1.5, Max: 3},
	}
	run.Recount()
	return run
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("", "out.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("", "out.bin")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" XLSX ", "out.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("json", "out.csv")
	assert.Error(t, err)
}

func TestDistributionTable(t *testing.T) {
	dist := epidemic.NewDistribution(epidemic.Params{S0: 2, I0: 1, P: 0.5}, []float64{0.5, 0.25, 0.25})
	table := DistributionTable(dist)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"2", "0", "1", "0.250000000000"}, table.Rows[0])
	assert.Equal(t, []string{"0", "2", "3", "0.500000000000"}, table.Rows[2])
}

func TestTrajectoryTable(t *testing.T) {
	table := TrajectoryTable(sampleRun())

	assert.Equal(t, []string{"seed", "final_size", "gen_0", "gen_1", "gen_2", "gen_3"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"45", "0", "1", "0", "0", "0"}, table.Rows[0])
	assert.Equal(t, []string{"46", "3", "1", "2", "1", "0"}, table.Rows[1])
}

func TestWrite_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ensemble.csv")
	run := sampleRun()

	require.NoError(t, Write(path, FormatCSV, TrajectoryTable(run), SummaryTable(run)))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "seed", records[0][0])
	assert.Equal(t, "46", records[2][0])

	summary := readCSV(t, filepath.Join(dir, "ensemble_summary.csv"))
	assert.Equal(t, []string{"runs", "2"}, summary[1])
	assert.Equal(t, []string{"algorithm", "pcg"}, summary[3])
}

func TestWrite_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ensemble.xlsx")
	run := sampleRun()

	require.NoError(t, Write(path, FormatXLSX, TrajectoryTable(run), SummaryTable(run)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"trajectories", "summary"}, f.GetSheetList())

	rows, err := f.GetRows("trajectories")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "gen_3", rows[0][5])
	assert.Equal(t, "46", rows[2][0])

	algorithm, err := f.GetCellValue("summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "pcg", algorithm)
}

func TestWrite_NothingToExport(t *testing.T) {
	assert.Error(t, Write(filepath.Join(t.TempDir(), "x.csv"), FormatCSV))
}
