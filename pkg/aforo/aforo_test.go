package aforo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	path := filepath.Join(t.TempDir(), "aforo.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExtractSumsMotorizedColumns(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Aforo vehicular Av. Boyacá"},
		{},
		{"Periodo", "Autos", "Buses", "Camiones", "Motos", "Bicicletas"},
		{"07:00-07:15", 120, 15, 8, 40, 12},
		{"07:15-07:30", 130, 12, 10, 35, 9},
		{"07:30-07:45", "", 3, "n/d", 5, 100},
	})

	res, err := Extractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Data)

	assert.Equal(t, float64(120+15+8+40+130+12+10+35+3+5), res.Data.LambdaH)
	assert.Equal(t, float64(DefaultMuH), res.Data.MuH)
	assert.Equal(t, msgOK, res.Message)
}

func TestExtractMatchesHeaderSynonyms(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Franja horaria", "Vehículos livianos", "Busetas", "Camionetas", "Motocicletas", "Ciclistas"},
		{"08:00", 10, 2, 1, 3, 4},
	})

	res, err := Extractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 16.0, res.Data.LambdaH)
}

func TestExtractReportsMissingColumns(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]any{
		{"Hora", "Autos", "Motos"},
		{"08:00", 10, 3},
	})

	res, err := Extractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, msgMissingCols+"BUSES, CAMIONES, BICICLETAS.", res.Message)
}

func TestExtractWithoutHeaderRow(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, []any{i, i * 2, fmt.Sprintf("%d", i*3)})
	}
	path := writeWorkbook(t, rows)

	res, err := Extractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, msgNoHeader, res.Message)
}

func TestExtractFileProblems(t *testing.T) {
	t.Parallel()

	res, err := Extractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, msgNotFound, res.Message)

	bogus := filepath.Join(t.TempDir(), "bogus.xlsx")
	require.NoError(t, os.WriteFile(bogus, []byte("not a workbook"), 0o600))
	res, err = Extractor{}.Extract(context.Background(), bogus)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, msgTechnical, res.Message)
}

func TestDetectHeaderRowIgnoresNumbers(t *testing.T) {
	t.Parallel()

	idx, ok := detectHeaderRow([][]string{
		{"1", "2", "3", "4"},
		{"Total", "", "5"},
		{"Hora", "Autos", "Buses"},
	})
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}
