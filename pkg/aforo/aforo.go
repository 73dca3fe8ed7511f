// Package aforo validates traffic-count spreadsheets and derives the
// arrival and service rates used by the queue calculation.
package aforo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
	"github.com/tanpawarit/laia-quote-agent/pkg/textnorm"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultMuH is the service rate assumed until the survey says otherwise.
	DefaultMuH = 600

	headerScanRows  = 10
	minHeaderLabels = 3

	msgOK          = "Archivo validado y datos extraídos correctamente."
	msgNotFound    = "El archivo no se encuentra en la ruta especificada."
	msgEmpty       = "El archivo Excel está vacío o no se pudo leer."
	msgNoHeader    = "No se pudo detectar la fila de encabezados en el archivo."
	msgMissingCols = "Validación fallida. Faltan las siguientes columnas obligatorias: "
	msgTechnical   = "Ocurrió un error técnico al procesar el archivo."
)

// Column is a required aforo column.
type Column string

const (
	ColPeriodo    Column = "PERIODO"
	ColAutos      Column = "AUTOS"
	ColBuses      Column = "BUSES"
	ColCamiones   Column = "CAMIONES"
	ColMotos      Column = "MOTOS"
	ColBicicletas Column = "BICICLETAS"
)

// columnKeywords is ordered; a header matches the first column whose keyword
// it contains.
var columnKeywords = []struct {
	col      Column
	keywords []string
}{
	{ColPeriodo, []string{"periodo", "hora", "franja"}},
	{ColAutos, []string{"auto", "carro", "vehiculo"}},
	{ColBuses, []string{"bus", "omnibus", "buseta"}},
	{ColCamiones, []string{"camion", "camioneta"}},
	{ColMotos, []string{"moto", "motocicleta"}},
	{ColBicicletas, []string{"bici", "bicicleta", "ciclista"}},
}

// motorized columns feed lambda_h; bicycles are validated but not counted.
var motorized = []Column{ColAutos, ColBuses, ColCamiones, ColMotos}

// Extractor reads the first sheet of an xlsx workbook.
type Extractor struct{}

var _ contractx.AforoExtractor = Extractor{}

// Extract never returns an error for bad input; the outcome is reported in
// the extraction with a user-facing Spanish message.
func (Extractor) Extract(ctx context.Context, path string) (contractx.AforoExtraction, error) {
	if err := ctx.Err(); err != nil {
		return contractx.AforoExtraction{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return fail(msgNotFound), nil
	}

	rows, err := readFirstSheet(path)
	if err != nil {
		log.Error().
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Msg("aforo workbook could not be read")
		return fail(msgTechnical), nil
	}
	if len(rows) == 0 {
		return fail(msgEmpty), nil
	}

	headerIdx, ok := detectHeaderRow(rows)
	if !ok {
		return fail(msgNoHeader), nil
	}
	cols, missing := mapColumns(rows[headerIdx])
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = string(c)
		}
		return fail(msgMissingCols + strings.Join(names, ", ") + "."), nil
	}

	data := &contractx.AforoData{
		LambdaH: sumMotorized(rows[headerIdx+1:], cols),
		MuH:     DefaultMuH,
	}
	log.Info().
		Float64("lambda_h", data.LambdaH).
		Float64("mu_h", data.MuH).
		Msg("aforo data extracted")

	return contractx.AforoExtraction{Success: true, Data: data, Message: msgOK}, nil
}

func fail(msg string) contractx.AforoExtraction {
	return contractx.AforoExtraction{Success: false, Message: msg}
}

func readFirstSheet(path string) (rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// detectHeaderRow returns the first of the leading rows with at least three
// non-numeric labels.
func detectHeaderRow(rows [][]string) (int, bool) {
	limit := min(headerScanRows, len(rows))
	for i := 0; i < limit; i++ {
		labels := 0
		for _, cell := range rows[i] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				continue
			}
			labels++
		}
		if labels >= minHeaderLabels {
			return i, true
		}
	}
	return 0, false
}

func mapColumns(header []string) (map[Column]int, []Column) {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = textnorm.Key(h)
	}

	cols := make(map[Column]int, len(columnKeywords))
	var missing []Column
	for _, ck := range columnKeywords {
		idx := findColumn(keys, ck.keywords)
		if idx < 0 {
			missing = append(missing, ck.col)
			continue
		}
		cols[ck.col] = idx
	}
	return cols, missing
}

func findColumn(keys []string, keywords []string) int {
	for i, key := range keys {
		if key == "" {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(key, textnorm.Key(kw)) {
				return i
			}
		}
	}
	return -1
}

// sumMotorized adds the whole-number part of every motorized cell. Blank or
// non-numeric cells count as zero.
func sumMotorized(rows [][]string, cols map[Column]int) float64 {
	var total float64
	for _, row := range rows {
		for _, c := range motorized {
			idx := cols[c]
			if idx >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			total += math.Trunc(v)
		}
	}
	return total
}
