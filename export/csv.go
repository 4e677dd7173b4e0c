// Package export renders prediction history for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"pricecast/db"
	"pricecast/ml"
)

// FileName is the suggested download name.
const FileName = "tesla_predictions.csv"

// WriteCSV writes history with a header equal to db.Columns(). Floats use the
// shortest representation that parses back to the same value.
func WriteCSV(w io.Writer, history []db.PredictionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(db.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range history {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(r db.PredictionRecord) []string {
	out := make([]string, 0, len(db.Columns()))
	out = append(out, strconv.FormatInt(r.ID, 10))
	vec := r.Features.Vector()
	for i, f := range ml.StockSchema.Features() {
		v := vec[i]
		if f.Kind == ml.KindInt {
			out = append(out, strconv.FormatInt(int64(v), 10))
		} else {
			out = append(out, formatFloat(v))
		}
	}
	out = append(out, formatFloat(r.PredictedPrice), r.PredictionDate.UTC().Format(time.RFC3339Nano))
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses output of WriteCSV. The header must match db.Columns().
func ReadCSV(r io.Reader) ([]db.PredictionRecord, error) {
	cr := csv.NewReader(r)
	cols := db.Columns()
	cr.FieldsPerRecord = len(cols)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range cols {
		if header[i] != name {
			return nil, fmt.Errorf("csv column %d is %q, want %q", i, header[i], name)
		}
	}

	history := make([]db.PredictionRecord, 0)
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		history = append(history, rec)
	}
	return history, nil
}

func parseRow(fields []string) (db.PredictionRecord, error) {
	var out db.PredictionRecord
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return out, fmt.Errorf("id: %w", err)
	}
	out.ID = id

	n := ml.StockSchema.Len()
	vec := make([]float64, n)
	for i, name := range ml.StockSchema.Columns() {
		v, err := strconv.ParseFloat(fields[1+i], 64)
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		vec[i] = v
	}
	features, err := ml.RecordFromVector(vec)
	if err != nil {
		return out, err
	}
	out.Features = features

	if out.PredictedPrice, err = strconv.ParseFloat(fields[1+n], 64); err != nil {
		return out, fmt.Errorf("%s: %w", db.ColumnPredictedPrice, err)
	}
	if out.PredictionDate, err = time.Parse(time.RFC3339Nano, fields[2+n]); err != nil {
		return out, fmt.Errorf("%s: %w", db.ColumnPredictionDate, err)
	}
	return out, nil
}
