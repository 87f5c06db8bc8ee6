// Package refdata materializes the disease reference tables from CSV files,
// SQLite or PostgreSQL. Source quirks (differing key column names, BOMs,
// pandas index columns, list literals) are normalized here so the engine
// only ever sees clean rows.
package refdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Skufu/symptomrx/internal/engine"
)

// File names used by LoadCSVDir.
const (
	DescriptionFile = "description.csv"
	PrecautionsFile = "precautions_df.csv"
	MedicationsFile = "medications.csv"
	DietsFile       = "diets.csv"
	WorkoutFile     = "workout_df.csv"
)

// Loader materializes the reference tables from one backing store.
type Loader interface {
	Load(ctx context.Context) (*engine.Tables, error)
}

// CSVDir is a Loader over a directory of CSV files.
type CSVDir string

// Load implements Loader.
func (d CSVDir) Load(context.Context) (*engine.Tables, error) {
	return LoadCSVDir(string(d))
}

// LoadCSVDir reads the five reference tables from dir.
func LoadCSVDir(dir string) (*engine.Tables, error) {
	t := &engine.Tables{}

	desc, err := readTable(filepath.Join(dir, DescriptionFile), "disease", "description")
	if err != nil {
		return nil, err
	}
	for _, r := range desc {
		t.Descriptions = append(t.Descriptions, engine.DescriptionRow{Disease: r[0], Description: r[1]})
	}

	pre, err := readTable(filepath.Join(dir, PrecautionsFile), "disease", "precaution_1", "precaution_2", "precaution_3", "precaution_4")
	if err != nil {
		return nil, err
	}
	for _, r := range pre {
		row := engine.PrecautionRow{Disease: r[0]}
		copy(row.Precautions[:], r[1:])
		t.Precautions = append(t.Precautions, row)
	}

	meds, err := readTable(filepath.Join(dir, MedicationsFile), "disease", "medication")
	if err != nil {
		return nil, err
	}
	for i, r := range meds {
		list, err := requiredList(r[1])
		if err != nil {
			return nil, fmt.Errorf("%s data row %d (%q): %w", MedicationsFile, i+1, r[0], err)
		}
		t.Medications = append(t.Medications, engine.MedicationRow{Disease: r[0], Medication: list})
	}

	diets, err := readTable(filepath.Join(dir, DietsFile), "disease", "diet")
	if err != nil {
		return nil, err
	}
	for i, r := range diets {
		list, err := requiredList(r[1])
		if err != nil {
			return nil, fmt.Errorf("%s data row %d (%q): %w", DietsFile, i+1, r[0], err)
		}
		t.Diets = append(t.Diets, engine.DietRow{Disease: r[0], Diet: list})
	}

	// workout_df.csv keys on a lowercase "disease" column; header matching is
	// case-insensitive so it lands in the same Disease field as the rest.
	workouts, err := readTable(filepath.Join(dir, WorkoutFile), "disease", "workout")
	if err != nil {
		return nil, err
	}
	for _, r := range workouts {
		t.Workouts = append(t.Workouts, engine.WorkoutRow{Disease: r[0], Workout: r[1]})
	}

	return t, nil
}

// readTable returns, for each data row, the cells of the requested columns in
// the requested order. Columns are located by header name, ignoring case;
// unnamed or extra columns are skipped.
func readTable(path string, columns ...string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	rows, err := parseTable(f, columns...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func parseTable(r io.Reader, columns ...string) ([][]string, error) {
	// BOMOverride drops a leading BOM before parsing and decodes BOM-marked
	// UTF-16 input.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	for i, cell := range header {
		header[i] = cleanHeader(cell)
	}
	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = findColumn(header, col)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found in header %q", col, header)
		}
	}

	var out [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]string, len(columns))
		for i, c := range idx {
			if c < len(record) {
				row[i] = record[c]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func cleanHeader(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(norm.NFKC.String(v))
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// ErrEmptyList reports a medication or diet cell with no items, such as "[]"
// or a blank value.
var ErrEmptyList = errors.New("empty list")

// requiredList unwraps v and rejects it when nothing is left to split.
func requiredList(v string) (string, error) {
	list := UnwrapList(v)
	if strings.TrimSpace(list) == "" {
		return "", ErrEmptyList
	}
	return list, nil
}

// UnwrapList turns a serialized list literal such as "['a', 'b']" into the
// plain comma list "a, b". Any other value is returned unchanged.
func UnwrapList(v string) string {
	trimmed := strings.TrimSpace(v)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return v
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return ""
	}
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
			p = p[1 : len(p)-1]
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}
