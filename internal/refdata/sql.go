package refdata

import (
	"context"
	"fmt"

	"github.com/Skufu/symptomrx/internal/engine"
)

// Queries shared by the SQLite and PostgreSQL stores. Every table has an id
// column whose order is the row order the engine sees.
const (
	selectDescriptions = `SELECT disease, description FROM descriptions ORDER BY id`
	selectPrecautions  = `SELECT disease, COALESCE(precaution_1, ''), COALESCE(precaution_2, ''),
		COALESCE(precaution_3, ''), COALESCE(precaution_4, '') FROM precautions ORDER BY id`
	selectMedications = `SELECT disease, medication FROM medications ORDER BY id`
	selectDiets       = `SELECT disease, diet FROM diets ORDER BY id`
	selectWorkouts    = `SELECT disease, workout FROM workouts ORDER BY id`
)

var tableNames = []string{"descriptions", "precautions", "medications", "diets", "workouts"}

// rows is the subset of *sql.Rows and pgx.Rows the loader needs.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// queryFunc runs a query and returns its rows plus a close function.
type queryFunc func(ctx context.Context, query string) (rows, func(), error)

// execFunc runs a statement with positional arguments.
type execFunc func(ctx context.Context, query string, args ...any) error

func loadTables(ctx context.Context, query queryFunc) (*engine.Tables, error) {
	t := &engine.Tables{}

	err := scanAll(ctx, query, selectDescriptions, func(r rows) error {
		var row engine.DescriptionRow
		if err := r.Scan(&row.Disease, &row.Description); err != nil {
			return err
		}
		t.Descriptions = append(t.Descriptions, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load descriptions: %w", err)
	}

	err = scanAll(ctx, query, selectPrecautions, func(r rows) error {
		var row engine.PrecautionRow
		p := &row.Precautions
		if err := r.Scan(&row.Disease, &p[0], &p[1], &p[2], &p[3]); err != nil {
			return err
		}
		t.Precautions = append(t.Precautions, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load precautions: %w", err)
	}

	err = scanAll(ctx, query, selectMedications, func(r rows) error {
		var row engine.MedicationRow
		if err := r.Scan(&row.Disease, &row.Medication); err != nil {
			return err
		}
		list, err := requiredList(row.Medication)
		if err != nil {
			return fmt.Errorf("%q: %w", row.Disease, err)
		}
		row.Medication = list
		t.Medications = append(t.Medications, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load medications: %w", err)
	}

	err = scanAll(ctx, query, selectDiets, func(r rows) error {
		var row engine.DietRow
		if err := r.Scan(&row.Disease, &row.Diet); err != nil {
			return err
		}
		list, err := requiredList(row.Diet)
		if err != nil {
			return fmt.Errorf("%q: %w", row.Disease, err)
		}
		row.Diet = list
		t.Diets = append(t.Diets, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load diets: %w", err)
	}

	err = scanAll(ctx, query, selectWorkouts, func(r rows) error {
		var row engine.WorkoutRow
		if err := r.Scan(&row.Disease, &row.Workout); err != nil {
			return err
		}
		t.Workouts = append(t.Workouts, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load workouts: %w", err)
	}

	return t, nil
}

func scanAll(ctx context.Context, query queryFunc, q string, each func(rows) error) error {
	r, closeRows, err := query(ctx, q)
	if err != nil {
		return err
	}
	defer closeRows()
	for r.Next() {
		if err := each(r); err != nil {
			return err
		}
	}
	return r.Err()
}

// writeTables deletes every reference row and inserts t in order. ph renders
// the n-th (1-based) placeholder for the dialect. Callers run it inside a
// transaction.
func writeTables(ctx context.Context, exec execFunc, ph func(n int) string, t *engine.Tables) error {
	for _, name := range tableNames {
		if err := exec(ctx, "DELETE FROM "+name); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}

	insert := func(table string, cols ...string) string {
		q := "INSERT INTO " + table + " ("
		vals := ""
		for i, c := range cols {
			if i > 0 {
				q += ", "
				vals += ", "
			}
			q += c
			vals += ph(i + 1)
		}
		return q + ") VALUES (" + vals + ")"
	}

	q := insert("descriptions", "disease", "description")
	for _, r := range t.Descriptions {
		if err := exec(ctx, q, r.Disease, r.Description); err != nil {
			return fmt.Errorf("insert description: %w", err)
		}
	}
	q = insert("precautions", "disease", "precaution_1", "precaution_2", "precaution_3", "precaution_4")
	for _, r := range t.Precautions {
		p := r.Precautions
		if err := exec(ctx, q, r.Disease, p[0], p[1], p[2], p[3]); err != nil {
			return fmt.Errorf("insert precaution: %w", err)
		}
	}
	q = insert("medications", "disease", "medication")
	for _, r := range t.Medications {
		if err := exec(ctx, q, r.Disease, r.Medication); err != nil {
			return fmt.Errorf("insert medication: %w", err)
		}
	}
	q = insert("diets", "disease", "diet")
	for _, r := range t.Diets {
		if err := exec(ctx, q, r.Disease, r.Diet); err != nil {
			return fmt.Errorf("insert diet: %w", err)
		}
	}
	q = insert("workouts", "disease", "workout")
	for _, r := range t.Workouts {
		if err := exec(ctx, q, r.Disease, r.Workout); err != nil {
			return fmt.Errorf("insert workout: %w", err)
		}
	}
	return nil
}
