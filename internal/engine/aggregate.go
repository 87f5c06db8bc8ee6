package engine

import (
	"errors"
	"strings"
)

// Field names used in MissingReferenceRowError.
const (
	FieldDescription = "description"
	FieldPrecautions = "precautions"
	FieldMedications = "medications"
	FieldDiets       = "diets"
	FieldWorkout     = "workout"
)

// PrecautionSlots is the fixed number of precaution columns per row.
const PrecautionSlots = 4

type DescriptionRow struct {
	Disease     string `json:"disease"`
	Description string `json:"description"`
}

// PrecautionRow holds up to four ordered precautions; empty slots mean absent.
type PrecautionRow struct {
	Disease     string                  `json:"disease"`
	Precautions [PrecautionSlots]string `json:"precautions"`
}

// MedicationRow keeps the medication list as a single comma separated field.
type MedicationRow struct {
	Disease    string `json:"disease"`
	Medication string `json:"medication"`
}

// DietRow keeps the diet list as a single comma separated field.
type DietRow struct {
	Disease string `json:"disease"`
	Diet    string `json:"diet"`
}

type WorkoutRow struct {
	Disease string `json:"disease"`
	Workout string `json:"workout"`
}

// Tables is the set of disease-keyed reference tables. Row order is
// significant. Tables are read-only once handed to the engine.
type Tables struct {
	Descriptions []DescriptionRow
	Precautions  []PrecautionRow
	Medications  []MedicationRow
	Diets        []DietRow
	Workouts     []WorkoutRow
}

// Bundle is the recommendation set for one disease. Each call to Aggregate
// returns a fresh Bundle owned by the caller.
type Bundle struct {
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
	Medications []string `json:"medications"`
	Diets       []string `json:"diets"`
	Workouts    []string `json:"workouts"`
}

// Aggregate joins the reference tables on disease. Description and workouts
// are optional and degrade to empty values. Precautions, medications and
// diets are mandatory: each miss is reported as a MissingReferenceRowError
// and any miss fails the whole call.
func Aggregate(disease string, tables *Tables) (Bundle, error) {
	if tables == nil {
		tables = &Tables{}
	}

	meds, medErr := splitField(FieldMedications, disease, medicationFields(tables.Medications, disease))
	diets, dietErr := splitField(FieldDiets, disease, dietFields(tables.Diets, disease))
	precautions, preErr := lookupPrecautions(tables.Precautions, disease)
	if err := errors.Join(medErr, dietErr, preErr); err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Description: lookupDescription(tables.Descriptions, disease),
		Precautions: precautions,
		Medications: meds,
		Diets:       diets,
		Workouts:    lookupWorkouts(tables.Workouts, disease),
	}, nil
}

func lookupDescription(rows []DescriptionRow, disease string) string {
	var parts []string
	for _, r := range rows {
		if r.Disease == disease {
			parts = append(parts, r.Description)
		}
	}
	return strings.Join(parts, " ")
}

func lookupPrecautions(rows []PrecautionRow, disease string) ([]string, error) {
	for _, r := range rows {
		if r.Disease != disease {
			continue
		}
		out := make([]string, 0, PrecautionSlots)
		for _, slot := range r.Precautions {
			if slot = strings.TrimSpace(slot); slot != "" {
				out = append(out, slot)
			}
		}
		return out, nil
	}
	return nil, &MissingReferenceRowError{Field: FieldPrecautions, Disease: disease}
}

func lookupWorkouts(rows []WorkoutRow, disease string) []string {
	out := []string{}
	for _, r := range rows {
		if r.Disease == disease {
			out = append(out, r.Workout)
		}
	}
	return out
}

func medicationFields(rows []MedicationRow, disease string) []string {
	var out []string
	for _, r := range rows {
		if r.Disease == disease {
			out = append(out, r.Medication)
		}
	}
	return out
}

func dietFields(rows []DietRow, disease string) []string {
	var out []string
	for _, r := range rows {
		if r.Disease == disease {
			out = append(out, r.Diet)
		}
	}
	return out
}

// splitField takes the first matching field and splits it on commas,
// trimming each element. Duplicates are kept.
func splitField(field, disease string, matches []string) ([]string, error) {
	if len(matches) == 0 {
		return nil, &MissingReferenceRowError{Field: field, Disease: disease}
	}
	parts := strings.Split(matches[0], ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts, nil
}
