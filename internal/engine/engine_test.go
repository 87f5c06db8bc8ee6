package engine

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Skufu/symptomrx/internal/vocab"
)

const fungal = "Fungal infection"

func fixtureTables() *Tables {
	return &Tables{
		Descriptions: []DescriptionRow{
			{Disease: fungal, Description: "Fungal infection is a common skin condition caused by fungi."},
			{Disease: "Allergy", Description: "Allergy is an immune system reaction to a substance in the environment."},
		},
		Precautions: []PrecautionRow{
			{Disease: fungal, Precautions: [4]string{"bath twice", "use detol or neem in bathing water", "keep infected area dry", "use clean cloths"}},
			{Disease: "Allergy", Precautions: [4]string{"apply calamine", "", "cover area with bandage", ""}},
		},
		Medications: []MedicationRow{
			{Disease: fungal, Medication: "Antifungal Cream, Fluconazole, Terbinafine, Clotrimazole, Ketoconazole"},
			{Disease: "Allergy", Medication: "Antihistamines,Decongestants , Epinephrine"},
		},
		Diets: []DietRow{
			{Disease: fungal, Diet: "Antifungal Diet, Probiotics, Garlic, Coconut oil, Turmeric"},
			{Disease: "Allergy", Diet: "Elimination Diet"},
		},
		Workouts: []WorkoutRow{
			{Disease: fungal, Workout: "Avoid sugary foods"},
			{Disease: "Allergy", Workout: "Avoid allergenic foods"},
			{Disease: fungal, Workout: "Consume probiotics"},
		},
	}
}

type stubClassifier struct {
	class int
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubClassifier) Predict(vec FeatureVector) (int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.class, s.err
}

func TestEncodeScenario(t *testing.T) {
	vec, err := Encode(vocab.Symptoms(), []string{"itching", "skin_rash", "nodal_skin_eruptions"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 132 {
		t.Fatalf("expected length 132, got %d", len(vec))
	}
	if got := vec.Ones(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("expected ones at [0 1 2], got %v", got)
	}
}

func TestEncodeUnknownSymptom(t *testing.T) {
	_, err := Encode(vocab.Symptoms(), []string{"itching", "not_a_real_symptom"})
	if !errors.Is(err, ErrUnknownSymptom) {
		t.Fatalf("expected ErrUnknownSymptom, got %v", err)
	}
	var unknown *UnknownSymptomError
	if !errors.As(err, &unknown) || unknown.Symptom != "not_a_real_symptom" {
		t.Fatalf("expected offending symptom in error, got %v", err)
	}
}

func TestEncodeEmptySet(t *testing.T) {
	vec, err := Encode(vocab.Symptoms(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 132 || len(vec.Ones()) != 0 {
		t.Fatalf("expected all-zero vector of 132, got %d ones over %d", len(vec.Ones()), len(vec))
	}
}

func TestEncodeProperties(t *testing.T) {
	v := vocab.Symptoms()
	names := v.Names()
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		n := rng.Intn(len(names) + 1)
		subset := make([]string, 0, n)
		want := make(map[int]bool)
		for _, i := range rng.Perm(len(names))[:n] {
			subset = append(subset, names[i])
			want[i] = true
		}

		vec, err := Encode(v, subset)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if len(vec) != v.Size() {
			t.Fatalf("round %d: length %d", round, len(vec))
		}
		ones := vec.Ones()
		if len(ones) != len(subset) {
			t.Fatalf("round %d: %d ones for %d symptoms", round, len(ones), len(subset))
		}
		for _, i := range ones {
			if !want[i] {
				t.Fatalf("round %d: unexpected bit %d", round, i)
			}
		}

		shuffled := append([]string(nil), subset...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		shuffled = append(shuffled, subset...)
		again, err := Encode(v, shuffled)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if !reflect.DeepEqual(vec, again) {
			t.Fatalf("round %d: reorder/duplicate changed the vector", round)
		}
	}
}

func TestFloat32s(t *testing.T) {
	got := FeatureVector{0, 1, 0, 1}.Float32s()
	if !reflect.DeepEqual(got, []float32{0, 1, 0, 1}) {
		t.Fatalf("unexpected floats: %v", got)
	}
}

func TestClassifyRejectsWrongShape(t *testing.T) {
	stub := &stubClassifier{class: 15}
	for _, n := range []int{0, 131, 133} {
		_, err := Classify(stub, vocab.Symptoms(), make(FeatureVector, n))
		var shape *InvalidVectorShapeError
		if !errors.As(err, &shape) || shape.Got != n || shape.Want != 132 {
			t.Fatalf("length %d: expected InvalidVectorShapeError, got %v", n, err)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("classifier must not be called on bad shape, called %d times", stub.calls)
	}
}

func TestClassifyWrapsModelError(t *testing.T) {
	boom := errors.New("session closed")
	_, err := Classify(&stubClassifier{err: boom}, vocab.Symptoms(), make(FeatureVector, 132))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	labels := vocab.Diseases()
	for _, d := range labels.Entries() {
		got, err := Decode(labels, d.ClassIndex)
		if err != nil || got != d.Name {
			t.Fatalf("decode(%d) = %q, %v; want %q", d.ClassIndex, got, err, d.Name)
		}
	}
	if got, _ := Decode(labels, 15); got != fungal {
		t.Fatalf("decode(15) = %q", got)
	}
	for _, idx := range []int{-1, 41, 1000} {
		_, err := Decode(labels, idx)
		var unknown *UnknownClassIndexError
		if !errors.As(err, &unknown) || unknown.ClassIndex != idx {
			t.Fatalf("decode(%d): expected UnknownClassIndexError, got %v", idx, err)
		}
	}
}

func TestAggregateFungalInfection(t *testing.T) {
	b, err := Aggregate(fungal, fixtureTables())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Description != "Fungal infection is a common skin condition caused by fungi." {
		t.Fatalf("unexpected description: %q", b.Description)
	}
	if len(b.Precautions) != 4 {
		t.Fatalf("expected 4 precautions, got %v", b.Precautions)
	}
	wantMeds := []string{"Antifungal Cream", "Fluconazole", "Terbinafine", "Clotrimazole", "Ketoconazole"}
	if !reflect.DeepEqual(b.Medications, wantMeds) {
		t.Fatalf("unexpected medications: %q", b.Medications)
	}
	if len(b.Diets) != 5 || b.Diets[0] != "Antifungal Diet" {
		t.Fatalf("unexpected diets: %q", b.Diets)
	}
	if !reflect.DeepEqual(b.Workouts, []string{"Avoid sugary foods", "Consume probiotics"}) {
		t.Fatalf("unexpected workouts: %q", b.Workouts)
	}
}

func TestAggregateDropsEmptyPrecautionSlots(t *testing.T) {
	b, err := Aggregate("Allergy", fixtureTables())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(b.Precautions, []string{"apply calamine", "cover area with bandage"}) {
		t.Fatalf("unexpected precautions: %q", b.Precautions)
	}
	if !reflect.DeepEqual(b.Medications, []string{"Antihistamines", "Decongestants", "Epinephrine"}) {
		t.Fatalf("expected trimmed medications, got %q", b.Medications)
	}
}

func TestAggregateMissingDisease(t *testing.T) {
	_, err := Aggregate("NoSuchDisease", fixtureTables())
	var missing *MissingReferenceRowError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceRowError, got %v", err)
	}
	if missing.Field != FieldMedications || missing.Disease != "NoSuchDisease" {
		t.Fatalf("expected medications miss first, got %+v", missing)
	}
	fields := MissingFields(err)
	if len(fields) != 3 {
		t.Fatalf("expected all three mandatory misses reported, got %v", err)
	}
	for i, want := range []string{FieldMedications, FieldDiets, FieldPrecautions} {
		if fields[i].Field != want {
			t.Fatalf("missing[%d] = %s, want %s", i, fields[i].Field, want)
		}
	}
}

func TestAggregateReportsEachMandatoryFieldIndependently(t *testing.T) {
	tables := fixtureTables()
	tables.Diets = tables.Diets[1:]
	_, err := Aggregate(fungal, tables)
	fields := MissingFields(err)
	if len(fields) != 1 || fields[0].Field != FieldDiets {
		t.Fatalf("expected only diets missing, got %v", err)
	}
	if !errors.Is(err, ErrMissingReferenceRow) {
		t.Fatalf("expected ErrMissingReferenceRow, got %v", err)
	}
}

func TestAggregateOptionalFieldsDegrade(t *testing.T) {
	tables := fixtureTables()
	tables.Descriptions = nil
	tables.Workouts = nil
	b, err := Aggregate(fungal, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Description != "" {
		t.Fatalf("expected empty description, got %q", b.Description)
	}
	if b.Workouts == nil || len(b.Workouts) != 0 {
		t.Fatalf("expected empty non-nil workouts, got %#v", b.Workouts)
	}
}

func TestAggregateMultiRowPolicies(t *testing.T) {
	tables := fixtureTables()
	tables.Descriptions = append(tables.Descriptions, DescriptionRow{Disease: fungal, Description: "It spreads by contact."})
	tables.Medications = append(tables.Medications, MedicationRow{Disease: fungal, Medication: "Ignored"})
	tables.Precautions = append(tables.Precautions, PrecautionRow{Disease: fungal, Precautions: [4]string{"ignored"}})

	b, err := Aggregate(fungal, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(b.Description, "fungi. It spreads by contact.") {
		t.Fatalf("expected descriptions joined with a space, got %q", b.Description)
	}
	if b.Medications[0] != "Antifungal Cream" {
		t.Fatalf("expected first medication row, got %q", b.Medications)
	}
	if b.Precautions[0] != "bath twice" {
		t.Fatalf("expected first precaution row, got %q", b.Precautions)
	}
}

func TestAggregateKeepsDuplicates(t *testing.T) {
	tables := fixtureTables()
	tables.Diets[0].Diet = "Garlic, Garlic"
	b, err := Aggregate(fungal, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(b.Diets, []string{"Garlic", "Garlic"}) {
		t.Fatalf("expected duplicates kept, got %q", b.Diets)
	}
}

func TestAggregateIsPure(t *testing.T) {
	tables := fixtureTables()
	first, err := Aggregate(fungal, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Medications[0] = "mutated"
	second, _ := Aggregate(fungal, tables)
	if second.Medications[0] != "Antifungal Cream" {
		t.Fatalf("bundle shares state across calls: %q", second.Medications)
	}
	third, _ := Aggregate(fungal, tables)
	if !reflect.DeepEqual(second, third) {
		t.Fatalf("identical inputs produced different bundles")
	}
}

func TestEngineRecommend(t *testing.T) {
	e, err := New(&stubClassifier{class: 15}, fixtureTables())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec, err := e.Recommend([]string{"itching", "skin_rash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Disease != fungal || rec.ClassIndex != 15 {
		t.Fatalf("unexpected diagnosis: %+v", rec.Diagnosis)
	}
	if len(rec.Bundle.Medications) == 0 {
		t.Fatalf("expected medications, got %+v", rec.Bundle)
	}
}

func TestEngineRecommendErrors(t *testing.T) {
	t.Run("unknown symptom", func(t *testing.T) {
		stub := &stubClassifier{class: 15}
		e, _ := New(stub, fixtureTables())
		_, err := e.Recommend([]string{"not_a_real_symptom"})
		if !errors.Is(err, ErrUnknownSymptom) {
			t.Fatalf("expected ErrUnknownSymptom, got %v", err)
		}
		if stub.calls != 0 {
			t.Fatal("classifier called for rejected input")
		}
	})

	t.Run("class outside label table", func(t *testing.T) {
		e, _ := New(&stubClassifier{class: 99}, fixtureTables())
		_, err := e.Recommend([]string{"itching"})
		if !errors.Is(err, ErrUnknownClassIndex) {
			t.Fatalf("expected ErrUnknownClassIndex, got %v", err)
		}
	})

	t.Run("disease without reference rows", func(t *testing.T) {
		e, _ := New(&stubClassifier{class: 1}, fixtureTables())
		_, err := e.Recommend([]string{"itching"})
		if !errors.Is(err, ErrMissingReferenceRow) {
			t.Fatalf("expected ErrMissingReferenceRow, got %v", err)
		}
	})
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(nil, fixtureTables()); err == nil {
		t.Fatal("expected error without classifier")
	}
	if _, err := New(&stubClassifier{}, nil); err == nil {
		t.Fatal("expected error without tables")
	}
}

func TestEngineConcurrentUse(t *testing.T) {
	e, _ := New(ClassifierFunc(func(vec FeatureVector) (int, error) {
		if vec[0] == 1 {
			return 15, nil
		}
		return 4, nil
	}), fixtureTables())

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			symptom, want := "itching", fungal
			if i%2 == 1 {
				symptom, want = "continuous_sneezing", "Allergy"
			}
			rec, err := e.Recommend([]string{symptom})
			if err != nil {
				errs <- err
				return
			}
			if rec.Disease != want {
				errs <- errors.New("got " + rec.Disease + ", want " + want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
