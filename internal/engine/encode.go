package engine

import "github.com/Skufu/symptomrx/internal/vocab"

// FeatureVector is a binary indicator over the symptom vocabulary: element i
// is 1 iff the symptom at vocabulary index i was reported.
type FeatureVector []uint8

// Ones returns the indices set to 1, ascending.
func (v FeatureVector) Ones() []int {
	var out []int
	for i, bit := range v {
		if bit == 1 {
			out = append(out, i)
		}
	}
	return out
}

// Float32s converts the vector to the float layout most model runtimes expect.
func (v FeatureVector) Float32s() []float32 {
	out := make([]float32, len(v))
	for i, bit := range v {
		out[i] = float32(bit)
	}
	return out
}

// Encode turns a set of symptom names into a feature vector over v. Order and
// duplicates in symptoms do not affect the result. A single unknown name
// rejects the whole request.
func Encode(v *vocab.Vocabulary, symptoms []string) (FeatureVector, error) {
	vec := make(FeatureVector, v.Size())
	for _, name := range symptoms {
		idx, ok := v.Index(name)
		if !ok {
			return nil, &UnknownSymptomError{Symptom: name}
		}
		vec[idx] = 1
	}
	return vec, nil
}
