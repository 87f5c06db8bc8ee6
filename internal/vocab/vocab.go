// Package vocab holds the two fixed bijections the classifier was trained
// against: symptom name <-> feature index, and class index <-> disease name.
// Both are built once at package init and are read-only afterwards, so they
// are safe for concurrent use without locking.
package vocab

import "sort"

// Symptom is one entry of the symptom vocabulary.
type Symptom struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Disease is one entry of the disease label table.
type Disease struct {
	ClassIndex int    `json:"classIndex"`
	Name       string `json:"name"`
}

// Vocabulary is a closed, immutable mapping between symptom names and their
// positions in a feature vector.
type Vocabulary struct {
	names []string
	index map[string]int
}

// NewVocabulary builds a vocabulary where names[i] is feature i. It panics on
// duplicate names since the mapping would no longer be a bijection.
func NewVocabulary(names []string) *Vocabulary {
	v := &Vocabulary{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	copy(v.names, names)
	for i, name := range v.names {
		if _, dup := v.index[name]; dup {
			panic("vocab: duplicate symptom " + name)
		}
		v.index[name] = i
	}
	return v
}

// Size returns the number of symptoms, which is also the feature vector length.
func (v *Vocabulary) Size() int { return len(v.names) }

// Index returns the feature index of a symptom name.
func (v *Vocabulary) Index(name string) (int, bool) {
	i, ok := v.index[name]
	return i, ok
}

// Name returns the symptom name at a feature index.
func (v *Vocabulary) Name(i int) (string, bool) {
	if i < 0 || i >= len(v.names) {
		return "", false
	}
	return v.names[i], true
}

// Names returns a copy of all symptom names in index order.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Entries returns every symptom with its index, in index order.
func (v *Vocabulary) Entries() []Symptom {
	out := make([]Symptom, len(v.names))
	for i, name := range v.names {
		out[i] = Symptom{Name: name, Index: i}
	}
	return out
}

// LabelTable is a closed, immutable mapping between classifier class indices
// and disease names. It is unrelated to the symptom vocabulary's indexing.
type LabelTable struct {
	byIndex map[int]string
	byName  map[string]int
}

// NewLabelTable builds a label table. It panics if two class indices share a
// disease name.
func NewLabelTable(labels map[int]string) *LabelTable {
	t := &LabelTable{
		byIndex: make(map[int]string, len(labels)),
		byName:  make(map[string]int, len(labels)),
	}
	for idx, name := range labels {
		if _, dup := t.byName[name]; dup {
			panic("vocab: duplicate disease " + name)
		}
		t.byIndex[idx] = name
		t.byName[name] = idx
	}
	return t
}

// Size returns the number of known classes.
func (t *LabelTable) Size() int { return len(t.byIndex) }

// Name returns the disease name for a class index.
func (t *LabelTable) Name(classIndex int) (string, bool) {
	name, ok := t.byIndex[classIndex]
	return name, ok
}

// ClassIndex returns the class index for an exact disease name.
func (t *LabelTable) ClassIndex(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Entries returns all diseases sorted by class index.
func (t *LabelTable) Entries() []Disease {
	out := make([]Disease, 0, len(t.byIndex))
	for idx, name := range t.byIndex {
		out = append(out, Disease{ClassIndex: idx, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClassIndex < out[j].ClassIndex
	})
	return out
}

var (
	symptoms = NewVocabulary(symptomNames[:])
	diseases = NewLabelTable(diseaseNames)
)

// Symptoms returns the process-wide symptom vocabulary.
func Symptoms() *Vocabulary { return symptoms }

// Diseases returns the process-wide disease label table.
func Diseases() *LabelTable { return diseases }
