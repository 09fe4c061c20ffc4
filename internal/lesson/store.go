package lesson

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// AnswerID preserves the wire shape of a stored selection. Single-choice
// identifiers arrive as bare integers, multi-choice selections and free-text
// answers as strings; both must survive a save/load cycle unchanged.
type AnswerID struct {
	value   string
	numeric bool
}

func NumericAnswer(id string) AnswerID { return AnswerID{value: id, numeric: true} }
func TextAnswer(s string) AnswerID     { return AnswerID{value: s} }

func (a AnswerID) String() string { return a.value }

func (a AnswerID) MarshalJSON() ([]byte, error) {
	if a.numeric {
		if _, err := strconv.ParseInt(a.value, 10, 64); err == nil {
			return []byte(a.value), nil
		}
	}
	return json.Marshal(a.value)
}

func (a *AnswerID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		a.value = n.String()
		a.numeric = true
		return nil
	}
	a.numeric = false
	return json.Unmarshal(b, &a.value)
}

// AnswerRecord is the persisted decision for one question identity. Selected
// is never empty; single-choice records hold exactly one identifier.
type AnswerRecord struct {
	Multiple bool       `json:"multiple"`
	Selected []AnswerID `json:"answers"`
}

// LectureAnswers is the per-lecture namespace inside the store.
type LectureAnswers struct {
	Name     string                  `json:"name"`
	CourseID int64                   `json:"courseid"`
	Answers  map[string]AnswerRecord `json:"lecture_answers"`
}

// Store is the durable question-key -> answer mapping, one JSON document on
// disk keyed by lecture id. Entries are only ever appended by normal
// operation.
type Store struct {
	path     string
	lectures map[string]*LectureAnswers
}

// Load reads the store at path. A missing or malformed file yields an empty
// store; the walk must never be blocked by local state.
func Load(path string) *Store {
	s := &Store{path: path, lectures: map[string]*LectureAnswers{}}
	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var lectures map[string]*LectureAnswers
	if err := json.Unmarshal(b, &lectures); err != nil {
		return s
	}
	for id, la := range lectures {
		if la == nil {
			continue
		}
		if la.Answers == nil {
			la.Answers = map[string]AnswerRecord{}
		}
		// Records with no selections can only come from a hand-edited file;
		// Put never writes one. Drop them so replay never sees an empty
		// record.
		for key, rec := range la.Answers {
			if len(rec.Selected) == 0 {
				delete(la.Answers, key)
			}
		}
		s.lectures[id] = la
	}
	return s
}

// Save writes the whole document atomically: temp file in the same directory,
// then rename over the target. An interrupted save never corrupts the store.
func (s *Store) Save() error {
	b, err := json.MarshalIndent(s.lectures, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(b)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		return errors.Join(werr, cerr)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Lecture returns the namespace for a lecture, creating it on first use.
func (s *Store) Lecture(lec Lecture) *LectureAnswers {
	id := strconv.FormatInt(lec.ID, 10)
	la, ok := s.lectures[id]
	if !ok {
		la = &LectureAnswers{Answers: map[string]AnswerRecord{}}
		s.lectures[id] = la
	}
	la.Name = lec.Name
	la.CourseID = lec.CourseID
	return la
}

// Known lists previously seen lectures in a stable order, for the
// interactive selection menu.
func (s *Store) Known() []KnownLecture {
	out := make([]KnownLecture, 0, len(s.lectures))
	for id, la := range s.lectures {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, KnownLecture{ID: n, Name: la.Name, CourseID: la.CourseID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// KnownLecture is a menu row sourced from the store.
type KnownLecture struct {
	ID       int64
	Name     string
	CourseID int64
}

// Get probes a lecture namespace for a question key.
func (la *LectureAnswers) Get(key string) (AnswerRecord, bool) {
	rec, ok := la.Answers[key]
	return rec, ok
}

// Put records an accepted answer. Empty selections are refused so the
// invariant that Selected is non-empty holds for every stored record.
func (la *LectureAnswers) Put(key string, rec AnswerRecord) error {
	if len(rec.Selected) == 0 {
		return fmt.Errorf("refusing to store empty selection for %s", key)
	}
	la.Answers[key] = rec
	return nil
}
