package lesson_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mind-engage/lessonbot/internal/lesson"
)

/* ---------------- In-memory fakes satisfying lesson.Service & lesson.Oracle ---------------- */

type submission struct {
	PageID   int64
	IDs      []string
	Multiple bool
	Text     string
	IsText   bool
}

type fakeSvc struct {
	lecture  lesson.Lecture
	pages    []lesson.Page
	grades   []float64 // successive LessonGrade results
	gradeIdx int

	feedbackFor func(sub submission) lesson.Feedback

	started     bool
	submissions []submission
	pageTurns   []int64
	finished    int
	parseFail   map[int64]bool
}

func (f *fakeSvc) ResolveLecture(ctx context.Context, id int64) (lesson.Lecture, error) {
	if f.lecture.ID == 0 {
		return lesson.Lecture{}, fmt.Errorf("lecture %d not found", id)
	}
	return f.lecture, nil
}

func (f *fakeSvc) LessonGrade(ctx context.Context, courseID, lectureID int64) (float64, bool, error) {
	if f.gradeIdx >= len(f.grades) {
		return 0, false, nil
	}
	g := f.grades[f.gradeIdx]
	f.gradeIdx++
	return g, true, nil
}

func (f *fakeSvc) Pages(ctx context.Context, lessonID int64) ([]lesson.PageRef, error) {
	refs := make([]lesson.PageRef, 0, len(f.pages))
	for _, p := range f.pages {
		refs = append(refs, lesson.PageRef{ID: p.ID})
	}
	return refs, nil
}

func (f *fakeSvc) FetchPage(ctx context.Context, lessonID, pageID int64) (lesson.Page, error) {
	if f.parseFail[pageID] {
		return lesson.Page{}, &lesson.ParseError{PageID: pageID, What: "answer options"}
	}
	for _, p := range f.pages {
		if p.ID == pageID {
			return p, nil
		}
	}
	return lesson.Page{}, fmt.Errorf("page %d not found", pageID)
}

func (f *fakeSvc) StartAttempt(ctx context.Context, lectureID, firstPageID int64) error {
	f.started = true
	return nil
}

func (f *fakeSvc) SubmitChoice(ctx context.Context, lectureID, pageID int64, ids []string, multiple bool) (lesson.Feedback, error) {
	sub := submission{PageID: pageID, IDs: ids, Multiple: multiple}
	f.submissions = append(f.submissions, sub)
	return f.feedback(sub), nil
}

func (f *fakeSvc) SubmitText(ctx context.Context, lectureID, pageID int64, text string) (lesson.Feedback, error) {
	sub := submission{PageID: pageID, Text: text, IsText: true}
	f.submissions = append(f.submissions, sub)
	return f.feedback(sub), nil
}

func (f *fakeSvc) PageTurn(ctx context.Context, lectureID, pageID int64) error {
	f.pageTurns = append(f.pageTurns, pageID)
	return nil
}

func (f *fakeSvc) FinishLesson(ctx context.Context, lectureID int64) error {
	f.finished++
	return nil
}

func (f *fakeSvc) feedback(sub submission) lesson.Feedback {
	if f.feedbackFor != nil {
		return f.feedbackFor(sub)
	}
	return lesson.Feedback{HasResponse: true, Text: "That's the correct answer"}
}

type fakeOracle struct {
	one     []int
	many    [][]int
	text    []string
	prompts int
}

func (o *fakeOracle) PickOne(q string, opts []lesson.Option) (int, error) {
	o.prompts++
	v := o.one[0]
	o.one = o.one[1:]
	return v, nil
}

func (o *fakeOracle) PickMany(q string, opts []lesson.Option) ([]int, error) {
	o.prompts++
	v := o.many[0]
	o.many = o.many[1:]
	return v, nil
}

func (o *fakeOracle) FreeText(q string) (string, error) {
	o.prompts++
	v := o.text[0]
	o.text = o.text[1:]
	return v, nil
}

func newEngine(svc *fakeSvc, oracle *fakeOracle) *lesson.Engine {
	return &lesson.Engine{
		Svc:             svc,
		Oracle:          oracle,
		Log:             discardLogger(),
		IncorrectMarker: "неправильный ответ",
	}
}

func emptyAnswers(t *testing.T, store *lesson.Store, lec lesson.Lecture) *lesson.LectureAnswers {
	t.Helper()
	return store.Lecture(lec)
}

/* ---------------- Engine tests ---------------- */

func TestResolvePageInformationalAdvancesWithoutPrompt(t *testing.T) {
	svc := &fakeSvc{}
	oracle := &fakeOracle{}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	pg := lesson.Page{ID: 100, QType: 20, Question: "welcome"}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != lesson.Informational || res.Outcome != lesson.OutcomeInformational {
		t.Fatalf("got kind=%v outcome=%v", res.Kind, res.Outcome)
	}
	if len(svc.pageTurns) != 1 || svc.pageTurns[0] != 100 {
		t.Fatalf("expected one page turn for page 100, got %v", svc.pageTurns)
	}
	if oracle.prompts != 0 {
		t.Fatalf("informational page must not prompt")
	}
	if len(answers.Answers) != 0 {
		t.Fatalf("informational page must not touch the store")
	}
}

func TestResolvePageReplaysMultiChoiceByDisplayText(t *testing.T) {
	svc := &fakeSvc{}
	oracle := &fakeOracle{}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "Which of these are capitals?"
	rec := lesson.AnswerRecord{
		Multiple: true,
		Selected: []lesson.AnswerID{lesson.TextAnswer("Paris"), lesson.TextAnswer("London")},
	}
	if err := answers.Put(lesson.Key(q), rec); err != nil {
		t.Fatal(err)
	}

	pg := lesson.Page{
		ID:       101,
		QType:    3,
		Question: q,
		Multiple: true,
		Options: []lesson.Option{
			{ID: "id9", Text: "Paris"},
			{ID: "id4", Text: "Berlin"},
			{ID: "id2", Text: "London"},
		},
	}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit || res.Prompted {
		t.Fatalf("expected cache hit without prompting, got %+v", res)
	}
	if len(svc.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(svc.submissions))
	}
	sub := svc.submissions[0]
	if !sub.Multiple || len(sub.IDs) != 2 || sub.IDs[0] != "id9" || sub.IDs[1] != "id2" {
		t.Fatalf("reconciliation must pick current ids id9,id2; got %v", sub.IDs)
	}
}

func TestResolvePageReplaysSingleChoiceByIdentifier(t *testing.T) {
	svc := &fakeSvc{}
	e := newEngine(svc, &fakeOracle{})
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "2 + 2 = ?"
	if err := answers.Put(lesson.Key(q), lesson.AnswerRecord{
		Selected: []lesson.AnswerID{lesson.NumericAnswer("12")},
	}); err != nil {
		t.Fatal(err)
	}

	pg := lesson.Page{
		ID: 102, QType: 3, Question: q,
		Options: []lesson.Option{{ID: "11", Text: "3"}, {ID: "12", Text: "4"}},
	}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit {
		t.Fatal("expected cache hit")
	}
	sub := svc.submissions[0]
	if sub.Multiple || len(sub.IDs) != 1 || sub.IDs[0] != "12" {
		t.Fatalf("expected single submission of id 12, got %+v", sub)
	}
}

func TestResolvePageFallsThroughWhenNothingReconciles(t *testing.T) {
	svc := &fakeSvc{}
	oracle := &fakeOracle{many: [][]int{{1}}}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "Pick the even numbers"
	if err := answers.Put(lesson.Key(q), lesson.AnswerRecord{
		Multiple: true,
		Selected: []lesson.AnswerID{lesson.TextAnswer("Two"), lesson.TextAnswer("Four")},
	}); err != nil {
		t.Fatal(err)
	}

	// Options renamed remotely: stored texts match nothing.
	pg := lesson.Page{
		ID: 103, QType: 3, Question: q, Multiple: true,
		Options: []lesson.Option{{ID: "a", Text: "One"}, {ID: "b", Text: "Six"}},
	}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Fatal("stale record must not count as a cache hit")
	}
	if !res.Prompted || oracle.prompts != 1 {
		t.Fatal("expected fall-through to solicitation")
	}
	sub := svc.submissions[0]
	if len(sub.IDs) != 1 || sub.IDs[0] != "b" {
		t.Fatalf("expected fresh pick b, got %v", sub.IDs)
	}
}

func TestResolvePageEmptyRecordFallsThroughToPrompt(t *testing.T) {
	// A record without selections never comes from Put; a hand-edited
	// answers file can still carry one. It must behave like a miss.
	svc := &fakeSvc{}
	oracle := &fakeOracle{one: []int{1}}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "2 + 2 = ?"
	answers.Answers[lesson.Key(q)] = lesson.AnswerRecord{}

	pg := lesson.Page{
		ID: 106, QType: 3, Question: q,
		Options: []lesson.Option{{ID: "11", Text: "3"}, {ID: "12", Text: "4"}},
	}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Fatal("empty record must not count as a cache hit")
	}
	if !res.Prompted || oracle.prompts != 1 {
		t.Fatal("expected fall-through to solicitation")
	}
	sub := svc.submissions[0]
	if len(sub.IDs) != 1 || sub.IDs[0] != "12" {
		t.Fatalf("expected fresh pick 12, got %v", sub.IDs)
	}
}

func TestResolvePageEmptyRecordShortAnswerPrompts(t *testing.T) {
	svc := &fakeSvc{}
	oracle := &fakeOracle{text: []string{"mitosis"}}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "Name the division process"
	answers.Answers[lesson.Key(q)] = lesson.AnswerRecord{}

	pg := lesson.Page{ID: 107, QType: 8, Question: q}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit || !res.Prompted {
		t.Fatalf("expected prompt instead of replay, got %+v", res)
	}
	if !svc.submissions[0].IsText || svc.submissions[0].Text != "mitosis" {
		t.Fatalf("expected fresh text submission, got %+v", svc.submissions[0])
	}
	rec, ok := answers.Get(lesson.Key(q))
	if !ok || len(rec.Selected) != 1 || rec.Selected[0].String() != "mitosis" {
		t.Fatalf("accepted answer must replace the empty record, got %+v ok=%v", rec, ok)
	}
}

func TestResolvePageLogsReturnedPageContent(t *testing.T) {
	svc := &fakeSvc{
		feedbackFor: func(submission) lesson.Feedback {
			return lesson.Feedback{ContentText: "Chapter 3: the cell wall"}
		},
	}
	oracle := &fakeOracle{one: []int{0}}
	e := newEngine(svc, oracle)
	var buf bytes.Buffer
	e.Log = slog.New(slog.NewTextHandler(&buf, nil))
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	pg := lesson.Page{
		ID: 108, QType: 3, Question: "Pick one",
		Options: []lesson.Option{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}},
	}
	if _, err := e.ResolvePage(context.Background(), lec, pg, answers); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Chapter 3: the cell wall") {
		t.Fatalf("returned page content must be surfaced in the log, got:\n%s", buf.String())
	}
}

func TestResolvePageNeverRecordsIncorrect(t *testing.T) {
	svc := &fakeSvc{
		feedbackFor: func(submission) lesson.Feedback {
			return lesson.Feedback{HasResponse: true, Text: "Это неправильный ответ"}
		},
	}
	oracle := &fakeOracle{one: []int{0}}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "Hard question"
	pg := lesson.Page{
		ID: 104, QType: 3, Question: q,
		Options: []lesson.Option{{ID: "1", Text: "guess"}, {ID: "2", Text: "other"}},
	}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != lesson.OutcomeIncorrect {
		t.Fatalf("expected incorrect outcome, got %v", res.Outcome)
	}
	if res.Recorded {
		t.Fatal("incorrect outcomes must not be recorded")
	}
	if _, ok := answers.Get(lesson.Key(q)); ok {
		t.Fatal("store must be unchanged after an incorrect answer")
	}
}

func TestResolvePageRecordsShortAnswerText(t *testing.T) {
	svc := &fakeSvc{}
	oracle := &fakeOracle{text: []string{"photosynthesis"}}
	e := newEngine(svc, oracle)
	store := lesson.Load(tempStorePath(t))
	lec := lesson.Lecture{ID: 10, LessonID: 5}
	answers := emptyAnswers(t, store, lec)

	q := "Name the process"
	pg := lesson.Page{ID: 105, QType: 8, Question: q}
	res, err := e.ResolvePage(context.Background(), lec, pg, answers)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recorded {
		t.Fatal("correct short answer must be recorded")
	}
	rec, ok := answers.Get(lesson.Key(q))
	if !ok || rec.Multiple || len(rec.Selected) != 1 || rec.Selected[0].String() != "photosynthesis" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !svc.submissions[0].IsText || svc.submissions[0].Text != "photosynthesis" {
		t.Fatalf("expected text submission, got %+v", svc.submissions[0])
	}
}
