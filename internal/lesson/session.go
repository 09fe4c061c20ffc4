package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RunRecorder receives the report of a completed run. Failures are logged and
// swallowed; history is bookkeeping, never a reason to fail a walk.
type RunRecorder interface {
	Record(ctx context.Context, r RunReport) error
}

// RunReport is what a full walk over one lecture produced.
type RunReport struct {
	Lecture Lecture

	GradeBefore    float64
	GradeAfter     float64
	HadGradeBefore bool
	HadGradeAfter  bool

	PagesTotal int
	Answered   int
	CacheHits  int
	Recorded   int
	Incorrect  int
	Skipped    int

	StartedAt  time.Time
	FinishedAt time.Time
}

// GradeDelta reports the grade change, valid only when both grades resolved.
func (r RunReport) GradeDelta() (float64, bool) {
	if !r.HadGradeBefore || !r.HadGradeAfter {
		return 0, false
	}
	return r.GradeAfter - r.GradeBefore, true
}

// Session walks every page of one lecture in order. Strictly sequential: each
// submission advances the server-side page pointer the next fetch depends on.
type Session struct {
	Svc      Service
	Store    *Store
	Engine   *Engine
	Log      *slog.Logger
	Recorder RunRecorder
}

// Run executes the whole walk. Lecture resolution failures abort before any
// page is touched; page parse failures are skipped with a warning; everything
// else is fatal for the run.
func (s *Session) Run(ctx context.Context, lectureID int64) (RunReport, error) {
	report := RunReport{StartedAt: time.Now()}

	lec, err := s.Svc.ResolveLecture(ctx, lectureID)
	if err != nil {
		return report, fmt.Errorf("resolve lecture %d: %w", lectureID, err)
	}
	report.Lecture = lec
	s.Log.Info("lecture resolved", "name", lec.Name, "lesson", lec.LessonID, "course", lec.CourseID)

	if g, ok, err := s.Svc.LessonGrade(ctx, lec.CourseID, lec.ID); err != nil {
		s.Log.Warn("grade lookup failed", "err", err)
	} else if ok {
		report.GradeBefore, report.HadGradeBefore = g, true
		s.Log.Info("current grade", "grade", g)
	}

	pages, err := s.Svc.Pages(ctx, lec.LessonID)
	if err != nil {
		return report, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return report, fmt.Errorf("lesson %d has no pages", lec.LessonID)
	}
	report.PagesTotal = len(pages)

	if err := s.Svc.StartAttempt(ctx, lec.ID, pages[0].ID); err != nil {
		return report, fmt.Errorf("start attempt: %w", err)
	}

	answers := s.Store.Lecture(lec)
	for _, ref := range pages {
		pg, err := s.Svc.FetchPage(ctx, lec.LessonID, ref.ID)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				// Later pages stand on their own once the pointer advances.
				s.Log.Warn("skipping unparseable page", "page", ref.ID, "err", perr)
				report.Skipped++
				if terr := s.Svc.PageTurn(ctx, lec.ID, ref.ID); terr != nil {
					return report, fmt.Errorf("page turn after parse failure: %w", terr)
				}
				continue
			}
			return report, fmt.Errorf("fetch page %d: %w", ref.ID, err)
		}

		res, err := s.Engine.ResolvePage(ctx, lec, pg, answers)
		if err != nil {
			return report, err
		}
		s.tally(&report, res)

		// Persist after every page so a crash mid-walk costs at most one
		// answer, not the whole lecture.
		if res.Recorded {
			if err := s.Store.Save(); err != nil {
				s.Log.Warn("answer store save failed", "err", err)
			}
		}
	}

	if err := s.Svc.FinishLesson(ctx, lec.ID); err != nil {
		return report, fmt.Errorf("finish lesson: %w", err)
	}
	if err := s.Store.Save(); err != nil {
		return report, fmt.Errorf("save answer store: %w", err)
	}

	if g, ok, err := s.Svc.LessonGrade(ctx, lec.CourseID, lec.ID); err != nil {
		s.Log.Warn("grade lookup failed", "err", err)
	} else if ok {
		report.GradeAfter, report.HadGradeAfter = g, true
	}
	report.FinishedAt = time.Now()

	if delta, ok := report.GradeDelta(); ok {
		if delta != 0 {
			s.Log.Info("grade changed", "before", report.GradeBefore, "after", report.GradeAfter, "delta", delta)
		} else {
			s.Log.Warn("grade did not change; the portal may have rejected the walk, check the lesson manually")
		}
	}

	if s.Recorder != nil {
		if err := s.Recorder.Record(ctx, report); err != nil {
			s.Log.Warn("run history not recorded", "err", err)
		}
	}
	return report, nil
}

func (s *Session) tally(report *RunReport, res PageResult) {
	if res.Kind == Informational {
		return
	}
	report.Answered++
	if res.CacheHit {
		report.CacheHits++
	}
	if res.Recorded {
		report.Recorded++
	}
	if res.Outcome == OutcomeIncorrect {
		report.Incorrect++
	}
}
