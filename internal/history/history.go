// Package history keeps one row per completed walk so the selection menu can
// show when a lecture was last run and what it did to the grade.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/mind-engage/lessonbot/internal/lesson"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Run is one recorded walk.
type Run struct {
	ID          int64
	LectureID   int64
	LessonName  string
	CourseID    int64
	GradeBefore sql.NullFloat64
	GradeAfter  sql.NullFloat64
	PagesTotal  int
	Answered    int
	CacheHits   int
	Recorded    int
	Incorrect   int
	Skipped     int
	StartedAt   time.Time
	FinishedAt  time.Time
}

var _ lesson.RunRecorder = (*Store)(nil)

// Record implements lesson.RunRecorder.
func (s *Store) Record(ctx context.Context, r lesson.RunReport) error {
	before := sql.NullFloat64{Float64: r.GradeBefore, Valid: r.HadGradeBefore}
	after := sql.NullFloat64{Float64: r.GradeAfter, Valid: r.HadGradeAfter}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (lecture_id, lesson_name, course_id, grade_before, grade_after,
		                  pages_total, answered, cache_hits, recorded, incorrect, skipped,
		                  started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.Lecture.ID, r.Lecture.Name, r.Lecture.CourseID, before, after,
		r.PagesTotal, r.Answered, r.CacheHits, r.Recorded, r.Incorrect, r.Skipped,
		r.StartedAt.Unix(), r.FinishedAt.Unix(),
	)
	return err
}

// LastRun returns the most recent run per lecture, keyed by lecture id.
func (s *Store) LastRun(ctx context.Context) (map[int64]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lecture_id, lesson_name, course_id, grade_before, grade_after,
		       pages_total, answered, cache_hits, recorded, incorrect, skipped,
		       started_at, finished_at
		FROM runs ORDER BY finished_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]Run{}
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.LectureID, &r.LessonName, &r.CourseID,
			&r.GradeBefore, &r.GradeAfter, &r.PagesTotal, &r.Answered, &r.CacheHits,
			&r.Recorded, &r.Incorrect, &r.Skipped, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		out[r.LectureID] = r // later rows win: ordered ascending
	}
	return out, rows.Err()
}
