package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mind-engage/lessonbot/internal/config"
	"github.com/mind-engage/lessonbot/internal/db"
	"github.com/mind-engage/lessonbot/internal/history"
	"github.com/mind-engage/lessonbot/internal/lesson"
	"github.com/mind-engage/lessonbot/internal/moodle"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lessonbot [lecture-id]")
}

func run() error {
	args := os.Args[1:]
	if len(args) > 1 {
		usage()
		os.Exit(2)
	}
	var lectureID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			usage()
			os.Exit(2)
		}
		lectureID = id
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := moodle.New(cfg.Domain, cfg.Token,
		moodle.WithLogger(logger),
		moodle.WithRetry(cfg.RetryMax, cfg.RetryDelay),
	)
	if err != nil {
		return err
	}
	if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return err
	}

	store := lesson.Load(cfg.AnswersPath)

	// Run history is best-effort bookkeeping; a broken DB never blocks a walk.
	var recorder lesson.RunRecorder
	var hist *history.Store
	if dbh, err := openHistory(ctx, cfg); err != nil {
		logger.Warn("run history unavailable", "err", err)
	} else {
		defer dbh.Close()
		hist = history.New(dbh)
		recorder = hist
	}

	if lectureID == 0 {
		lectureID, err = pickLecture(ctx, client, store, hist)
		if err != nil {
			return err
		}
	}

	svc := moodle.NewService(client)
	engine := &lesson.Engine{
		Svc:             svc,
		Oracle:          lesson.NewConsoleOracle(os.Stdin, os.Stdout),
		Log:             logger,
		IncorrectMarker: cfg.IncorrectMarker,
	}
	sess := &lesson.Session{
		Svc:      svc,
		Store:    store,
		Engine:   engine,
		Log:      logger,
		Recorder: recorder,
	}

	report, err := sess.Run(ctx, lectureID)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func openHistory(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	octx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Open(octx, db.Driver(cfg.HistoryDriver), cfg.HistoryDSN)
}

func printReport(r lesson.RunReport) {
	fmt.Printf("\nLecture: %s (%d)\n", r.Lecture.Name, r.Lecture.ID)
	fmt.Printf("Pages: %d total, %d answered, %d from cache, %d skipped\n",
		r.PagesTotal, r.Answered, r.CacheHits, r.Skipped)
	if r.Incorrect > 0 {
		fmt.Printf("Incorrect answers (not remembered): %d\n", r.Incorrect)
	}
	if delta, ok := r.GradeDelta(); ok {
		fmt.Printf("Grade: %.2f -> %.2f (%+.2f)\n", r.GradeBefore, r.GradeAfter, delta)
	} else if r.HadGradeAfter {
		fmt.Printf("Grade: %.2f\n", r.GradeAfter)
	}
	fmt.Printf("Took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
}
