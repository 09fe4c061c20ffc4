package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mind-engage/lessonbot/internal/history"
	"github.com/mind-engage/lessonbot/internal/lesson"
	"github.com/mind-engage/lessonbot/internal/moodle"
)

// pickLecture builds the selection menu from previously seen lectures plus
// their freshly fetched grades and lets the user choose one.
func pickLecture(ctx context.Context, client *moodle.Client, store *lesson.Store, hist *history.Store) (int64, error) {
	known := store.Known()
	if len(known) == 0 {
		return 0, fmt.Errorf("no previously seen lectures; pass a lecture id on first use")
	}

	grades := map[int64]float64{}
	seenCourses := map[int64]bool{}
	for _, k := range known {
		if seenCourses[k.CourseID] {
			continue
		}
		seenCourses[k.CourseID] = true
		rows, err := client.Grades(ctx, k.CourseID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: grades for course %d unavailable: %v\n", k.CourseID, err)
			continue
		}
		for _, row := range rows {
			grades[row.LectureID] = row.Grade
		}
	}

	var lastRuns map[int64]history.Run
	if hist != nil {
		if lr, err := hist.LastRun(ctx); err == nil {
			lastRuns = lr
		}
	}

	fmt.Println("Known lectures:")
	for i, k := range known {
		line := fmt.Sprintf("%d. %s (%d)", i+1, k.Name, k.ID)
		if g, ok := grades[k.ID]; ok {
			line += fmt.Sprintf(" - grade %.2f", g)
		}
		if r, ok := lastRuns[k.ID]; ok {
			line += fmt.Sprintf(" - last run %s", r.FinishedAt.Format("2006-01-02"))
		}
		fmt.Println(line)
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Pick a lecture: ")
		if !in.Scan() {
			return 0, fmt.Errorf("input closed")
		}
		n, err := strconv.Atoi(in.Text())
		if err != nil || n < 1 || n > len(known) {
			fmt.Println("Invalid choice")
			continue
		}
		return known[n-1].ID, nil
	}
}
