package lesson

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Engine resolves one page at a time: classify, probe the cache, solicit an
// answer when needed, submit, and decide whether the result is worth keeping.
type Engine struct {
	Svc    Service
	Oracle Oracle
	Log    *slog.Logger

	// Passed through to Interpret; the portal renders verdicts in its own
	// language.
	IncorrectMarker string
}

// PageResult summarizes what happened to a single page.
type PageResult struct {
	Kind     Kind
	Outcome  Outcome
	CacheHit bool
	Recorded bool
	Prompted bool
}

// ResolvePage drives one page through the resolution state machine. The
// lecture namespace is mutated in place when an accepted answer is recorded;
// persisting it is the caller's job.
func (e *Engine) ResolvePage(ctx context.Context, lec Lecture, pg Page, answers *LectureAnswers) (PageResult, error) {
	kind := Classify(pg.QType, pg.Multiple)
	if kind == Informational {
		if err := e.Svc.PageTurn(ctx, lec.ID, pg.ID); err != nil {
			return PageResult{}, fmt.Errorf("page turn %d: %w", pg.ID, err)
		}
		return PageResult{Kind: kind, Outcome: OutcomeInformational}, nil
	}

	key := Key(pg.Question)
	log := e.Log.With("page", pg.ID, "kind", kind.String())

	if rec, ok := answers.Get(key); ok {
		res, replayed, err := e.replay(ctx, lec, pg, kind, rec, log)
		if err != nil {
			return PageResult{}, err
		}
		if replayed {
			return res, nil
		}
		// Nothing in the stored record is usable against the current page;
		// treat as a miss and ask again.
		log.Warn("cached answer no longer usable, asking again")
	}

	return e.solicit(ctx, lec, pg, kind, key, answers, log)
}

// replay resubmits a cached record. The second return is false when
// reconciliation against the current option list found nothing to submit.
func (e *Engine) replay(ctx context.Context, lec Lecture, pg Page, kind Kind, rec AnswerRecord, log *slog.Logger) (PageResult, bool, error) {
	// An empty record has nothing to resubmit; treat it like a miss rather
	// than trusting whatever wrote it.
	if len(rec.Selected) == 0 {
		return PageResult{}, false, nil
	}

	var fb Feedback
	var err error

	switch kind {
	case ShortAnswer:
		answer := rec.Selected[0].String()
		log.Info("reusing recorded answer", "answer", answer)
		fb, err = e.Svc.SubmitText(ctx, lec.ID, pg.ID, answer)
	default:
		ids, labels := reconcile(rec, pg.Options)
		if len(ids) == 0 {
			return PageResult{}, false, nil
		}
		log.Info("reusing recorded answer", "answer", strings.Join(labels, ", "))
		fb, err = e.Svc.SubmitChoice(ctx, lec.ID, pg.ID, ids, rec.Multiple)
	}
	if err != nil {
		return PageResult{}, false, fmt.Errorf("submit page %d: %w", pg.ID, err)
	}

	if fb.ContentText != "" {
		log.Info("page content", "text", fb.ContentText)
	}
	outcome := Interpret(fb, e.IncorrectMarker)
	if outcome == OutcomeIncorrect {
		// The record stays; remote content may have drifted under the same
		// question text and that is worth a human look.
		log.Warn("recorded answer was judged incorrect", "feedback", fb.Text)
	}
	return PageResult{Kind: kind, Outcome: outcome, CacheHit: true}, true, nil
}

// solicit asks the oracle, submits the choice and records it only on an
// accepted verdict. Incorrect answers are never cached.
func (e *Engine) solicit(ctx context.Context, lec Lecture, pg Page, kind Kind, key string, answers *LectureAnswers, log *slog.Logger) (PageResult, error) {
	var (
		fb  Feedback
		err error
		rec AnswerRecord
	)

	switch kind {
	case SingleChoice:
		idx, oerr := e.Oracle.PickOne(pg.Question, pg.Options)
		if oerr != nil {
			return PageResult{}, fmt.Errorf("answer solicitation: %w", oerr)
		}
		opt := pg.Options[idx]
		rec = AnswerRecord{Selected: []AnswerID{NumericAnswer(opt.ID)}}
		fb, err = e.Svc.SubmitChoice(ctx, lec.ID, pg.ID, []string{opt.ID}, false)

	case MultiChoice:
		idxs, oerr := e.Oracle.PickMany(pg.Question, pg.Options)
		if oerr != nil {
			return PageResult{}, fmt.Errorf("answer solicitation: %w", oerr)
		}
		ids := make([]string, 0, len(idxs))
		selected := make([]AnswerID, 0, len(idxs))
		for _, i := range idxs {
			ids = append(ids, pg.Options[i].ID)
			// Display text is the stable half of an option; identifiers get
			// renumbered between fetches.
			selected = append(selected, TextAnswer(pg.Options[i].Text))
		}
		rec = AnswerRecord{Multiple: true, Selected: selected}
		fb, err = e.Svc.SubmitChoice(ctx, lec.ID, pg.ID, ids, true)

	case ShortAnswer:
		text, oerr := e.Oracle.FreeText(pg.Question)
		if oerr != nil {
			return PageResult{}, fmt.Errorf("answer solicitation: %w", oerr)
		}
		rec = AnswerRecord{Selected: []AnswerID{TextAnswer(text)}}
		fb, err = e.Svc.SubmitText(ctx, lec.ID, pg.ID, text)
	}
	if err != nil {
		return PageResult{}, fmt.Errorf("submit page %d: %w", pg.ID, err)
	}

	res := PageResult{Kind: kind, Outcome: Interpret(fb, e.IncorrectMarker), Prompted: true}
	if fb.Text != "" {
		log.Info("portal feedback", "feedback", fb.Text)
	}
	if fb.ContentText != "" {
		log.Info("page content", "text", fb.ContentText)
	}

	switch res.Outcome {
	case OutcomeIncorrect:
		log.Warn("answer was incorrect and will not be remembered")
	default:
		if err := answers.Put(key, rec); err != nil {
			return PageResult{}, err
		}
		res.Recorded = true
	}
	return res, nil
}

// reconcile matches a stored record against the current option list: display
// text for multi-choice, raw identifier for single-choice. Returns the
// current identifiers to submit plus their labels for logging.
func reconcile(rec AnswerRecord, options []Option) (ids, labels []string) {
	if rec.Multiple {
		want := make(map[string]bool, len(rec.Selected))
		for _, sel := range rec.Selected {
			want[sel.String()] = true
		}
		for _, opt := range options {
			if want[opt.Text] {
				ids = append(ids, opt.ID)
				labels = append(labels, opt.Text)
			}
		}
		return ids, labels
	}
	sel := rec.Selected[0].String()
	for _, opt := range options {
		if opt.ID == sel {
			return []string{opt.ID}, []string{opt.Text}
		}
	}
	return nil, nil
}
