package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docquiz/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	runner *Runner
	store  *store.Store
	log    *slog.Logger
}

func NewWorker(runner *Runner, st *store.Store, log *slog.Logger) *Worker {
	return &Worker{runner: runner, store: st, log: log}
}

// Process runs the full quiz pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse and normalize.
	job.SetStatus(StatusParsing, "parsing")
	prepared, err := w.runner.Prepare(Input{
		Filename: job.Filename,
		Data:     job.FileData(),
		Title:    job.Title,
	})
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetStatus(StatusNormalizing, "normalizing")
	job.SetPrepared(prepared.Pages, len(prepared.Units), len(prepared.Warnings), prepared.ContentHash)
	for _, wn := range prepared.Warnings {
		job.AddError("warning: " + wn.String())
	}

	if len(prepared.Units) == 0 {
		log.Warn("no text units produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "normalizing")
		return
	}

	// Phase 1.5: Dedup check.
	if !job.Force {
		existing, found, err := w.store.FindByHash(ctx, prepared.ContentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if found {
			log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
			job.MarkDuplicate(existing.ID)
			return
		}
	}

	// Phase 2: Tag and assemble.
	job.SetStatus(StatusTagging, "tagging")
	res, err := w.runner.Quiz(ctx, prepared, job.Seed)
	if err != nil {
		log.Error("tagging failed", "error", err)
		job.AddError(fmt.Sprintf("tag: %s", err))
		job.SetStatus(StatusFailed, "tagging")
		return
	}
	job.SetStatus(StatusAssembling, "assembling")
	job.SetResults(len(res.Pool), len(res.Set.Questions))
	hadErrors := res.ExtractReport.UnitErrors > 0
	if hadErrors {
		job.AddError(fmt.Sprintf("%d of %d units could not be tagged", res.ExtractReport.UnitErrors, res.ExtractReport.Units))
	}
	if res.ExtractReport.UnitErrors == res.ExtractReport.Units {
		job.SetStatus(StatusFailed, "tagging")
		return
	}

	// Phase 3: Store.
	job.SetStatus(StatusStoring, "storing")
	err = w.store.SaveRun(ctx, store.Run{
		Document: store.Document{
			ID:          job.DocID,
			Title:       res.Title,
			Filename:    job.Filename,
			ContentHash: res.ContentHash,
			Seed:        job.Seed,
			Units:       len(res.Units),
			CreatedAt:   job.CreatedAt,
		},
		Reconstructed: res.Reconstructed,
		Pool:          res.Pool,
		Set:           res.Set,
	})
	if err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	log.Info("quiz stored",
		"units", len(res.Units),
		"mentions", len(res.Pool),
		"questions", len(res.Set.Questions),
	)
	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}
