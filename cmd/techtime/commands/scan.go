package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/techtime/internal/async"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/ingest"
	processor "github.com/joseph-ayodele/techtime/internal/pipeline"
)

func scanCommand() *cli.Command {
	choiceFlags := func(field, manualName string) []cli.Flag {
		return []cli.Flag{
			&cli.IntFlag{Name: field + "-index", Usage: "use candidate N (0 = top match) for " + field, Value: -1},
			&cli.StringFlag{Name: manualName, Usage: "type the " + field + " in instead of picking a candidate"},
		}
	}
	applyFlags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "scan id", Required: true},
		&cli.FloatFlag{Name: "aw", Usage: "allocated work units", Required: true},
		&cli.StringFlag{Name: "notes", Usage: "free-text notes"},
	}
	applyFlags = append(applyFlags, choiceFlags("reg", "reg")...)
	applyFlags = append(applyFlags, choiceFlags("wip", "wip")...)
	applyFlags = append(applyFlags, choiceFlags("job", "job-no")...)

	return &cli.Command{
		Name:  "scan",
		Usage: "Fill jobs from job card photos",
		Commands: []*cli.Command{
			{
				Name:      "image",
				Usage:     "Run OCR on a photo and show the candidates",
				ArgsUsage: "<image>",
				Action:    withApp(ScanImageAction),
			},
			{
				Name:   "apply",
				Usage:  "Turn a scan into a job",
				Flags:  applyFlags,
				Action: withApp(ScanApplyAction),
			},
			{
				Name:  "discard",
				Usage: "Throw a scan away",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "scan id", Required: true},
				},
				Action: withApp(ScanDiscardAction),
			},
			{
				Name:   "list",
				Usage:  "List stored scans, newest first",
				Action: withApp(ScanListAction),
			},
			{
				Name:  "batch",
				Usage: "Scan every photo in a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "folder of photos", Required: true},
					&cli.BoolFlag{Name: "hidden", Usage: "include hidden files and folders"},
					&cli.IntFlag{Name: "workers", Usage: "concurrent scans", Value: 2},
				},
				Action: withApp(ScanBatchAction),
			},
			{
				Name:  "watch",
				Usage: "Scan photos as they appear in a folder",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "dir", Usage: "folder to watch (repeatable)", Required: true},
					&cli.BoolFlag{Name: "initial", Usage: "scan photos already in the folder"},
					&cli.DurationFlag{Name: "debounce", Usage: "wait for writes to settle", Value: 500 * time.Millisecond},
					&cli.IntFlag{Name: "workers", Usage: "concurrent scans", Value: 2},
				},
				Action: withApp(ScanWatchAction),
			},
		},
	}
}

func ScanImageAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if cmd.Args().Len() != 1 {
		return common.InvalidArgumentErrorf("expected exactly one image path")
	}
	rec, err := app.Processor.Scan(ctx, cmd.Args().First())
	if err != nil {
		if rec != nil && rec.ID != "" {
			printf(cmd, "Scan %s failed (%s)\n", rec.ID, rec.ErrorCode)
		}
		return err
	}
	printScan(cmd, *rec)
	return nil
}

func printScan(cmd *cli.Command, rec entity.ScanRecord) {
	w := outWriter(cmd)
	printf(cmd, "Scan %s  provider=%s  confidence=%.2f\n", rec.ID, rec.Provider, rec.OCRConfidence)
	if rec.NeedsReview {
		printf(cmd, "Low confidence or missing WIP number: check the values before applying.\n")
	}
	renderCandidates(w, "Registration", rec.Candidates.Registration)
	renderCandidates(w, "WIP number", rec.Candidates.WIPNumber)
	renderCandidates(w, "Job number", rec.Candidates.JobNumber)
}

func renderCandidates(w io.Writer, title string, list []entity.ParseResult) {
	_, _ = fmt.Fprintf(w, "%s:\n", title)
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "  none found")
		return
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "Value", "Confidence", "Line")
	for i, c := range list {
		idx := fmt.Sprint(i)
		if i == 0 {
			idx += " (top)"
		}
		table.Append(idx, c.Value, fmt.Sprintf("%.2f", c.Confidence), c.SourceLine)
	}
	table.Render()
}

func choice(cmd *cli.Command, indexFlag, manualFlag string) processor.FieldChoice {
	var fc processor.FieldChoice
	if cmd.IsSet(manualFlag) {
		fc.Manual = cmd.String(manualFlag)
	}
	if i := cmd.Int(indexFlag); cmd.IsSet(indexFlag) && i >= 0 {
		fc.Index = &i
	}
	return fc
}

func ScanApplyAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	job, err := app.Processor.Apply(ctx, cmd.String("id"), processor.Selection{
		Registration: choice(cmd, "reg-index", "reg"),
		WIPNumber:    choice(cmd, "wip-index", "wip"),
		JobNumber:    choice(cmd, "job-index", "job-no"),
		AWValue:      cmd.Float("aw"),
		Notes:        cmd.String("notes"),
	})
	if err != nil {
		return err
	}
	printf(cmd, "Job saved: %s (WIP %s, registration %s)\n", job.ID, job.WIPNumber, job.VehicleRegistration)
	return nil
}

func ScanDiscardAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if err := app.Processor.Discard(ctx, cmd.String("id")); err != nil {
		return err
	}
	printf(cmd, "Scan discarded.\n")
	return nil
}

func ScanListAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	recs, err := app.Processor.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		printf(cmd, "No scans stored.\n")
		return nil
	}
	table := tablewriter.NewWriter(outWriter(cmd))
	table.Header("ID", "Created", "Status", "Image", "Top WIP", "Top Reg", "Error")
	for _, r := range recs {
		wip, _ := entity.Top(r.Candidates.WIPNumber)
		reg, _ := entity.Top(r.Candidates.Registration)
		table.Append(r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), string(r.Status), r.ImagePath, wip.Value, reg.Value, r.ErrorCode)
	}
	table.Render()
	return nil
}

// batchCollector gathers queue results for the closing report.
type batchCollector struct {
	mu      sync.Mutex
	ok      int
	failed  int
	results []async.Result
}

func (b *batchCollector) add(r async.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Err != nil {
		b.failed++
	} else {
		b.ok++
	}
	b.results = append(b.results, r)
}

func newQueue(cmd *cli.Command, app *AppContext, collector *batchCollector) *async.ProcessorQueue {
	return async.NewProcessorQueue(app.Processor, app.Logger,
		async.WithWorkers(cmd.Int("workers")),
		async.WithProcessTimeout(app.Config.OCR.Timeout*time.Duration(app.Config.OCR.MaxRetries+2)),
		async.WithResultHandler(func(r async.Result) {
			collector.add(r)
			if r.Err != nil {
				printf(cmd, "FAILED %s: %s\n", r.Job.ImagePath, common.UserMessage(r.Err))
				return
			}
			wip, _ := entity.Top(r.Record.Candidates.WIPNumber)
			printf(cmd, "scanned %s -> scan %s (WIP %s)\n", r.Job.ImagePath, r.Record.ID, wip.Value)
		}),
	)
}

func ScanBatchAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	collector := &batchCollector{}
	q := newQueue(cmd, app, collector)
	ing := ingest.NewFSIngestor(q, app.Logger)

	_, stats, err := ing.IngestDirectory(ctx, cmd.String("dir"), !cmd.Bool("hidden"))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Minute)
	defer cancel()
	q.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	printf(cmd, "Batch done: %d images found, %d duplicates skipped, %d scanned, %d failed\n",
		stats.Matched, stats.Deduplicated, collector.ok, collector.failed+int(stats.Failed))
	return nil
}

func ScanWatchAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	collector := &batchCollector{}
	q := newQueue(cmd, app, collector)
	ing := ingest.NewFSIngestor(q, app.Logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		q.Shutdown(shutdownCtx)
	}()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cmd.StringSlice("dir"),
		InitialScan: cmd.Bool("initial"),
		SkipHidden:  true,
		Debounce:    cmd.Duration("debounce"),
		Logger:      app.Logger,
	})
	if err != nil {
		return err
	}
	printf(cmd, "Watching %v, press Ctrl+C to stop.\n", cmd.StringSlice("dir"))
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := ing.IngestPath(ctx, p); err != nil && !errors.Is(err, context.Canceled) {
				app.Logger.Warn("scan.watch.ingest_failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			app.Logger.Warn("scan.watch.error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
