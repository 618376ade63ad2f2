package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/jobs"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

func jobCommand() *cli.Command {
	return &cli.Command{
		Name:  "job",
		Usage: "Manage recorded jobs",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Record a job",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "wip", Usage: "WIP number", Required: true},
					&cli.StringFlag{Name: "reg", Usage: "vehicle registration"},
					&cli.StringFlag{Name: "job-no", Usage: "job card number"},
					&cli.FloatFlag{Name: "aw", Usage: "allocated work units (1 AW = 5 minutes)", Required: true},
					&cli.StringFlag{Name: "notes", Usage: "free-text notes"},
				},
				Action: withApp(JobAddAction),
			},
			{
				Name:  "list",
				Usage: "List jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "month", Usage: "only jobs from YYYY-MM"},
				},
				Action: withApp(JobListAction),
			},
			{
				Name:  "edit",
				Usage: "Change fields of a job",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "job id", Required: true},
					&cli.StringFlag{Name: "wip", Usage: "WIP number"},
					&cli.StringFlag{Name: "reg", Usage: "vehicle registration"},
					&cli.StringFlag{Name: "job-no", Usage: "job card number"},
					&cli.FloatFlag{Name: "aw", Usage: "allocated work units"},
					&cli.StringFlag{Name: "notes", Usage: "free-text notes"},
				},
				Action: withApp(JobEditAction),
			},
			{
				Name:  "delete",
				Usage: "Delete a job",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "job id", Required: true},
				},
				Action: withApp(JobDeleteAction),
			},
			{
				Name:  "clear",
				Usage: "Delete every job",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm deleting all jobs"},
				},
				Action: withApp(JobClearAction),
			},
		},
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show progress against the monthly target",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "YYYY-MM (default: current month)"},
		},
		Action: withApp(SummaryAction),
	}
}

func JobAddAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	job, err := app.Jobs.Create(ctx, jobs.CreateJobRequest{
		WIPNumber:           cmd.String("wip"),
		VehicleRegistration: cmd.String("reg"),
		JobNumber:           cmd.String("job-no"),
		AWValue:             cmd.Float("aw"),
		Notes:               cmd.String("notes"),
	})
	if err != nil {
		return err
	}
	printf(cmd, "Job saved: %s (WIP %s, %s AW = %s)\n", job.ID, job.WIPNumber, fmt.Sprint(job.AWValue), worktime.FormatMinutes(job.TimeInMinutes))
	return nil
}

func JobListAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	list, err := app.Jobs.List(ctx, jobs.ListJobsRequest{Month: cmd.String("month")})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printf(cmd, "No jobs recorded.\n")
		return nil
	}
	for _, g := range worktime.GroupByMonth(list) {
		printf(cmd, "%s: %d jobs, %s AW, %s\n", g.Label, len(g.Jobs), fmt.Sprint(g.TotalAWs), worktime.FormatAW(g.TotalAWs))
		renderJobsTable(outWriter(cmd), g.Jobs)
	}
	return nil
}

func renderJobsTable(w io.Writer, list []entity.Job) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Date", "WIP", "Registration", "Job No", "AW", "Time", "Notes")
	for _, j := range list {
		table.Append(
			j.ID,
			j.DateCreated.Local().Format("2006-01-02 15:04"),
			j.WIPNumber,
			j.VehicleRegistration,
			j.JobNumber,
			fmt.Sprint(j.AWValue),
			worktime.FormatMinutes(j.TimeInMinutes),
			j.Notes,
		)
	}
	table.Render()
}

func JobEditAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	req := jobs.UpdateJobRequest{ID: cmd.String("id")}
	if cmd.IsSet("wip") {
		v := cmd.String("wip")
		req.WIPNumber = &v
	}
	if cmd.IsSet("reg") {
		v := cmd.String("reg")
		req.VehicleRegistration = &v
	}
	if cmd.IsSet("job-no") {
		v := cmd.String("job-no")
		req.JobNumber = &v
	}
	if cmd.IsSet("aw") {
		v := cmd.Float("aw")
		req.AWValue = &v
	}
	if cmd.IsSet("notes") {
		v := cmd.String("notes")
		req.Notes = &v
	}
	job, err := app.Jobs.Update(ctx, req)
	if err != nil {
		return err
	}
	printf(cmd, "Job updated: %s (WIP %s, %s)\n", job.ID, job.WIPNumber, worktime.FormatMinutes(job.TimeInMinutes))
	return nil
}

func JobDeleteAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if err := app.Jobs.Delete(ctx, cmd.String("id")); err != nil {
		return err
	}
	printf(cmd, "Job deleted.\n")
	return nil
}

func JobClearAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if !cmd.Bool("yes") {
		return common.InvalidArgumentErrorf("refusing to delete all jobs without --yes")
	}
	if err := app.Jobs.Clear(ctx); err != nil {
		return err
	}
	printf(cmd, "All jobs deleted.\n")
	return nil
}

func SummaryAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	s, err := app.Jobs.Dashboard(ctx, cmd.String("month"))
	if err != nil {
		return err
	}
	printf(cmd, "Month:      %s\n", s.Month)
	printf(cmd, "Jobs:       %d\n", s.JobCount)
	printf(cmd, "Total AW:   %s\n", fmt.Sprint(s.TotalAWs))
	printf(cmd, "Worked:     %s (%.2fh)\n", worktime.FormatMinutes(s.TotalMinutes), worktime.Hours(s.TotalMinutes))
	printf(cmd, "Target:     %s\n", worktime.FormatMinutes(s.TargetMinutes))
	printf(cmd, "Remaining:  %s\n", worktime.FormatMinutes(s.RemainingMinutes))
	printf(cmd, "Progress:   %.1f%%\n", s.PercentOfTarget)
	return nil
}
