package backup

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

// report is the view shared by the PDF, HTML and XLSX summaries.
type report struct {
	data   entity.BackupData
	groups []worktime.MonthGroup
}

func newReport(data entity.BackupData) report {
	return report{data: data, groups: worktime.GroupByMonth(data.Jobs)}
}

func (r report) title() string {
	if n := r.data.Metadata.TechnicianName; n != "" {
		return "TechTime backup - " + n
	}
	return "TechTime backup"
}

func (r report) totalsLine() string {
	return fmt.Sprintf("Total jobs: %d, total AWs: %s, total time: %s",
		r.data.Metadata.TotalJobs,
		formatAW(r.data.Metadata.TotalAWs),
		worktime.FormatAW(r.data.Metadata.TotalAWs))
}

func formatAW(aw float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", aw), "0"), ".")
}

func jobDate(j entity.Job) string {
	return j.DateCreated.Local().Format("02/01/2006")
}

// renderMarkdown builds the month-grouped summary as Markdown.
func renderMarkdown(r report) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", mdEscape(r.title()))
	fmt.Fprintf(&b, "Exported %s (app %s, format %s)\n\n",
		r.data.Timestamp.Local().Format("02/01/2006 15:04"), mdEscape(r.data.Metadata.AppVersion), r.data.Version)
	fmt.Fprintf(&b, "%s\n\n", r.totalsLine())
	if len(r.groups) == 0 {
		b.WriteString("No jobs recorded.\n")
	}
	for _, g := range r.groups {
		fmt.Fprintf(&b, "## %s\n\n", g.Label)
		fmt.Fprintf(&b, "%d jobs, %s AW, %s\n\n", len(g.Jobs), formatAW(g.TotalAWs), worktime.FormatAW(g.TotalAWs))
		b.WriteString("| Date | WIP | Registration | Job No | AW | Time | Notes |\n")
		b.WriteString("|---|---|---|---|---:|---:|---|\n")
		for _, j := range g.Jobs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				jobDate(j),
				mdEscape(j.WIPNumber),
				mdEscape(j.VehicleRegistration),
				mdEscape(j.JobNumber),
				formatAW(j.AWValue),
				worktime.FormatMinutes(j.TimeInMinutes),
				mdEscape(j.Notes))
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "<", "&lt;", ">", "&gt;")

func mdEscape(s string) string { return mdReplacer.Replace(s) }

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// renderHTML converts the Markdown summary into a standalone HTML page.
func renderHTML(r report) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(renderMarkdown(r), &body); err != nil {
		return nil, fmt.Errorf("html render: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", htmlEscape(r.title()))
	out.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:4px 8px}</style>\n")
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string { return htmlReplacer.Replace(s) }

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 24, "L"},
	{"WIP", 26, "L"},
	{"Registration", 30, "L"},
	{"Job No", 26, "L"},
	{"AW", 16, "R"},
	{"Time", 20, "R"},
	{"Notes", 48, "L"},
}

// renderPDF lays the month-grouped summary out on A4 pages.
func renderPDF(r report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.title(), true)
	pdf.SetCreator("techtime "+r.data.Metadata.AppVersion, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.title()), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Exported "+r.data.Timestamp.Local().Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(r.totalsLine()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(r.groups) == 0 {
		pdf.CellFormat(0, 6, "No jobs recorded.", "", 1, "L", false, 0, "")
	}
	for _, g := range r.groups {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s  (%d jobs, %s AW, %s)", g.Label, len(g.Jobs), formatAW(g.TotalAWs), worktime.FormatAW(g.TotalAWs))), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, c.title, "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, j := range g.Jobs {
			cells := []string{
				jobDate(j),
				j.WIPNumber,
				j.VehicleRegistration,
				j.JobNumber,
				formatAW(j.AWValue),
				worktime.FormatMinutes(j.TimeInMinutes),
				truncate(strings.ReplaceAll(j.Notes, "\n", " "), 30),
			}
			for i, c := range pdfColumns {
				pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

// renderXLSX writes a Jobs sheet with one row per job and a Summary sheet
// with one row per month.
func renderXLSX(r report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const jobsSheet = "Jobs"
	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", jobsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(jobsSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"Date", "Month", "WIP Number", "Registration", "Job Number", "AW", "Minutes", "Time", "Notes"}
	writeRow(f, jobsSheet, 1, toAny(headers))
	row := 2
	for _, g := range r.groups {
		for _, j := range g.Jobs {
			writeRow(f, jobsSheet, row, []any{
				j.DateCreated.Local().Format("2006-01-02"),
				g.Month,
				j.WIPNumber,
				j.VehicleRegistration,
				j.JobNumber,
				j.AWValue,
				j.TimeInMinutes,
				worktime.FormatMinutes(j.TimeInMinutes),
				truncate(j.Notes, 140),
			})
			row++
		}
	}

	writeRow(f, summarySheet, 1, toAny([]string{"Month", "Jobs", "AW", "Minutes", "Time"}))
	for i, g := range r.groups {
		mins := worktime.TimeInMinutes(g.TotalAWs)
		writeRow(f, summarySheet, i+2, []any{g.Label, len(g.Jobs), g.TotalAWs, mins, worktime.FormatMinutes(mins)})
	}

	_ = f.SetColWidth(jobsSheet, "A", "B", 12)
	_ = f.SetColWidth(jobsSheet, "C", "E", 16)
	_ = f.SetColWidth(jobsSheet, "F", "H", 10)
	_ = f.SetColWidth(jobsSheet, "I", "I", 48)
	_ = f.SetColWidth(summarySheet, "A", "A", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func backupBaseName(t time.Time) string {
	return filePrefix + t.Local().Format("2006-01-02-150405")
}
