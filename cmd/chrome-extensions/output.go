package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sudosubin/nix-chrome-extensions/internal/combine"
	"github.com/sudosubin/nix-chrome-extensions/internal/progress"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// logProgress forwards progress events to logger. Verbose events are logged
// at debug level; success events at info level with an ok attribute.
func logProgress(logger *slog.Logger) progress.Func {
	return func(e progress.Event) {
		switch e.Level {
		case progress.LevelVerbose:
			logger.Debug(e.Message)
		case progress.LevelWarning:
			logger.Warn(e.Message)
		case progress.LevelError:
			logger.Error(e.Message)
		case progress.LevelSuccess:
			logger.LogAttrs(context.Background(), slog.LevelInfo, e.Message, slog.Bool("ok", true))
		default:
			logger.Info(e.Message)
		}
	}
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	return tbl
}

func renderReport(w io.Writer, report *update.Report) {
	tbl := newTable(w)
	tbl.SetTitle(fmt.Sprintf("shard %s: %d extensions, %s downloaded", report.Shard, report.Items, downloaded(report)))
	tbl.AppendHeader(table.Row{"Site", "Checked", "Skipped", "New", "Changed", "Unchanged", "Failed"})

	sites := make([]string, 0, len(report.Sites))
	for site := range report.Sites {
		sites = append(sites, site)
	}
	slices.Sort(sites)

	for _, site := range sites {
		s := report.Sites[site]
		tbl.AppendRow(table.Row{site, s.Checked, s.Skipped, s.New, s.Changed, s.Unchanged, s.Failed})
	}

	t := report.Totals()
	tbl.AppendFooter(table.Row{"total", t.Checked, t.Skipped, t.New, t.Changed, t.Unchanged, t.Failed})
	tbl.Render()

	if len(report.Failures) > 0 {
		failed := newTable(w)
		failed.SetTitle("not updated")
		failed.AppendHeader(table.Row{"Site", "ID", "Error"})
		for _, f := range report.Failures {
			failed.AppendRow(table.Row{f.Site, f.ID, f.Error})
		}
		failed.Render()
	}
}

func renderSummary(w io.Writer, summary *combine.Summary) {
	tbl := newTable(w)
	tbl.SetTitle(fmt.Sprintf("combined %d shard files", summary.ShardFiles))
	tbl.AppendHeader(table.Row{"Site", "Records", "Duplicates"})

	records := 0
	for _, s := range summary.Sites {
		tbl.AppendRow(table.Row{s.Site, s.Records, s.Duplicates})
		records += s.Records
	}
	tbl.AppendFooter(table.Row{"total", records, ""})
	tbl.Render()

	if n := len(summary.FailedItems); n > 0 {
		ids := make([]string, 0, n)
		for _, f := range summary.FailedItems {
			ids = append(ids, f.Site+"/"+f.ID)
		}
		fmt.Fprintf(w, "not updated in this run: %s\n", strings.Join(ids, ", "))
	}
}
