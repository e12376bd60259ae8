package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"reddot-watch/newsdesk/internal/cluster"
	"reddot-watch/newsdesk/internal/fetch"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/process"
	"reddot-watch/newsdesk/internal/storage"
)

const titleWidth = 60

// column describes one table column. Numeric columns align right.
type column struct {
	header  string
	numeric bool
	wrap    int
}

func renderTable(w io.Writer, columns []column, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if c.numeric {
			configs[i].Align = text.AlignRight
		}
		if c.wrap > 0 {
			configs[i].WidthMax = c.wrap
			configs[i].WidthMaxEnforcer = text.Trim
		}
	}
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.SetColumnConfigs(configs)
	tw.Render()
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func printSources(w io.Writer, sources []models.Source) {
	rows := make([]table.Row, 0, len(sources))
	for _, s := range sources {
		fetched := "never"
		if s.LastFetchedAt.Valid {
			fetched = age(s.LastFetchedAt.Time)
		}
		active := "yes"
		if !s.Active {
			active = "no"
		}
		rows = append(rows, table.Row{s.ID, s.Name, s.Type, active, s.FailuresCount, fetched, s.URL})
	}
	renderTable(w, []column{
		{header: "ID", numeric: true},
		{header: "Name", wrap: 30},
		{header: "Type"},
		{header: "Active"},
		{header: "Failures", numeric: true},
		{header: "Fetched"},
		{header: "URL", wrap: titleWidth},
	}, rows)
}

func printFeedHealth(w io.Writer, health []fetch.FeedHealth) {
	rows := make([]table.Row, 0, len(health))
	stale := 0
	for _, h := range health {
		status := "ok"
		switch {
		case h.Error != "":
			status = h.ErrorClass
		case h.Stale():
			status = "stale"
			stale++
		}
		newest := "-"
		if h.Newest != nil {
			newest = age(*h.Newest)
		}
		rows = append(rows, table.Row{h.SourceID, h.Name, h.Recent, newest, status, h.URL})
	}
	renderTable(w, []column{
		{header: "ID", numeric: true},
		{header: "Name", wrap: 30},
		{header: "Recent", numeric: true},
		{header: "Newest"},
		{header: "Status"},
		{header: "URL", wrap: titleWidth},
	}, rows)
	fmt.Fprintf(w, "%d feeds checked, %d stale\n", len(health), stale)
}

func printIngestReport(w io.Writer, report *process.Report) {
	rows := make([]table.Row, 0, len(report.Sources))
	for _, o := range report.Sources {
		status := "ok"
		if o.Error != "" {
			status = o.ErrorClass
		}
		rows = append(rows, table.Row{o.Name, o.Type, o.Entries, o.Created, o.Duplicates, o.Filtered, status})
	}
	renderTable(w, []column{
		{header: "Source", wrap: 30},
		{header: "Type"},
		{header: "Entries", numeric: true},
		{header: "Created", numeric: true},
		{header: "Duplicates", numeric: true},
		{header: "Filtered", numeric: true},
		{header: "Status"},
	}, rows)
	fmt.Fprintf(w, "%s new items, %s duplicates, %s off-topic, %d failed sources\n",
		humanize.Comma(int64(report.Created)), humanize.Comma(int64(report.Duplicates)),
		humanize.Comma(int64(report.Filtered)), report.Failed)
	if len(report.SourcesCreated) > 0 {
		fmt.Fprintf(w, "Registered %d new sources\n", len(report.SourcesCreated))
	}
}

func printURLOutcomes(w io.Writer, outcomes []fetch.URLOutcome) {
	rows := make([]table.Row, 0, len(outcomes))
	for _, o := range outcomes {
		item := ""
		if o.ItemID > 0 {
			item = strconv.FormatInt(o.ItemID, 10)
		}
		rows = append(rows, table.Row{o.URL, o.Status, item, o.Reason})
	}
	renderTable(w, []column{
		{header: "URL", wrap: titleWidth},
		{header: "Status"},
		{header: "Item", numeric: true},
		{header: "Reason", wrap: 40},
	}, rows)
}

func printClusterResult(w io.Writer, result cluster.Result) {
	fmt.Fprintf(w, "%d clusters created, %d items linked\n", result.Created, result.Linked)
}

func printClusters(w io.Writer, clusters []models.ClusterSummary) {
	rows := make([]table.Row, 0, len(clusters))
	for _, c := range clusters {
		category := ""
		if c.Category != nil {
			category = *c.Category
		}
		rows = append(rows, table.Row{
			c.ID, c.Status, c.ItemCount, c.ContentCount, c.DraftCount, category, age(c.CreatedAt), c.TopicTitle,
		})
	}
	renderTable(w, []column{
		{header: "ID", numeric: true},
		{header: "Status"},
		{header: "Items", numeric: true},
		{header: "Briefs", numeric: true},
		{header: "Drafts", numeric: true},
		{header: "Category"},
		{header: "Created"},
		{header: "Topic", wrap: titleWidth},
	}, rows)
}

func printResetCounts(w io.Writer, counts storage.ResetCounts) {
	renderTable(w, []column{{header: "Table"}, {header: "Deleted", numeric: true}}, []table.Row{
		{"links", counts.Links},
		{"contents", counts.Contents},
		{"drafts", counts.Drafts},
		{"clusters", counts.Clusters},
		{"items", counts.Items},
		{"sources", counts.Sources},
	})
}
