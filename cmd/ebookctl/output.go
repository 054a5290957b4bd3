package main

import (
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// newTable returns a borderless, left-aligned table
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// statusText renders a status or ledger marker in its color
func statusText(s string) string {
	label := strings.ToUpper(s)
	switch domain.BookStatus(s) {
	case domain.StatusDone:
		return color.GreenString(label)
	case domain.StatusFailed:
		return color.RedString(label)
	case domain.StatusRunning:
		return color.CyanString(label)
	case domain.StatusCancelled:
		return color.HiBlackString(label)
	case domain.StatusQueued:
		return color.YellowString(label)
	}
	if s == "started" {
		return color.CyanString(label)
	}
	return label
}

// orDash substitutes "-" for empty cells
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// localTime renders a server instant in local time, or the raw text if unparseable
func localTime(s string) string {
	if s == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
