package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickyhof/ViewDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display()
	Write(w io.Writer)
}

// QueryResult is returned by DESCRIBE, SHOW and EXPLAIN.
type QueryResult struct {
	Transaction      ps.Transaction
	Columns          []string
	Data             [][]string
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

// CommitResult is returned by DDL. Transaction is empty when the catalog is
// not persisted or the statement changed nothing, as with IF EXISTS on a
// missing object.
type CommitResult struct {
	Transaction      ps.Transaction
	SchemasCreated   int
	SchemasDeleted   int
	TablesCreated    int
	TablesDeleted    int
	TablesAltered    int
	SequencesCreated int
	SequencesDeleted int
	ViewsCreated     int
	ViewsReplaced    int
	ViewsDeleted     int
	ExecutionTimeSec float64
	ExecutionOps     int
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func formatThroughput(secs float64, ops int) string {
	if secs <= 0 || ops <= 0 {
		return ""
	}
	rate := float64(ops) / secs
	if rate >= 1000000 {
		return fmt.Sprintf(", %.1fM ops/s", rate/1000000)
	} else if rate >= 1000 {
		return fmt.Sprintf(", %.1fK ops/s", rate/1000)
	}
	return fmt.Sprintf(", %.0f ops/s", rate)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display() {
	result.Write(os.Stdout)
}

func (result QueryResult) Write(w io.Writer) {
	if len(result.Data) > 0 {
		renderTable(w, result.Columns, result.Data)
	}
	fmt.Fprintf(w, "%d rows (%s%s)\n", result.RecordsRead, result.ExecutionTime(), formatThroughput(result.ExecutionTimeSec, result.ExecutionOps))
}

func (result CommitResult) Display() {
	result.Write(os.Stdout)
}

// Summary lists the objects the statement changed, or "OK" when it changed
// nothing.
func (result CommitResult) Summary() string {
	var parts []string

	counts := []struct {
		count int
		label string
	}{
		{result.SchemasCreated, "schema(s) created"},
		{result.SchemasDeleted, "schema(s) deleted"},
		{result.TablesCreated, "table(s) created"},
		{result.TablesDeleted, "table(s) deleted"},
		{result.TablesAltered, "table(s) altered"},
		{result.SequencesCreated, "sequence(s) created"},
		{result.SequencesDeleted, "sequence(s) deleted"},
		{result.ViewsCreated, "view(s) created"},
		{result.ViewsReplaced, "view(s) replaced"},
		{result.ViewsDeleted, "view(s) deleted"},
	}
	for _, c := range counts {
		if c.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.count, c.label))
		}
	}

	if len(parts) == 0 {
		return "OK"
	}
	return strings.Join(parts, ", ")
}

func (result CommitResult) Write(w io.Writer) {
	fmt.Fprintf(w, "%s (%s%s)\n", result.Summary(), result.ExecutionTime(), formatThroughput(result.ExecutionTimeSec, result.ExecutionOps))
}
