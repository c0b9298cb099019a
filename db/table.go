package db

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// renderTable writes rows under a header, left-aligned and unwrapped so view
// definitions print as stored.
func renderTable(w io.Writer, header []string, rows [][]string) {
	alignments := make([]int, len(header))
	for i := range alignments {
		alignments[i] = tablewriter.ALIGN_LEFT
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment(alignments)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}
