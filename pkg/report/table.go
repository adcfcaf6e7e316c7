package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const (
	colIDIndex = iota
	colNameIndex
	colTagsIndex
	colUpdatedIndex

	tableCols = 4

	nameWidth = 19
	tagsWidth = 40
	ellipsis  = "..."
	untagged  = "<none>"
)

func getPlanTableWriter(writer io.Writer) *tablewriter.Table {
	symbols := tw.NewSymbolCustom("Spaces").
		WithRow("").
		WithColumn(" ").
		WithTopLeft("").
		WithTopMid("").
		WithTopRight("").
		WithMidLeft("").
		WithCenter("").
		WithMidRight("").
		WithBottomLeft("").
		WithBottomMid("").
		WithBottomRight("")

	table := tablewriter.NewWriter(writer)

	table.Options(
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Symbols: symbols,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader:     tw.Off,
					ShowFooter:     tw.Off,
					BetweenRows:    tw.Off,
					BetweenColumns: tw.On,
				},
			},
		}),
		tablewriter.WithPadding(tw.Padding{
			Left:  "",
			Right: "",
		}),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
	)

	return table
}

func printPlanTableHeader(table *tablewriter.Table) {
	row := make([]string, tableCols)

	row[colIDIndex] = "ID"
	row[colNameIndex] = "NAME"
	row[colTagsIndex] = "TAGS"
	row[colUpdatedIndex] = "UPDATED"

	table.Append(row) //nolint:errcheck
}

// PrintPlan lists the versions a run selected, ages are relative to now.
func PrintPlan(writer io.Writer, candidates []types.PackageVersion, now time.Time) {
	if len(candidates) == 0 {
		fmt.Fprintln(writer, "no package versions selected")

		return
	}

	var builder strings.Builder

	table := getPlanTableWriter(&builder)
	printPlanTableHeader(table)

	for _, candidate := range candidates {
		tags := untagged
		if !candidate.IsUntagged() {
			tags = ellipsize(strings.Join(candidate.Tags, ","), tagsWidth, ellipsis)
		}

		row := make([]string, tableCols)
		row[colIDIndex] = strconv.FormatInt(candidate.ID, 10)
		row[colNameIndex] = ellipsize(candidate.Name, nameWidth, ellipsis)
		row[colTagsIndex] = tags
		row[colUpdatedIndex] = humanize.RelTime(candidate.UpdatedAt, now, "ago", "from now")

		table.Append(row) //nolint:errcheck
	}

	table.Render() //nolint:errcheck
	fmt.Fprint(writer, builder.String())
}

func ellipsize(text string, max int, trailing string) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}

	chopLength := len(trailing)

	return text[:max-chopLength] + trailing
}
