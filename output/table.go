// Package output renders scan results and operator messages to the
// terminal using go-pretty tables, the same rendering library and color
// conventions the teacher's CLI used.
package output

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"uiccscan/hexutil"
	"uiccscan/sim"
)

// Color styles
var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

// getTableStyle returns the default table style
func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

// newTable creates a new table writer with default settings
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	t.Style().Options.SeparateRows = false
	return t
}

// PrintReaderInfo prints the connected reader's name and ATR.
func PrintReaderInfo(readerName, atr string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("READER & CARD INFO")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 15},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})
	t.AppendRow(table.Row{"Reader", readerName})
	t.AppendRow(table.Row{"ATR", atr})
	t.Render()
}

// PrintReaderList prints available readers as a table with one row per
// reader: the index as "[index]" in the first column and the reader name in
// the second. It does not print plain "index: name" lines.
func PrintReaderList(readers []string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("AVAILABLE SMART CARD READERS")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 8},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})

	if len(readers) == 0 {
		t.AppendRow(table.Row{"Status", colorWarn.Sprint("No readers found")})
	} else {
		for i, r := range readers {
			t.AppendRow(table.Row{fmt.Sprintf("[%d]", i), r})
		}
	}
	t.Render()
}

// PrintInventory renders the scanned file inventory: one row per discovered
// path with its type, structure, size, record layout, status, and SFI.
func PrintInventory(records []*sim.FileRecord) {
	fmt.Println()
	t := newTable()
	t.SetTitle("UICC FILE INVENTORY")
	t.AppendHeader(table.Row{"Path", "Type", "Structure", "Size", "Record", "Status", "SFI"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel},
		{Number: 2, Colors: colorValue},
		{Number: 3, Colors: colorValue},
		{Number: 4, Colors: colorValue},
		{Number: 5, Colors: colorValue},
		{Number: 6, Colors: colorValue},
		{Number: 7, Colors: colorValue},
	})

	for _, r := range records {
		recordCol := "-"
		if r.FileStructure == sim.StructureLinearFixed || r.FileStructure == sim.StructureCyclic {
			recordCol = fmt.Sprintf("%d x %d", r.RecordCount, r.RecordSize)
		}
		sfiCol := "-"
		if r.ShortFileID != nil {
			sfiCol = fmt.Sprintf("%02X", *r.ShortFileID)
		}
		t.AppendRow(table.Row{
			hexutil.SplitPath(r.AbsolutePath),
			r.FileType.String(),
			r.FileStructure.String(),
			r.FileSize,
			recordCol,
			r.Status.String(),
			sfiCol,
		})
	}
	t.Render()
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(colorError.Sprintf("✗ Error: %s", msg))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("✓ %s", msg))
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("⚠ %s", msg))
}
