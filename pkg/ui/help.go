package ui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# chipview

Browse Philippine government contract awards and export them to CSV.

## Datasets

- **contracts** — individual awards matching the active filters
- **aggregated** — server-side rollups along a dimension (contractor,
  organization, area, category)

## Keys

| Key | Action |
|-----|--------|
| e | Export the current dataset from the server (streaming) |
| E | Export the rows already loaded in memory (client-side) |
| tab | Switch between contracts and aggregated |
| d | Cycle the aggregation dimension |
| / | Edit keyword filters |
| R | Reload the dataset |
| ? | Toggle this help |
| q | Quit |

## Exporting

Every export follows the same flow: chipview first asks the server (or the
resident dataset) how big the result would be, shows you the row count and
approximate size, and lets you narrow the rank range before anything is
written. Press **esc** at any point to cancel — a cancelled export leaves no
partial file behind.

Completed files land in the configured output directory as
` + "`<dataset>-<scope>-<timestamp>.csv`" + `. Press **c** on the completion
screen to copy the path.
`

// renderHelp renders the help markdown for the current terminal width.
// Falls back to the raw markdown if glamour cannot build a renderer.
func renderHelp(width int) string {
	if width <= 0 || width > 100 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
