package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// wizardOptions collects the headless-mode flags.
type wizardOptions struct {
	dataset   string
	dimension model.Dimension
	filters   model.ChipFilters
	ranks     string
	skip      bool
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// runHeadless drives a single export through the coordinator without the
// TUI: estimate, confirm (interactively unless --yes), then stream with a
// plain-text progress line.
func runHeadless(coord *export.Coordinator, opts wizardOptions) error {
	var cfg *export.Config
	switch opts.dataset {
	case "", "contracts":
		cfg = export.NewContractsExport(opts.filters, 100)
	case "aggregated":
		cfg = export.NewAggregatedExport(opts.filters, opts.dimension, 100)
	default:
		return fmt.Errorf("unknown dataset %q (want contracts or aggregated)", opts.dataset)
	}

	if _, err := coord.Initiate(cfg); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Estimating export size…")

	for ev := range coord.Events() {
		switch ev := ev.(type) {
		case export.EstimateReadyEvent:
			snap, ok := coord.Snapshot()
			if !ok {
				continue
			}
			rng, proceed, err := confirmRange(snap, opts)
			if err != nil {
				coord.Cancel()
				return err
			}
			if !proceed {
				coord.Cancel()
				fmt.Fprintln(os.Stderr, "Export cancelled.")
				return nil
			}
			if err := coord.Confirm(rng); err != nil {
				return err
			}

		case export.ProgressEvent:
			printProgress(ev.Progress)

		case export.StateEvent:
			if !ev.State.Terminal() {
				continue
			}
			fmt.Fprintln(os.Stderr)
			snap, _ := coord.Snapshot()
			switch ev.State {
			case export.StateCompleted:
				fmt.Printf("Exported to %s\n", snap.OutputPath)
				return nil
			case export.StateCancelled:
				fmt.Fprintln(os.Stderr, "Export cancelled.")
				return nil
			case export.StateEmpty:
				fmt.Fprintln(os.Stderr, "Nothing to export for these filters.")
				return nil
			case export.StateFailed:
				if snap.Err != nil {
					return snap.Err
				}
				return fmt.Errorf("export failed")
			}
		}
	}
	return nil
}

// confirmRange resolves the rank range for the transfer: --ranks wins, --yes
// takes everything, otherwise a form asks.
func confirmRange(snap export.Session, opts wizardOptions) (export.RankRange, bool, error) {
	full := export.FullRange(snap.Estimate.Count)

	fmt.Fprintf(os.Stderr, "%d rows, about %d bytes\n", snap.Estimate.Count, snap.Estimate.Bytes)

	if opts.ranks != "" {
		rng, err := parseRanks(opts.ranks)
		if err != nil {
			return full, false, err
		}
		return rng, true, nil
	}
	if opts.skip {
		return full, true, nil
	}

	start := strconv.FormatInt(full.Start, 10)
	end := strconv.FormatInt(full.End, 10)
	proceed := true

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start rank").
				Value(&start),
			huh.NewInput().
				Title("End rank").
				Value(&end),
			huh.NewConfirm().
				Title("Start the export?").
				Value(&proceed).
				Affirmative("Export").
				Negative("Cancel"),
		),
	)
	if err := form.Run(); err != nil {
		return full, false, err
	}
	if !proceed {
		return full, false, nil
	}

	rng, err := parseRanks(start + "-" + end)
	if err != nil {
		return full, false, err
	}
	return rng, true, nil
}

func parseRanks(s string) (export.RankRange, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return export.RankRange{}, fmt.Errorf("bad rank range %q (want start-end)", s)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return export.RankRange{}, fmt.Errorf("bad start rank %q", parts[0])
	}
	end, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return export.RankRange{}, fmt.Errorf("bad end rank %q", parts[1])
	}
	return export.RankRange{Start: start, End: end}, nil
}

func printProgress(p export.Progress) {
	if p.BytesTotal > 0 {
		pct := float64(p.BytesDone) / float64(p.BytesTotal) * 100
		mark := ""
		if p.Approximate {
			mark = "~"
		}
		fmt.Fprintf(os.Stderr, "\r%s%.0f%% (%d rows, %d bytes)", mark, pct, p.RowsDone, p.BytesDone)
		return
	}
	fmt.Fprintf(os.Stderr, "\r%d rows, %d bytes", p.RowsDone, p.BytesDone)
}
