package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/chipview/internal/datasource"
	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/config"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
	"github.com/vanderheijden86/chipview/pkg/ui"
	"github.com/vanderheijden86/chipview/pkg/version"
	"github.com/vanderheijden86/chipview/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	baseURL := flag.String("base-url", "", "Backend base URL (overrides config)")
	outDir := flag.String("out", "", "Output directory for exports (overrides config)")
	headless := flag.Bool("headless", false, "Run the export wizard without the TUI")
	exportDataset := flag.String("export", "", "Headless: dataset to export (contracts|aggregated)")
	dimension := flag.String("dimension", "by_contractor", "Headless: aggregation dimension")
	keywords := flag.String("keywords", "", "Headless: comma-separated keyword filters")
	ranks := flag.String("ranks", "", "Headless: rank range as start-end (default: all)")
	yes := flag.Bool("yes", false, "Headless: skip the confirmation prompt")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: chipview [options]")
		fmt.Println("\nA TUI for browsing and exporting government contract awards.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("chipview %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if *baseURL != "" {
		cfg.Server.BaseURL = *baseURL
	}
	if *outDir != "" {
		cfg.Export.OutputDir = *outDir
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "."
	}

	client, err := api.NewClient(api.ClientConfig{
		BaseURL:         cfg.Server.BaseURL,
		EstimateTimeout: cfg.Server.EstimateTimeout,
		HeaderTimeout:   cfg.Server.HeaderTimeout,
		UserAgent:       "chipview/" + version.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	coord := export.NewCoordinator(export.Options{
		Client:    client,
		OutputDir: cfg.Export.OutputDir,
	})

	if *headless || cfg.UI.Headless || *exportDataset != "" {
		opts := wizardOptions{
			dataset:   *exportDataset,
			dimension: model.Dimension(*dimension),
			filters:   model.ChipFilters{Keywords: splitCSV(*keywords)},
			ranks:     *ranks,
			skip:      *yes,
		}
		if err := runHeadless(coord, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	loader := datasource.NewLoader(client, cfg.Export.PageSize)

	// Snapshot store and watcher are best-effort: the TUI works without them.
	var store *datasource.SnapshotStore
	var watch *watcher.Watcher
	if path := config.SnapshotPath(); path != "" {
		if store, err = datasource.OpenSnapshotStore(path); err != nil {
			debug.Log("snapshot store unavailable: %v", err)
			store = nil
		} else {
			defer store.Close()
			if watch, err = watcher.New(path); err == nil {
				if err := watch.Start(); err != nil {
					watch = nil
				} else {
					defer watch.Stop()
				}
			}
		}
	}

	m := ui.NewModel(ui.Deps{
		Config:  cfg,
		Client:  client,
		Coord:   coord,
		Loader:  loader,
		Store:   store,
		Watcher: watch,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// An export still running when the program exits is torn down here so no
	// partial file survives.
	coord.Cancel()
	time.Sleep(50 * time.Millisecond)
}

func splitCSV(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
