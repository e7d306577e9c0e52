package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"penguindash/internal/config"
	"penguindash/internal/core"
	"penguindash/internal/dashboard"
	"penguindash/internal/logging"
	"penguindash/internal/views"
)

// Snapshot output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputText = "text"
)

func newSnapshotCommand() *cobra.Command {
	var (
		mass    float64
		species []string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the dashboard for one filter state",
		Long: `Apply the given controls to a fresh dashboard and print every output:
the count, the mean bill length and depth, the body mass histogram and the
table. Controls that are not given keep their defaults.`,
		Example: `  penguindash snapshot --mass 4000 --species Adelie,Gentoo
  penguindash snapshot --species= --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch output {
			case OutputJSON, OutputYAML, OutputText:
			default:
				return &ExitError{Code: ExitConfig, Err: fmt.Errorf("invalid output %q: must be one of json, yaml, text", output)}
			}

			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			ds, err := loadDataset(ctx, cfg)
			if err != nil {
				return err
			}

			var u core.Update
			if cmd.Flags().Changed("mass") {
				u.MassCeiling = &mass
			}
			if cmd.Flags().Changed("species") {
				u.Species = append([]string{}, species...)
			}
			var initial *core.Update
			if u.MassCeiling != nil || u.Species != nil {
				initial = &u
			}
			snap := newHub(cfg, ds, logging.FromContext(ctx), nil).Create(initial).Snapshot()

			return writeSnapshot(cmd.OutOrStdout(), output, cfg.Dashboard.Title, snap)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&mass, "mass", 6000, "body mass ceiling in grams")
	f.StringSliceVar(&species, "species", nil, "selected species (comma separated, empty for none)")
	f.StringVarP(&output, "output", "o", OutputText, "output format: json, yaml, text")
	f.Int("bins", 20, "histogram bin count")
	addDatasetFlags(cmd)
	return cmd
}

type snapshotDoc struct {
	Title   string     `yaml:"title"`
	Version uint64     `yaml:"version"`
	State   stateDoc   `yaml:"state"`
	Summary summaryDoc `yaml:"summary"`
	Chart   []binDoc   `yaml:"chart"`
	Columns []string   `yaml:"columns"`
	Rows    [][]any    `yaml:"rows"`
}

type stateDoc struct {
	Mass    float64  `yaml:"mass"`
	Species []string `yaml:"species"`
}

type summaryDoc struct {
	Count          int    `yaml:"count"`
	MeanBillLength string `yaml:"mean_bill_length"`
	MeanBillDepth  string `yaml:"mean_bill_depth"`
	MeanBodyMass   string `yaml:"mean_body_mass"`
}

type binDoc struct {
	Lower  float64        `yaml:"lower"`
	Upper  float64        `yaml:"upper"`
	Counts map[string]int `yaml:"counts"`
}

func newSnapshotDoc(title string, snap dashboard.Snapshot) snapshotDoc {
	doc := snapshotDoc{
		Title:   title,
		Version: snap.Version,
		State:   stateDoc{Mass: snap.State.MassCeiling, Species: snap.State.Species},
		Summary: summaryDoc{
			Count:          snap.Summary.Count,
			MeanBillLength: snap.Summary.Text.MeanBillLength,
			MeanBillDepth:  snap.Summary.Text.MeanBillDepth,
			MeanBodyMass:   snap.Summary.Text.MeanBodyMass,
		},
		Chart:   make([]binDoc, len(snap.Chart.Bins)),
		Columns: snap.Table.Columns,
		Rows:    snap.Table.Rows,
	}
	for i, bin := range snap.Chart.Bins {
		counts := make(map[string]int, len(snap.Chart.Series))
		for _, s := range snap.Chart.Series {
			counts[s.Species] = s.Counts[i]
		}
		doc.Chart[i] = binDoc{Lower: bin.Lower, Upper: bin.Upper, Counts: counts}
	}
	return doc
}

func writeSnapshot(w io.Writer, output, title string, snap dashboard.Snapshot) error {
	switch output {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newSnapshotDoc(title, snap)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderText(title, snap))
		return err
	}
}

func renderText(title string, snap dashboard.Snapshot) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(p.Sprintf("%s (version %d)\n", title, snap.Version))
	b.WriteString(p.Sprintf("Mass ceiling: %.0f g\n", snap.State.MassCeiling))
	selected := "none"
	if len(snap.State.Species) > 0 {
		selected = strings.Join(snap.State.Species, ", ")
	}
	b.WriteString(p.Sprintf("Species: %s\n\n", selected))

	b.WriteString(p.Sprintf("Number of penguins: %d\n", snap.Summary.Count))
	b.WriteString(p.Sprintf("Average bill length: %s\n", snap.Summary.Text.MeanBillLength))
	b.WriteString(p.Sprintf("Average bill depth: %s\n\n", snap.Summary.Text.MeanBillDepth))

	b.WriteString("Body mass distribution:\n")
	if snap.Chart.Total == 0 {
		b.WriteString("  " + views.Placeholder + "\n")
	}
	for i, bin := range snap.Chart.Bins {
		if snap.Chart.Total == 0 {
			break
		}
		parts := make([]string, 0, len(snap.Chart.Series))
		for _, s := range snap.Chart.Series {
			if s.Counts[i] > 0 {
				parts = append(parts, p.Sprintf("%s %d", s.Species, s.Counts[i]))
			}
		}
		if len(parts) == 0 {
			continue
		}
		b.WriteString(p.Sprintf("  %.0f-%.0f g: %s\n", bin.Lower, bin.Upper, strings.Join(parts, ", ")))
	}
	b.WriteString("\n")

	rows := make([][]string, len(snap.Table.Rows))
	for i, r := range snap.Table.Rows {
		row := make([]string, len(r))
		for j, cell := range r {
			row[j] = views.FormatCell(cell)
		}
		rows[i] = row
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(snap.Table.Columns...).
		Rows(rows...)
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}
