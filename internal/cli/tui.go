package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"penguindash/internal/config"
	"penguindash/internal/logging"
	"penguindash/internal/tui"
)

func newTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the dashboard in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			ds, err := loadDataset(ctx, cfg)
			if err != nil {
				return err
			}
			hub := newHub(cfg, ds, logging.FromContext(ctx), nil)
			model := tui.New(hub.Create(nil), tui.Options{
				Title: cfg.Dashboard.Title,
				Step:  cfg.TUI.Step,
			})

			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}

	f := cmd.Flags()
	f.Float64("step", 50, "slider step in grams")
	f.Int("bins", 20, "histogram bin count")
	addDatasetFlags(cmd)
	return cmd
}
