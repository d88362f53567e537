package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/aretw0/sceneweaver/internal/presentation/graph"
	"github.com/aretw0/sceneweaver/internal/presentation/tui"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|scenario-id>",
	Short: "Check a scenario document against the store's rules",
	Long: `Reports missing titles, over-long labels, steps with too many choices and
choices pointing at unknown steps, without contacting the store for files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.ResolveDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			diags := document.Validate(doc)
			if cli.PrintDiagnostics(os.Stdout, diags) {
				return errors.New("validation failed")
			}
			fmt.Println(tui.Colorize("ok", "Scenario is valid! ✅"))
			return nil
		})
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout <file|scenario-id>",
	Short: "Compute the automatic layout of a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.ResolveDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ed, err := sceneweaver.FromDocument(cmd.Context(), doc, app.EditorOptions()...)
			if err != nil {
				return err
			}
			snap := ed.Snapshot()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tTITLE\tX\tY")
			for _, st := range snap.Steps {
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\n", st.ID, st.Title, st.Position.X, st.Position.Y)
			}
			return w.Flush()
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <file|scenario-id>",
	Short: "Export the scenario as a Mermaid flowchart",
	Long:  `Outputs a Mermaid diagram (graph TD). Steps that fail validation are highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.ResolveDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			overlay := &graph.Overlay{}
			seen := map[string]bool{}
			for _, d := range document.Validate(doc) {
				if d.StepID != "" && d.Severity == document.SeverityError && !seen[d.StepID] {
					seen[d.StepID] = true
					overlay.ErrorSteps = append(overlay.ErrorSteps, d.StepID)
				}
			}
			fmt.Print(graph.GenerateMermaid(doc, overlay))
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <file|scenario-id>",
	Short: "Render a scenario as formatted text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.ResolveDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := tui.NewRenderer()(tui.RenderScenario(doc))
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, layoutCmd, graphCmd, showCmd)
	layoutCmd.Flags().Bool("json", false, "Print the laid-out scenario as JSON")
}
