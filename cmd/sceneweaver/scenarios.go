package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/aretw0/sceneweaver/internal/presentation/tui"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			summaries, err := app.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No scenarios found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTEPS\tAUTHOR\tMODIFIED")
			for _, s := range summaries {
				author := s.CreatedBy.Username
				if author == "" {
					author = s.CreatedBy.ID
				}
				modified := "-"
				if !s.ModifiedAt.IsZero() {
					modified = s.ModifiedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Title, s.Steps, author, modified)
			}
			return w.Flush()
		})
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <scenario-id>",
	Short: "Download a scenario document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, err := outputFormat(cmd, output)
		if err != nil {
			return err
		}
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.Store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteDocumentFile(output, doc, format)
		})
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save a scenario document to the store",
	Long: `Checks the document locally, then saves it through an editor session: a
document without an id is created, one with an id updates that scenario.
Errors reported by the store are printed per step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			doc, err := cli.ReadDocumentFile(args[0])
			if err != nil {
				return err
			}
			if cli.PrintDiagnostics(os.Stderr, document.Validate(doc)) {
				return errors.New("document has errors, nothing was saved")
			}
			return pushDocument(cmd, app, doc)
		})
	},
}

func pushDocument(cmd *cobra.Command, app *cli.App, doc document.Document) error {
	ed, err := sceneweaver.FromDocument(cmd.Context(), doc, app.EditorOptions()...)
	if err != nil {
		return err
	}
	outcome, err := ed.Save(cmd.Context())
	if err != nil {
		return err
	}
	if outcome == domain.SaveRejected {
		printEditorErrors(ed.Snapshot())
		return errors.New("the store rejected the scenario")
	}
	cli.PrintSystemMessage(os.Stdout, "Scenario %s %s.", ed.Metadata().ID, outcome)
	return nil
}

func printEditorErrors(snap domain.Scenario) {
	for _, msg := range snap.GeneralErrors {
		fmt.Fprintln(os.Stderr, tui.Colorize("error", "scenario: "+msg))
	}
	for _, st := range snap.Steps {
		for _, msg := range st.Errors {
			fmt.Fprintln(os.Stderr, tui.Colorize("error", fmt.Sprintf("step %s (%s): %s", st.ID, st.Title, msg)))
		}
	}
}

var deleteCmd = &cobra.Command{
	Use:   "delete <scenario-id>",
	Short: "Delete a scenario from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			if err := app.Store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.PrintSystemMessage(os.Stdout, "Scenario %s deleted.", args[0])
			return nil
		})
	},
}

// outputFormat honours --format, falling back to the output file extension.
func outputFormat(cmd *cobra.Command, output string) (document.Format, error) {
	if cmd.Flags().Changed("format") {
		f, _ := cmd.Flags().GetString("format")
		return document.ParseFormat(f)
	}
	if output == "" || output == "-" {
		return document.FormatJSON, nil
	}
	return document.FormatFromPath(output), nil
}

func init() {
	rootCmd.AddCommand(listCmd, pullCmd, pushCmd, deleteCmd)

	pullCmd.Flags().StringP("output", "o", "", "Write the document to a file instead of stdout")
	pullCmd.Flags().String("format", "json", "Document format: json or yaml")
}
