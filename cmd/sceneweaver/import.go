package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/aretw0/sceneweaver/pkg/adapters/loam"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Build a scenario from a directory of step files",
	Long: `Reads one Markdown (or JSON/YAML) file per step. Frontmatter carries the
id, title, order, choices and location; the body becomes the description.
The assembled document is printed, written with -o, or saved with --push.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		output, _ := cmd.Flags().GetString("output")
		push, _ := cmd.Flags().GetBool("push")
		format, err := outputFormat(cmd, output)
		if err != nil {
			return err
		}

		return withApp(cmd, func(app *cli.App) error {
			repo, err := loam.Open(args[0], true, loam.WithLogger(app.Logger))
			if err != nil {
				return err
			}
			if title == "" {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				title = filepath.Base(abs)
			}
			doc, err := repo.Import(cmd.Context(), title)
			if err != nil {
				return err
			}
			if cli.PrintDiagnostics(os.Stderr, document.Validate(doc)) && push {
				return errors.New("imported document has errors, nothing was saved")
			}
			if push {
				return pushDocument(cmd, app, doc)
			}
			return cli.WriteDocumentFile(output, doc, format)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file|scenario-id> <dir>",
	Short: "Write a scenario as a directory of step files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			doc, err := app.ResolveDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(args[1], 0o755); err != nil {
				return err
			}
			repo, err := loam.Open(args[1], false, loam.WithLogger(app.Logger))
			if err != nil {
				return err
			}
			if err := repo.Export(cmd.Context(), doc); err != nil {
				return err
			}
			cli.PrintSystemMessage(os.Stdout, "Wrote %d steps to %s.", len(doc.Steps), args[1])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)

	importCmd.Flags().String("title", "", "Scenario title (defaults to the directory name)")
	importCmd.Flags().StringP("output", "o", "", "Write the document to a file instead of stdout")
	importCmd.Flags().String("format", "json", "Document format: json or yaml")
	importCmd.Flags().Bool("push", false, "Save the imported scenario to the store")
}
