package cmd

import (
	"fmt"
	"os"

	"thunderctl/internal/bootstrap"
	pkgstrings "thunderctl/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	stepsDir  string
	stepsSkip string
	stepsOnly string
)

// stepsCmd represents the steps command
var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the provisioning steps a bootstrap run would execute",
	Long: `Lists every step file discovered in the steps directory, in the order
a bootstrap run would execute them.

With --skip or --only the listing also shows which steps the filter
selects, without starting a server or touching any API.

Example usage:
  thunderctl steps                      # List all discovered steps
  thunderctl steps --steps ./my-steps   # List steps from another directory
  thunderctl steps --only 01-default    # Preview an --only filter
  thunderctl steps --skip sample        # Preview a --skip filter`,
	Args: cobra.NoArgs,
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)

	stepsCmd.Flags().StringVar(&stepsDir, "steps", bootstrap.GetDefaultStepsDir(), "Directory or file containing provisioning step files")
	stepsCmd.Flags().StringVar(&stepsSkip, "skip", "", "Preview which steps a skip pattern excludes")
	stepsCmd.Flags().StringVar(&stepsOnly, "only", "", "Preview which steps an only pattern selects")

	stepsCmd.MarkFlagsMutuallyExclusive("skip", "only")
}

func runSteps(cmd *cobra.Command, args []string) error {
	loader := bootstrap.NewStepLoader()

	steps, err := loader.LoadSteps(stepsDir)
	if err != nil {
		return fmt.Errorf("failed to load steps from %s: %w", stepsDir, err)
	}
	if len(steps) == 0 {
		fmt.Printf("⚠️  No step files found in %s\n", stepsDir)
		return nil
	}

	opts := bootstrap.RunOptions{Skip: stepsSkip, Only: stepsOnly}
	selected := make(map[string]bool)
	for _, step := range loader.FilterSteps(steps, opts) {
		selected[step.Source] = true
	}

	filtered := stepsSkip != "" || stepsOnly != ""
	renderStepListing(steps, selected, filtered)

	if filtered {
		fmt.Printf("\n%d of %d steps selected by filter\n", len(selected), len(steps))
	}
	return nil
}

// renderStepListing prints the discovered steps as a table, one row per step
// in execution order.
func renderStepListing(steps []bootstrap.Step, selected map[string]bool, filtered bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)

	header := table.Row{"#", "STEP", "RESOURCES", "TIMEOUT", "DESCRIPTION"}
	if filtered {
		header = append(header, "SELECTED")
	}
	t.AppendHeader(header)

	for i, step := range steps {
		timeout := "default"
		if step.Timeout > 0 {
			timeout = step.Timeout.String()
		}

		description := pkgstrings.TruncateDescription(step.Description, pkgstrings.DefaultDescriptionMaxLen)
		row := table.Row{i + 1, step.Name, len(step.Resources), timeout, description}
		if filtered {
			if selected[step.Source] {
				row = append(row, text.FgGreen.Sprint("yes"))
			} else {
				row = append(row, text.FgHiBlack.Sprint("no"))
			}
		}
		t.AppendRow(row)
	}

	t.Render()
}
