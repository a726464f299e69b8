package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mclog/mclog-go/pkg/mclog/rules"
)

var (
	// rules list flags
	listNoBuiltin bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate YAML rule files",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <files...>",
	Short: "Check rule files for errors",
	Long: `Load and compile rule files, reporting every file that fails.

Exits with status 1 if any file is invalid.

Example:
  mclog rules validate rules/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRulesValidate,
}

var rulesListCmd = &cobra.Command{
	Use:   "list [files...]",
	Short: "List the built-in rules and the rules of the given files",
	RunE:  runRulesList,
}

func init() {
	rulesListCmd.Flags().BoolVar(&listNoBuiltin, "no-builtin", false,
		"Do not list the built-in rules")

	rulesCmd.AddCommand(rulesValidateCmd, rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		p, err := rules.NewProcessorFromFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s, %d %s)\n", path, p.Identifier(), p.Len(), plural(p.Len(), "rule"))
	}
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	var files []*rules.RuleFile
	if !listNoBuiltin {
		rf, err := rules.Builtin()
		if err != nil {
			return err
		}
		files = append(files, rf)
	}
	paths := append(append([]string(nil), cfg.Analyze.Rules...), args...)
	for i, path := range paths {
		rf, err := rules.Load(path)
		if err != nil {
			return fmt.Errorf("rule file %d: %w", i+1, err)
		}
		files = append(files, rf)
	}
	return listRules(files, cmd.OutOrStdout())
}

// listRules prints one row per rule.
func listRules(files []*rules.RuleFile, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESSOR\tRULE\tTITLE\tCONDITIONS")
	for _, rf := range files {
		id := rf.ID
		if id == "" {
			id = rules.DefaultProcessorID
		}
		for _, r := range rf.Rules {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, r.ID, r.Title, ruleConditions(r))
		}
	}
	return tw.Flush()
}

func ruleConditions(r rules.Rule) string {
	var parts []string
	if r.Loader != "" {
		parts = append(parts, "loader="+string(r.Loader))
	}
	if len(r.Requires) > 0 {
		parts = append(parts, "requires="+strings.Join(r.Requires, ","))
	}
	if len(r.Causes) > 0 {
		parts = append(parts, fmt.Sprintf("causes=%d", len(r.Causes)))
	}
	if r.Advisory {
		parts = append(parts, "advisory")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
