package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/solatis/rulebuilder/internal/rules"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a saved rule tree offline",
	Long: `Reads a rule tree in rule service JSON ("-" for stdin), prints the repaired
canonical tree to stdout and any repairs or validation problems to stderr.
Exits non-zero when the tree would be rejected on save.

With --record the valid tree is also evaluated locally against a JSON
object and the outcome is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var errInvalidRule = errors.New("rule tree is not valid")

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("record", "", "JSON object file to evaluate the rule against")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	root, repairs, err := tree.Decode(data)
	if err != nil {
		return err
	}

	out, err := tree.Marshal(root)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	stderr := cmd.ErrOrStderr()
	for _, r := range repairs {
		fmt.Fprintf(stderr, "repaired: %s\n", r)
	}
	stats := tree.Measure(root)
	messages := tree.Validate(root)
	for _, m := range messages {
		fmt.Fprintf(stderr, "invalid: %s\n", m)
	}
	fmt.Fprintf(stderr, "%d conditions, %d groups, depth %d\n", stats.Conditions, stats.Groups, stats.Depth)

	if len(messages) > 0 {
		return errInvalidRule
	}

	if recordFile, _ := cmd.Flags().GetString("record"); recordFile != "" {
		return evaluateRecord(cmd, root, recordFile)
	}
	return nil
}

func evaluateRecord(cmd *cobra.Command, root *types.Group, file string) error {
	data, err := readInput(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("record must be a JSON object: %w", err)
	}

	rule, err := rules.Compile(root)
	if err != nil {
		return err
	}
	res := rules.Evaluate(rule, record)

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "matched: %t (%d of %d conditions evaluated)\n", res.Matched, res.Evaluated, rule.Conditions)
	for _, m := range res.Matches {
		fmt.Fprintf(stderr, "  condition %s: %s = %v\n", tree.Label(m.At), m.Resolved, m.Value)
	}
	for _, p := range res.Missing {
		fmt.Fprintf(stderr, "  missing: %s\n", p)
	}
	return nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
