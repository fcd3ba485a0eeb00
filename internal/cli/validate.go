package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/standards"
	"github.com/modwiki/automod/internal/unicode"
	"github.com/modwiki/automod/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <rule-file.yaml>",
	Short: "Validate a rule document without publishing it",
	Long: `Validate parses and compiles a rule document exactly as automod would
on an "update" inbox command, reporting every section's validation error
without touching any community's published rule set. It also runs a
quick self-test of the Unicode evasion scanner against known homoglyph
and invisible-character tricks.

  automod validate ./my-rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: validateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateCommand(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	loader := ruleset.NewLoader(standards.New())
	conditions, err := loader.Load(string(raw))
	if verr, ok := err.(*validate.Error); ok {
		fmt.Printf("❌ %d condition(s) failed validation:\n", len(verr.Issues))
		for _, issue := range verr.Issues {
			fmt.Printf("  section %d: %s\n", issue.Section, issue.Message)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("compiling document: %w", err)
	}
	fmt.Printf("✅ %d condition(s) compiled without error\n", len(conditions))

	runUnicodeSelfTest()
	return nil
}

func runUnicodeSelfTest() {
	fmt.Println()
	fmt.Println("Unicode evasion scanner self-test:")

	cases := []struct {
		label string
		input string
		want  string
	}{
		{"Cyrillic homoglyph", "spаm for sale", "spam for sale"},
		{"zero-width space", "sp​am for sale", "spam for sale"},
		{"clean text", "totally normal comment", "totally normal comment"},
	}

	passed := 0
	for _, tc := range cases {
		got := unicode.Fold(tc.input)
		if got == tc.want {
			fmt.Printf("  ✅ %s\n", tc.label)
			passed++
		} else {
			fmt.Printf("  ❌ %s: folded to %q, want %q\n", tc.label, got, tc.want)
		}
	}
	fmt.Printf("\n  %d/%d passed\n", passed, len(cases))
}
