package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var verifyShowOrder bool

var verifyCmd = &cobra.Command{
	Use:   "verify <session-dir>",
	Short: "Check the manifests of an ingested session",
	Long: `Reconciles each scan's checksum manifest against its instance manifest
by filename, the way downstream loaders do, and reports missing, extra
and duplicated entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyShowOrder, "order", false, "print the (slice, echo) order of multi-echo scans")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifier == nil {
		return errors.New("verify service not configured")
	}

	report, err := verifier.Verify(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	st := newStyles(defaultTheme())
	cmd.Println(st.Title.Render("Exam " + report.ExamID))
	for _, scan := range report.Scans {
		status := st.Success.Render("ok")
		if !scan.OK() {
			status = st.Error.Render("MISMATCH")
		}
		cmd.Printf("  %-10s %s  %s files, %s instances\n",
			scan.Scan, status, count(scan.Files), count(scan.Instances))
		printList(cmd, "missing from instance manifest", scan.MissingInstances)
		printList(cmd, "not checksummed", scan.ExtraInstances)
		printList(cmd, "duplicated", scan.Duplicates)
		if verifyShowOrder && len(scan.Order) > 0 {
			printList(cmd, "order", scan.Order)
		}
	}

	if !report.OK() {
		return errors.New("session manifests are inconsistent")
	}
	cmd.Println("All manifests reconcile.")
	return nil
}

func printList(cmd *cobra.Command, label string, names []string) {
	if len(names) == 0 {
		return
	}
	cmd.Printf("    %s: %s\n", label, strings.Join(names, ", "))
}
