package main

import (
	"fmt"
	"io"

	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair namespaces that drifted from the registry",
		Long: "Moves a lone orphan namespace into the place of the one organization that lost its " +
			"namespace, re-creates missing namespaces when no orphan exists, and reports namespaces " +
			"without an owning organization. Orphans are only dropped with --prune, and never while " +
			"an organization's namespace is unresolved. Run it while the API is not serving writes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.service.Reconcile(cmd.Context(), prune)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Drop namespaces that have no owning organization")
	return cmd
}

func printReport(w io.Writer, report *service.ReconcileReport) {
	_, _ = fmt.Fprintf(w, "organizations: %d\n", report.Organizations)
	for _, a := range report.Adopted {
		_, _ = fmt.Fprintf(w, "adopted: %s -> %s\n", a.From, a.To)
	}
	for _, n := range report.Recreated {
		_, _ = fmt.Fprintf(w, "recreated: %s\n", n)
	}
	for _, n := range report.Unresolved {
		_, _ = fmt.Fprintf(w, "unresolved: %s\n", n)
	}
	for _, n := range report.Orphans {
		_, _ = fmt.Fprintf(w, "orphan: %s\n", n)
	}
	for _, n := range report.Pruned {
		_, _ = fmt.Fprintf(w, "pruned: %s\n", n)
	}
	if report.PruneHeld {
		_, _ = fmt.Fprintln(w, "prune held: resolve missing namespaces first")
	}
}
