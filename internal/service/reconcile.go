package service

import (
	"context"
	"fmt"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Adoption is an orphan namespace renamed into the namespace its record lost
type Adoption struct {
	From string
	To   string
}

// ReconcileReport describes what a Reconcile run found and repaired
type ReconcileReport struct {
	Organizations int
	// Adopted lists orphans renamed into a missing namespace.
	Adopted []Adoption
	// Recreated lists empty namespaces provisioned for records that had none.
	Recreated []string
	// Unresolved lists missing namespaces left alone because orphans exist
	// that could hold their documents.
	Unresolved []string
	// Orphans lists namespaces with no owning record.
	Orphans []string
	// Pruned lists the orphans that were dropped.
	Pruned []string
	// PruneHeld is set when pruning was requested but skipped because
	// Unresolved is not empty.
	PruneHeld bool
}

// Reconcile brings namespaces in line with the registry.
//
// A rename that fails after the registry write leaves the record pointing at
// a missing namespace and its documents in an orphan. When exactly one record
// lacks its namespace and exactly one orphan exists, the orphan is renamed into
// place. When records lack namespaces and no orphan exists, empty namespaces
// are created. Any other mix is left untouched and reported as unresolved, and
// no orphan is dropped until it is resolved. Orphans are otherwise reported and
// only dropped when prune is set. Run it while no lifecycle operation is in flight.
func (s *OrganizationService) Reconcile(ctx context.Context, prune bool) (*ReconcileReport, error) {
	prometheus.RecordOrganizationOperation("reconcile")

	orgs, err := s.registry.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	names, err := s.namespaces.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	owned := make(map[string]bool, len(orgs))
	var missing []*model.Organization
	for _, org := range orgs {
		owned[org.Namespace] = true
		if !present[org.Namespace] {
			missing = append(missing, org)
		}
	}
	var orphans []string
	for _, n := range names {
		if !owned[n] {
			orphans = append(orphans, n)
		}
	}

	report := &ReconcileReport{Organizations: len(orgs)}
	var errs error

	switch {
	case len(missing) == 1 && len(orphans) == 1:
		org, orphan := missing[0], orphans[0]
		if err := s.namespaces.Rename(ctx, orphan, org.Namespace); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("adopt namespace %s as %s: %w", orphan, org.Namespace, err))
			report.Unresolved = []string{org.Namespace}
			break
		}
		s.logger.Info("Adopted orphan namespace",
			zap.String("organization_id", org.ID),
			zap.String("from", orphan),
			zap.String("namespace", org.Namespace))
		report.Adopted = append(report.Adopted, Adoption{From: orphan, To: org.Namespace})
		orphans = nil

	case len(missing) > 0 && len(orphans) > 0:
		for _, org := range missing {
			report.Unresolved = append(report.Unresolved, org.Namespace)
		}
		s.logger.Warn("Records and orphan namespaces do not pair up, leaving both in place",
			zap.Strings("missing", report.Unresolved),
			zap.Strings("orphans", orphans))

	default:
		for _, org := range missing {
			if err := s.namespaces.Create(ctx, org.Namespace); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("recreate namespace %s: %w", org.Namespace, err))
				continue
			}
			s.logger.Info("Recreated missing namespace",
				zap.String("organization_id", org.ID),
				zap.String("namespace", org.Namespace))
			report.Recreated = append(report.Recreated, org.Namespace)
		}
	}

	report.Orphans = orphans
	if prune && len(report.Unresolved) > 0 && len(orphans) > 0 {
		report.PruneHeld = true
	}
	for _, n := range orphans {
		if !prune || report.PruneHeld {
			s.logger.Warn("Orphan namespace", zap.String("namespace", n))
			continue
		}
		if err := s.namespaces.Drop(ctx, n); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("drop namespace %s: %w", n, err))
			continue
		}
		s.logger.Info("Dropped orphan namespace", zap.String("namespace", n))
		report.Pruned = append(report.Pruned, n)
	}

	prometheus.UpdateReconcileGauges(report.Organizations, len(report.Orphans)-len(report.Pruned))

	if errs != nil {
		prometheus.RecordStoreInconsistency("reconcile")
		return report, newError(KindStoreInconsistency, "reconcile incomplete", errs)
	}
	return report, nil
}
