// Package namespace provisions the per-organization storage namespaces.
//
// A namespace exists once it holds the init marker document. Names are
// produced by model.NamespaceName and are never validated here.
package namespace

import (
	"context"
	"errors"
	"sort"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
)

var (
	// ErrNotFound is returned by Rename when the source namespace is missing
	ErrNotFound = errors.New("namespace not found")
	// ErrConflict is returned by Rename when the target namespace already exists
	ErrConflict = errors.New("namespace already exists")
)

// Provisioner creates, relabels and removes organization namespaces
type Provisioner interface {
	// Create ensures the namespace exists and holds the init marker.
	// Calling it on an existing namespace is a no-op.
	Create(ctx context.Context, name string) error
	// Rename relabels a namespace atomically, keeping its documents.
	Rename(ctx context.Context, oldName, newName string) error
	// Drop removes a namespace and its documents. Dropping a missing namespace succeeds.
	Drop(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	// List returns the organization namespaces in name order.
	List(ctx context.Context) ([]string, error)
}

func organizationNamespaces(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if model.IsOrganizationNamespace(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
