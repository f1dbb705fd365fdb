package mapper

import (
	"errors"
	"fmt"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Document Reconciler
// ============================================================

// Store is the document the reconciler mutates.
type Store interface {
	ReadAll() []models.Entity
	// Add inserts an entity. An empty handle is replaced by a fresh one.
	Add(e models.Entity) models.Handle
	Delete(h models.Handle) error
	NewHandle() models.Handle
}

// Plan is every change a normalization run makes to a document.
type Plan struct {
	Delete []models.Handle
	Insert []models.Entity
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Insert) == 0
}

// Reconcile applies the plan in one pass: deletions first, then
// insertions in plan order. Repeated handles are deleted once. A missing
// handle does not stop the pass; all such failures are returned joined.
func Reconcile(store Store, plan Plan) ([]models.Handle, error) {
	var errs []error
	seen := make(map[models.Handle]struct{}, len(plan.Delete))
	for _, h := range plan.Delete {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if err := store.Delete(h); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", h, err))
		}
	}

	added := make([]models.Handle, 0, len(plan.Insert))
	for _, e := range plan.Insert {
		added = append(added, store.Add(e))
	}

	return added, errors.Join(errs...)
}
