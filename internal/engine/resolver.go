package engine

import (
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// Decision is the outcome of comparing an incoming change against the
// current state of its target record.
type Decision int

const (
	// DecisionApply writes the incoming payload to the store.
	DecisionApply Decision = iota
	// DecisionCreateInstead applies an UPDATE as a create because the
	// target record never arrived at this store.
	DecisionCreateInstead
	// DecisionConflict rejects the change; the stored record stays
	// untouched and the incoming payload is preserved for reconciliation.
	DecisionConflict
	// DecisionNoopSuccess reports success without touching storage
	// (deleting a record that is already gone).
	DecisionNoopSuccess
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionApply:
		return "apply"
	case DecisionCreateInstead:
		return "create_instead"
	case DecisionConflict:
		return "conflict"
	case DecisionNoopSuccess:
		return "noop_success"
	}
	return "unknown"
}

// Resolve decides whether an incoming change may be applied over the
// existing record (nil when absent).
//
// The policy is deliberately whole-record, two-way last-write-wins on a
// single timestamp: the change wins unless the stored record was modified
// strictly later than the change originated. There is no per-field merge
// and no causal history beyond this comparison.
func Resolve(existing *models.Record, op models.Operation, originTime time.Time) Decision {
	switch op {
	case models.OperationCreate:
		if existing != nil {
			return DecisionConflict
		}
		return DecisionApply

	case models.OperationUpdate:
		if existing == nil {
			return DecisionCreateInstead
		}
		if existing.UpdatedAt.After(originTime) {
			// The stored record is strictly newer than the incoming
			// change: the already-applied write wins.
			return DecisionConflict
		}
		return DecisionApply

	case models.OperationDelete:
		if existing == nil {
			return DecisionNoopSuccess
		}
		return DecisionApply
	}

	return DecisionConflict
}
