package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/sitesync/internal/models"
)

func TestResolve(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	existingAt := func(at time.Time) *models.Record {
		return &models.Record{
			TableName: "patients",
			UUID:      "rec-1",
			Payload:   map[string]any{"primer_nombre": "Ana"},
			UpdatedAt: at,
		}
	}

	tests := []struct {
		name       string
		existing   *models.Record
		op         models.Operation
		originTime time.Time
		want       Decision
	}{
		{
			name:       "create of absent record applies",
			existing:   nil,
			op:         models.OperationCreate,
			originTime: base,
			want:       DecisionApply,
		},
		{
			name:       "create over existing record conflicts",
			existing:   existingAt(base.Add(-time.Hour)),
			op:         models.OperationCreate,
			originTime: base,
			want:       DecisionConflict,
		},
		{
			name:       "update of absent record becomes create",
			existing:   nil,
			op:         models.OperationUpdate,
			originTime: base,
			want:       DecisionCreateInstead,
		},
		{
			name:       "update newer than stored record applies",
			existing:   existingAt(base.Add(-time.Hour)),
			op:         models.OperationUpdate,
			originTime: base,
			want:       DecisionApply,
		},
		{
			name:       "update older than stored record conflicts",
			existing:   existingAt(base.Add(time.Hour)),
			op:         models.OperationUpdate,
			originTime: base,
			want:       DecisionConflict,
		},
		{
			name:       "update with equal timestamps applies",
			existing:   existingAt(base),
			op:         models.OperationUpdate,
			originTime: base,
			want:       DecisionApply,
		},
		{
			name:       "update one millisecond older conflicts",
			existing:   existingAt(base.Add(time.Millisecond)),
			op:         models.OperationUpdate,
			originTime: base,
			want:       DecisionConflict,
		},
		{
			name:       "delete of absent record is a successful no-op",
			existing:   nil,
			op:         models.OperationDelete,
			originTime: base,
			want:       DecisionNoopSuccess,
		},
		{
			name:       "delete of existing record applies",
			existing:   existingAt(base.Add(-time.Hour)),
			op:         models.OperationDelete,
			originTime: base,
			want:       DecisionApply,
		},
		{
			name:       "unknown operation conflicts",
			existing:   nil,
			op:         models.Operation("MERGE"),
			originTime: base,
			want:       DecisionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.existing, tt.op, tt.originTime)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "apply", DecisionApply.String())
	assert.Equal(t, "create_instead", DecisionCreateInstead.String())
	assert.Equal(t, "conflict", DecisionConflict.String())
	assert.Equal(t, "noop_success", DecisionNoopSuccess.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
