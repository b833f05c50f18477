package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brackwater/payrail/internal/merrors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entity  Entity
		current string
		target  string
		wantErr bool
	}{
		{name: "payment created to authorized", entity: Payment, current: "created", target: "authorized"},
		{name: "payment created to declined", entity: Payment, current: "created", target: "declined"},
		{name: "payment authorized to captured", entity: Payment, current: "authorized", target: "captured"},
		{name: "payment captured to settled", entity: Payment, current: "captured", target: "settled"},
		{name: "payment captured to chargeback", entity: Payment, current: "captured", target: "chargeback"},
		{name: "payment settled is terminal", entity: Payment, current: "settled", target: "captured", wantErr: true},
		{name: "payment skips state", entity: Payment, current: "created", target: "captured", wantErr: true},
		{name: "payment unknown current state", entity: Payment, current: "bogus", target: "authorized", wantErr: true},
		{name: "refund created to pending_approval", entity: Refund, current: "created", target: "pending_approval"},
		{name: "refund pending_approval to approved", entity: Refund, current: "pending_approval", target: "approved"},
		{name: "refund cannot skip to succeeded", entity: Refund, current: "pending_approval", target: "succeeded", wantErr: true},
		{name: "dispute opened to under_review", entity: Dispute, current: "opened", target: "under_review"},
		{name: "dispute under_review to won", entity: Dispute, current: "under_review", target: "won"},
		{name: "dispute cannot reopen from won", entity: Dispute, current: "won", target: "under_review", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entity, tt.current, tt.target)

			if tt.wantErr {
				assert.Error(t, err)
				assert.IsType(t, merrors.InvalidTransitionError{}, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(Payment, "settled"))
	assert.True(t, IsTerminal(Payment, "declined"))
	assert.True(t, IsTerminal(Payment, "reversed"))
	assert.True(t, IsTerminal(Payment, "chargeback"))
	assert.False(t, IsTerminal(Payment, "created"))
	assert.False(t, IsTerminal(Payment, "authorized"))

	assert.True(t, IsTerminal(Refund, "succeeded"))
	assert.True(t, IsTerminal(Refund, "failed"))
	assert.False(t, IsTerminal(Refund, "pending_approval"))

	assert.True(t, IsTerminal(Dispute, "won"))
	assert.True(t, IsTerminal(Dispute, "lost"))
	assert.False(t, IsTerminal(Dispute, "opened"))
}
