package store

import (
	"fmt"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
)

// CheckTransition validates the CAS guard and the lifecycle edge. Both
// store implementations call it before committing anything.
func CheckTransition(current model.TransactionStatus, fromSet []model.TransactionStatus, to model.TransactionStatus) error {
	if !StatusIn(current, fromSet) {
		return fmt.Errorf("%w: status is %s, expected one of %v", ErrConflict, current, fromSet)
	}
	if !model.CanTransition(current, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}
	return nil
}

// ValidateCommit enforces record-level invariants on the mutated
// transaction just before it is written.
func ValidateCommit(tx *model.Transaction, to model.TransactionStatus) error {
	if tx.AmountOut != nil && tx.AmountFee == nil {
		return fmt.Errorf("%w: amount_out set before amount_fee is known", ErrInvalidTransition)
	}
	if to == model.StatusError && (tx.StatusMessage == nil || *tx.StatusMessage == "") {
		return fmt.Errorf("%w: error status requires a status message", ErrInvalidTransition)
	}
	return nil
}

// ApplyStatus stamps the new status and its timestamps onto tx.
func ApplyStatus(tx *model.Transaction, to model.TransactionStatus, now time.Time) {
	tx.Status = to
	tx.UpdatedAt = now
	if to == model.StatusRefunded {
		tx.Refunded = true
	}
	if to.IsTerminal() {
		t := now
		tx.CompletedAt = &t
	}
}

// StatusIn reports whether s is a member of set.
func StatusIn(s model.TransactionStatus, set []model.TransactionStatus) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}
