package model

// TransactionStatus is the lifecycle state of an anchor transaction.
// Statuses follow the SEP-6/24/31 vocabulary and only ever move forward
// through the successor graph below.
type TransactionStatus string

const (
	StatusIncomplete                TransactionStatus = "incomplete"
	StatusPendingUserTransferStart  TransactionStatus = "pending_user_transfer_start"
	StatusPendingAnchor             TransactionStatus = "pending_anchor"
	StatusPendingStellar            TransactionStatus = "pending_stellar"
	StatusPendingExternal           TransactionStatus = "pending_external"
	StatusPendingReceiver           TransactionStatus = "pending_receiver"
	StatusPendingSender             TransactionStatus = "pending_sender"
	StatusPendingTrust              TransactionStatus = "pending_trust"
	StatusPendingCustomerInfoUpdate TransactionStatus = "pending_customer_info_update"
	StatusCompleted                 TransactionStatus = "completed"
	StatusRefunded                  TransactionStatus = "refunded"
	StatusError                     TransactionStatus = "error"
)

func (s TransactionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether s admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusError:
		return true
	}
	return false
}

// statusSuccessors is the directed transition graph. Every Transition call
// is validated against it; workers cannot write an edge that is not here.
//
// pending_stellar is the submission claim state: a transaction is moved
// there immediately before an on-chain submission so that at most one
// worker ever submits it.
var statusSuccessors = map[TransactionStatus][]TransactionStatus{
	StatusIncomplete: {
		StatusPendingUserTransferStart,
		StatusPendingSender,
		StatusPendingCustomerInfoUpdate,
		StatusError,
	},
	StatusPendingUserTransferStart: {
		StatusPendingAnchor,
		StatusPendingCustomerInfoUpdate,
		StatusError,
	},
	StatusPendingCustomerInfoUpdate: {
		StatusPendingUserTransferStart,
		StatusPendingReceiver,
		StatusError,
	},
	StatusPendingSender: {
		StatusPendingReceiver,
		StatusPendingCustomerInfoUpdate,
		StatusError,
	},
	StatusPendingReceiver: {
		StatusCompleted,
		StatusPendingExternal,
		StatusPendingCustomerInfoUpdate,
		StatusRefunded,
		StatusError,
	},
	StatusPendingAnchor: {
		StatusPendingStellar,
		StatusPendingExternal,
		StatusPendingTrust,
		StatusCompleted,
		StatusRefunded,
		StatusError,
	},
	// pending_external is reachable again when a channel envelope goes
	// stale under collection and must be rebuilt for fresh signatures.
	StatusPendingStellar: {
		StatusCompleted,
		StatusPendingTrust,
		StatusPendingExternal,
		StatusError,
	},
	StatusPendingExternal: {
		StatusCompleted,
		StatusPendingStellar,
		StatusRefunded,
		StatusError,
	},
	StatusPendingTrust: {
		StatusPendingStellar,
		StatusCompleted,
		StatusError,
	},
	StatusCompleted: {},
	StatusRefunded:  {},
	StatusError:     {},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range statusSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns a copy of the allowed next statuses for s.
func Successors(s TransactionStatus) []TransactionStatus {
	next := statusSuccessors[s]
	out := make([]TransactionStatus, len(next))
	copy(out, next)
	return out
}

// AllStatuses lists every defined status. Used by validation and tests.
func AllStatuses() []TransactionStatus {
	return []TransactionStatus{
		StatusIncomplete,
		StatusPendingUserTransferStart,
		StatusPendingAnchor,
		StatusPendingStellar,
		StatusPendingExternal,
		StatusPendingReceiver,
		StatusPendingSender,
		StatusPendingTrust,
		StatusPendingCustomerInfoUpdate,
		StatusCompleted,
		StatusRefunded,
		StatusError,
	}
}
