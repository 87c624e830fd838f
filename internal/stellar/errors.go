package stellar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAccountNotFound is returned when Horizon has no record of the account,
// either because it was never funded or because it has been merged.
var ErrAccountNotFound = errors.New("stellar: account not found")

// SubmissionError is a Horizon transaction rejection carrying the decoded
// result codes, so callers can distinguish a missing trustline from a
// malformed envelope from a transient node failure.
type SubmissionError struct {
	StatusCode      int
	TransactionCode string
	OperationCodes  []string
	Detail          string
}

func (e *SubmissionError) Error() string {
	if e.TransactionCode != "" {
		return fmt.Sprintf("horizon submission failed (%d): %s %v", e.StatusCode, e.TransactionCode, e.OperationCodes)
	}
	return fmt.Sprintf("horizon submission failed (%d): %s", e.StatusCode, e.Detail)
}

// NoTrust reports whether the rejection was caused by the destination
// missing a trustline for the asset.
func (e *SubmissionError) NoTrust() bool {
	for _, code := range e.OperationCodes {
		if code == "op_no_trust" {
			return true
		}
	}
	return false
}

// Retryable reports whether resubmitting the same envelope later could
// succeed. Timeouts and server-side failures are retryable; result-code
// rejections are not, with the exception of tx_too_late style expiry which
// needs a rebuild, not a retry.
func (e *SubmissionError) Retryable() bool {
	if e.StatusCode == http.StatusGatewayTimeout || e.StatusCode >= http.StatusInternalServerError {
		return true
	}
	return e.TransactionCode == "tx_insufficient_fee"
}

// BadSequence reports a sequence-number mismatch, which means the envelope
// must be rebuilt from a fresh sequence before resubmission.
func (e *SubmissionError) BadSequence() bool {
	return e.TransactionCode == "tx_bad_seq"
}

// ClassifyError buckets a Horizon call error for metrics.
func ClassifyError(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server error"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "network is unreachable") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}
