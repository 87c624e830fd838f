package stellar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHorizonClient_GetAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/GDIST", r.URL.Path)
		fmt.Fprint(w, `{
			"account_id": "GDIST",
			"sequence": "4512341234",
			"thresholds": {"low_threshold": 1, "med_threshold": 2, "high_threshold": 3},
			"signers": [
				{"key": "GDIST", "weight": 1},
				{"key": "GSIGNER2", "weight": 1}
			],
			"balances": [
				{"asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "GISSUER", "balance": "105.5000000"},
				{"asset_type": "native", "balance": "20.0000000"}
			]
		}`)
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	account, err := client.GetAccount(context.Background(), "GDIST")
	require.NoError(t, err)

	assert.Equal(t, "GDIST", account.ID)
	assert.Equal(t, int64(4512341234), account.Sequence)
	assert.Equal(t, int32(2), account.Thresholds.Medium)
	assert.Equal(t, int32(1), account.MasterWeight())
	assert.True(t, account.HasTrustline("USDC", "GISSUER"))
	assert.False(t, account.HasTrustline("EURC", "GISSUER"))
}

func TestHorizonClient_GetAccount_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status": 404}`)
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	_, err := client.GetAccount(context.Background(), "GMISSING")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestHorizonClient_SubmitEnvelope_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "AAAA-envelope", r.PostFormValue("tx"))
		fmt.Fprint(w, `{"hash": "abc123", "ledger": 99}`)
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	result, err := client.SubmitEnvelope(context.Background(), "AAAA-envelope")
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.Hash)
	assert.Equal(t, int32(99), result.Ledger)
}

func TestHorizonClient_SubmitEnvelope_ResultCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{
			"detail": "transaction failed",
			"extras": {"result_codes": {"transaction": "tx_failed", "operations": ["op_no_trust"]}}
		}`)
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	_, err := client.SubmitEnvelope(context.Background(), "AAAA-envelope")
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "tx_failed", subErr.TransactionCode)
	assert.True(t, subErr.NoTrust())
	assert.False(t, subErr.Retryable())
	assert.False(t, subErr.BadSequence())
}

func TestHorizonClient_SubmitEnvelope_ServerErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		fmt.Fprint(w, `{"detail": "timeout"}`)
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	_, err := client.SubmitEnvelope(context.Background(), "AAAA-envelope")
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.True(t, subErr.Retryable())
}

func TestHorizonClient_StreamPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/GDIST/payments", r.URL.Path)
		assert.Equal(t, "8589934592", r.URL.Query().Get("cursor"))
		assert.Equal(t, "transactions", r.URL.Query().Get("join"))

		fmt.Fprint(w, "data: \"hello\"\n\n")
		fmt.Fprint(w, `data: {"id": "op1", "paging_token": "8589934593", "type": "payment", "transaction_hash": "hash1", "transaction_successful": true, "from": "GUSER", "to": "GDIST", "asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "GISSUER", "amount": "50.0000000", "created_at": "2026-08-29T10:00:00Z", "transaction": {"memo": "AAAAmemo", "memo_type": "hash"}}`+"\n\n")
		fmt.Fprint(w, `data: {"id": "op2", "paging_token": "8589934594", "type": "create_account", "account": "GNEW"}`+"\n\n")
		fmt.Fprint(w, `data: {"id": "op3", "paging_token": "8589934595", "type": "payment", "transaction_hash": "hash2", "transaction_successful": true, "from": "GUSER", "to": "GDIST", "to_muxed_id": "12345", "asset_type": "credit_alphanum4", "asset_code": "USDC", "asset_issuer": "GISSUER", "amount": "7.5000000", "created_at": "2026-08-29T10:01:00Z"}`+"\n\n")
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)

	var seen []*model.Payment
	err := client.StreamPayments(context.Background(), "GDIST", "8589934592", func(_ context.Context, p *model.Payment) error {
		seen = append(seen, p)
		return nil
	})
	// Server closed the stream without a cancel, which is an error to
	// trigger the caller's reconnect.
	require.Error(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "op1", seen[0].OperationID)
	assert.True(t, seen[0].Amount.Equal(decimal.RequireFromString("50")))
	require.NotNil(t, seen[0].Memo)
	assert.Equal(t, "AAAAmemo", *seen[0].Memo)
	assert.Equal(t, "hash", seen[0].MemoType)

	assert.Equal(t, "op3", seen[1].OperationID)
	require.NotNil(t, seen[1].ToMuxedID)
	assert.Equal(t, uint64(12345), *seen[1].ToMuxedID)
	assert.Nil(t, seen[1].Memo)
}

func TestHorizonClient_StreamPayments_HandlerErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"id": "op1", "paging_token": "1", "type": "payment", "transaction_hash": "h", "transaction_successful": true, "from": "GUSER", "to": "GDIST", "asset_type": "native", "amount": "1.0000000", "created_at": "2026-08-29T10:00:00Z"}`+"\n\n")
	}))
	defer srv.Close()

	client := NewHorizonClient(srv.URL, nil)
	handlerErr := fmt.Errorf("boom")
	err := client.StreamPayments(context.Background(), "GDIST", "", func(_ context.Context, _ *model.Payment) error {
		return handlerErr
	})
	assert.ErrorIs(t, err, handlerErr)
}

func TestParsePayment_BadAmount(t *testing.T) {
	_, err := parsePayment([]byte(`{"type": "payment", "amount": "not-a-number"}`))
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "ok", ClassifyError(nil))
	assert.Equal(t, "timeout", ClassifyError(fmt.Errorf("context deadline exceeded")))
	assert.Equal(t, "rate_limited", ClassifyError(fmt.Errorf("http status 429: too many requests")))
	assert.Equal(t, "server_error", ClassifyError(fmt.Errorf("http status 503")))
	assert.Equal(t, "network_error", ClassifyError(fmt.Errorf("dial tcp: connection refused")))
	assert.Equal(t, "client_error", ClassifyError(fmt.Errorf("decode account: unexpected token")))
}
