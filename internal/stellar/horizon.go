package stellar

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

const defaultHTTPTimeout = 30 * time.Second

// HorizonClient implements Client against a Horizon server over plain HTTP.
// Streaming uses Horizon's SSE endpoints directly.
type HorizonClient struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	logger       *slog.Logger
	limiter      *Limiter
}

var _ Client = (*HorizonClient)(nil)

func NewHorizonClient(baseURL string, logger *slog.Logger) *HorizonClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HorizonClient{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		// No client timeout on the stream; lifetime is bounded by ctx.
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger.With("component", "horizon"),
	}
}

// SetRateLimiter applies a rate limiter to non-streaming calls.
func (c *HorizonClient) SetRateLimiter(l *Limiter) {
	c.limiter = l
}

type horizonAccount struct {
	ID         string `json:"account_id"`
	Sequence   string `json:"sequence"`
	Thresholds struct {
		Low    int32 `json:"low_threshold"`
		Medium int32 `json:"med_threshold"`
		High   int32 `json:"high_threshold"`
	} `json:"thresholds"`
	Signers []struct {
		Key    string `json:"key"`
		Weight int32  `json:"weight"`
	} `json:"signers"`
	Balances []struct {
		AssetType   string `json:"asset_type"`
		AssetCode   string `json:"asset_code"`
		AssetIssuer string `json:"asset_issuer"`
		Balance     string `json:"balance"`
	} `json:"balances"`
}

func (c *HorizonClient) GetAccount(ctx context.Context, address string) (_ *Account, err error) {
	defer func() { recordCall("get_account", err) }()

	body, err := c.get(ctx, "/accounts/"+url.PathEscape(address))
	if err != nil {
		return nil, err
	}

	var raw horizonAccount
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", address, err)
	}

	seq, err := strconv.ParseInt(raw.Sequence, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse sequence %q: %w", raw.Sequence, err)
	}

	account := &Account{
		ID:       raw.ID,
		Sequence: seq,
		Thresholds: Thresholds{
			Low:    raw.Thresholds.Low,
			Medium: raw.Thresholds.Medium,
			High:   raw.Thresholds.High,
		},
	}
	for _, s := range raw.Signers {
		account.Signers = append(account.Signers, Signer{Key: s.Key, Weight: s.Weight})
	}
	for _, b := range raw.Balances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", b.Balance, err)
		}
		account.Balances = append(account.Balances, Balance{
			AssetType:   b.AssetType,
			AssetCode:   b.AssetCode,
			AssetIssuer: b.AssetIssuer,
			Balance:     amount,
		})
	}
	return account, nil
}

type horizonSubmitResponse struct {
	Hash   string `json:"hash"`
	Ledger int32  `json:"ledger"`
	Extras struct {
		ResultCodes struct {
			Transaction string   `json:"transaction"`
			Operations  []string `json:"operations"`
		} `json:"result_codes"`
	} `json:"extras"`
	Detail string `json:"detail"`
}

func (c *HorizonClient) SubmitEnvelope(ctx context.Context, envelopeXDR string) (_ *SubmitResult, err error) {
	defer func() { recordCall("submit_transaction", err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	form := url.Values{"tx": {envelopeXDR}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded horizonSubmitResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &SubmissionError{StatusCode: resp.StatusCode, Detail: string(respBody)}
		}
		return nil, fmt.Errorf("decode submit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &SubmissionError{
			StatusCode:      resp.StatusCode,
			TransactionCode: decoded.Extras.ResultCodes.Transaction,
			OperationCodes:  decoded.Extras.ResultCodes.Operations,
			Detail:          decoded.Detail,
		}
	}
	return &SubmitResult{Hash: decoded.Hash, Ledger: decoded.Ledger}, nil
}

type horizonPayment struct {
	ID                    string `json:"id"`
	PagingToken           string `json:"paging_token"`
	Type                  string `json:"type"`
	TransactionHash       string `json:"transaction_hash"`
	TransactionSuccessful bool   `json:"transaction_successful"`
	From                  string `json:"from"`
	To                    string `json:"to"`
	ToMuxedID             string `json:"to_muxed_id"`
	AssetType             string `json:"asset_type"`
	AssetCode             string `json:"asset_code"`
	AssetIssuer           string `json:"asset_issuer"`
	Amount                string `json:"amount"`
	CreatedAt             time.Time `json:"created_at"`
	Transaction           *struct {
		Memo     string `json:"memo"`
		MemoType string `json:"memo_type"`
	} `json:"transaction"`
}

func (c *HorizonClient) StreamPayments(ctx context.Context, account, cursor string, handler PaymentHandler) error {
	q := url.Values{"join": {"transactions"}}
	if cursor != "" {
		q.Set("cursor", cursor)
	} else {
		q.Set("cursor", "now")
	}
	endpoint := c.baseURL + "/accounts/" + url.PathEscape(account) + "/payments?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("open payment stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payment stream status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		// Horizon sends "hello"/"byebye" keepalive frames on SSE streams.
		if data == `"hello"` || data == `"byebye"` {
			continue
		}

		payment, err := parsePayment([]byte(data))
		if err != nil {
			c.logger.Warn("skipping undecodable stream event", "account", account, "error", err)
			continue
		}
		if payment == nil {
			continue
		}
		if err := handler(ctx, payment); err != nil {
			return fmt.Errorf("payment handler: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("payment stream read: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("payment stream for %s closed by server", account)
}

// parsePayment maps a Horizon operation record to a Payment. Non-payment
// operation types return nil.
func parsePayment(data []byte) (*model.Payment, error) {
	var raw horizonPayment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	if raw.Type != "payment" && raw.Type != "path_payment_strict_send" && raw.Type != "path_payment_strict_receive" {
		return nil, nil
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", raw.Amount, err)
	}

	p := &model.Payment{
		OperationID: raw.ID,
		PagingToken: raw.PagingToken,
		TxHash:      raw.TransactionHash,
		From:        raw.From,
		To:          raw.To,
		AssetType:   raw.AssetType,
		AssetCode:   raw.AssetCode,
		AssetIssuer: raw.AssetIssuer,
		Amount:      amount,
		Successful:  raw.TransactionSuccessful,
		CreatedAt:   raw.CreatedAt,
	}
	if raw.ToMuxedID != "" {
		muxedID, err := strconv.ParseUint(raw.ToMuxedID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse to_muxed_id %q: %w", raw.ToMuxedID, err)
		}
		p.ToMuxedID = &muxedID
	}
	if raw.Transaction != nil && raw.Transaction.Memo != "" {
		memo := raw.Transaction.Memo
		p.Memo = &memo
		p.MemoType = raw.Transaction.MemoType
	}
	return p, nil
}

func (c *HorizonClient) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("horizon %s: %w", path, ErrAccountNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
