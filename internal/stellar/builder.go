package stellar

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// SeedResolver returns the signing seed for a source account the engine
// controls, or an error when the account is not one of ours. Satisfied by
// the asset registry.
type SeedResolver interface {
	SeedFor(sourceAccount string) (string, error)
}

// PaymentBuilder builds payment envelopes with the Stellar SDK. Envelopes
// from a source we hold the seed for are signed; channel-account envelopes
// whose seeds live with an external signer are returned unsigned, to be
// completed out of band.
type PaymentBuilder struct {
	seeds             SeedResolver
	networkPassphrase string
	timeoutSeconds    int64
}

func NewPaymentBuilder(seeds SeedResolver, networkPassphrase string) *PaymentBuilder {
	return &PaymentBuilder{
		seeds:             seeds,
		networkPassphrase: networkPassphrase,
		timeoutSeconds:    300,
	}
}

var _ EnvelopeBuilder = (*PaymentBuilder)(nil)

func (b *PaymentBuilder) BuildPayment(_ context.Context, sourceAddress string, sequence int64, req PaymentRequest) (*Envelope, error) {
	memo, err := buildMemo(req)
	if err != nil {
		return nil, err
	}

	params := txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: sourceAddress,
			Sequence:  sequence,
		},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: req.Destination,
				Amount:      req.Amount.StringFixed(7),
				Asset:       txnbuild.CreditAsset{Code: req.AssetCode, Issuer: req.AssetIssuer},
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Memo:          memo,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(b.timeoutSeconds)},
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("build payment envelope: %w", err)
	}

	if seed, err := b.seeds.SeedFor(sourceAddress); err == nil {
		kp, err := keypair.ParseFull(seed)
		if err != nil {
			return nil, fmt.Errorf("parse seed for %s: %w", sourceAddress, err)
		}
		tx, err = tx.Sign(b.networkPassphrase, kp)
		if err != nil {
			return nil, fmt.Errorf("sign envelope: %w", err)
		}
	}

	xdr, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return &Envelope{XDR: xdr, SequenceNumber: sequence + 1}, nil
}

func buildMemo(req PaymentRequest) (txnbuild.Memo, error) {
	if req.Memo == "" {
		return nil, nil
	}
	switch req.MemoType {
	case model.MemoTypeText:
		return txnbuild.MemoText(req.Memo), nil
	case model.MemoTypeID:
		id, err := strconv.ParseUint(req.Memo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id memo %q is not an integer: %w", req.Memo, err)
		}
		return txnbuild.MemoID(id), nil
	case model.MemoTypeHash:
		raw, err := base64.StdEncoding.DecodeString(req.Memo)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("hash memo must be base64 of 32 bytes")
		}
		var hash txnbuild.MemoHash
		copy(hash[:], raw)
		return hash, nil
	default:
		return nil, fmt.Errorf("unsupported memo type %q", req.MemoType)
	}
}
