package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
)

const assetColumns = `
	id, code, issuer, distribution_account, distribution_seed_cipher,
	significant_decimals,
	deposit_enabled, withdrawal_enabled, send_enabled,
	deposit_fee_fixed, deposit_fee_percent, deposit_min_amount, deposit_max_amount,
	withdrawal_fee_fixed, withdrawal_fee_percent, withdrawal_min_amount, withdrawal_max_amount,
	send_fee_fixed, send_fee_percent, send_min_amount, send_max_amount,
	created_at, updated_at`

type AssetRepo struct {
	db *DB
}

func NewAssetRepo(db *DB) *AssetRepo {
	return &AssetRepo{db: db}
}

func (r *AssetRepo) GetByCode(ctx context.Context, code string) (*model.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE code = $1`, code)
	return scanAsset(row)
}

func (r *AssetRepo) ListEnabled(ctx context.Context) ([]*model.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE deposit_enabled OR withdrawal_enabled OR send_enabled
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list enabled assets: %w", err)
	}
	defer rows.Close()

	var out []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}

func (r *AssetRepo) Upsert(ctx context.Context, a *model.Asset) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (
			id, code, issuer, distribution_account, distribution_seed_cipher,
			significant_decimals,
			deposit_enabled, withdrawal_enabled, send_enabled,
			deposit_fee_fixed, deposit_fee_percent, deposit_min_amount, deposit_max_amount,
			withdrawal_fee_fixed, withdrawal_fee_percent, withdrawal_min_amount, withdrawal_max_amount,
			send_fee_fixed, send_fee_percent, send_min_amount, send_max_amount,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19, $20, $21, now(), now())
		ON CONFLICT (code) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			distribution_account = EXCLUDED.distribution_account,
			distribution_seed_cipher = EXCLUDED.distribution_seed_cipher,
			significant_decimals = EXCLUDED.significant_decimals,
			deposit_enabled = EXCLUDED.deposit_enabled,
			withdrawal_enabled = EXCLUDED.withdrawal_enabled,
			send_enabled = EXCLUDED.send_enabled,
			deposit_fee_fixed = EXCLUDED.deposit_fee_fixed,
			deposit_fee_percent = EXCLUDED.deposit_fee_percent,
			deposit_min_amount = EXCLUDED.deposit_min_amount,
			deposit_max_amount = EXCLUDED.deposit_max_amount,
			withdrawal_fee_fixed = EXCLUDED.withdrawal_fee_fixed,
			withdrawal_fee_percent = EXCLUDED.withdrawal_fee_percent,
			withdrawal_min_amount = EXCLUDED.withdrawal_min_amount,
			withdrawal_max_amount = EXCLUDED.withdrawal_max_amount,
			send_fee_fixed = EXCLUDED.send_fee_fixed,
			send_fee_percent = EXCLUDED.send_fee_percent,
			send_min_amount = EXCLUDED.send_min_amount,
			send_max_amount = EXCLUDED.send_max_amount,
			updated_at = now()
	`,
		a.ID, a.Code, a.Issuer, a.DistributionAccount, a.DistributionSeedCipher,
		a.SignificantDecimals,
		a.DepositEnabled, a.WithdrawalEnabled, a.SendEnabled,
		a.DepositFeeFixed, a.DepositFeePercent, a.DepositMinAmount, a.DepositMaxAmount,
		a.WithdrawalFeeFixed, a.WithdrawalFeePercent, a.WithdrawalMinAmount, a.WithdrawalMaxAmount,
		a.SendFeeFixed, a.SendFeePercent, a.SendMinAmount, a.SendMaxAmount,
	)
	if err != nil {
		return fmt.Errorf("upsert asset %s: %w", a.Code, err)
	}
	return nil
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	var a model.Asset
	err := row.Scan(
		&a.ID, &a.Code, &a.Issuer, &a.DistributionAccount, &a.DistributionSeedCipher,
		&a.SignificantDecimals,
		&a.DepositEnabled, &a.WithdrawalEnabled, &a.SendEnabled,
		&a.DepositFeeFixed, &a.DepositFeePercent, &a.DepositMinAmount, &a.DepositMaxAmount,
		&a.WithdrawalFeeFixed, &a.WithdrawalFeePercent, &a.WithdrawalMinAmount, &a.WithdrawalMaxAmount,
		&a.SendFeeFixed, &a.SendFeePercent, &a.SendMinAmount, &a.SendMaxAmount,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return &a, nil
}
