package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/custody_bot/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccountNotFound is returned by Get when the user has never funded an
// account. Callers treat it as an ordinary branch, not a fault.
var ErrAccountNotFound = errors.New("account not found")

// KeyGenerator produces fresh key material and derives its public address.
// Both ledger backends satisfy this.
type KeyGenerator interface {
	GenerateKey() (string, error)
	DeriveAddress(mnemonic string) (string, error)
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Get(ctx context.Context, userID int64) (*model.Account, error) {
	var acct model.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account for user %d: %w", userID, err)
	}
	return &acct, nil
}

// GetOrCreate returns the existing account for userID or creates one,
// generating key material exactly once. Concurrent first calls for the
// same user converge on a single row: the insert uses ON CONFLICT DO
// NOTHING on the user_id unique index, and a caller whose insert was
// skipped re-reads the winner's row and discards its own generated key.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64, chain string, gen KeyGenerator) (*model.Account, error) {
	if acct, err := r.Get(ctx, userID); err == nil {
		return acct, nil
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	mnemonic, err := gen.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	address, err := gen.DeriveAddress(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}

	acct := model.Account{
		UserID:   userID,
		Chain:    chain,
		Address:  address,
		Mnemonic: mnemonic,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&acct)
	if res.Error != nil {
		return nil, fmt.Errorf("create account for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		// lost the race, adopt the winner's account
		return r.Get(ctx, userID)
	}
	return &acct, nil
}

// List returns all accounts for the configured chain, used by the deposit
// watcher.
func (r *AccountRepository) List(ctx context.Context, chain string) ([]*model.Account, error) {
	var list []*model.Account
	if err := r.db.WithContext(ctx).Where("chain = ?", chain).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return list, nil
}
