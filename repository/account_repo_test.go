package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/custody_bot/model"
	"github.com/custody_bot/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "wallet.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	return db
}

type fakeKeygen struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeKeygen) GenerateKey() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return fmt.Sprintf("mnemonic-%d", g.calls), nil
}

func (g *fakeKeygen) DeriveAddress(mnemonic string) (string, error) {
	return "addr-" + mnemonic, nil
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()
	repo := repository.NewAccountRepository(testDB(t))
	gen := &fakeKeygen{}
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, 100, "testchain", gen)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Address)

	for range 5 {
		again, err := repo.GetOrCreate(ctx, 100, "testchain", gen)
		require.NoError(t, err)
		assert.Equal(t, first.Address, again.Address)
		assert.Equal(t, first.Mnemonic, again.Mnemonic)
	}
	assert.Equal(t, 1, gen.calls, "key generation must run exactly once")
}

func TestGetOrCreateConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	repo := repository.NewAccountRepository(db)
	gen := &fakeKeygen{}
	ctx := context.Background()

	const workers = 8
	addresses := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acct, err := repo.GetOrCreate(ctx, 7, "testchain", gen)
			errs[i] = err
			if err == nil {
				addresses[i] = acct.Address
			}
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, addresses[0], addresses[i], "all callers must converge on one account")
	}

	var count int64
	require.NoError(t, db.Model(&model.Account{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetDistinguishesNotFound(t *testing.T) {
	t.Parallel()
	repo := repository.NewAccountRepository(testDB(t))

	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountsArePerUser(t *testing.T) {
	t.Parallel()
	repo := repository.NewAccountRepository(testDB(t))
	gen := &fakeKeygen{}
	ctx := context.Background()

	a, err := repo.GetOrCreate(ctx, 1, "testchain", gen)
	require.NoError(t, err)
	b, err := repo.GetOrCreate(ctx, 2, "testchain", gen)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestListFiltersByChain(t *testing.T) {
	t.Parallel()
	repo := repository.NewAccountRepository(testDB(t))
	gen := &fakeKeygen{}
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, 1, "testchain", gen)
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, 2, "otherchain", gen)
	require.NoError(t, err)

	list, err := repo.List(ctx, "testchain")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].UserID)
}
