package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/custody_bot/handler"
	"github.com/custody_bot/model"
	"github.com/custody_bot/repository"
	"github.com/custody_bot/router"
	"github.com/custody_bot/service"
	"github.com/custody_bot/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubLedger struct {
	keys int
}

func (s *stubLedger) Chain() string { return "stubchain" }
func (s *stubLedger) Decimals() int { return 9 }

func (s *stubLedger) GenerateKey() (string, error) {
	s.keys++
	return fmt.Sprintf("mnemonic-%d", s.keys), nil
}

func (s *stubLedger) DeriveAddress(mnemonic string) (string, error) {
	return "acct:" + mnemonic, nil
}

func (s *stubLedger) ValidateAddress(string) error { return nil }

func (s *stubLedger) QueryBalance(context.Context, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (s *stubLedger) SubmitWithdrawal(context.Context, string, string, *big.Int) (string, error) {
	return "tx-stub", nil
}

func newTestServer(t *testing.T) (*gin.Engine, *service.WalletService, *stubLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "wallet.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))

	lc := &stubLedger{}
	svc := service.NewWalletService(
		repository.NewAccountRepository(db),
		lc,
		session.NewRegistry(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		time.Second,
	)
	return router.SetupRouter(handler.NewWalletHandler(svc)), svc, lc
}

func TestGetDepositAddressDoesNotCreateAccounts(t *testing.T) {
	r, svc, lc := newTestServer(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/address?userId=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, lc.keys, "a GET must not mint key material")

	dep, err := svc.Deposit(ctx, 1)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/address?userId=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dep.Address)
	assert.Equal(t, 1, lc.keys)
}

func TestGetDepositAddressRejectsBadUserID(t *testing.T) {
	r, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/address?userId=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBalanceUnknownUser(t *testing.T) {
	r, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/balance?userId=9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
