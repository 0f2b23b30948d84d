//go:build integration

// Integration tests for the Postgres stores. They use TEST_DB_URL when set
// and otherwise start a throwaway postgres container through dockertest.
//
// Usage:
//
//	go test -v -race -tags integration ./internal/repository/...
package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/internal/service"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	databaseURL := os.Getenv("TEST_DB_URL")
	var (
		dockerPool *dockertest.Pool
		resource   *dockertest.Resource
	)

	if databaseURL == "" {
		var err error
		dockerPool, err = dockertest.NewPool("")
		if err != nil {
			log.Fatalf("Could not construct pool: %s", err)
		}
		if err := dockerPool.Client.Ping(); err != nil {
			log.Fatalf("Could not connect to Docker: %s", err)
		}

		resource, err = dockerPool.RunWithOptions(&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        "16-alpine",
			Env: []string{
				"POSTGRES_PASSWORD=testpass",
				"POSTGRES_USER=testuser",
				"POSTGRES_DB=giftlink_test",
				"listen_addresses='*'",
			},
		}, func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
		if err != nil {
			log.Fatalf("Could not start resource: %s", err)
		}
		_ = resource.Expire(120)

		databaseURL = fmt.Sprintf("postgres://testuser:testpass@%s/giftlink_test?sslmode=disable",
			resource.GetHostPort("5432/tcp"))
		dockerPool.MaxWait = 120 * time.Second
		if err := dockerPool.Retry(func() error {
			var err error
			testPool, err = pgxpool.New(context.Background(), databaseURL)
			if err != nil {
				return err
			}
			return testPool.Ping(context.Background())
		}); err != nil {
			log.Fatalf("Could not connect to database: %s", err)
		}
	} else {
		var err error
		testPool, err = database.NewPool(context.Background(), database.PoolConfig{DSN: databaseURL, MaxRetries: 5})
		if err != nil {
			log.Fatalf("Could not connect to database: %s", err)
		}
	}

	if err := database.RunMigrations(context.Background(), testPool, "up"); err != nil {
		log.Fatalf("Could not run migrations: %s", err)
	}

	code := m.Run()

	testPool.Close()
	if resource != nil {
		if err := dockerPool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}
	os.Exit(code)
}

func cleanupTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), "TRUNCATE TABLE credit_redemptions, gift_orders CASCADE")
	require.NoError(t, err)
}

func newPostgresStores() (*OrderRepository, *LedgerRepository) {
	ledger := NewLedgerRepository(testPool)
	return NewOrderRepository(testPool, ledger), ledger
}

// redeemable shifts an order's dates so it is live against the wall clock.
func redeemable(o *model.GiftOrder) *model.GiftOrder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	o.CreatedAt = now
	o.ExpiresAt = now.Add(model.OrderLifetime)
	return o
}

func TestPostgres_InsertAndRead(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	orders, _ := newPostgresStores()

	order := testCreditOrder("7b0c6f7e-5a43-4c39-9d0a-2f4d8a1e0c01", "ABC234", "tok-pg-1", 500000)
	require.NoError(t, orders.Insert(ctx, order))

	got, err := orders.GetByRedeemCode(ctx, "abc234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, order.Amount.Equal(got.Amount))
	assert.Equal(t, int64(500000), *got.CreditRemaining)

	dup := testCreditOrder("7b0c6f7e-5a43-4c39-9d0a-2f4d8a1e0c02", "ABC234", "tok-pg-2", 100)
	err = orders.Insert(ctx, dup)
	assert.True(t, errors.Is(err, service.ErrDuplicateKey))
}

func TestPostgres_ConcurrentCreditRedemption(t *testing.T) {
	cleanupTables(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, ledger := newPostgresStores()
	order := redeemable(testCreditOrder("1f7d0e4a-8c61-4c47-b0d3-5a9e2c6b7f10", "CRD234", "tok-race", 100000))
	require.NoError(t, orders.Insert(ctx, order))

	redemptions := service.NewRedemptionService(orders, nil)
	staff := service.Staff{MerchantID: "m-1", MerchantUserID: "u-1"}

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := redemptions.RedeemCredit(ctx, staff, "CRD234", 30000, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient, other int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrInsufficientBalance):
			insufficient++
		default:
			other++
			t.Logf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, insufficient)
	assert.Zero(t, other)

	got, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), *got.CreditRemaining)

	entries, err := ledger.ListForOrder(ctx, order.ID)
	require.NoError(t, err)
	var sum int64
	for _, e := range entries {
		sum += e.AmountDeducted
	}
	assert.Equal(t, *got.CreditAmount-*got.CreditRemaining, sum)
}

func TestPostgres_ConcurrentItemRedemption(t *testing.T) {
	cleanupTables(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, _ := newPostgresStores()
	order := redeemable(testItemOrder())
	order.ID = "c4d1a9e2-3b7f-4e58-9a60-1d2e3f4a5b6c"
	require.NoError(t, orders.Insert(ctx, order))

	redemptions := service.NewRedemptionService(orders, nil)
	staff := service.Staff{MerchantID: "m-1", MerchantUserID: "u-1"}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := redemptions.RedeemItem(ctx, staff, order.RedeemCode)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, finalized int
	for err := range results {
		if err == nil {
			ok++
		} else if errors.Is(err, service.ErrAlreadyFinalized) {
			finalized++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, finalized)

	got, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRedeemed, got.Status)
	assert.NotNil(t, got.RedeemedAt)
}

func TestPostgres_Mutate_CanceledDuringLockWait(t *testing.T) {
	cleanupTables(t)
	bgCtx := context.Background()
	orders, ledger := newPostgresStores()

	order := redeemable(testCreditOrder("5e6f7a8b-9c0d-4e1f-8a2b-3c4d5e6f7a8b", "LKW234", "tok-lock", 100000))
	require.NoError(t, orders.Insert(bgCtx, order))

	// Hold the row lock from a separate transaction
	holderTx, err := testPool.Begin(bgCtx)
	require.NoError(t, err)
	defer func() { _ = holderTx.Rollback(bgCtx) }()
	_, err = holderTx.Exec(bgCtx, "SELECT id FROM gift_orders WHERE id = $1 FOR UPDATE", order.ID)
	require.NoError(t, err)

	redemptions := service.NewRedemptionService(orders, nil)
	staff := service.Staff{MerchantID: "m-1", MerchantUserID: "u-1"}

	waitCtx, waitCancel := context.WithTimeout(bgCtx, 500*time.Millisecond)
	defer waitCancel()
	errCh := make(chan error, 1)
	go func() {
		_, _, err := redemptions.RedeemCredit(waitCtx, staff, order.RedeemCode, 40000, nil)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrInsufficientBalance)
	case <-time.After(3 * time.Second):
		t.Fatal("redemption should give up once its context expires")
	}

	require.NoError(t, holderTx.Rollback(bgCtx))

	got, err := orders.GetByID(bgCtx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), *got.CreditRemaining, "balance unchanged after canceled deduction")
	entries, err := ledger.ListForOrder(bgCtx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The pool is still usable once the lock is released
	_, entry, err := redemptions.RedeemCredit(bgCtx, staff, order.RedeemCode, 40000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), entry.AmountDeducted)
}

func TestPostgres_ListExpirable(t *testing.T) {
	cleanupTables(t)
	ctx := context.Background()
	orders, _ := newPostgresStores()

	due := testCreditOrder("9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d", "DUE234", "tok-due", 1000)
	live := redeemable(testCreditOrder("8b7c6d5e-4f3a-4b2c-9d1e-0f9a8b7c6d5e", "LVE234", "tok-live", 1000))
	require.NoError(t, orders.Insert(ctx, due))
	require.NoError(t, orders.Insert(ctx, live))

	ids, err := orders.ListExpirable(ctx, time.Now(), 10)

	require.NoError(t, err)
	assert.Equal(t, []string{due.ID}, ids)
}
