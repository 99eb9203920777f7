package query_test

import (
	"context"
	"testing"
	"time"

	"BankLedger/internal/persistence"
	"BankLedger/internal/query"
	"BankLedger/internal/testutil"
)

// ============================================================
// Integration: read-model queries (requires Postgres)
// ============================================================

func TestIntegration_QueryService(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := query.NewService(db)

	// Empty oplog and empty projections are trivially consistent.
	report, err := svc.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("verify integrity: %v", err)
	}
	if !report.IsHealthy {
		t.Errorf("empty store should be healthy: %+v", report)
	}

	const accrualTs = int64(1_700_000_000)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO projections.accounts (identity, available, savings, created_at, updated_seq)
		VALUES ('alice', 700, 300, $1, 5)
	`, accrualTs); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO projections.savings_positions (identity, principal, last_accrual_ts, updated_seq)
		VALUES ('alice', 10000, $1, 5)
	`, accrualTs); err != nil {
		t.Fatalf("seed savings: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		UPDATE projections.watermark SET last_sequence = 5 WHERE id = 1
	`); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	balance, err := svc.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Available != 700 || balance.Savings != 300 || balance.Total != 1000 {
		t.Errorf("balance: %+v", balance)
	}
	if balance.AsOfSequence != 5 {
		t.Errorf("as-of sequence: got %d, want 5", balance.AsOfSequence)
	}

	if _, err := svc.GetBalance(ctx, "nobody"); err != query.ErrNotFound {
		t.Errorf("unknown identity: got %v, want ErrNotFound", err)
	}

	// One year of simple interest at the savings rate on 10_000 is 500.
	const yearSeconds = 365 * 86_400
	savings, err := svc.GetSavings(ctx, "alice", accrualTs+yearSeconds)
	if err != nil {
		t.Fatalf("get savings: %v", err)
	}
	if savings.PendingInterest != 500 || savings.ProjectedTotal != 10_500 {
		t.Errorf("savings: %+v", savings)
	}
}
