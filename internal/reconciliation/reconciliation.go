// Package reconciliation compares the ledger's captured/settled totals
// against the settlement CSV for a given day, grounded on
// ledger_jobs/reconciliation.py's ReconciliationJob.
package reconciliation

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store"
)

func settlementKey(date string) string { return "settlement/settlement_" + date + ".csv" }
func reportKey(date string) string     { return "reconciliation/reconciliation_report_" + date + ".json" }

const ledgerKey = "ledger/payments.jsonl"

// Mismatch records one payment_id whose ledger and settlement amounts
// disagree, or that is present in only one of the two sources.
type Mismatch struct {
	PaymentID        string `json:"payment_id"`
	LedgerAmount     *int64 `json:"ledger_amount"`
	SettlementAmount *int64 `json:"settlement_amount"`
	Diff             *int64 `json:"diff,omitempty"`
	Issue            string `json:"issue"`
}

// Report is the persisted outcome of one day's reconciliation run.
type Report struct {
	Date                   string     `json:"date"`
	Status                 string     `json:"status"` // "clean" or "mismatches_found"
	TotalLedger            int64      `json:"total_ledger"`
	TotalSettlement        int64      `json:"total_settlement"`
	Diff                   int64      `json:"diff"`
	Matched                int        `json:"matched"`
	Mismatched             int        `json:"mismatched"`
	MissingFromSettlement  int        `json:"missing_from_settlement"`
	MissingFromLedger      int        `json:"missing_from_ledger"`
	Mismatches             []Mismatch `json:"mismatches"`
	GeneratedAt            time.Time  `json:"generated_at"`
}

// Engine runs reconciliation and keeps the last report available for
// health checks without re-reading the store.
type Engine struct {
	store store.Store

	mu         sync.RWMutex
	lastReport *Report
}

// New builds an Engine.
func New(st store.Store) *Engine {
	return &Engine{store: st}
}

// Run executes Reconcile every interval until ctx is canceled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	logger := mlog.FromContext(ctx)
	logger.Infof("reconciliation job started (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		today := time.Now().UTC().Format("2006-01-02")
		if _, err := e.Reconcile(ctx, today); err != nil {
			logger.Errorf("reconciliation error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reconcile compares ledger totals against the settlement CSV for date
// and persists the resulting report.
func (e *Engine) Reconcile(ctx context.Context, date string) (Report, error) {
	logger := mlog.FromContext(ctx)

	raw, err := e.store.ReadJSONL(ctx, ledgerKey)
	if err != nil && err != store.ErrNotFound {
		return Report{}, err
	}

	ledgerAmounts := map[string]int64{}

	for _, r := range raw {
		var entry ledger.Entry
		if err := json.Unmarshal(r, &entry); err != nil {
			continue
		}

		if entry.Type == "payment.captured" || entry.Type == "payment.settled" {
			ledgerAmounts[entry.Ref] = entry.Amount
		}
	}

	rows, err := e.store.ReadCSV(ctx, settlementKey(date))
	if err != nil {
		return Report{}, err
	}

	settlementAmounts := map[string]int64{}

	for _, row := range rows {
		amt, _ := strconv.ParseInt(row["amount"], 10, 64)
		settlementAmounts[row["payment_id"]] = amt
	}

	allIDs := map[string]bool{}
	for id := range ledgerAmounts {
		allIDs[id] = true
	}

	for id := range settlementAmounts {
		allIDs[id] = true
	}

	var (
		matched, mismatched, missingFromSettlement, missingFromLedger int
		mismatches                                                    []Mismatch
	)

	for id := range allIDs {
		ledgerAmt, hasLedger := ledgerAmounts[id]
		settleAmt, hasSettle := settlementAmounts[id]

		switch {
		case !hasLedger:
			missingFromLedger++
			mismatches = append(mismatches, Mismatch{PaymentID: id, SettlementAmount: ptr(settleAmt), Issue: "missing_from_ledger"})
		case !hasSettle:
			missingFromSettlement++
			mismatches = append(mismatches, Mismatch{PaymentID: id, LedgerAmount: ptr(ledgerAmt), Issue: "missing_from_settlement"})
		case ledgerAmt != settleAmt:
			mismatched++
			diff := ledgerAmt - settleAmt
			mismatches = append(mismatches, Mismatch{
				PaymentID: id, LedgerAmount: ptr(ledgerAmt), SettlementAmount: ptr(settleAmt),
				Diff: &diff, Issue: "amount_mismatch",
			})
		default:
			matched++
		}
	}

	// Summed as decimal.Decimal rather than accumulated int64 so a long
	// day's worth of minor-unit amounts can't drift the running total —
	// the persisted report still carries plain integers.
	totalLedgerDec := decimal.Zero
	for _, v := range ledgerAmounts {
		totalLedgerDec = totalLedgerDec.Add(decimal.NewFromInt(v))
	}

	totalSettlementDec := decimal.Zero
	for _, v := range settlementAmounts {
		totalSettlementDec = totalSettlementDec.Add(decimal.NewFromInt(v))
	}

	diffDec := totalLedgerDec.Sub(totalSettlementDec)

	status := "clean"
	if len(mismatches) > 0 {
		status = "mismatches_found"
	}

	report := Report{
		Date:                  date,
		Status:                status,
		TotalLedger:           totalLedgerDec.IntPart(),
		TotalSettlement:       totalSettlementDec.IntPart(),
		Diff:                  diffDec.IntPart(),
		Matched:               matched,
		Mismatched:            mismatched,
		MissingFromSettlement: missingFromSettlement,
		MissingFromLedger:     missingFromLedger,
		Mismatches:            mismatches,
		GeneratedAt:           time.Now().UTC(),
	}

	if err := e.store.WriteJSON(ctx, reportKey(date), report); err != nil {
		return Report{}, err
	}

	e.mu.Lock()
	e.lastReport = &report
	e.mu.Unlock()

	logger.Infof("reconciliation %s: %d matched, %d mismatched, %d missing from settlement, %d missing from ledger",
		date, matched, mismatched, missingFromSettlement, missingFromLedger)

	return report, nil
}

// GetLastReport returns the most recently generated report, if any.
func (e *Engine) GetLastReport() (Report, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.lastReport == nil {
		return Report{}, false
	}

	return *e.lastReport, true
}

// IsHealthy reports whether the last reconciliation run found no
// mismatches. A missing report is not itself unhealthy — the job may
// simply not have run yet.
func (e *Engine) IsHealthy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.lastReport == nil || e.lastReport.Status == "clean"
}

func ptr(v int64) *int64 { return &v }
