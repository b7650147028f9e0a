// Package scheduler triggers recurring subscription charges.
//
// The charge itself runs inside the server (POST /payments/toss/billing/charge)
// so that gateway calls, payment logs and subscription updates stay in one
// place. The scheduler only finds subscriptions whose period has ended and
// asks the server to bill each of them, authenticating with the cron secret.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// ChargePath is the server route that bills one subscription.
const ChargePath = "/payments/toss/billing/charge"

// cronSecretHeader must match handler.CronSecretHeader.
const cronSecretHeader = "X-Cron-Secret"

// DueLister returns the users whose subscriptions should be charged.
type DueLister interface {
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error)
}

// StoreLister reads due subscriptions straight from the database.
type StoreLister struct {
	q repository.Querier
}

// NewStoreLister wraps q.
func NewStoreLister(q repository.Querier) *StoreLister {
	return &StoreLister{q: q}
}

// ListDue returns users with an active subscription, a billing key and a
// period that ended at or before asOf.
func (l *StoreLister) ListDue(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := l.q.ListDueSubscriptions(ctx, repository.ListDueSubscriptionsParams{
		AsOf:  asOf,
		Limit: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

// Config configures a BillingRunner.
type Config struct {
	// BaseURL is the server's base URL, e.g. http://localhost:8080.
	BaseURL string

	// CronSecret authenticates the scheduler to the charge endpoint.
	CronSecret string

	// BatchSize caps how many subscriptions one run charges.
	BatchSize int

	// Concurrency caps in-flight charge requests.
	Concurrency int

	// Timeout applies to each charge request.
	Timeout time.Duration
}

// RunResult summarizes one run.
type RunResult struct {
	Due       int
	Charged   int
	Failed    int
	StartedAt time.Time
}

// BillingRunner charges every due subscription once per run.
type BillingRunner struct {
	lister DueLister
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewBillingRunner creates a runner. client may be nil.
func NewBillingRunner(lister DueLister, cfg Config, client *http.Client, logger *slog.Logger) *BillingRunner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &BillingRunner{
		lister: lister,
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Run charges all subscriptions due now. A failed charge is logged and
// counted; it does not stop the run. The server has already written a
// failed payment log for it, and the subscription stays due so the next
// run retries with a new order id.
func (r *BillingRunner) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{StartedAt: r.now()}

	due, err := r.lister.ListDue(ctx, res.StartedAt, r.cfg.BatchSize)
	if err != nil {
		return res, err
	}
	res.Due = len(due)
	if res.Due == 0 {
		r.logger.Info("no subscriptions due")
		return res, nil
	}

	var charged, failed atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Concurrency)
	for _, userID := range due {
		eg.Go(func() error {
			if err := r.charge(egCtx, userID); err != nil {
				failed.Add(1)
				r.logger.Warn("subscription charge failed", "user_id", userID, "error", err)
				return nil
			}
			charged.Add(1)
			return nil
		})
	}
	// Workers never return errors; only ctx cancellation can end the run early.
	_ = eg.Wait()

	res.Charged = int(charged.Load())
	res.Failed = int(failed.Load())
	r.logger.Info("billing run finished",
		"due", res.Due,
		"charged", res.Charged,
		"failed", res.Failed,
		"duration", time.Since(res.StartedAt),
	)
	return res, ctx.Err()
}

type chargeRequest struct {
	UserID string `json:"userId"`
}

type chargeResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (r *BillingRunner) charge(ctx context.Context, userID uuid.UUID) error {
	body, err := json.Marshal(chargeRequest{UserID: userID.String()})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+ChargePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(cronSecretHeader, r.cfg.CronSecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	var out chargeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("decode charge response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return fmt.Errorf("charge returned %d: %s %s", resp.StatusCode, out.Code, out.Error)
	}

	r.logger.Info("subscription charged", "user_id", userID, "order_id", out.OrderID, "amount", out.Amount)
	return nil
}
