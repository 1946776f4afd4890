package gateway

import (
	"context"
	"fmt"
	"time"

	"cardroom/domain/interfaces"
	"cardroom/domain/services"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Reconciler runs the periodic background jobs: resolving payouts stuck
// awaiting gateway confirmation, and auditing cached balances against the
// ledger.
type Reconciler struct {
	payouts    *services.PayoutService
	uowFactory interfaces.UnitOfWorkFactory
	interval   time.Duration
	minAge     time.Duration
	scheduler  gocron.Scheduler
}

// NewReconciler creates a reconciler. minAge keeps the payout job away from
// withdrawals still in flight on the request path.
func NewReconciler(payouts *services.PayoutService, uowFactory interfaces.UnitOfWorkFactory, interval, minAge time.Duration) *Reconciler {
	return &Reconciler{
		payouts:    payouts,
		uowFactory: uowFactory,
		interval:   interval,
		minAge:     minAge,
	}
}

// Start schedules the jobs and runs them until Stop
func (r *Reconciler) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.reconcilePayouts),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule payout reconciliation: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.auditLedger),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule ledger audit: %w", err)
	}

	r.scheduler = scheduler
	scheduler.Start()
	log.WithField("interval", r.interval).Info("Reconciliation jobs started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs
func (r *Reconciler) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}

func (r *Reconciler) reconcilePayouts() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	if err := r.payouts.Reconcile(ctx, r.minAge); err != nil {
		log.WithError(err).Error("Payout reconciliation pass failed")
	}
}

func (r *Reconciler) auditLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin audit transaction")
		return
	}
	defer uow.Rollback()

	ledger := services.NewLedgerService(uow.Users(), uow.Ledger(), uow.Events())
	drifted, err := ledger.AuditAll(ctx)
	if err != nil {
		log.WithError(err).Error("Ledger audit failed")
		return
	}
	if len(drifted) > 0 {
		log.WithField("userIDs", drifted).Error("Cached balances drifted from ledger sums")
	}
}
