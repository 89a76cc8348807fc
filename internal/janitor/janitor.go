// Package janitor runs the Message Delivery Engine's periodic sweeps of its
// two staging tables on their own ticker, independent of the accept loop
// (the redesign spec.md §9 calls for, replacing the original's
// sweep-between-accepts behavior).
package janitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaem-project/jaem-server/internal/logger"
	"github.com/jaem-project/jaem-server/internal/metrics"
	"github.com/jaem-project/jaem-server/mde/mailbox"
	"github.com/jaem-project/jaem-server/mde/share"
	"github.com/jaem-project/jaem-server/mde/staging"
)

// Janitor periodically sweeps the mailbox deletion-staging table and the
// share-GC staging table, each on its own ticker.
type Janitor struct {
	mailboxes      *mailbox.Store
	shares         *share.Store
	mailboxStaging *staging.Table
	shareStaging   *staging.Table
	mailboxGrace   time.Duration
	shareTTL       time.Duration
	sweepInterval  time.Duration
	log            logger.Logger
	now            func() time.Time
}

// New builds a Janitor. sweepInterval governs how often both tickers fire.
func New(mailboxes *mailbox.Store, shares *share.Store, mailboxStaging, shareStaging *staging.Table, mailboxGrace, shareTTL, sweepInterval time.Duration, log logger.Logger) *Janitor {
	if log == nil {
		log = logger.Default()
	}
	return &Janitor{
		mailboxes:      mailboxes,
		shares:         shares,
		mailboxStaging: mailboxStaging,
		shareStaging:   shareStaging,
		mailboxGrace:   mailboxGrace,
		shareTTL:       shareTTL,
		sweepInterval:  sweepInterval,
		log:            log,
		now:            time.Now,
	}
}

// Run blocks, sweeping both staging tables on sweepInterval, until ctx is
// canceled. Each sweep kind runs on its own goroutine inside an errgroup so
// a slow mailbox sweep never delays the share-GC sweep.
func (j *Janitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return j.loop(ctx, j.sweepMailboxes)
	})
	g.Go(func() error {
		return j.loop(ctx, j.sweepShares)
	})

	return g.Wait()
}

func (j *Janitor) loop(ctx context.Context, sweep func()) error {
	ticker := time.NewTicker(j.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sweep()
		}
	}
}

// sweepMailboxes invalidates grace windows only. The mailbox file itself is
// removed by the delete_messages handler once a valid deletion proof is
// presented; the callback here is nil so an expired grace window never
// deletes a mailbox a client simply hasn't gotten around to confirming yet.
func (j *Janitor) sweepMailboxes() {
	j.mailboxStaging.Sweep(j.now(), j.mailboxGrace, nil)
}

func (j *Janitor) sweepShares() {
	j.shareStaging.Sweep(j.now(), j.shareTTL, func(key []byte) error {
		slug := string(key)
		if err := j.shares.Delete(slug); err != nil {
			j.log.Error("janitor: failed to delete expired share", logger.Slug(slug), logger.Err(err))
			return err
		}
		j.log.Debug("share garbage-collected", logger.Slug(slug))
		return nil
	})
	metrics.MDEShareGCSweeps.Inc()
}
