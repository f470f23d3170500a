package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/localstore"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/stamp"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=reconcile_test

type localStore interface {
	Load(key plan.Key) (*localstore.Record, error)
	Save(key plan.Key, data any) (int64, error)
	SaveStamped(key plan.Key, data any, lastModified int64) error
}

type remoteStore interface {
	Fetch(ctx context.Context, id remote.Identity) (*remote.Document, error)
	Push(ctx context.Context, id remote.Identity, doc remote.Document) error
}

const DefaultPushTimeout = 15 * time.Second

var _ plan.Persister = (*Reconciler)(nil)

// Reconciler owns the session's plan model and keeps it in sync with the
// local and the remote store.
type Reconciler struct {
	local          localStore
	remote         remoteStore
	clock          *stamp.Clock
	metricsManager *metrics.Manager
	pushTimeout    time.Duration

	model *plan.Model

	idMu     sync.RWMutex
	identity remote.Identity

	// issuedSeq numbers pushes in the order their snapshots were taken,
	// appliedSeq is the newest push known to have landed remotely
	issuedSeq  atomic.Uint64
	appliedSeq atomic.Uint64
	pushes     sync.WaitGroup

	// set by Open when the stored templates could not be read; local data
	// then counts as never modified until the next Start reconciles
	templatesUnreadable atomic.Bool
}

type Params struct {
	Local   localStore
	Remote  remoteStore
	Clock   *stamp.Clock
	Metrics *metrics.Manager // optional
	// PushTimeout bounds a single detached push
	PushTimeout time.Duration
}

func New(params Params) *Reconciler {
	clock := params.Clock
	if clock == nil {
		clock = stamp.NewClock()
	}
	pushTimeout := params.PushTimeout
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &Reconciler{
		local:          params.Local,
		remote:         params.Remote,
		clock:          clock,
		metricsManager: params.Metrics,
		pushTimeout:    pushTimeout,
	}
}

// Open loads the local collections into a fresh plan model and returns it.
// It never touches the network, and the model is always usable: unreadable
// local templates fall back to the default template.
func (r *Reconciler) Open() *plan.Model {
	collections, _, found, err := localstore.LoadCollections(r.local)
	r.templatesUnreadable.Store(err != nil)
	if err != nil {
		log.Errorf("reconcile: load local templates, starting from the default plan: %s", err)
	} else if !found {
		log.Debugln("reconcile: no local templates, starting with the default plan")
	}

	r.model = plan.NewModel(collections, r)
	return r.model
}

func (r *Reconciler) Model() *plan.Model {
	return r.model
}

func (r *Reconciler) Identity() remote.Identity {
	r.idMu.RLock()
	defer r.idMu.RUnlock()
	return r.identity
}

func (r *Reconciler) setIdentity(id remote.Identity) {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	r.identity = id
}

// SignOut stops remote pushes; local write-through keeps working.
func (r *Reconciler) SignOut() {
	r.setIdentity(remote.Identity{})
}

// Start runs the session start protocol for id. Open must have been called.
// Mutations issued while the remote document is fetched and adopted wait for it.
func (r *Reconciler) Start(ctx context.Context, id remote.Identity) (outcome Outcome, err error) {
	if r.model == nil {
		return OutcomeLocalOnly, errors.New("reconciler not opened")
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "reconcile.start")
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		tracing.EndSpanWithErrCheck(span, err)
		r.countReconciliation(outcome)
	}()

	release := r.model.Freeze()
	defer release()

	r.setIdentity(id)
	if !id.Present() {
		return OutcomeLocalOnly, nil
	}

	doc, err := r.remote.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, remote.ErrRemoteParse) {
			log.Warnf("reconcile: fetch remote document, continuing local only: %s", err)
			return OutcomeRemoteUnavailable, fmt.Errorf("fetch remote: %w", err)
		}
		log.Warnf("reconcile: remote document unreadable, treating as absent: %s", err)
		doc = nil
	}

	var remoteTime int64
	if doc != nil {
		if remoteTime, err = doc.SyncedAt(); err != nil {
			log.Warnf("reconcile: remote lastSynced %q unreadable, treating document as absent: %s", doc.LastSynced, err)
			doc, remoteTime = nil, 0
		}
	}
	localTime := r.localTime()

	outcome = Decide(doc, remoteTime, localTime)
	log.Debugf("reconcile: user %s remote=%d local=%d -> %s", id.UserID, remoteTime, localTime, outcome)
	r.templatesUnreadable.Store(false)

	if outcome == OutcomeRemoteAdopted {
		r.adopt(doc.Collections(), remoteTime)
		return outcome, nil
	}

	// the pushed lastSynced must be newer than both sides
	r.clock.Observe(remoteTime)
	r.clock.Observe(localTime)

	// number the push before mutations resume so it cannot overtake theirs
	seq, pushDoc := r.nextPush(r.model.Snapshot())
	release()

	if err := r.send(ctx, id, seq, pushDoc); err != nil {
		return outcome, fmt.Errorf("push local: %w", err)
	}
	return outcome, nil
}

// localTime is the stored templates stamp; 0 when absent or unreadable.
func (r *Reconciler) localTime() int64 {
	if r.templatesUnreadable.Load() {
		return 0
	}
	rec, err := r.local.Load(plan.KeyTemplates)
	if err != nil {
		log.Warnf("reconcile: read local templates stamp: %s", err)
		return 0
	}
	if rec == nil {
		return 0
	}
	return rec.LastModified
}

func (r *Reconciler) adopt(collections plan.Collections, remoteTime int64) {
	r.model.Replace(collections)
	r.clock.Observe(remoteTime)

	snapshot := r.model.Snapshot()
	for _, key := range plan.Keys {
		if err := r.local.SaveStamped(key, snapshot.Collection(key), remoteTime); err != nil {
			log.Errorf("reconcile: store adopted %s locally: %s", key, err)
			r.countLocalWriteFailure()
		}
	}
}

// Persist is the write-through step of every model mutation: the affected
// collection is saved locally, then all collections are pushed in the background.
// It runs with the model locked, so snapshots arrive here in mutation order.
func (r *Reconciler) Persist(key plan.Key, snapshot plan.Collections) {
	if _, err := r.local.Save(key, snapshot.Collection(key)); err != nil {
		log.Errorf("reconcile: local write of %s: %s", key, err)
		r.countLocalWriteFailure()
	}

	id := r.Identity()
	if !id.Present() {
		r.countPush(metrics.PushNoSignIn)
		return
	}

	seq, doc := r.nextPush(snapshot)
	r.pushes.Add(1)
	go func() {
		defer r.pushes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.pushTimeout)
		defer cancel()

		if err := r.send(ctx, id, seq, doc); err != nil {
			log.Warnf("reconcile: push %d: %s", seq, err)
		}
	}()
}

func (r *Reconciler) nextPush(snapshot plan.Collections) (uint64, remote.Document) {
	seq := r.issuedSeq.Add(1)
	return seq, remote.NewDocument(snapshot, r.clock.Next())
}

// send pushes doc unless a newer push already landed. A stale push
// rejected by the server is not an error.
func (r *Reconciler) send(ctx context.Context, id remote.Identity, seq uint64, doc remote.Document) error {
	if seq < r.appliedSeq.Load() {
		log.Debugf("reconcile: push %d superseded, skipping", seq)
		r.countPush(metrics.PushSkipped)
		return nil
	}

	started := time.Now()
	err := r.remote.Push(ctx, id, doc)
	r.observePushDuration(time.Since(started))

	switch {
	case err == nil:
		r.markApplied(seq)
		r.countPush(metrics.PushOK)
		return nil
	case errors.Is(err, remote.ErrStalePush):
		log.Debugf("reconcile: push %d rejected as stale", seq)
		r.countPush(metrics.PushStale)
		return nil
	default:
		r.countPush(metrics.PushFailed)
		return err
	}
}

func (r *Reconciler) markApplied(seq uint64) {
	for {
		current := r.appliedSeq.Load()
		if seq <= current || r.appliedSeq.CompareAndSwap(current, seq) {
			return
		}
	}
}

// Wait blocks until all detached pushes finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pushes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) countPush(result string) {
	if r.metricsManager != nil {
		r.metricsManager.CounterPushes.WithLabelValues(result).Inc()
	}
}

func (r *Reconciler) countReconciliation(outcome Outcome) {
	if r.metricsManager != nil {
		r.metricsManager.CounterReconciliations.WithLabelValues(outcome.String()).Inc()
	}
}

func (r *Reconciler) countLocalWriteFailure() {
	if r.metricsManager != nil {
		r.metricsManager.CounterLocalWriteFailures.Inc()
	}
}

func (r *Reconciler) observePushDuration(d time.Duration) {
	if r.metricsManager != nil {
		r.metricsManager.HistogramPushDuration.Observe(d.Seconds())
	}
}
