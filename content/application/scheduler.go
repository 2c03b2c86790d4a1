package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/AzielCF/az-localseo/pkg/timeutils"
	"github.com/AzielCF/az-localseo/pkg/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker serializes cycles per client, in-process or across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// JobRunner queues work keyed by client so cycles of one client never overlap.
type JobRunner interface {
	TryDispatch(job workerpool.Job) bool
}

type SchedulerDeps struct {
	Items      domain.ItemRepository
	Clients    ClientDirectory
	Topics     TopicPicker
	Locations  LocationPicker
	Tx         Transactor
	Generation *Dispatcher
	Locker     Locker
	Runner     JobRunner // nil runs cycles inline
	Settings   Settings

	LockTTL    time.Duration
	StaleAfter time.Duration
	Now        func() time.Time
}

// CycleScheduler produces one ContentItem per client and cycle window, then hands it to generation.
type CycleScheduler struct {
	items      domain.ItemRepository
	clients    ClientDirectory
	topics     TopicPicker
	locations  LocationPicker
	tx         Transactor
	generation *Dispatcher
	locker     Locker
	runner     JobRunner
	settings   Settings
	lockTTL    time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewCycleScheduler(deps SchedulerDeps) *CycleScheduler {
	s := &CycleScheduler{
		items:      deps.Items,
		clients:    deps.Clients,
		topics:     deps.Topics,
		locations:  deps.Locations,
		tx:         deps.Tx,
		generation: deps.Generation,
		locker:     deps.Locker,
		runner:     deps.Runner,
		settings:   deps.Settings,
		lockTTL:    deps.LockTTL,
		staleAfter: deps.StaleAfter,
		now:        deps.Now,
	}
	if s.settings == nil {
		s.settings = staticSettings{}
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Minute
	}
	if s.staleAfter <= 0 {
		s.staleAfter = time.Hour
	}
	if s.now == nil {
		s.now = nowUTC
	}
	return s
}

// Due reports whether client owes a cycle at now, and the key of that cycle window.
// The window starts at the latest slot occurrence at or before now.
func Due(client *clientDomain.Client, now time.Time) (bool, string, error) {
	loc := timeutils.LoadLocation(client.Timezone)
	prev, err := timeutils.PreviousOccurrence(client.SlotDays, client.SlotTime, now, loc)
	if err != nil {
		return false, "", err
	}
	key := prev.UTC().Format(time.RFC3339)
	if client.LastScheduledAt == nil {
		return true, key, nil
	}
	last := *client.LastScheduledAt
	if !last.Before(prev) {
		return false, key, nil
	}
	// La cadencia se mide entre ventanas, no desde la hora real del último ciclo
	lastWindow, err := timeutils.PreviousOccurrence(client.SlotDays, client.SlotTime, last, loc)
	if err != nil {
		return false, "", err
	}
	// Una hora de margen por los cambios de horario (DST)
	return prev.Sub(lastWindow) >= client.Cadence.Interval()-time.Hour, key, nil
}

// Tick checks every automated client once. It returns how many cycles were started or queued.
func (s *CycleScheduler) Tick(ctx context.Context) (int, error) {
	if s.settings.AutomationPaused(ctx) {
		logrus.Info("[SCHEDULER] Automation paused, skipping tick")
		return 0, nil
	}
	clients, err := s.clients.ListAutomated(ctx)
	if err != nil {
		return 0, fmt.Errorf("list automated clients: %w", err)
	}

	now := s.now()
	started := 0
	for _, client := range clients {
		due, cycleKey, err := Due(client, now)
		if err != nil {
			logrus.WithError(err).Warnf("[SCHEDULER] Client %s has an invalid slot", client.ID)
			continue
		}
		if !due {
			continue
		}

		clientID := client.ID
		handler := func(ctx context.Context) error {
			started := time.Now()
			item, err := s.runCycle(ctx, clientID, cycleKey, domain.TriggerScheduled)
			recordCycle(clientID, item, err, started)
			if err != nil {
				logCycleError(clientID, err)
			}
			return err
		}

		if s.runner == nil {
			if err := handler(ctx); err == nil {
				started++
			}
			continue
		}
		if s.runner.TryDispatch(workerpool.Job{Key: clientID, Name: "cycle", Handler: handler}) {
			started++
		} else {
			logrus.Warnf("[SCHEDULER] Queue full, cycle for client %s deferred to next tick", clientID)
		}
	}
	return started, nil
}

func recordCycle(clientID string, item *domain.ContentItem, err error, started time.Time) {
	e := pipelinemonitor.Event{ClientID: clientID, Stage: pipelinemonitor.StageCycle, Status: pipelinemonitor.StatusOf(err), Error: pipelinemonitor.ErrorOf(err)}
	if errors.Is(err, domain.ErrCycleAlreadyProduced) || errors.Is(err, domain.ErrCycleInProgress) {
		e.Status, e.Error = pipelinemonitor.StatusSkipped, ""
	}
	if item != nil {
		e.ItemID = item.ID
	}
	pipelinemonitor.Record(pipelinemonitor.Since(e, started))
}

func logCycleError(clientID string, err error) {
	entry := logrus.WithError(err).WithField("client_id", clientID)
	switch {
	case errors.Is(err, domain.ErrCycleAlreadyProduced), errors.Is(err, domain.ErrCycleInProgress):
		entry.Debug("[SCHEDULER] Cycle skipped")
	case errors.Is(err, clientDomain.ErrEmptyTopicPool), errors.Is(err, clientDomain.ErrNoActiveLocations):
		entry.Error("[SCHEDULER] Client cannot be scheduled, operator action needed")
	default:
		entry.Error("[SCHEDULER] Cycle failed")
	}
}

// ProduceNow runs one cycle immediately, ignoring the slot. The item does not count against a window.
func (s *CycleScheduler) ProduceNow(ctx context.Context, clientID string) (*domain.ContentItem, error) {
	return s.runCycle(ctx, clientID, "manual:"+uuid.New().String(), domain.TriggerManual)
}

func (s *CycleScheduler) runCycle(ctx context.Context, clientID, cycleKey string, trigger domain.Trigger) (*domain.ContentItem, error) {
	lockKey := "cycle:" + clientID
	token, ok, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrCycleInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			logrus.WithError(err).Warnf("[SCHEDULER] Releasing lock %s failed", lockKey)
		}
	}()

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if trigger == domain.TriggerScheduled {
		has, err := s.items.HasCycle(ctx, clientID, cycleKey)
		if err != nil {
			return nil, err
		}
		if has {
			return nil, domain.ErrCycleAlreadyProduced
		}
	}

	loc, err := s.locations.SelectNextLocation(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("select location: %w", err)
	}
	entry, question, err := s.topics.SelectNextTopic(ctx, clientID, loc)
	if err != nil {
		return nil, fmt.Errorf("select topic: %w", err)
	}

	item := &domain.ContentItem{
		ClientID:      clientID,
		LocationID:    loc.ID,
		TopicID:       entry.ID,
		Question:      question,
		LocationLabel: loc.Label(),
		Status:        domain.StatusDraft,
		Trigger:       trigger,
		CycleKey:      cycleKey,
	}
	now := s.now()
	// Las selecciones se marcan en la misma transacción que crea el item
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.items.Create(ctx, item); err != nil {
			return err
		}
		if err := s.topics.MarkUsed(ctx, clientID, entry); err != nil {
			return fmt.Errorf("mark topic used: %w", err)
		}
		if err := s.locations.MarkUsed(ctx, loc); err != nil {
			return fmt.Errorf("mark location used: %w", err)
		}
		if trigger == domain.TriggerScheduled {
			return s.clients.MarkScheduled(ctx, clientID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"item_id":   item.ID,
		"trigger":   trigger,
		"location":  item.LocationLabel,
	}).Infof("[SCHEDULER] Item created: %s", item.Question)

	results, err := s.generation.Generate(ctx, item.ID, enabledKinds(client), domain.GenerateOptions{})
	if err != nil {
		return item, fmt.Errorf("dispatch generation: %w", err)
	}
	if err := results.Err(); err != nil {
		logrus.WithError(err).WithField("item_id", item.ID).Warn("[SCHEDULER] Some artifacts failed")
	}

	if fresh, err := s.items.Get(ctx, item.ID); err == nil {
		return fresh, nil
	}
	return item, nil
}

// SweepStale fails items left in GENERATING by a crashed process.
func (s *CycleScheduler) SweepStale(ctx context.Context) (int, error) {
	ids, err := s.items.ListStaleGenerating(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		ok, err := s.items.TransitionStatus(ctx, id, []domain.ItemStatus{domain.StatusGenerating}, domain.StatusFailed, "generation interrupted")
		if err != nil {
			logrus.WithError(err).Warnf("[SCHEDULER] Failing stale item %s failed", id)
			continue
		}
		if ok {
			swept++
		}
	}
	if swept > 0 {
		logrus.Warnf("[SCHEDULER] %d stale item(s) moved to FAILED", swept)
	}
	return swept, nil
}

// Loops holds the intervals of the background loops started by StartLoop.
type Loops struct {
	Tick      time.Duration
	Reconcile time.Duration
}

// StartLoop runs the cycle tick, the stale sweep and the reconcile sweep until ctx is done.
func (s *CycleScheduler) StartLoop(ctx context.Context, loops Loops, reconciler *Reconciler) {
	if loops.Tick <= 0 {
		loops.Tick = 15 * time.Minute
	}
	if loops.Reconcile <= 0 {
		loops.Reconcile = 5 * time.Minute
	}
	logrus.Infof("[SCHEDULER] Background loops started (tick %s, reconcile %s)", loops.Tick, loops.Reconcile)

	go func() {
		tick := time.NewTicker(loops.Tick)
		defer tick.Stop()
		reconcile := time.NewTicker(loops.Reconcile)
		defer reconcile.Stop()

		s.runTick(ctx)
		for {
			select {
			case <-ctx.Done():
				logrus.Info("[SCHEDULER] Background loops stopped")
				return
			case <-tick.C:
				s.runTick(ctx)
			case <-reconcile.C:
				if reconciler == nil {
					continue
				}
				report, err := reconciler.Sweep(ctx)
				if err != nil && ctx.Err() == nil {
					logrus.WithError(err).Error("[SCHEDULER] Reconcile sweep failed")
					continue
				}
				if report != (domain.ReconcileReport{}) {
					logrus.Infof("[SCHEDULER] Reconcile sweep: %d advanced, %d processing, %d failed",
						report.Advanced, report.StillProcessing, report.Failed)
				}
			}
		}
	}()
}

func (s *CycleScheduler) runTick(ctx context.Context) {
	if _, err := s.SweepStale(ctx); err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Stale sweep failed")
	}
	n, err := s.Tick(ctx)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Tick failed")
		return
	}
	if n > 0 {
		logrus.Infof("[SCHEDULER] %d cycle(s) started", n)
	}
}
