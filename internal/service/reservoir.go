package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reservoir_controller/internal/actuation"
	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/metrics"
	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"
	"reservoir_controller/internal/sensors"
)

var ErrUnknownReservoir = errors.New("unknown reservoir")

// actuateTimeout bounds every fire-and-forget hardware command. The
// remote bridge owns the fail-safe shutoff; this only bounds how long
// we wait for the broker ack.
const actuateTimeout = 5 * time.Second

// reservoir is the mutable state for one reservoir. Its mutex is the
// single-writer discipline: the poll loop and every API mutation take
// it, so no mutation lands mid-cycle and two dose decisions can never
// race on the same pump.
type reservoir struct {
	mu          sync.Mutex
	cfg         models.ReservoirConfig
	session     models.FeedingSession
	valves      *valveBank
	fused       models.FusedState
	readings    map[string]models.SensorReading
	updatedAt   time.Time
	wasDraining bool
}

func (r *reservoir) sensorIDs() []string {
	ids := make([]string, 0, 2+len(r.cfg.LevelSensors)+len(r.cfg.WaterSensors))
	if r.cfg.FlowSensor != "" {
		ids = append(ids, r.cfg.FlowSensor)
	}
	if r.cfg.RemoteLevelSensor != "" {
		ids = append(ids, r.cfg.RemoteLevelSensor)
	}
	ids = append(ids, r.cfg.LevelSensors...)
	ids = append(ids, r.cfg.WaterSensors...)
	return ids
}

// ReservoirService runs the control loop and implements the feeding,
// dosing, valve, monitoring and flow interfaces. Reservoirs are
// independent: each gets its own goroutine and lock, with no shared
// mutable state between them.
type ReservoirService struct {
	store    *sensors.Store
	totals   *sensors.Totalizer
	act      actuation.Actuator
	calib    Calibration
	sessions repository.SessionRepo
	events   repository.EventRepo
	notifier Notifier
	log      *logger.Logger

	dosing         DosingController
	feedingTimeout time.Duration
	now            func() time.Time

	order      []string
	reservoirs map[string]*reservoir
}

func NewReservoirService(
	configs []models.ReservoirConfig,
	store *sensors.Store,
	totals *sensors.Totalizer,
	act actuation.Actuator,
	calib Calibration,
	sessions repository.SessionRepo,
	events repository.EventRepo,
	notifier Notifier,
	log *logger.Logger,
	opts Options,
) *ReservoirService {
	s := &ReservoirService{
		store:          store,
		totals:         totals,
		act:            act,
		calib:          calib,
		sessions:       sessions,
		events:         events,
		notifier:       notifier,
		log:            log,
		dosing:         NewDosingController(opts.MaxDoseSeconds),
		feedingTimeout: opts.FeedingTimeout,
		now:            time.Now,
		reservoirs:     make(map[string]*reservoir, len(configs)),
	}
	if s.feedingTimeout <= 0 {
		s.feedingTimeout = FeedingTimeoutDefault
	}
	for _, cfg := range configs {
		s.order = append(s.order, cfg.ID)
		s.reservoirs[cfg.ID] = &reservoir{
			cfg:      cfg,
			session:  models.FeedingSession{ReservoirID: cfg.ID},
			valves:   newValveBank(cfg.Valves),
			readings: make(map[string]models.SensorReading),
		}
	}
	return s
}

// Run restores persisted sessions, then ticks every reservoir until
// ctx is canceled. One goroutine per reservoir.
func (s *ReservoirService) Run(ctx context.Context, tick time.Duration) {
	s.restoreSessions(ctx)

	var wg sync.WaitGroup
	for _, id := range s.order {
		r := s.reservoirs[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, r, tick)
		}()
	}
	wg.Wait()
}

// restoreSessions reloads each reservoir's feeding session so the
// 2-hour window keeps counting from the persisted StartedAt across a
// restart. A missing or corrupted record restores as idle.
func (s *ReservoirService) restoreSessions(ctx context.Context) {
	for _, id := range s.order {
		r := s.reservoirs[id]
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			s.log.Warnw("session_restore_failed", "reservoir", id, "err", err)
			continue
		}
		r.mu.Lock()
		r.session = sess
		r.mu.Unlock()
		if sess.Active {
			s.log.Infow("session_restored", "reservoir", id, "started_at", sess.StartedAt)
		}
	}
}

func (s *ReservoirService) loop(ctx context.Context, r *reservoir, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.cycle(ctx, r)
		}
	}
}

// cycle is one serialized poll pass: snapshot → fuse → advance the
// feeding machine → surface alerts. Dosing is evaluated on demand via
// RequestDose under the same lock, so it always sees post-cycle state.
func (s *ReservoirService) cycle(ctx context.Context, r *reservoir) {
	now := s.now()

	r.mu.Lock()
	snapshot := s.store.Snapshot(r.sensorIDs())
	r.readings = snapshot
	r.fused = Fuse(r.cfg, snapshot, now)
	r.updatedAt = now.UTC()

	sess, timedOut := AdvanceFeeding(r.session, now, s.feedingTimeout)
	r.session = sess
	if timedOut {
		r.valves.set(r.cfg.FeedValve, false, now)
	}

	fused := r.fused
	active := sess.Active
	drainingEdge := fused.Draining && !r.wasDraining
	r.wasDraining = fused.Draining
	r.mu.Unlock()

	metrics.PollCycles.WithLabelValues(r.cfg.ID).Inc()

	if timedOut {
		metrics.FeedingTimeouts.WithLabelValues(r.cfg.ID).Inc()
		s.closeFeedValve(ctx, r.cfg)
		if err := s.sessions.Clear(ctx, r.cfg.ID); err != nil {
			s.log.Errorw("session_clear_failed", "reservoir", r.cfg.ID, "err", err)
		}
		s.append(ctx, r.cfg.ID, models.EventFeedTimeout, "Feeding session exceeded ceiling; force-cleared", map[string]any{
			"ceiling": s.feedingTimeout.String(),
		})
	}

	// An unexplained drain outside a feed cycle is the one condition
	// worth waking an operator for. The notifier's gate keeps quiet
	// while any feeding runs.
	if drainingEdge && !active {
		s.notify(r.cfg.ID, "drain detected",
			fmt.Sprintf("reservoir %s is draining outside a feeding session", r.cfg.ID))
	}
}

// ---- Feeding ----

func (s *ReservoirService) StartFeeding(ctx context.Context, reservoirID, valveID string) error {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}
	now := s.now()
	if valveID == "" {
		valveID = r.cfg.FeedValve
	}

	r.mu.Lock()
	restarted := r.session.Active
	r.session = StartFeeding(reservoirID, valveID, now)
	r.valves.set(valveID, true, now)
	sess := r.session
	r.mu.Unlock()

	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("persist feeding session: %w", err)
	}

	s.setValve(ctx, r.cfg.ID, valveID, true)

	desc := "Feeding started"
	if restarted {
		desc = "Feeding restarted; timeout window reset"
	}
	s.append(ctx, reservoirID, models.EventFeedStart, desc, map[string]any{
		"valve_id":   valveID,
		"started_at": sess.StartedAt,
	})
	return nil
}

func (s *ReservoirService) StopFeeding(ctx context.Context, reservoirID string) error {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}
	now := s.now()

	r.mu.Lock()
	valveID := r.session.ValveID
	r.session = StopFeeding(reservoirID)
	if valveID != "" {
		r.valves.set(valveID, false, now)
	}
	r.mu.Unlock()

	if err := s.sessions.Clear(ctx, reservoirID); err != nil {
		return fmt.Errorf("clear feeding session: %w", err)
	}
	if valveID != "" {
		s.setValve(ctx, r.cfg.ID, valveID, false)
	}
	s.append(ctx, reservoirID, models.EventFeedStop, "Feeding stopped", nil)
	return nil
}

func (s *ReservoirService) Active(reservoirID string) bool {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Active
}

func (s *ReservoirService) FeedingActive() bool {
	for _, id := range s.order {
		if s.Active(id) {
			return true
		}
	}
	return false
}

// ---- Dosing ----

// RequestDose evaluates a dose request against the latest fused state
// under the reservoir lock and, when permitted, dispatches the timed
// run. The suppression reason, if any, is returned to the caller
// verbatim and logged, never alarmed.
func (s *ReservoirService) RequestDose(ctx context.Context, reservoirID string, req models.DoseRequest) (models.Action, error) {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return models.Action{}, fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}

	lookup := func(pumpID string) (models.Pump, error) {
		return s.calib.Get(ctx, pumpID)
	}

	r.mu.Lock()
	action, _ := s.dosing.Tick(r.fused, r.session, &req, lookup)
	r.mu.Unlock()

	if action.Suppressed() {
		metrics.DosesSuppressed.WithLabelValues(action.Reason).Inc()
		s.append(ctx, reservoirID, models.EventSuppress, "Dose suppressed: "+action.Reason, map[string]any{
			"pump_id":   req.PumpID,
			"volume_ml": req.TargetVolumeML,
			"reason":    action.Reason,
		})
		return action, nil
	}

	duration := time.Duration(action.DurationSeconds * float64(time.Second))
	actx, cancel := context.WithTimeout(ctx, actuateTimeout)
	defer cancel()
	if err := s.act.RunPump(actx, reservoirID, action.PumpID, duration); err != nil {
		metrics.ActuationErrors.WithLabelValues("pump").Inc()
		s.append(ctx, reservoirID, models.EventError, "Pump actuation failed", map[string]any{
			"pump_id": action.PumpID,
			"err":     err.Error(),
		})
		return models.Action{}, fmt.Errorf("run pump %q: %w", action.PumpID, err)
	}

	metrics.DosesDispensed.WithLabelValues(action.PumpID).Inc()
	s.append(ctx, reservoirID, models.EventDose, "Dose dispatched", map[string]any{
		"pump_id":          action.PumpID,
		"volume_ml":        req.TargetVolumeML,
		"duration_seconds": action.DurationSeconds,
		"reason":           req.Reason,
	})
	return action, nil
}

// Correct maps a measured-vs-desired delta onto the reservoir's pump
// set and routes each computed target through the regular dose guards.
// Within the tolerance band it returns no actions at all; that is not
// a suppression, nothing was requested.
func (s *ReservoirService) Correct(ctx context.Context, reservoirID string, current, desired float64) ([]models.Action, error) {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}

	ratios := make([]DoseRatio, 0, len(r.cfg.Pumps))
	for _, p := range r.cfg.Pumps {
		ratios = append(ratios, DoseRatio{PumpID: p.ID, Chemical: p.Chemical, Parts: 1})
	}
	targets := NewNutrientCalculator(0, 0).ComputeTargets(current, desired, r.cfg.VolumeL, ratios)
	if len(targets) == 0 {
		return nil, nil
	}

	// Config order keeps multi-pump corrections deterministic.
	actions := make([]models.Action, 0, len(targets))
	for _, p := range r.cfg.Pumps {
		vol, ok := targets[p.ID]
		if !ok {
			continue
		}
		a, err := s.RequestDose(ctx, reservoirID, models.DoseRequest{
			PumpID:         p.ID,
			TargetVolumeML: vol,
			Reason:         "correction",
		})
		if err != nil {
			return actions, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// ---- Valves ----

func (s *ReservoirService) ToggleValve(ctx context.Context, reservoirID, nameOrID string) (models.Valve, error) {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return models.Valve{}, fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}
	now := s.now()

	r.mu.Lock()
	v, err := r.valves.toggle(nameOrID, now)
	r.mu.Unlock()
	if err != nil {
		return models.Valve{}, err
	}

	s.setValve(ctx, reservoirID, v.ID, v.Open)
	s.append(ctx, reservoirID, models.EventValve, fmt.Sprintf("Valve %s set %s", v.ID, openState(v.Open)), map[string]any{
		"valve_id": v.ID,
		"open":     v.Open,
	})
	return v, nil
}

func (s *ReservoirService) ActiveFeedValve(reservoirID string) (string, bool) {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valves.activeValve()
}

// ---- Monitoring ----

func (s *ReservoirService) State(_ context.Context, reservoirID string) (models.ReservoirState, error) {
	r, ok := s.reservoirs[reservoirID]
	if !ok {
		return models.ReservoirState{}, fmt.Errorf("%w: %q", ErrUnknownReservoir, reservoirID)
	}
	return s.stateOf(r), nil
}

func (s *ReservoirService) List(_ context.Context) ([]models.ReservoirState, error) {
	out := make([]models.ReservoirState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.stateOf(s.reservoirs[id]))
	}
	return out, nil
}

func (s *ReservoirService) stateOf(r *reservoir) models.ReservoirState {
	r.mu.Lock()
	defer r.mu.Unlock()

	readings := make(map[string]models.SensorReading, len(r.readings))
	for k, v := range r.readings {
		readings[k] = v
	}
	active, _ := r.valves.activeValve()
	return models.ReservoirState{
		ID:          r.cfg.ID,
		Name:        r.cfg.Name,
		Fused:       r.fused,
		Session:     r.session,
		ActiveValve: active,
		Valves:      r.valves.snapshot(),
		Readings:    readings,
		UpdatedAt:   r.updatedAt,
	}
}

// ---- Flow totals ----

func (s *ReservoirService) FlowTotal(sensorID string) float64 {
	return s.totals.Total(sensorID)
}

func (s *ReservoirService) ResetFlowTotal(ctx context.Context, sensorID string) (float64, error) {
	prev := s.totals.Reset(sensorID)
	err := s.append(ctx, "", models.EventFlowReset, "Flow total reset for "+sensorID, map[string]any{
		"sensor_id":      sensorID,
		"previous_total": prev,
	})
	return prev, err
}

// ---- helpers ----

func (s *ReservoirService) setValve(ctx context.Context, reservoirID, valveID string, open bool) {
	actx, cancel := context.WithTimeout(ctx, actuateTimeout)
	defer cancel()
	if err := s.act.SetValve(actx, reservoirID, valveID, open); err != nil {
		metrics.ActuationErrors.WithLabelValues("valve").Inc()
		s.log.Errorw("valve_actuation_failed", "reservoir", reservoirID, "valve", valveID, "err", err)
	}
}

func (s *ReservoirService) closeFeedValve(ctx context.Context, cfg models.ReservoirConfig) {
	if cfg.FeedValve == "" {
		return
	}
	s.setValve(ctx, cfg.ID, cfg.FeedValve, false)
}

func (s *ReservoirService) append(ctx context.Context, reservoirID, typ, desc string, meta map[string]any) error {
	err := s.events.Append(ctx, models.ControllerEvent{
		ReservoirID: reservoirID,
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
	return err
}

// notify hands the alert off without blocking the control loop.
func (s *ReservoirService) notify(reservoirID, subject, message string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, subject, message); err != nil {
			s.log.Warnw("notify_failed", "reservoir", reservoirID, "subject", subject, "err", err)
		}
	}()
}

func openState(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
