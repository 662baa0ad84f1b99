package service

import (
	"context"
	"time"

	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"

	"github.com/robfig/cron/v3"
)

// SampleSchedule logs a periodic snapshot of every reservoir every six
// hours, giving the dashboard a coarse history without persisting raw
// sensor traffic.
const SampleSchedule = "0 */6 * * *"

// SamplerService writes the periodic snapshot events.
type SamplerService struct {
	monitoring Monitoring
	flow       Flow
	flowIDs    []string
	events     repository.EventRepo
	log        *logger.Logger
	cron       *cron.Cron
}

func NewSamplerService(monitoring Monitoring, flow Flow, configs []models.ReservoirConfig, events repository.EventRepo, log *logger.Logger) *SamplerService {
	var flowIDs []string
	for _, cfg := range configs {
		if cfg.FlowSensor != "" {
			flowIDs = append(flowIDs, cfg.FlowSensor)
		}
	}
	return &SamplerService{
		monitoring: monitoring,
		flow:       flow,
		flowIDs:    flowIDs,
		events:     events,
		log:        log,
		cron:       cron.New(),
	}
}

// Start schedules the sampler. Stop with Stop.
func (s *SamplerService) Start() error {
	if _, err := s.cron.AddFunc(SampleSchedule, s.sample); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for a running sample to finish.
func (s *SamplerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SamplerService) sample() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	states, err := s.monitoring.List(ctx)
	if err != nil {
		s.log.Errorw("sample_list_failed", "err", err)
		return
	}

	totals := make(map[string]float64, len(s.flowIDs))
	for _, id := range s.flowIDs {
		totals[id] = s.flow.FlowTotal(id)
	}

	for _, st := range states {
		err := s.events.Append(ctx, models.ControllerEvent{
			ReservoirID: st.ID,
			Type:        models.EventSample,
			Description: "Periodic reservoir snapshot",
			Metadata: map[string]any{
				"fused":        st.Fused,
				"session":      st.Session,
				"active_valve": st.ActiveValve,
				"flow_totals":  totals,
			},
		})
		if err != nil {
			s.log.Errorw("sample_append_failed", "reservoir", st.ID, "err", err)
		}
	}
}
