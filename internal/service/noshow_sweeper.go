package service

import (
	"context"
	"time"

	"go-clinic-booking/config"
	"go-clinic-booking/internal/domain/entity"
	"go-clinic-booking/internal/domain/repository"
	"go-clinic-booking/pkg/clock"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Timeout for a single sweep run
const sweepTimeout = 2 * time.Minute

// NoShowSweeper periodically flips booked appointments whose slot end
// plus the grace period has elapsed into no_show. The status filter
// makes re-runs no-ops: terminal rows are never selected.
type NoShowSweeper struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	clock           clock.Clock
	cfg             config.SweepConfig
	cron            *cron.Cron
}

func NewNoShowSweeper(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	clk clock.Clock,
	cfg config.SweepConfig,
) *NoShowSweeper {
	return &NoShowSweeper{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		clock:           clk,
		cfg:             cfg,
	}
}

// Start registers the sweep on the configured cron spec and starts the
// scheduler. Call Stop during graceful shutdown.
func (s *NoShowSweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Warnf("No-show sweep failed: %+v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("No-show sweeper started (spec %q, grace %v)", s.cfg.CronSpec, s.cfg.GracePeriod)
	return nil
}

func (s *NoShowSweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep marks overdue booked appointments as no_show and returns how
// many rows were transitioned.
func (s *NoShowSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	candidates, err := s.appointmentRepo.FindByStatusUpToDate(
		s.db.WithContext(ctx), entity.AppointmentStatusBooked, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range candidates {
		appointment := &candidates[i]

		slotEnd, err := appointment.SlotEnd()
		if err != nil {
			s.log.Warnf("Skipping appointment %s with malformed end time %q: %+v",
				appointment.ID, appointment.EndTime, err)
			continue
		}

		if now.Before(slotEnd.Add(s.cfg.GracePeriod)) {
			continue
		}

		// Guarded update keeps this safe against a check-in racing the
		// sweep: rows already transitioned away from booked are skipped.
		rows, err := s.appointmentRepo.UpdateStatusFrom(
			s.db.WithContext(ctx), appointment.ID,
			entity.AppointmentStatusBooked, entity.AppointmentStatusNoShow)
		if err != nil {
			return swept, err
		}
		if rows > 0 {
			swept++
		}
	}

	if swept > 0 {
		s.log.Infof("No-show sweep transitioned %d appointment(s)", swept)
	}
	return swept, nil
}
