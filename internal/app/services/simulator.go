package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
)

// SimulatorService feeds generated readings through the regular ingestion
// path on a fixed interval. Meant for development setups without real
// hardware; devices already in ERROR are left alone so raised alerts stay
// reproducible.
type SimulatorService struct {
	sensor   *SensorService
	devices  *storage.DeviceRepository
	logger   *logging.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewSimulatorService(sensor *SensorService, devices *storage.DeviceRepository, interval time.Duration, logger *logging.Logger) *SimulatorService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SimulatorService{
		sensor:   sensor,
		devices:  devices,
		logger:   logger,
		interval: interval,
	}
}

// Start launches the simulation loop. Calling Start on a running simulator
// is a no-op.
func (s *SimulatorService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	if s.logger != nil {
		s.logger.InfoTag("Sensor", "simulation loop started, interval %s", s.interval)
	}
	go s.loop(ctx, s.stop)
}

// Stop halts the simulation loop.
func (s *SimulatorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

func (s *SimulatorService) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *SimulatorService) tick(ctx context.Context) {
	devices, err := s.devices.ListByStatuses(ctx, []string{models.DeviceActive, models.DeviceMaintenance})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorTag("Sensor", "simulation device listing failed: %v", err)
		}
		return
	}

	for _, device := range devices {
		reading := randomReading()
		if _, _, err := s.sensor.Ingest(ctx, device.ID, reading); err != nil && s.logger != nil {
			s.logger.ErrorTag("Sensor", "simulated ingest failed for device %d: %v", device.ID, err)
		}
	}
}

// randomReading produces values inside the normal operating envelope, with a
// small chance per channel of drifting past its threshold.
func randomReading() *models.SensorData {
	return &models.SensorData{
		TempColdStorage:   simValue(1.0, 4.5, 5.5, 9.0),
		TempEnvironment:   simValue(18.0, 32.0, 35.5, 42.0),
		TempSolution:      simValue(10.0, 25.0, 25.0, 30.0),
		PressureSuction:   simValue(1.2, 4.0, 0.3, 0.9),
		PressureDischarge: simValue(6.0, 11.0, 12.5, 16.0),
		SuperheatCurrent:  simValue(4.0, 9.0, 9.0, 14.0),
		VoltageA:          simValue(205.0, 238.0, 180.0, 199.0),
		CurrentA:          simValue(6.0, 18.0, 20.5, 28.0),
		Timestamp:         time.Now(),
	}
}

// simValue picks from the normal range, or from the anomalous range in
// roughly one out of twenty readings.
func simValue(normalLo, normalHi, anomalyLo, anomalyHi float64) *float64 {
	lo, hi := normalLo, normalHi
	if rand.Intn(20) == 0 {
		lo, hi = anomalyLo, anomalyHi
	}
	v := lo + rand.Float64()*(hi-lo)
	return &v
}
