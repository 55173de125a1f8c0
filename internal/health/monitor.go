package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval è l'intervallo tra due controlli se non configurato
const DefaultInterval = 5 * time.Minute

// checkTimeout limita la durata di un giro di controlli
const checkTimeout = 10 * time.Second

// Checker verifica lo stato dei provider registrati
type Checker interface {
	// List restituisce i nomi dei provider in ordine
	List() []string
	// HealthCheck restituisce gli errori dei provider non raggiungibili
	HealthCheck(ctx context.Context) map[string]error
}

// Status è l'ultimo esito noto per un provider
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor gestisce il monitoraggio della salute dei provider
type Monitor struct {
	checker  Checker
	interval time.Duration

	mu       sync.RWMutex
	statuses []Status

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor crea un nuovo monitor
func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start avvia il monitoraggio in background
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		// Run initial check
		m.Check(context.Background())

		for {
			select {
			case <-ticker.C:
				m.Check(context.Background())
			case <-m.done:
				return
			}
		}
	}()

	log.Info().Dur("interval", m.interval).Msg("Provider health monitoring started")
}

// Stop ferma il monitoraggio e attende il giro in corso
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		log.Info().Msg("Provider health monitoring stopped")
	})
}

// Check esegue un giro di controlli e aggiorna lo snapshot
func (m *Monitor) Check(ctx context.Context) []Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	failures := m.checker.HealthCheck(ctx)
	now := time.Now().UTC()

	names := m.checker.List()
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		status := Status{Name: name, Healthy: true, CheckedAt: now}
		if err := failures[name]; err != nil {
			status.Healthy = false
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}

	m.mu.Lock()
	m.statuses = statuses
	m.mu.Unlock()

	log.Debug().Int("providers", len(statuses)).Int("unhealthy", len(failures)).Msg("Health check completed")
	return statuses
}

// Snapshot restituisce l'ultimo esito noto, vuoto prima del primo controllo
func (m *Monitor) Snapshot() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Status{}, m.statuses...)
}
