package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderAlreadyExists = errors.New("provider already exists")
	ErrNoProvidersAvailable  = errors.New("no providers available")
)

// Registry gestisce i provider disponibili e l'instradamento modello -> provider
type Registry struct {
	providers map[string]Provider
	metadata  map[string]*ProviderMetadata

	// routes mappa un model id al nome del provider che lo serve
	routes map[string]string

	// defaultProvider serve i modelli non instradati esplicitamente
	defaultProvider string

	mu sync.RWMutex
}

// ProviderMetadata contiene metadata su un provider
type ProviderMetadata struct {
	Name            string
	Models          []string
	RegisteredAt    time.Time
	LastHealthCheck time.Time
	Healthy         bool
	ErrorCount      int
	SuccessCount    int
	AvgLatency      time.Duration
}

// NewRegistry crea un nuovo registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		metadata:  make(map[string]*ProviderMetadata),
		routes:    make(map[string]string),
	}
}

// Register registra un provider e i modelli che serve.
// Il primo provider registrato diventa il provider di default.
func (r *Registry) Register(provider Provider, models ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyExists, name)
	}

	r.providers[name] = provider
	r.metadata[name] = &ProviderMetadata{
		Name:         name,
		Models:       append([]string(nil), models...),
		RegisteredAt: time.Now(),
		Healthy:      true,
	}
	for _, model := range models {
		r.routes[model] = name
	}
	if r.defaultProvider == "" {
		r.defaultProvider = name
	}

	log.Info().
		Str("provider", name).
		Strs("models", models).
		Msg("Provider registered")

	return nil
}

// Get restituisce un provider per nome
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Resolve restituisce il provider che serve il modello indicato
func (r *Registry) Resolve(model string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, routed := r.routes[model]
	if !routed {
		name = r.defaultProvider
	}
	if name == "" {
		return nil, ErrNoProvidersAvailable
	}

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// List restituisce i nomi dei provider registrati in ordine alfabetico
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMetadata restituisce una copia dei metadata di un provider
func (r *Registry) GetMetadata(name string) (*ProviderMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	metaCopy := *meta
	metaCopy.Models = append([]string(nil), meta.Models...)
	return &metaCopy, nil
}

// HealthCheck esegue health check su tutti i provider
func (r *Registry) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	snapshot := make(map[string]Provider, len(r.providers))
	for name, provider := range r.providers {
		snapshot[name] = provider
	}
	r.mu.RUnlock()

	results := make(map[string]error)
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for name, provider := range snapshot {
		wg.Add(1)
		go func(providerName string, p Provider) {
			defer wg.Done()

			err := p.HealthCheck(ctx)

			r.mu.Lock()
			if meta, ok := r.metadata[providerName]; ok {
				meta.LastHealthCheck = time.Now()
				meta.Healthy = err == nil
			}
			r.mu.Unlock()

			if err != nil {
				log.Warn().
					Err(err).
					Str("provider", providerName).
					Msg("Provider health check failed")

				resultsMu.Lock()
				results[providerName] = err
				resultsMu.Unlock()
			}
		}(name, provider)
	}

	wg.Wait()
	return results
}

// RecordSuccess registra un'operazione riuscita
func (r *Registry) RecordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, exists := r.metadata[name]; exists {
		meta.SuccessCount++
		if meta.AvgLatency == 0 {
			meta.AvgLatency = latency
		} else {
			meta.AvgLatency = (meta.AvgLatency + latency) / 2
		}
	}
}

// RecordError registra un errore
func (r *Registry) RecordError(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, exists := r.metadata[name]; exists {
		meta.ErrorCount++
	}
}
