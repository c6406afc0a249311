package service

import (
	"sync"
	"time"
)

// RateLimiter limita la frecuencia de requests por clave de cliente.
type RateLimiter interface {
	Allow(key string) bool
}

// SlidingWindowLimiter cuenta requests dentro de una ventana deslizante.
// Todo el estado compartido vive bajo un solo mutex: el prune y el append
// son una sección crítica única por llamada.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewSlidingWindowLimiter crea un rate limiter en memoria.
func NewSlidingWindowLimiter(window time.Duration, max int) *SlidingWindowLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindowLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

// Allow poda la ventana de la clave y decide. Un request denegado no se
// registra: no extiende la ventana del cliente.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}

// Sweep descarta claves sin actividad dentro de la ventana para acotar
// memoria; pensado para correr periódicamente.
func (l *SlidingWindowLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().UTC().Add(-l.window)
	for key, entries := range l.hits {
		stale := true
		for _, ts := range entries {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.hits, key)
		}
	}
}
