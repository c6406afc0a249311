package service

import (
	"testing"
	"time"
)

func TestSlidingWindowLimiter_LimitWithinWindow(t *testing.T) {
	l := NewSlidingWindowLimiter(time.Minute, 10)

	for i := 0; i < 10; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within limit should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("11th request within the window must be throttled")
	}
	// Otra clave no comparte ventana.
	if !l.Allow("10.0.0.2") {
		t.Fatalf("independent key should be allowed")
	}
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	l := NewSlidingWindowLimiter(100*time.Millisecond, 2)

	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should be allowed")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be throttled")
	}

	time.Sleep(120 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatalf("request after the window should be allowed again")
	}
}

func TestSlidingWindowLimiter_ThrottledNotRecorded(t *testing.T) {
	l := NewSlidingWindowLimiter(time.Minute, 1)

	if !l.Allow("k") {
		t.Fatalf("first request should be allowed")
	}
	for i := 0; i < 5; i++ {
		l.Allow("k")
	}
	l.mu.Lock()
	hits := len(l.hits["k"])
	l.mu.Unlock()
	if hits != 1 {
		t.Fatalf("throttled requests must not extend the window, got %d hits", hits)
	}
}

func TestSlidingWindowLimiter_Sweep(t *testing.T) {
	l := NewSlidingWindowLimiter(50*time.Millisecond, 5)

	l.Allow("a")
	l.Allow("b")
	time.Sleep(70 * time.Millisecond)
	l.Allow("c")

	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.hits["a"]; ok {
		t.Fatalf("idle key should be swept")
	}
	if _, ok := l.hits["b"]; ok {
		t.Fatalf("idle key should be swept")
	}
	if _, ok := l.hits["c"]; !ok {
		t.Fatalf("active key must survive the sweep")
	}
}
