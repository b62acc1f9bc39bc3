package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.events, ",")
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
}

func (f *fakeComponent) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.rec.add("start:" + f.name)
	return nil
}

func (f *fakeComponent) Stop(context.Context) error {
	f.rec.add("stop:" + f.name)
	return nil
}

func TestRunStopsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	app := New(nil, nil, time.Second)
	app.AddComponent("a", &fakeComponent{name: "a", rec: rec})
	app.AddComponent("b", &fakeComponent{name: "b", rec: rec})
	app.AddCloser("db", func() error { rec.add("close:db"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := rec.String(); got != "start:a,start:b,stop:b,stop:a,close:db" {
		t.Fatalf("events=%s", got)
	}
}

func TestRunStartFailureStopsStarted(t *testing.T) {
	rec := &recorder{}
	app := New(nil, nil, time.Second)
	app.AddComponent("a", &fakeComponent{name: "a", rec: rec})
	app.AddComponent("b", &fakeComponent{name: "b", rec: rec, startErr: errors.New("no brokers")})

	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "start b") {
		t.Fatalf("expected start error, got %v", err)
	}
	if got := rec.String(); got != "start:a,stop:a" {
		t.Fatalf("events=%s", got)
	}
}

func TestLoopStopsRunFunction(t *testing.T) {
	exited := make(chan struct{})
	l := NewLoop(func(ctx context.Context) {
		<-ctx.Done()
		close(exited)
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-exited:
	default:
		t.Fatalf("run function still active after Stop")
	}
}
