package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
	got      chan struct{}
}

func newRecordingSubscriber(fail bool) *recordingSubscriber {
	return &recordingSubscriber{fail: fail, got: make(chan struct{}, 8)}
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.payloads = append(r.payloads, p)
	r.got <- struct{}{}
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recordingSubscriber) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubPublishAssetReachesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx, nil)

	sub := newRecordingSubscriber(false)
	hub.Register(sub)
	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	hub.PublishAsset(domain.AssetEvent{
		Kind:  domain.AssetCreated,
		Asset: domain.Asset{ID: "a-1", Name: "Dell", Type: domain.AssetTypeLaptop},
		At:    time.Now().UTC(),
	})

	select {
	case <-sub.got:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	var event domain.AssetEvent
	sub.mu.Lock()
	payload := sub.payloads[0]
	sub.mu.Unlock()
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Kind != domain.AssetCreated || event.Asset.ID != "a-1" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx, nil)

	bad := newRecordingSubscriber(true)
	hub.Register(bad)
	hub.Broadcast([]byte(`{}`))

	waitFor(t, func() bool { return bad.isClosed() && hub.Subscribers() == 0 })
}

func TestHubUnregisterAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx, nil)

	a := newRecordingSubscriber(false)
	b := newRecordingSubscriber(false)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)
	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	cancel()
	<-hub.Done()
	if !b.isClosed() {
		t.Fatal("expected remaining subscriber to be closed on shutdown")
	}

	// calls after shutdown must not block
	late := newRecordingSubscriber(false)
	hub.Register(late)
	hub.Broadcast([]byte(`{}`))
	if !late.isClosed() {
		t.Fatal("expected late subscriber to be closed")
	}
}

func TestSSEClientFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, nil)

	if err := client.Hello(); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if err := client.Send([]byte(`{"kind":"asset.deleted"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{"event: ready", "event: asset\ndata: {\"kind\":\"asset.deleted\"}\n\n", ": ping"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in stream %q", want, body)
		}
	}

	client.Close()
	select {
	case <-client.Done():
	default:
		t.Fatal("expected done to be closed")
	}
	if err := client.Send([]byte("x")); err == nil {
		t.Fatal("expected send after close to fail")
	}
	client.Close()
}
