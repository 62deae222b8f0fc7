package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"paygate/internal/model"

	"github.com/rs/zerolog"
)

type fakeQueue struct {
	sent [][]byte
	err  error
}

func (q *fakeQueue) Send(ctx context.Context, queue string, payload []byte) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, payload)
	return nil
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, payload)
	return "msg-1", nil
}

func TestGrantIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	svc := NewEntitlementService(repo, &fakeQueue{}, nil, "entitlement_queue", "", zerolog.Nop())

	if err := svc.Grant(context.Background(), "u1"); err != nil {
		t.Fatalf("first grant returned error: %v", err)
	}
	if err := svc.Grant(context.Background(), "u1"); err != nil {
		t.Fatalf("second grant returned error: %v", err)
	}

	has, err := svc.Has(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Has returned error: %v", err)
	}
	if !has {
		t.Fatal("expected lifetime access after grant")
	}
}

func TestGrantPublishesEvent(t *testing.T) {
	repo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	pub := &fakePublisher{}
	svc := NewEntitlementService(repo, &fakeQueue{}, pub, "entitlement_queue", "entitlement-granted", zerolog.Nop())

	if err := svc.Grant(context.Background(), "u1"); err != nil {
		t.Fatalf("grant returned error: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	var event model.EntitlementEvent
	if err := json.Unmarshal(pub.published[0], &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.UserID != "u1" {
		t.Fatalf("unexpected event user: %s", event.UserID)
	}
}

func TestGrantSucceedsWhenPublishFails(t *testing.T) {
	repo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	pub := &fakePublisher{err: errors.New("pubsub unavailable")}
	svc := NewEntitlementService(repo, &fakeQueue{}, pub, "entitlement_queue", "entitlement-granted", zerolog.Nop())

	if err := svc.Grant(context.Background(), "u1"); err != nil {
		t.Fatalf("grant should not fail on publish error, got: %v", err)
	}
	has, _ := svc.Has(context.Background(), "u1")
	if !has {
		t.Fatal("expected grant to stick despite publish failure")
	}
}

func TestGrantPropagatesStoreFailure(t *testing.T) {
	repo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	repo.setErr = errors.New("connection reset")
	svc := NewEntitlementService(repo, &fakeQueue{}, nil, "entitlement_queue", "", zerolog.Nop())

	if err := svc.Grant(context.Background(), "u1"); err == nil {
		t.Fatal("expected error when the entitlement store write fails")
	}
}

func TestHasUnknownUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewEntitlementService(repo, &fakeQueue{}, nil, "entitlement_queue", "", zerolog.Nop())

	if _, err := svc.Has(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEnqueueVerification(t *testing.T) {
	repo := newFakeUserRepo(&model.User{UserID: "u1", Email: "u1@example.com"})
	queue := &fakeQueue{}
	svc := NewEntitlementService(repo, queue, nil, "entitlement_queue", "", zerolog.Nop())

	if err := svc.EnqueueVerification(context.Background(), "u1", "pi_123"); err != nil {
		t.Fatalf("EnqueueVerification returned error: %v", err)
	}
	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(queue.sent))
	}
	var job model.EntitlementJob
	if err := json.Unmarshal(queue.sent[0], &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.UserID != "u1" || job.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected job: %+v", job)
	}
}
