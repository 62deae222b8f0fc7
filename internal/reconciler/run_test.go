package reconciler

import (
	"context"
	"errors"
	"testing"

	"paygate/internal/pgmq"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

type fakeQueueClient struct {
	deleted []int64
}

func (q *fakeQueueClient) ReadWithPoll(ctx context.Context, queue string, timeoutSec, maxMessages int) ([]*pgmq.Message, error) {
	return nil, nil
}

func (q *fakeQueueClient) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	q.deleted = append(q.deleted, msgIDs...)
	return nil
}

type fakeIntents struct {
	status stripe.PaymentIntentStatus
	err    error
}

func (f *fakeIntents) GetPaymentIntentStatus(ctx context.Context, intentID string) (stripe.PaymentIntentStatus, error) {
	return f.status, f.err
}

type fakeGranter struct {
	granted []string
	err     error
}

func (f *fakeGranter) Grant(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.granted = append(f.granted, userID)
	return nil
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status stripe.PaymentIntentStatus
		want   action
	}{
		{stripe.PaymentIntentStatusSucceeded, actionGrant},
		{stripe.PaymentIntentStatusCanceled, actionDrop},
		{stripe.PaymentIntentStatusProcessing, actionRetry},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, actionRetry},
		{stripe.PaymentIntentStatusRequiresAction, actionRetry},
		{stripe.PaymentIntentStatusRequiresConfirmation, actionRetry},
	}
	for _, c := range cases {
		if got := classify(c.status); got != c.want {
			t.Fatalf("classify(%s) = %d, want %d", c.status, got, c.want)
		}
	}
}

func job() *pgmq.Message {
	return &pgmq.Message{ID: 7, Data: []byte(`{"user_id":"u1","payment_intent_id":"pi_1"}`)}
}

func TestProcessMessageGrantsOnSucceeded(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{status: stripe.PaymentIntentStatusSucceeded}, grants, "q", job())

	if len(grants.granted) != 1 || grants.granted[0] != "u1" {
		t.Fatalf("expected grant for u1, got %+v", grants.granted)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != 7 {
		t.Fatalf("expected message 7 deleted, got %+v", queue.deleted)
	}
}

func TestProcessMessageKeepsInFlightJob(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{status: stripe.PaymentIntentStatusProcessing}, grants, "q", job())

	if len(grants.granted) != 0 {
		t.Fatal("no grant expected while the intent is in flight")
	}
	if len(queue.deleted) != 0 {
		t.Fatal("in-flight job must stay queued")
	}
}

func TestProcessMessageDropsCanceledIntent(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{status: stripe.PaymentIntentStatusCanceled}, grants, "q", job())

	if len(grants.granted) != 0 {
		t.Fatal("no grant expected for a canceled intent")
	}
	if len(queue.deleted) != 1 {
		t.Fatal("canceled job should be deleted")
	}
}

func TestProcessMessageKeepsJobWhenGrantFails(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{err: errors.New("db down")}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{status: stripe.PaymentIntentStatusSucceeded}, grants, "q", job())

	if len(queue.deleted) != 0 {
		t.Fatal("job must stay queued when the grant fails")
	}
}

func TestProcessMessageKeepsJobOnStatusError(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{err: errors.New("stripe unavailable")}, grants, "q", job())

	if len(queue.deleted) != 0 || len(grants.granted) != 0 {
		t.Fatal("job must stay queued when the status lookup fails")
	}
}

func TestProcessMessageDropsMalformedPayload(t *testing.T) {
	queue := &fakeQueueClient{}
	grants := &fakeGranter{}
	msg := &pgmq.Message{ID: 9, Data: []byte("not json")}
	processMessage(context.Background(), zerolog.Nop(), queue, &fakeIntents{}, grants, "q", msg)

	if len(queue.deleted) != 1 || queue.deleted[0] != 9 {
		t.Fatalf("malformed message should be deleted, got %+v", queue.deleted)
	}
	if len(grants.granted) != 0 {
		t.Fatal("no grant expected for malformed payload")
	}
}
