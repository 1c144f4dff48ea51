package activitymap_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/activitymap"
)

type fakeProducer struct {
	records []*kgo.Record
	ctxErr  error
	fail    error
}

func (f *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.ctxErr = ctx.Err()
	f.records = append(f.records, r)
	if promise != nil {
		promise(r, f.fail)
	}
}

func TestKafkaSinkProducesNormalizedRecord(t *testing.T) {
	producer := &fakeProducer{}
	sink := activitymap.NewKafkaSink(producer, "auth.activity", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	err := sink.Record(ctx, auth.ActivityEvent{
		EventType:  auth.ActivityEventRegisterSuccess,
		UserID:     "user-1",
		Username:   "alice",
		OccurredAt: ts,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(producer.records) != 1 {
		t.Fatalf("expected one record, got %d", len(producer.records))
	}
	if producer.ctxErr != nil {
		t.Fatalf("expected produce context detached from request, got %v", producer.ctxErr)
	}

	record := producer.records[0]
	if record.Topic != "auth.activity" {
		t.Fatalf("expected topic auth.activity, got %q", record.Topic)
	}
	if string(record.Key) != "user-1" {
		t.Fatalf("expected key user-1, got %q", record.Key)
	}
	if len(record.Headers) != 1 || string(record.Headers[0].Value) != string(auth.ActivityEventRegisterSuccess) {
		t.Fatalf("expected event_type header, got %+v", record.Headers)
	}

	var body activitymap.Normalized
	if err := json.Unmarshal(record.Value, &body); err != nil {
		t.Fatalf("record value is not json: %v", err)
	}
	if body.Verb != string(auth.ActivityEventRegisterSuccess) || body.ActorID != "user-1" {
		t.Fatalf("unexpected payload %+v", body)
	}
	if !body.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %s, got %s", ts, body.OccurredAt)
	}
}

func TestKafkaSinkDeliveryFailureIsNotReturned(t *testing.T) {
	producer := &fakeProducer{fail: errors.New("broker down")}
	sink := activitymap.NewKafkaSink(producer, "auth.activity", nil)

	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	if err != nil {
		t.Fatalf("expected delivery failures to be logged only, got %v", err)
	}
}
