package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-syr-auth"
)

func TestMultiActivitySink(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("queue full")
	})

	sink := auth.MultiActivitySink(first, nil, failing, second)
	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})

	assert.EqualError(t, err, "queue full")
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLogout}, first.Types())
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLogout}, second.Types(), "later sinks still run")
}

func TestActivitySinkFailuresDoNotFailOperations(t *testing.T) {
	f := newFixture(t, auth.WithActivitySink(auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	})))

	result := f.register(t, "alice")
	assert.NoError(t, f.prov.Logout(context.Background(), result.Session.ID))
}

func TestNilActivitySinkFunc(t *testing.T) {
	var fn auth.ActivitySinkFunc
	assert.NoError(t, fn.Record(context.Background(), auth.ActivityEvent{}))
}
