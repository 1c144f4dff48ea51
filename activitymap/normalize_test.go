package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		UserID:     "user-100",
		Username:   "alice",
		SessionID:  "sess-1",
		Metadata:   map[string]any{"client": "203.0.113.7"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "session" || out.ObjectID != "sess-1" {
		t.Fatalf("expected session/sess-1, got %s/%s", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %s, got %s", ts, out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyUsername] != "alice" {
		t.Fatalf("expected metadata username alice, got %#v", out.Metadata[activitymap.MetadataKeyUsername])
	}
	if out.Metadata[activitymap.MetadataKeySessionID] != "sess-1" {
		t.Fatalf("expected metadata session_id sess-1, got %#v", out.Metadata[activitymap.MetadataKeySessionID])
	}
	if out.Metadata["client"] != "203.0.113.7" {
		t.Fatalf("expected client metadata preserved, got %#v", out.Metadata["client"])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeObjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		event      auth.ActivityEvent
		objectType string
		objectID   string
	}{
		{
			name:       "profile events target the profile",
			event:      auth.ActivityEvent{EventType: auth.ActivityEventProfileUpdated, UserID: "user-1"},
			objectType: "profile",
			objectID:   "user-1",
		},
		{
			name:       "logout without session falls back to user",
			event:      auth.ActivityEvent{EventType: auth.ActivityEventLogout, UserID: "user-2"},
			objectType: "user",
			objectID:   "user-2",
		},
		{
			name:       "failed login targets the username",
			event:      auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure, Username: "mallory"},
			objectType: "user",
			objectID:   "mallory",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event)
			if out.ObjectType != tc.objectType || out.ObjectID != tc.objectID {
				t.Fatalf("expected %s/%s, got %s/%s", tc.objectType, tc.objectID, out.ObjectType, out.ObjectID)
			}
		})
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRegisterSuccess,
		UserID:    "user-200",
		Username:  "bob",
		Metadata: map[string]any{
			activitymap.MetadataKeyUsername: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithObjectResolver(func(e auth.ActivityEvent) (string, string) {
			return "account", "acct-" + e.UserID
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "acct-user-200" {
		t.Fatalf("expected object_id acct-user-200, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyUsername] != "existing" {
		t.Fatalf("expected existing username preserved, got %#v", out.Metadata[activitymap.MetadataKeyUsername])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses user id when present",
			event:  auth.ActivityEvent{UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when user missing",
			event:  auth.ActivityEvent{Username: "ghost"},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback when user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}
