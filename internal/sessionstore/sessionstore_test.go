package sessionstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matheus3301/postbot/internal/post"
)

func sample() *Session {
	d := post.New()
	d.Text = "<b>draft</b>"
	d.AddMedia(post.MediaItem{Kind: post.Photo, Ref: "p1"})
	return &Session{UserID: 42, ChatID: 42, State: "media", Draft: d, EditingFromSchedule: true}
}

func exercise(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	got, err := st.Get(ctx, 42)
	if err != nil || got != nil {
		t.Fatalf("Get(absent) = %v, %v; want nil, nil", got, err)
	}

	s := sample()
	if err := st.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err = st.Get(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.State != "media" || !got.EditingFromSchedule {
		t.Fatalf("Get() = %+v", got)
	}
	if got.Draft == nil || got.Draft.Text != "<b>draft</b>" || len(got.Draft.Media) != 1 {
		t.Errorf("draft = %+v", got.Draft)
	}

	// Mutating the returned copy does not touch the stored one.
	got.Draft.AddMedia(post.MediaItem{Kind: post.Photo, Ref: "p2"})
	again, _ := st.Get(ctx, 42)
	if len(again.Draft.Media) != 1 {
		t.Errorf("stored draft changed through a returned copy")
	}

	if err := st.Delete(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if got, _ := st.Get(ctx, 42); got != nil {
		t.Error("session survived Delete")
	}
	if err := st.Delete(ctx, 42); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(time.Hour))
}

func TestMemoryExpires(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Put(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(59 * time.Second)
	if got, _ := m.Get(context.Background(), 42); got == nil {
		t.Fatal("session expired early")
	}
	now = now.Add(time.Second)
	if got, _ := m.Get(context.Background(), 42); got != nil {
		t.Fatal("session outlived its ttl")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not evicted")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(123); got != "postbot:session:123" {
		t.Errorf("sessionKey = %q", got)
	}
}

func TestValkey(t *testing.T) {
	addr := os.Getenv("POSTBOT_TEST_VALKEY")
	if addr == "" {
		t.Skip("POSTBOT_TEST_VALKEY not set")
	}
	v, err := NewValkey(ValkeyConfig{Address: addr, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()
	exercise(t, v)
}
