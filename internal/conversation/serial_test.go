package conversation

import (
	"context"
	"testing"

	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSerialKeepsUserOrder(t *testing.T) {
	hs := newHarness(t)
	pool := worker.New(2, 8, zap.NewNop())
	pool.Start(context.Background())
	s := NewSerial(hs.h, pool, zap.NewNop())

	s.HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Command: "start"})
	s.HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Command: "cancel"})
	pool.Stop()

	require.Len(t, hs.bot.Replies, 2)
	assert.Contains(t, hs.bot.Replies[0].Text, "Hi!")
	assert.Contains(t, hs.bot.Replies[1].Text, "Cancelled")
}

func TestSerialDropsAfterStop(t *testing.T) {
	hs := newHarness(t)
	pool := worker.New(1, 1, zap.NewNop())
	pool.Start(context.Background())
	pool.Stop()

	NewSerial(hs.h, pool, zap.NewNop()).HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Command: "start"})
	assert.Empty(t, hs.bot.Replies)
	assert.Equal(t, int64(1), pool.Stats().Dropped)
}

func TestSerialRepliesBusyWhenQueueFull(t *testing.T) {
	hs := newHarness(t)
	// Not started: the single slot fills and the next turn is refused.
	pool := worker.New(1, 1, zap.NewNop())
	s := NewSerial(hs.h, pool, zap.NewNop())

	s.HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Command: "start"})
	assert.Empty(t, hs.bot.Replies)
	s.HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Text: "Hello"})
	require.Len(t, hs.bot.Replies, 1)
	assert.Equal(t, busyText, hs.bot.Replies[0].Text)

	s.HandleUpdate(platform.Update{UserID: admin, ChatID: admin, Callback: &platform.Callback{ID: "cb-2", Data: cbCreate}})
	assert.Equal(t, []string{"cb-2"}, hs.bot.Answers)
	assert.Equal(t, int64(2), pool.Stats().Dropped)

	pool.Start(context.Background())
	pool.Stop()
	require.Len(t, hs.bot.Replies, 2)
	assert.Contains(t, hs.bot.Replies[1].Text, "Hi!")
}
