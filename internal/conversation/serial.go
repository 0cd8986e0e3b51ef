package conversation

import (
	"context"
	"time"

	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/worker"
	"go.uber.org/zap"
)

// Serial feeds updates to a Handler through a worker pool, so each user's
// turns run one at a time and in arrival order.
type Serial struct {
	handler *Handler
	pool    *worker.Pool
	logger  *zap.Logger
}

var _ platform.Handler = (*Serial)(nil)

// NewSerial creates a Serial.
func NewSerial(h *Handler, pool *worker.Pool, logger *zap.Logger) *Serial {
	return &Serial{handler: h, pool: pool, logger: logger}
}

func (s *Serial) HandleUpdate(u platform.Update) {
	ok := s.pool.Dispatch(worker.Job{
		UserID: u.UserID,
		Handler: func(ctx context.Context) error {
			return s.handler.Handle(ctx, u)
		},
	})
	if ok {
		return
	}
	s.logger.Warn("update dropped", zap.Int64("user_id", u.UserID), zap.Bool("stopping", s.pool.Stopped()))
	if s.pool.Stopped() {
		return
	}
	s.busy(u)
}

const busyText = "I'm busy with your earlier messages. Please try again in a moment."

// busy tells the user their turn was not taken.
func (s *Serial) busy(u platform.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if u.Callback != nil {
		err = s.handler.bot.AnswerCallback(ctx, u.Callback.ID, busyText)
	} else {
		_, err = s.handler.bot.Reply(ctx, u.ChatID, busyText, nil)
	}
	if err != nil {
		s.logger.Debug("failed to send busy notice", zap.Int64("user_id", u.UserID), zap.Error(err))
	}
}
