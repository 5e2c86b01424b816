package notify

import (
	"go.uber.org/zap"
)

// Queue is a buffered in-process notification worker. One goroutine drains the
// channel and hands messages to the mailer; a full buffer drops the message
// rather than stall the request that produced it.
type Queue struct {
	ch     chan Message
	mailer Mailer
	logger *zap.Logger
	done   chan struct{}
}

// NewQueue creates the queue and starts its worker goroutine.
func NewQueue(mailer Mailer, logger *zap.Logger, buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	q := &Queue{
		ch:     make(chan Message, buffer),
		mailer: mailer,
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Enqueue(msg Message) {
	select {
	case q.ch <- msg:
	default:
		q.logger.Warn("notification queue full, dropping message",
			zap.String("kind", string(msg.Kind)),
			zap.String("recipient", msg.Recipient))
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for msg := range q.ch {
		if err := q.mailer.Send(msg); err != nil {
			q.logger.Error("notification delivery failed",
				zap.String("kind", string(msg.Kind)),
				zap.String("recipient", msg.Recipient),
				zap.Error(err))
			continue
		}
		q.logger.Info("notification sent",
			zap.String("kind", string(msg.Kind)),
			zap.String("recipient", msg.Recipient))
	}
}

// Close stops accepting messages and waits for the worker to drain the buffer.
func (q *Queue) Close() {
	close(q.ch)
	<-q.done
}
