package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AsyncDispatcher hands messages to a fixed pool of workers through a bounded
// queue. Delivery is best effort: a full queue drops the message and send
// failures are logged, never retried.
type AsyncDispatcher struct {
	queue   chan Message
	senders []Sender
	timeout time.Duration
	workers int
	logger  *zap.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

func NewAsyncDispatcher(logger *zap.Logger, workers, queueSize int, timeout time.Duration, senders ...Sender) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AsyncDispatcher{
		queue:   make(chan Message, queueSize),
		senders: senders,
		timeout: timeout,
		workers: workers,
		logger:  logger.Named("notify"),
	}
}

// Start launches the workers. They drain the queue until Stop is called.
func (d *AsyncDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop closes the queue and waits for queued messages to be attempted or for
// ctx to end.
func (d *AsyncDispatcher) Stop(ctx context.Context) {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("notification workers did not drain before shutdown", zap.Int("pending", len(d.queue)))
	}
}

func (d *AsyncDispatcher) Dispatch(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped, dispatcher stopped", zap.String("kind", string(msg.Kind)))
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("notification dropped, queue full",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
		)
		return false
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *AsyncDispatcher) deliver(msg Message) {
	for _, s := range d.senders {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.safeSend(ctx, s, msg)
		cancel()

		if err != nil {
			d.logger.Error("notification failed",
				zap.String("channel", s.Name()),
				zap.String("kind", string(msg.Kind)),
				zap.String("to", msg.To),
				zap.Error(err),
			)
			continue
		}
		d.logger.Info("notification sent",
			zap.String("channel", s.Name()),
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
		)
	}
}

func (d *AsyncDispatcher) safeSend(ctx context.Context, s Sender, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sender panicked", zap.String("channel", s.Name()), zap.Any("panic", r))
			err = errSenderPanic
		}
	}()
	return s.Send(ctx, msg)
}
