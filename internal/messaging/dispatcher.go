package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
	"github.com/VigiaLabs/LeadPipe/internal/util"
)

// Responder turns one inbound prospect message into one reply. An empty
// reply means nothing should be sent.
type Responder interface {
	HandleMessage(ctx context.Context, msg models.Message) string
}

// Dispatcher consumes inbound messages from a messaging Service, runs each
// through the conversation engine and sends the reply back. Each prospect
// gets a dedicated FIFO queue, so one prospect's messages are processed
// strictly in arrival order while different prospects proceed concurrently.
type Dispatcher struct {
	svc    Service
	engine Responder
	st     store.Store
	delay  DelayFunc

	mu      sync.Mutex
	queues  map[string]chan models.Response
	pending sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDelayFunc overrides the pause applied before each outbound reply.
func WithDelayFunc(fn DelayFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.delay = fn
	}
}

// NewDispatcher creates a Dispatcher. Replies are paused with HumanizedDelay
// unless overridden.
func NewDispatcher(svc Service, engine Responder, st store.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		svc:    svc,
		engine: engine,
		st:     st,
		delay:  HumanizedDelay,
		queues: make(map[string]chan models.Response),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the response and receipt loops. They run until the context
// is cancelled or the service channels close.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("Dispatcher starting")

	go func() {
		for {
			select {
			case response, ok := <-d.svc.Responses():
				if !ok {
					slog.Debug("Dispatcher responses channel closed")
					return
				}
				d.enqueue(ctx, response)
			case <-ctx.Done():
				slog.Debug("Dispatcher response loop stopping")
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case receipt, ok := <-d.svc.Receipts():
				if !ok {
					slog.Debug("Dispatcher receipts channel closed")
					return
				}
				if err := d.st.AddReceipt(receipt); err != nil {
					slog.Error("Dispatcher failed to record receipt", "error", err, "to", receipt.To)
				}
			case <-ctx.Done():
				slog.Debug("Dispatcher receipt loop stopping")
				return
			}
		}
	}()
}

// Wait blocks until all enqueued responses have been processed.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// enqueue places a response on its sender's FIFO queue, creating the queue
// and its worker on first contact.
func (d *Dispatcher) enqueue(ctx context.Context, response models.Response) {
	d.mu.Lock()
	queue, ok := d.queues[response.From]
	if !ok {
		queue = make(chan models.Response, DefaultChannelBufferSize)
		d.queues[response.From] = queue
		go d.senderWorker(ctx, response.From, queue)
	}
	d.mu.Unlock()

	d.pending.Add(1)
	select {
	case queue <- response:
	default:
		d.pending.Done()
		slog.Warn("Dispatcher sender queue full, dropping message", "from", response.From)
	}
}

// senderWorker drains one prospect's queue in order.
func (d *Dispatcher) senderWorker(ctx context.Context, sender string, queue chan models.Response) {
	slog.Debug("Dispatcher sender worker started", "from", sender)
	for {
		select {
		case response := <-queue:
			d.handleResponse(ctx, response)
			d.pending.Done()
		case <-ctx.Done():
			// Account for anything still queued so Wait does not hang.
			for {
				select {
				case <-queue:
					d.pending.Done()
				default:
					slog.Debug("Dispatcher sender worker stopping", "from", sender)
					return
				}
			}
		}
	}
}

// handleResponse processes one inbound message: records it, asks the engine
// for a reply, pauses like a human typist and sends. Each message gets a
// trace ID so its log lines can be correlated across the turn.
func (d *Dispatcher) handleResponse(ctx context.Context, response models.Response) {
	trace := util.GenerateTraceID()

	if err := d.st.AddResponse(response); err != nil {
		slog.Error("Dispatcher failed to record response", "error", err, "from", response.From, "trace", trace)
	}

	msg := models.Message{
		From: response.From,
		Body: response.Body,
		Time: response.Time,
	}

	reply := d.engine.HandleMessage(ctx, msg)
	if reply == "" {
		slog.Debug("Dispatcher no reply produced", "from", response.From, "trace", trace)
		return
	}

	if pause := d.delay(reply); pause > 0 {
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			slog.Debug("Dispatcher delay interrupted by shutdown", "from", response.From, "trace", trace)
			return
		}
	}

	if err := d.svc.SendMessage(ctx, response.From, reply); err != nil {
		slog.Error("Dispatcher failed to send reply", "error", err, "to", response.From, "trace", trace)
		return
	}
	slog.Info("Dispatcher reply sent", "to", response.From, "reply_length", len(reply), "trace", trace)
}
