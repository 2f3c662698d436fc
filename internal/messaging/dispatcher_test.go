package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
)

// channelService is a Service fake whose inbound channels the test feeds
// directly and whose outbound messages are recorded.
type channelService struct {
	mu        sync.Mutex
	sent      []sentReply
	responses chan models.Response
	receipts  chan models.Receipt
	sendErr   error
}

type sentReply struct {
	To   string
	Body string
}

func newChannelService() *channelService {
	return &channelService{
		responses: make(chan models.Response, 16),
		receipts:  make(chan models.Receipt, 16),
	}
}

func (s *channelService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *channelService) SendMessage(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentReply{To: to, Body: body})
	return nil
}

func (s *channelService) Start(ctx context.Context) error { return nil }
func (s *channelService) Stop() error                     { return nil }

func (s *channelService) Receipts() <-chan models.Receipt   { return s.receipts }
func (s *channelService) Responses() <-chan models.Response { return s.responses }

func (s *channelService) sentReplies() []sentReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentReply, len(s.sent))
	copy(out, s.sent)
	return out
}

// echoResponder replies with a transform of the body and records the order
// in which messages arrived.
type echoResponder struct {
	mu     sync.Mutex
	seen   []string
	silent bool
}

func (e *echoResponder) HandleMessage(ctx context.Context, msg models.Message) string {
	e.mu.Lock()
	e.seen = append(e.seen, msg.From+":"+msg.Body)
	e.mu.Unlock()
	if e.silent {
		return ""
	}
	return "eco: " + msg.Body
}

func (e *echoResponder) seenMessages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.seen))
	copy(out, e.seen)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDispatcherRepliesAndRecordsAuditTrail(t *testing.T) {
	svc := newChannelService()
	responder := &echoResponder{}
	st := store.NewInMemoryStore()
	d := NewDispatcher(svc, responder, st, WithDelayFunc(NoDelay))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	svc.responses <- models.Response{From: "51900000001", Body: "Hola", Time: time.Now().Unix()}

	waitFor(t, 2*time.Second, func() bool { return len(svc.sentReplies()) == 1 })

	sent := svc.sentReplies()
	if sent[0].To != "51900000001" || sent[0].Body != "eco: Hola" {
		t.Errorf("unexpected reply: %+v", sent[0])
	}

	responses, err := st.GetResponses()
	if err != nil {
		t.Fatalf("GetResponses: %v", err)
	}
	if len(responses) != 1 || responses[0].Body != "Hola" {
		t.Errorf("inbound message not recorded: %+v", responses)
	}
}

func TestDispatcherSerializesPerSender(t *testing.T) {
	svc := newChannelService()
	responder := &echoResponder{}
	st := store.NewInMemoryStore()
	d := NewDispatcher(svc, responder, st, WithDelayFunc(NoDelay))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 1; i <= 5; i++ {
		svc.responses <- models.Response{From: "51900000001", Body: fmt.Sprintf("m%d", i), Time: time.Now().Unix()}
	}

	waitFor(t, 2*time.Second, func() bool { return len(svc.sentReplies()) == 5 })
	d.Wait()

	// One prospect's messages flow through a single FIFO queue, so they
	// must reach the engine strictly in arrival order.
	seen := responder.seenMessages()
	for i, want := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if seen[i] != "51900000001:"+want {
			t.Fatalf("message order broken at %d: %v", i, seen)
		}
	}
}

func TestDispatcherSkipsEmptyReplies(t *testing.T) {
	svc := newChannelService()
	responder := &echoResponder{silent: true}
	st := store.NewInMemoryStore()
	d := NewDispatcher(svc, responder, st, WithDelayFunc(NoDelay))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	svc.responses <- models.Response{From: "51900000001", Body: "Hola", Time: time.Now().Unix()}

	waitFor(t, 2*time.Second, func() bool { return len(responder.seenMessages()) == 1 })
	d.Wait()

	if len(svc.sentReplies()) != 0 {
		t.Errorf("expected no outbound replies, got %v", svc.sentReplies())
	}
}

// gatedResponder parks inside HandleMessage until released, so a test can
// cancel the dispatcher while messages are still queued behind it.
type gatedResponder struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedResponder) HandleMessage(ctx context.Context, msg models.Message) string {
	g.entered <- struct{}{}
	<-g.release
	return ""
}

func TestDispatcherWaitReturnsAfterCancel(t *testing.T) {
	svc := newChannelService()
	responder := &gatedResponder{entered: make(chan struct{}, 3), release: make(chan struct{})}
	st := store.NewInMemoryStore()
	d := NewDispatcher(svc, responder, st, WithDelayFunc(NoDelay))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 1; i <= 3; i++ {
		svc.responses <- models.Response{From: "51900000001", Body: fmt.Sprintf("m%d", i), Time: time.Now().Unix()}
	}

	// First message is in the engine; the other two sit in the queue.
	<-responder.entered
	cancel()
	close(responder.release)

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation with queued messages")
	}
}

func TestDispatcherRecordsReceipts(t *testing.T) {
	svc := newChannelService()
	st := store.NewInMemoryStore()
	d := NewDispatcher(svc, &echoResponder{}, st, WithDelayFunc(NoDelay))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	svc.receipts <- models.Receipt{To: "51900000001", Status: models.StatusTypeDelivered, Time: time.Now().Unix()}

	waitFor(t, 2*time.Second, func() bool {
		receipts, err := st.GetReceipts()
		return err == nil && len(receipts) == 1
	})

	receipts, _ := st.GetReceipts()
	if receipts[0].Status != models.StatusTypeDelivered {
		t.Errorf("receipt status = %q", receipts[0].Status)
	}
}
