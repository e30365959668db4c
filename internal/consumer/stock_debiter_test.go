package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"stockgate/internal/models"
	"stockgate/internal/store"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeued bool
}

func (a *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

type fakeDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{keys: make(map[string]bool)}
}

func (d *fakeDeduper) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *fakeDeduper) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

func delivery(t *testing.T, ack *fakeAcknowledger, event models.OrderConfirmedEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

// runAll feeds the deliveries through the debiter loop and returns once the
// loop has drained them.
func runAll(debiter *StockDebiter, deliveries ...amqp.Delivery) {
	ch := make(chan amqp.Delivery, len(deliveries))
	for _, d := range deliveries {
		ch <- d
	}
	close(ch)
	debiter.Run(context.Background(), ch)
}

func TestDebiterAppliesEvent(t *testing.T) {
	products := store.NewMemoryProductStore()
	p, _ := products.Create(context.Background(), models.CreateProductRequest{Name: "Keyboard", Quantity: 5})

	ack := &fakeAcknowledger{}
	debiter := NewStockDebiter(products, newFakeDeduper(), zap.NewNop().Sugar())

	runAll(debiter, delivery(t, ack, models.OrderConfirmedEvent{
		EventID: "ev-1",
		OrderID: 1,
		Items:   []models.OrderItemEvent{{ProductID: p.ID, Quantity: 3}},
	}))

	got, _ := products.GetByID(context.Background(), p.ID)
	if got.Quantity != 2 {
		t.Fatalf("expected quantity 2 after debit, got %d", got.Quantity)
	}
	if ack.acks != 1 || ack.nacks != 0 {
		t.Fatalf("expected one ack, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
}

func TestDebiterSkipsDuplicateEvent(t *testing.T) {
	products := store.NewMemoryProductStore()
	p, _ := products.Create(context.Background(), models.CreateProductRequest{Name: "Mouse", Quantity: 10})

	ack := &fakeAcknowledger{}
	debiter := NewStockDebiter(products, newFakeDeduper(), zap.NewNop().Sugar())

	event := models.OrderConfirmedEvent{
		EventID: "ev-dup",
		OrderID: 2,
		Items:   []models.OrderItemEvent{{ProductID: p.ID, Quantity: 4}},
	}
	runAll(debiter, delivery(t, ack, event), delivery(t, ack, event))

	got, _ := products.GetByID(context.Background(), p.ID)
	if got.Quantity != 6 {
		t.Fatalf("redelivered event must debit once, got quantity %d", got.Quantity)
	}
	// The duplicate is still acknowledged so it leaves the queue.
	if ack.acks != 2 {
		t.Fatalf("expected both deliveries acked, got %d", ack.acks)
	}
}

func TestDebiterWithoutDeduperDebitsTwice(t *testing.T) {
	// Documents the double-debit gap when no dedupe store is wired.
	products := store.NewMemoryProductStore()
	p, _ := products.Create(context.Background(), models.CreateProductRequest{Name: "Cable", Quantity: 10})

	ack := &fakeAcknowledger{}
	debiter := NewStockDebiter(products, nil, zap.NewNop().Sugar())

	event := models.OrderConfirmedEvent{
		EventID: "ev-replay",
		OrderID: 3,
		Items:   []models.OrderItemEvent{{ProductID: p.ID, Quantity: 2}},
	}
	runAll(debiter, delivery(t, ack, event), delivery(t, ack, event))

	got, _ := products.GetByID(context.Background(), p.ID)
	if got.Quantity != 6 {
		t.Fatalf("expected double debit without deduper, got quantity %d", got.Quantity)
	}
}

func TestDebiterDropsMalformedPayload(t *testing.T) {
	ack := &fakeAcknowledger{}
	debiter := NewStockDebiter(store.NewMemoryProductStore(), nil, zap.NewNop().Sugar())

	runAll(debiter, amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if ack.nacks != 1 || ack.requeued {
		t.Fatalf("expected nack without requeue, got nacks=%d requeued=%v", ack.nacks, ack.requeued)
	}
}

func TestDebiterToleratesUnknownAndShortProducts(t *testing.T) {
	products := store.NewMemoryProductStore()
	known, _ := products.Create(context.Background(), models.CreateProductRequest{Name: "Hub", Quantity: 5})
	short, _ := products.Create(context.Background(), models.CreateProductRequest{Name: "Dock", Quantity: 1})

	ack := &fakeAcknowledger{}
	debiter := NewStockDebiter(products, newFakeDeduper(), zap.NewNop().Sugar())

	runAll(debiter, delivery(t, ack, models.OrderConfirmedEvent{
		EventID: "ev-mixed",
		OrderID: 4,
		Items: []models.OrderItemEvent{
			{ProductID: 999, Quantity: 1},      // unknown: skipped
			{ProductID: short.ID, Quantity: 5}, // short: dropped at the floor
			{ProductID: known.ID, Quantity: 2}, // fine
		},
	}))

	if ack.acks != 1 {
		t.Fatalf("best-effort event must still be acked, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
	gotKnown, _ := products.GetByID(context.Background(), known.ID)
	if gotKnown.Quantity != 3 {
		t.Fatalf("expected remaining items debited, got %d", gotKnown.Quantity)
	}
	gotShort, _ := products.GetByID(context.Background(), short.ID)
	if gotShort.Quantity != 1 {
		t.Fatalf("short debit must not change quantity, got %d", gotShort.Quantity)
	}
}

func TestDebiterStopsOnContextCancel(t *testing.T) {
	debiter := NewStockDebiter(store.NewMemoryProductStore(), nil, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		debiter.Run(ctx, make(chan amqp.Delivery))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debiter did not stop after cancellation")
	}
}
