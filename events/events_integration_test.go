package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"lendledger/domain/entities"

	"github.com/stretchr/testify/assert"
)

func testSummary(symbol string) entities.TokenSummary {
	return entities.TokenSummary{
		Symbol:      symbol,
		Decimals:    6,
		NetInterest: entities.NewAmountFromInt64(1233548, 6),
		NetPosition: entities.NewAmountFromInt64(-1001233548, 6),
	}
}

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan AccrualCompletedEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeAccrualCompleted, func(ctx context.Context, event Event) {
		defer wg.Done()
		if completed, ok := event.(AccrualCompletedEvent); ok {
			eventReceived <- completed
		} else {
			t.Errorf("Expected AccrualCompletedEvent, got %T", event)
		}
	})

	testEvent := AccrualCompletedEvent{
		RunID:      7,
		Address:    "0x1111111111111111111111111111111111111111",
		Today:      20240110,
		Summary:    testSummary("USDC"),
		IssueCount: 2,
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, transactionalBus.Pending())

	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent.RunID, received.RunID)
		assert.Equal(t, testEvent.Address, received.Address)
		assert.Equal(t, testEvent.Today, received.Today)
		assert.Equal(t, "USDC", received.Summary.Symbol)
		assert.Equal(t, "1233548", received.Summary.NetInterest.String())
		assert.Equal(t, testEvent.IssueCount, received.IssueCount)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan string, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeAccrualCompleted, func(ctx context.Context, event Event) {
		defer wg.Done()
		if completed, ok := event.(AccrualCompletedEvent); ok {
			received <- completed.Summary.Symbol
		}
	})
	mainBus.Subscribe(EventTypeRecordsCached, func(ctx context.Context, event Event) {
		t.Errorf("unexpected %s delivery", event.Type())
	})

	for _, symbol := range []string{"USDC", "WXDAI", "GNO"} {
		transactionalBus.Publish(AccrualCompletedEvent{Summary: testSummary(symbol)})
	}

	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)
	wg.Wait()
	close(received)

	// order may vary due to goroutines
	symbols := make(map[string]bool)
	for s := range received {
		symbols[s] = true
	}
	assert.Equal(t, map[string]bool{"USDC": true, "WXDAI": true, "GNO": true}, symbols)
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeRecordsCached, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(RecordsCachedEvent{Address: "0xabc", Transactions: 3})
	transactionalBus.Discard()
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	bus.Subscribe(EventTypeRecordsCached, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeRecordsCached, func(ctx context.Context, event Event) {
		close(done)
	})

	bus.Emit(context.Background(), RecordsCachedEvent{Address: "0xabc"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not called")
	}
}
