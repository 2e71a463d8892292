// Package mq carries best-effort notifications. Checkout and registration
// enqueue events on a bounded worker pool and return immediately; a failed or
// dropped send is logged and never reaches the caller.
package mq

import (
	"context"
	"log"
	"sync"
	"time"

	"shophub/models"
)

const (
	EventWelcome           = "welcome"
	EventOrderConfirmation = "order-confirmation"
)

// Event is the payload handed to a Sender.
type Event struct {
	Type        string  `json:"type"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	OrderID     string  `json:"order_id,omitempty"`
	ProductID   string  `json:"product_id,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	TotalAmount float64 `json:"total_amount,omitempty"`
	PaymentMode string  `json:"payment_mode,omitempty"`
	Status      string  `json:"payment_status,omitempty"`
	Shipping    string  `json:"shipping_address,omitempty"`
}

// Notifier is the collaborator the account and checkout flows talk to.
type Notifier interface {
	SendWelcome(email, name string)
	SendOrderConfirmation(email, name string, order models.Order, product models.Product, address models.Address)
}

// Sender delivers one event.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// Dispatcher is a Notifier that runs sends on a fixed pool of workers.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize events.
func NewDispatcher(sender Sender, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	d := &Dispatcher{
		sender:  sender,
		timeout: 15 * time.Second,
		jobs:    make(chan Event, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sender.Send(ctx, ev); err != nil {
			log.Printf("[Notify] %s to %s failed: %v", ev.Type, ev.Email, err)
		}
		cancel()
	}
}

func (d *Dispatcher) enqueue(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("[Notify] dispatcher closed, dropping %s for %s", ev.Type, ev.Email)
		return
	}
	select {
	case d.jobs <- ev:
	default:
		log.Printf("[Notify] queue full, dropping %s for %s", ev.Type, ev.Email)
	}
}

func (d *Dispatcher) SendWelcome(email, name string) {
	d.enqueue(Event{Type: EventWelcome, Email: email, Name: name})
}

func (d *Dispatcher) SendOrderConfirmation(email, name string, order models.Order, product models.Product, address models.Address) {
	qty := order.Quantity
	for _, it := range order.Items() {
		if it.ProductID == product.ID {
			qty = it.Quantity
			break
		}
	}
	d.enqueue(Event{
		Type:        EventOrderConfirmation,
		Email:       email,
		Name:        name,
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.ProductName,
		Quantity:    qty,
		TotalAmount: order.TotalAmount,
		PaymentMode: order.PaymentMode,
		Status:      string(order.PaymentStatus),
		Shipping:    order.ShippingAddress,
	})
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}
