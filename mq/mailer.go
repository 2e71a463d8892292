package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/redis/go-redis/v9"
)

// SMTPMailer sends notification mail through a relay.
type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host, port, user, password, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{Host: host, Port: port, User: user, Password: password, From: from, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(_ context.Context, ev Event) error {
	subject, body := Render(ev)
	msg := []byte("From: " + m.From + "\r\n" +
		"To: " + ev.Email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" + body)

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	if err := m.send(m.Host+":"+m.Port, auth, m.From, []string{ev.Email}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Render builds the subject and plain-text body for ev.
func Render(ev Event) (string, string) {
	var b strings.Builder
	switch ev.Type {
	case EventWelcome:
		fmt.Fprintf(&b, "Hi %s,\n\nWelcome to ShopHub! Your account is ready.\n", ev.Name)
		return "Welcome to ShopHub", b.String()
	case EventOrderConfirmation:
		fmt.Fprintf(&b, "Hi %s,\n\nThank you for your order.\n\n", ev.Name)
		fmt.Fprintf(&b, "Order: %s\n", ev.OrderID)
		fmt.Fprintf(&b, "Product: %s x %d\n", ev.ProductName, ev.Quantity)
		fmt.Fprintf(&b, "Total: %.2f\n", ev.TotalAmount)
		fmt.Fprintf(&b, "Payment: %s (%s)\n", ev.PaymentMode, ev.Status)
		fmt.Fprintf(&b, "Ship to: %s\n", ev.Shipping)
		return "Order Confirmation - " + ev.OrderID, b.String()
	default:
		fmt.Fprintf(&b, "Hi %s,\n", ev.Name)
		return "ShopHub notification", b.String()
	}
}

// StartMailWorker relays published notification events to sender until ctx
// is cancelled.
func StartMailWorker(ctx context.Context, conn *redis.Client, sender Sender) {
	sub := conn.Subscribe(ctx, NotificationChannel)
	defer sub.Close()
	ch := sub.Channel()

	log.Println("[MailWorker] Listening for notification events...")
	for {
		select {
		case <-ctx.Done():
			log.Println("[MailWorker] stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[MailWorker] Failed to parse event: %v", err)
				continue
			}
			if err := sender.Send(ctx, ev); err != nil {
				log.Printf("[MailWorker] %s to %s failed: %v", ev.Type, ev.Email, err)
			}
		}
	}
}
