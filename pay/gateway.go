// Package pay talks to the payment provider: order creation, signature
// verification and replay-safe handling of payment POSTs.
package pay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shophub/apperr"
	"shophub/models"

	"github.com/shopspring/decimal"
)

// Gateway is the payment provider collaborator.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error)
	// VerifySignature reports whether signature authenticates the
	// order/payment pair. A transport failure is returned as an error of
	// kind Gateway, never as false.
	VerifySignature(ctx context.Context, gatewayOrderID, paymentID, signature string) (bool, error)
	// KeyID is the public key the browser checkout widget needs.
	KeyID() string
}

// ToMinorUnits converts a rupee amount to paise.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Receipt returns a receipt id of the form receipt_<unix-millis>.
func Receipt(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}

// Sign computes the provider's checkout signature: hex HMAC-SHA256 of
// "<orderId>|<paymentId>" keyed with the API secret.
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Razorpay is a Gateway backed by the Razorpay Orders API.
type Razorpay struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpay(keyID, keySecret, baseURL string) *Razorpay {
	return &Razorpay{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Razorpay) KeyID() string { return g.keyID }

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

func (g *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error) {
	if amountMinor <= 0 {
		return nil, apperr.InvalidArgument("amount must be positive")
	}
	body, err := json.Marshal(createOrderRequest{Amount: amountMinor, Currency: currency, Receipt: receipt, PaymentCapture: 1})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperr.Gateway("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Gateway("payment gateway read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Gateway(fmt.Sprintf("payment gateway returned %d", resp.StatusCode), fmt.Errorf("%s", raw))
	}

	var order models.GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, apperr.Gateway("payment gateway response malformed", err)
	}
	return &order, nil
}

// VerifySignature is computed locally with the shared secret, so it never
// fails on transport.
func (g *Razorpay) VerifySignature(_ context.Context, gatewayOrderID, paymentID, signature string) (bool, error) {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false, nil
	}
	expected := Sign(g.keySecret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))), nil
}
