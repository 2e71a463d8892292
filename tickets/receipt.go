// Package tickets renders printable order receipts. Each receipt carries a
// QR code whose payload is signed, so a scanned receipt can be checked
// against the order it claims to be for.
package tickets

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shophub/apperr"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// OrderSource returns an order only when it belongs to the caller.
type OrderSource interface {
	OrderFor(ctx context.Context, id models.Identity, orderID string) (*models.Order, error)
}

type Receipts struct {
	orders   OrderSource
	products store.ProductStore
	key      []byte
}

func NewReceipts(orders OrderSource, products store.ProductStore, key []byte) *Receipts {
	return &Receipts{orders: orders, products: products, key: key}
}

func sign(key []byte, data string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// QRPayload returns orderID|buyerID|signature.
func QRPayload(key []byte, orderID, buyerID string) string {
	data := orderID + "|" + buyerID
	return data + "|" + sign(key, data)
}

// VerifyPayload checks a scanned payload and returns the ids it names.
func VerifyPayload(key []byte, payload string) (orderID, buyerID string, ok bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", "", false
	}
	want := sign(key, parts[0]+"|"+parts[1])
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Render builds the receipt PDF for one of the caller's orders.
func (rc *Receipts) Render(ctx context.Context, id models.Identity, orderID string) ([]byte, error) {
	order, err := rc.orders.OrderFor(ctx, id, orderID)
	if err != nil {
		return nil, err
	}

	qrPNG, err := qrcode.Encode(QRPayload(rc.key, order.ID, order.UserID), qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("encode receipt QR: %w", err))
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		"Order: " + order.ID,
		"Date: " + order.CreatedAt.Format("02 Jan 2006 15:04"),
		"Customer: " + order.UserName,
		"Ship to: " + order.ShippingAddress,
		fmt.Sprintf("Payment: %s (%s)", order.PaymentMode, order.PaymentStatus),
	} {
		pdf.Cell(0, 8, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Item", "B", 0, "", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Unit", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, it := range order.Items() {
		name := it.ProductID
		if p, err := rc.products.FindByID(ctx, it.ProductID); err == nil && p.ProductName != "" {
			name = p.ProductName
		}
		pdf.CellFormat(100, 8, name, "", 0, "", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", it.Price*float64(it.Quantity)), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 10, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, fmt.Sprintf("%.2f", order.TotalAmount), "T", 1, "R", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperr.Internal(fmt.Errorf("render receipt: %w", err))
	}
	return buf.Bytes(), nil
}

func (rc *Receipts) HandleReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, _ := utils.IdentityFromRequest(r)
	orderID := ps.ByName("id")
	pdf, err := rc.Render(ctx, id, orderID)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+utils.SanitizeFilename(orderID)+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
