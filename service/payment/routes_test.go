package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func signPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func postVerify(t *testing.T, h *Handler, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.VerifyPayment(rec, req)
	return rec
}

func TestVerifyPaymentValidSignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "test-secret")

	h := NewHandler(nil) // no subscription or user referenced, db untouched
	rec := postVerify(t, h, map[string]interface{}{
		"razorpay_order_id":   "order_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature":  signPayment("test-secret", "order_123", "pay_456"),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool `json:"success"`
		Verified bool `json:"verified"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || !resp.Verified {
		t.Errorf("response = %+v", resp)
	}
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "test-secret")

	h := NewHandler(nil)
	rec := postVerify(t, h, map[string]interface{}{
		"razorpay_order_id":   "order_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature":  "forged",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Invalid signature")) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestVerifyPaymentWithoutSecret(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	h := NewHandler(nil)
	rec := postVerify(t, h, map[string]interface{}{
		"razorpay_order_id":   "order_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature":  "anything",
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
