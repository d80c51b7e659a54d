package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ailist-app/ailist-server/cmd/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Handler verifies Razorpay payment signatures and activates
// subscriptions.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payments/verify", h.VerifyPayment).Methods("POST")
}

type verifyRequest struct {
	OrderID        string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
	SubscriptionID uint   `json:"subscription_id,omitempty"`
	UserID         uint   `json:"user_id,omitempty"`
	Plan           string `json:"plan,omitempty"`
}

// VerifyPayment checks the HMAC-SHA256 signature Razorpay attaches to
// a completed checkout, then marks the subscription active and
// upgrades the user's plan.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "error": "Invalid request body",
		})
		return
	}

	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keySecret == "" {
		writeResult(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false, "error": "Razorpay secret not configured",
		})
		return
	}

	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(req.OrderID + "|" + req.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		writeResult(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "error": "Invalid signature",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(30 * 24 * time.Hour)

	if req.SubscriptionID != 0 {
		err := h.db.Model(&models.Subscription{}).
			Where("id = ?", req.SubscriptionID).
			Updates(map[string]interface{}{
				"payment_id": req.PaymentID,
				"order_id":   req.OrderID,
				"signature":  req.Signature,
				"status":     "active",
				"starts_at":  now,
				"expires_at": expiresAt,
				"verified":   true,
			}).Error
		if err != nil {
			log.Printf("Error updating subscription %d: %v", req.SubscriptionID, err)
		}
	}

	if req.UserID != 0 && req.Plan != "" {
		unlockBalance := 0
		switch req.Plan {
		case "basic":
			unlockBalance = 3
		case "plus", "pro":
			unlockBalance = -1
		}
		err := h.db.Model(&models.User{}).
			Where("id = ?", req.UserID).
			Updates(map[string]interface{}{
				"subscription_plan": req.Plan,
				"unlock_balance":    unlockBalance,
			}).Error
		if err != nil {
			log.Printf("Error updating user %d plan: %v", req.UserID, err)
		}
	}

	writeResult(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"verified": true,
	})
}

func writeResult(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
