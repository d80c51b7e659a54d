package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ailist-app/ailist-server/cmd/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const (
	freeDailyLimit = 3
	defaultCity    = "Shillong"
)

var premiumPlans = map[string]bool{
	"basic":    true,
	"plus":     true,
	"pro":      true,
	"starter":  true,
	"business": true,
}

// Handler answers assistant queries: keyword search for free users,
// OpenAI-backed replies for subscribers.
type Handler struct {
	db     *gorm.DB
	openai *OpenAIClient
}

func NewHandler(db *gorm.DB, openai *OpenAIClient) *Handler {
	return &Handler{db: db, openai: openai}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chat", h.HandleChat).Methods("POST")
}

type chatRequest struct {
	Message string    `json:"message"`
	City    string    `json:"city,omitempty"`
	UserID  uint      `json:"userId,omitempty"`
	History []Message `json:"history,omitempty"`
}

type chatResponse struct {
	Success              bool          `json:"success"`
	Message              string        `json:"message"`
	SearchIntent         *SearchIntent `json:"searchIntent"`
	MatchedProfessionals []uint        `json:"matchedProfessionals"`
	LimitReached         bool          `json:"limitReached"`
	Remaining            int           `json:"remaining"`
	IsPaid               bool          `json:"isPaid"`
	Error                string        `json:"error,omitempty"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(chatResponse{Success: false, Error: "Message is required"})
		return
	}

	city := req.City
	if city == "" {
		city = defaultCity
	}

	isPaid, remaining, limitReached := h.checkQuota(req.UserID)

	professionals := h.loadProfessionals(city)
	intent := ExtractSearchIntent(req.Message)
	matched := MatchProfessionals(req.Message, professionals)

	if !isPaid || limitReached || !h.openai.Configured() {
		resp := chatResponse{
			Success:              true,
			Message:              BuildLocalResponse(req.Message, matched, city, limitReached),
			SearchIntent:         intent,
			MatchedProfessionals: professionalIDs(matched),
			LimitReached:         limitReached,
			Remaining:            remaining,
			IsPaid:               isPaid,
		}
		if isPaid {
			resp.Remaining = -1
		}
		if !isPaid && !limitReached {
			h.recordUsage(req.UserID)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		return
	}

	messages := []Message{{
		Role:    "system",
		Content: buildSystemPrompt(city, professionals),
	}}
	if len(req.History) > 6 {
		req.History = req.History[len(req.History)-6:]
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: "user", Content: req.Message})

	aiMessage, err := h.openai.Complete(r.Context(), messages)
	if err != nil {
		log.Printf("OpenAI error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Success:              true,
			Message:              BuildLocalResponse(req.Message, matched, city, false),
			SearchIntent:         intent,
			MatchedProfessionals: professionalIDs(matched),
			Remaining:            -1,
			IsPaid:               true,
		})
		return
	}

	finalIDs := ExtractMentionedProfessionals(aiMessage, professionals)
	if len(finalIDs) == 0 {
		finalIDs = professionalIDs(matched)
	}

	h.logChat(req.UserID, req.Message, aiMessage)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		Success:              true,
		Message:              aiMessage,
		SearchIntent:         intent,
		MatchedProfessionals: finalIDs,
		Remaining:            -1,
		IsPaid:               true,
	})
}

// checkQuota resolves the caller's plan and, for free users, the
// remaining daily allowance.
func (h *Handler) checkQuota(userID uint) (isPaid bool, remaining int, limitReached bool) {
	remaining = freeDailyLimit
	if userID == 0 {
		return false, remaining, false
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		log.Printf("User check error: %v", err)
		return false, remaining, false
	}

	plan := user.SubscriptionPlan
	if plan == "" {
		plan = "free"
	}
	if premiumPlans[plan] {
		return true, -1, false
	}

	today := time.Now().Format("2006-01-02")
	var usage models.AIUsage
	if err := h.db.Where("user_id = ? AND usage_date = ?", userID, today).First(&usage).Error; err == nil {
		remaining = freeDailyLimit - usage.RequestCount
		if remaining < 0 {
			remaining = 0
		}
	}
	return false, remaining, remaining <= 0
}

func (h *Handler) recordUsage(userID uint) {
	if userID == 0 {
		return
	}
	today := time.Now().Format("2006-01-02")
	var usage models.AIUsage
	err := h.db.Where("user_id = ? AND usage_date = ?", userID, today).First(&usage).Error
	if err != nil {
		usage = models.AIUsage{UserID: userID, UsageDate: today, RequestCount: 1}
		if err := h.db.Create(&usage).Error; err != nil {
			log.Printf("Usage record error: %v", err)
		}
		return
	}
	if err := h.db.Model(&usage).Update("request_count", usage.RequestCount+1).Error; err != nil {
		log.Printf("Usage record error: %v", err)
	}
}

func (h *Handler) loadProfessionals(city string) []models.Professional {
	var professionals []models.Professional
	err := h.db.
		Where("is_available = ?", true).
		Where("city ILIKE ?", "%"+city+"%").
		Order("rating DESC").
		Limit(50).
		Find(&professionals).Error
	if err != nil {
		log.Printf("Error loading professionals: %v", err)
	}
	return professionals
}

// logChat stores the exchange for analytics, best effort.
func (h *Handler) logChat(userID uint, userMessage, aiMessage string) {
	if userID == 0 {
		return
	}
	logs := []models.AIChatLog{
		{UserID: userID, SessionID: uuid.NewString(), Role: "user", Content: userMessage},
		{UserID: userID, SessionID: uuid.NewString(), Role: "assistant", Content: aiMessage},
	}
	if err := h.db.Create(&logs).Error; err != nil {
		log.Printf("Chat log error: %v", err)
	}
}

func buildSystemPrompt(city string, professionals []models.Professional) string {
	return fmt.Sprintf(`You are AiList AI Assistant, helping users find local service professionals in %s, India.

AVAILABLE PROFESSIONALS:
%s

INSTRUCTIONS:
1. Understand what the user needs
2. Recommend the best matching professionals from the list above
3. Be conversational, friendly, and helpful
4. Include professional name, rating, and location in your response
5. If no exact match, suggest similar services or ask clarifying questions
6. Keep responses concise (3-5 sentences max)
7. DO NOT show any IDs or technical data
8. DO NOT make up professionals - only recommend from the list above
9. ALWAYS mention the professional by their EXACT display_name from the list`,
		city, BuildProfessionalsContext(professionals))
}

func professionalIDs(professionals []models.Professional) []uint {
	ids := make([]uint, 0, len(professionals))
	for _, p := range professionals {
		ids = append(ids, p.ID)
	}
	return ids
}
