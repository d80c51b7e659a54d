package push

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ailist-app/ailist-server/cmd/models"
	"github.com/ailist-app/ailist-server/cmd/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Handler exposes notification administration and device registration
// over HTTP.
type Handler struct {
	db         *gorm.DB
	dispatcher *Dispatcher
}

func NewHandler(db *gorm.DB, cfg Config) *Handler {
	return &Handler{
		db: db,
		dispatcher: NewDispatcher(
			cfg,
			NewGormNotificationStore(db),
			NewGormDeviceStore(db),
			NewGormUserStore(db),
		),
	}
}

// RegisterRoutes registers all push notification routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", utils.AuthMiddleware(h.CreateNotification)).Methods("POST")
	router.HandleFunc("/notifications/{id}/send", utils.AuthMiddleware(h.SendNotification)).Methods("POST")
	router.HandleFunc("/devices", h.RegisterDevice).Methods("POST")
	router.HandleFunc("/devices/{id}", h.DeactivateDevice).Methods("DELETE")
	router.HandleFunc("/users/{userId}/devices", h.GetUserDevices).Methods("GET")
}

var validAudiences = map[string]bool{
	models.AudienceAll:      true,
	models.AudienceUsers:    true,
	models.AudiencePartners: true,
	models.AudienceFree:     true,
	models.AudiencePaid:     true,
}

// CreateNotification drafts a new push notification
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" || req.Body == "" {
		http.Error(w, "Title and body are required", http.StatusBadRequest)
		return
	}

	audience := req.TargetAudience
	if audience == "" {
		audience = models.AudienceAll
	}
	if !validAudiences[audience] {
		http.Error(w, "Unknown target audience", http.StatusBadRequest)
		return
	}

	notification := models.PushNotification{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Body:           req.Body,
		ImageURL:       req.ImageURL,
		ActionType:     req.ActionType,
		ActionData:     req.ActionData,
		TargetUserIDs:  req.TargetUserIDs,
		TargetAudience: audience,
		Status:         models.NotificationStatusDraft,
	}

	if err := h.db.Create(&notification).Error; err != nil {
		http.Error(w, "Error creating notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(notification)
}

// SendNotification dispatches a drafted notification to its audience
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	notificationID := vars["id"]

	result, err := h.dispatcher.Dispatch(r.Context(), notificationID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrNotificationNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrAlreadySent):
			status = http.StatusConflict
		}
		log.Printf("Push dispatch error for %s: %v", notificationID, err)
		writeDispatchError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// RegisterDevice registers or refreshes a device token. Re-registering
// an existing token reactivates it.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == 0 || req.DeviceToken == "" {
		http.Error(w, "user_id and device_token are required", http.StatusBadRequest)
		return
	}

	var device models.UserDevice
	result := h.db.Where("device_token = ? AND user_id = ?", req.DeviceToken, req.UserID).First(&device)

	if result.Error == nil {
		device.Platform = req.Platform
		device.IsActive = true
		device.UpdatedAt = time.Now()
		if err := h.db.Save(&device).Error; err != nil {
			http.Error(w, "Error updating device", http.StatusInternalServerError)
			return
		}
	} else {
		device = models.UserDevice{
			UserID:      req.UserID,
			DeviceToken: req.DeviceToken,
			Platform:    req.Platform,
			IsActive:    true,
		}
		if err := h.db.Create(&device).Error; err != nil {
			http.Error(w, "Error creating device", http.StatusInternalServerError)
			return
		}
	}

	log.Printf("Registered device %s for user %d", truncateToken(device.DeviceToken), device.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Device registered successfully",
		"device":  device,
	})
}

// GetUserDevices lists a user's active devices
func (h *Handler) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var devices []models.UserDevice
	if err := h.db.Where("user_id = ? AND is_active = ?", uint(userID), true).Find(&devices).Error; err != nil {
		http.Error(w, "Error retrieving devices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// DeactivateDevice marks a device inactive; the row is kept for audit
func (h *Handler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	result := h.db.Model(&models.UserDevice{}).Where("id = ?", deviceID).Update("is_active", false)
	if result.Error != nil {
		http.Error(w, "Error deactivating device", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Device deactivated successfully",
	})
}

func writeDispatchError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
