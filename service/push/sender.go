package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ailist-app/ailist-server/cmd/models"
)

// Classification is the per-device delivery verdict.
type Classification int

const (
	// ClassSent means the provider accepted the message.
	ClassSent Classification = iota
	// ClassInvalidToken means the provider confirmed the registration
	// is permanently unusable; the device should be deactivated.
	ClassInvalidToken
	// ClassTransient covers every other failure. The device is left
	// untouched.
	ClassTransient
)

func (c Classification) String() string {
	switch c {
	case ClassSent:
		return "sent"
	case ClassInvalidToken:
		return "invalid_token"
	default:
		return "transient_error"
	}
}

// DeliveryOutcome is the result of one send attempt to one device.
type DeliveryOutcome struct {
	DeviceID uint
	Class    Classification
	Err      string
}

// Sender delivers one notification to one device. Implementations must
// absorb transport failures into the outcome instead of propagating
// them, so a single bad device cannot abort a batch.
type Sender interface {
	Send(ctx context.Context, device models.UserDevice, n *models.PushNotification) DeliveryOutcome
}

// FCM v1 error codes that mark a registration as dead.
type fcmErrorCode string

const (
	fcmErrUnregistered    fcmErrorCode = "UNREGISTERED"
	fcmErrInvalidArgument fcmErrorCode = "INVALID_ARGUMENT"
)

// Legacy API error strings with the same meaning.
const (
	legacyErrNotRegistered       = "NotRegistered"
	legacyErrInvalidRegistration = "InvalidRegistration"
)

const (
	defaultActionType   = "open_app"
	clickAction         = "FLUTTER_NOTIFICATION_CLICK"
	androidChannelID    = "high_importance_channel"
	notificationSound   = "default"
	androidPriorityHigh = "high"
)

// notificationData builds the opaque data payload forwarded to the
// client app. All values are strings by FCM contract.
func notificationData(n *models.PushNotification) map[string]string {
	actionType := n.ActionType
	if actionType == "" {
		actionType = defaultActionType
	}
	return map[string]string{
		"action_type":     actionType,
		"action_data":     n.ActionData,
		"notification_id": n.ID,
	}
}

// truncateToken shortens a device token for logging. Full tokens must
// never reach the logs.
func truncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}

// FCMv1Sender delivers through the FCM HTTP v1 API using a bearer
// credential.
type FCMv1Sender struct {
	baseURL     string
	projectID   string
	accessToken string
	client      *http.Client
}

func NewFCMv1Sender(baseURL, projectID, accessToken string, client *http.Client) *FCMv1Sender {
	if baseURL == "" {
		baseURL = defaultFCMEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &FCMv1Sender{
		baseURL:     baseURL,
		projectID:   projectID,
		accessToken: accessToken,
		client:      client,
	}
}

type fcmV1Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type fcmV1AndroidNotification struct {
	Sound       string `json:"sound"`
	ClickAction string `json:"click_action"`
	ChannelID   string `json:"channel_id"`
}

type fcmV1Android struct {
	Priority     string                   `json:"priority"`
	Notification fcmV1AndroidNotification `json:"notification"`
}

type fcmV1APS struct {
	Sound            string `json:"sound"`
	ContentAvailable int    `json:"content-available,omitempty"`
}

type fcmV1APNSPayload struct {
	APS fcmV1APS `json:"aps"`
}

type fcmV1APNS struct {
	Payload fcmV1APNSPayload `json:"payload"`
}

type fcmV1Message struct {
	Token        string            `json:"token"`
	Notification fcmV1Notification `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      fcmV1Android      `json:"android"`
	APNS         fcmV1APNS         `json:"apns"`
}

type fcmV1Error struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// errorCode extracts the most specific error code the v1 API reported.
func (e fcmV1Error) errorCode() fcmErrorCode {
	for _, d := range e.Error.Details {
		if d.ErrorCode != "" {
			return fcmErrorCode(d.ErrorCode)
		}
	}
	return fcmErrorCode(e.Error.Status)
}

func (s *FCMv1Sender) Send(ctx context.Context, device models.UserDevice, n *models.PushNotification) DeliveryOutcome {
	msg := fcmV1Message{
		Token: device.DeviceToken,
		Notification: fcmV1Notification{
			Title: n.Title,
			Body:  n.Body,
			Image: n.ImageURL,
		},
		Data: notificationData(n),
		Android: fcmV1Android{
			Priority: androidPriorityHigh,
			Notification: fcmV1AndroidNotification{
				Sound:       notificationSound,
				ClickAction: clickAction,
				ChannelID:   androidChannelID,
			},
		},
		APNS: fcmV1APNS{
			Payload: fcmV1APNSPayload{
				APS: fcmV1APS{
					Sound:            notificationSound,
					ContentAvailable: 1,
				},
			},
		},
	}

	body, err := json.Marshal(map[string]fcmV1Message{"message": msg})
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.baseURL, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassSent}
	}

	var fcmErr fcmV1Error
	if err := json.NewDecoder(resp.Body).Decode(&fcmErr); err != nil {
		return DeliveryOutcome{
			DeviceID: device.ID,
			Class:    ClassTransient,
			Err:      fmt.Sprintf("status %d with unreadable error body", resp.StatusCode),
		}
	}

	code := fcmErr.errorCode()
	switch code {
	case fcmErrUnregistered, fcmErrInvalidArgument:
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassInvalidToken, Err: string(code)}
	}

	reason := fcmErr.Error.Message
	if reason == "" {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: reason}
}

// LegacyFCMSender delivers through the deprecated server-key API. Kept
// as the fallback channel until every project is migrated.
type LegacyFCMSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewLegacyFCMSender(endpoint, serverKey string, client *http.Client) *LegacyFCMSender {
	if endpoint == "" {
		endpoint = defaultLegacyEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &LegacyFCMSender{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    client,
	}
}

type legacyNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
	Sound string `json:"sound"`
}

type legacyMessage struct {
	To           string             `json:"to"`
	Notification legacyNotification `json:"notification"`
	Data         map[string]string  `json:"data"`
	Android      struct {
		Priority string `json:"priority"`
	} `json:"android"`
}

type legacyResponse struct {
	Success int `json:"success"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

func (s *LegacyFCMSender) Send(ctx context.Context, device models.UserDevice, n *models.PushNotification) DeliveryOutcome {
	data := notificationData(n)
	data["click_action"] = clickAction

	msg := legacyMessage{
		To: device.DeviceToken,
		Notification: legacyNotification{
			Title: n.Title,
			Body:  n.Body,
			Image: n.ImageURL,
			Sound: notificationSound,
		},
		Data: data,
	}
	msg.Android.Priority = androidPriorityHigh

	body, err := json.Marshal(msg)
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}
	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: err.Error()}
	}
	defer resp.Body.Close()

	var legacy legacyResponse
	if err := json.NewDecoder(resp.Body).Decode(&legacy); err != nil {
		return DeliveryOutcome{
			DeviceID: device.ID,
			Class:    ClassTransient,
			Err:      fmt.Sprintf("status %d with unreadable body", resp.StatusCode),
		}
	}

	if legacy.Success == 1 {
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassSent}
	}

	reason := "unknown error"
	if len(legacy.Results) > 0 && legacy.Results[0].Error != "" {
		reason = legacy.Results[0].Error
	}
	switch reason {
	case legacyErrNotRegistered, legacyErrInvalidRegistration:
		return DeliveryOutcome{DeviceID: device.ID, Class: ClassInvalidToken, Err: reason}
	}
	return DeliveryOutcome{DeviceID: device.ID, Class: ClassTransient, Err: reason}
}
