package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ailist-app/ailist-server/cmd/models"
)

func testNotification() *models.PushNotification {
	return &models.PushNotification{
		ID:         "notif-1",
		Title:      "Offer ends today",
		Body:       "Your plumber discount expires tonight",
		ImageURL:   "https://cdn.example.com/offer.png",
		ActionType: "open_offer",
		ActionData: `{"offer_id":"77"}`,
	}
}

func TestFCMv1SenderRequestShape(t *testing.T) {
	var captured struct {
		Message fcmV1Message `json:"message"`
	}
	var gotPath, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"name":"projects/p/messages/1"}`))
	}))
	defer srv.Close()

	sender := NewFCMv1Sender(srv.URL, "test-project", "bearer-tok", srv.Client())
	device := models.UserDevice{DeviceToken: "device-token-abc"}
	device.ID = 7

	outcome := sender.Send(context.Background(), device, testNotification())
	if outcome.Class != ClassSent {
		t.Fatalf("class = %v, want ClassSent", outcome.Class)
	}
	if outcome.DeviceID != 7 {
		t.Errorf("device id = %d, want 7", outcome.DeviceID)
	}
	if gotPath != "/v1/projects/test-project/messages:send" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer bearer-tok" {
		t.Errorf("auth header = %q", gotAuth)
	}

	msg := captured.Message
	if msg.Token != "device-token-abc" {
		t.Errorf("token = %q", msg.Token)
	}
	if msg.Notification.Title != "Offer ends today" || msg.Notification.Image == "" {
		t.Errorf("notification = %+v", msg.Notification)
	}
	if msg.Data["action_type"] != "open_offer" || msg.Data["notification_id"] != "notif-1" {
		t.Errorf("data = %v", msg.Data)
	}
	if msg.Android.Priority != "high" || msg.Android.Notification.ChannelID != androidChannelID {
		t.Errorf("android = %+v", msg.Android)
	}
	if msg.APNS.Payload.APS.ContentAvailable != 1 {
		t.Errorf("apns = %+v", msg.APNS)
	}
}

func TestFCMv1SenderDefaultsActionType(t *testing.T) {
	var captured struct {
		Message fcmV1Message `json:"message"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := testNotification()
	n.ActionType = ""
	sender := NewFCMv1Sender(srv.URL, "p", "t", srv.Client())
	sender.Send(context.Background(), models.UserDevice{DeviceToken: "tok"}, n)

	if captured.Message.Data["action_type"] != defaultActionType {
		t.Errorf("action_type = %q, want %q", captured.Message.Data["action_type"], defaultActionType)
	}
}

func TestFCMv1SenderClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Classification
	}{
		{
			name:   "accepted",
			status: http.StatusOK,
			body:   `{"name":"projects/p/messages/1"}`,
			want:   ClassSent,
		},
		{
			name:   "unregistered token",
			status: http.StatusNotFound,
			body:   `{"error":{"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`,
			want:   ClassInvalidToken,
		},
		{
			name:   "malformed addressing",
			status: http.StatusBadRequest,
			body:   `{"error":{"status":"INVALID_ARGUMENT","message":"The registration token is not a valid FCM registration token"}}`,
			want:   ClassInvalidToken,
		},
		{
			name:   "quota exceeded",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`,
			want:   ClassTransient,
		},
		{
			name:   "unreadable error body",
			status: http.StatusInternalServerError,
			body:   `<html>upstream error</html>`,
			want:   ClassTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			sender := NewFCMv1Sender(srv.URL, "p", "t", srv.Client())
			outcome := sender.Send(context.Background(), models.UserDevice{DeviceToken: "tok"}, testNotification())
			if outcome.Class != tt.want {
				t.Errorf("class = %v, want %v (err %q)", outcome.Class, tt.want, outcome.Err)
			}
		})
	}
}

func TestFCMv1SenderTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	sender := NewFCMv1Sender(srv.URL, "p", "t", nil)
	outcome := sender.Send(context.Background(), models.UserDevice{DeviceToken: "tok"}, testNotification())
	if outcome.Class != ClassTransient {
		t.Errorf("class = %v, want ClassTransient", outcome.Class)
	}
	if outcome.Err == "" {
		t.Error("transport failure should carry an error message")
	}
}

func TestLegacySenderClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Classification
	}{
		{"delivered", `{"success":1}`, ClassSent},
		{"not registered", `{"success":0,"results":[{"error":"NotRegistered"}]}`, ClassInvalidToken},
		{"invalid registration", `{"success":0,"results":[{"error":"InvalidRegistration"}]}`, ClassInvalidToken},
		{"provider hiccup", `{"success":0,"results":[{"error":"Unavailable"}]}`, ClassTransient},
		{"empty results", `{"success":0}`, ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				var msg legacyMessage
				if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
					t.Errorf("decoding request: %v", err)
				}
				if msg.Data["click_action"] != clickAction {
					t.Errorf("click_action = %q", msg.Data["click_action"])
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			sender := NewLegacyFCMSender(srv.URL, "server-key-1", srv.Client())
			outcome := sender.Send(context.Background(), models.UserDevice{DeviceToken: "tok"}, testNotification())
			if outcome.Class != tt.want {
				t.Errorf("class = %v, want %v", outcome.Class, tt.want)
			}
			if gotAuth != "key=server-key-1" {
				t.Errorf("auth header = %q", gotAuth)
			}
		})
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"details":[{"errorCode":"UNREGISTERED"}]}}`))
	}))
	defer srv.Close()

	sender := NewFCMv1Sender(srv.URL, "p", "t", srv.Client())
	device := models.UserDevice{DeviceToken: "tok"}

	first := sender.Send(context.Background(), device, testNotification())
	second := sender.Send(context.Background(), device, testNotification())
	if first.Class != second.Class {
		t.Errorf("same response classified differently: %v then %v", first.Class, second.Class)
	}
}

func TestTruncateToken(t *testing.T) {
	long := "0123456789012345678901234567890"
	if got := truncateToken(long); got != "01234567890123456789..." {
		t.Errorf("truncateToken(long) = %q", got)
	}
	if got := truncateToken("short"); got != "short" {
		t.Errorf("truncateToken(short) = %q", got)
	}
}
