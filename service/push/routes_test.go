package push

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/ailist-app/ailist-server/cmd/models"
)

func sendRequest(t *testing.T, h *Handler, id string) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/notifications/{id}/send", h.SendNotification).Methods("POST")

	req := httptest.NewRequest(http.MethodPost, "/notifications/"+id+"/send", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestSendNotificationMissingReturnsNotFound(t *testing.T) {
	h := &Handler{dispatcher: NewDispatcher(
		Config{},
		&fakeNotificationStore{getErr: ErrNotificationNotFound},
		&fakeDeviceStore{},
		&fakeUserStore{},
	)}

	rr := sendRequest(t, h, "no-such-id")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	body := decodeErrorBody(t, rr)
	if success, ok := body["success"].(bool); !ok || success {
		t.Errorf("success = %v, want false", body["success"])
	}
	if _, ok := body["error"].(string); !ok {
		t.Errorf("error field missing from body %v", body)
	}
}

func TestSendNotificationAlreadySentReturnsConflict(t *testing.T) {
	sent := broadcastNotification()
	sent.Status = models.NotificationStatusSent

	h := &Handler{dispatcher: NewDispatcher(
		Config{},
		&fakeNotificationStore{notification: sent},
		&fakeDeviceStore{},
		&fakeUserStore{},
	)}

	rr := sendRequest(t, h, sent.ID)

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	body := decodeErrorBody(t, rr)
	if success, ok := body["success"].(bool); !ok || success {
		t.Errorf("success = %v, want false", body["success"])
	}
}
