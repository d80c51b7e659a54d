package push

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ailist-app/ailist-server/cmd/models"
)

// Delivery channel names reported in dispatch results.
const (
	APIStructured = "structured"
	APILegacy     = "legacy"
	APINone       = "none"
)

// ErrAlreadySent guards a notification that already reached terminal
// status against a second dispatch, which would re-send to every device
// and overwrite the recorded counts.
var ErrAlreadySent = errors.New("push: notification already sent")

// DispatchResult is the aggregate outcome of one dispatch invocation.
type DispatchResult struct {
	Success              bool   `json:"success"`
	Sent                 int    `json:"sent"`
	Failed               int    `json:"failed"`
	TotalDevices         int    `json:"total_devices"`
	InvalidTokensRemoved int    `json:"invalid_tokens_removed"`
	APIUsed              string `json:"api_used"`
}

// Dispatcher orchestrates one notification dispatch: credential
// minting, audience resolution, per-device delivery with channel
// fallback, result aggregation, and dead-token cleanup.
type Dispatcher struct {
	cfg           Config
	notifications NotificationStore
	devices       DeviceStore
	resolver      *AudienceResolver
	minter        *CredentialMinter
	client        *http.Client
}

func NewDispatcher(cfg Config, notifications NotificationStore, devices DeviceStore, users UserStore) *Dispatcher {
	cfg.applyDefaults()
	client := &http.Client{Timeout: cfg.Timeout}
	return &Dispatcher{
		cfg:           cfg,
		notifications: notifications,
		devices:       devices,
		resolver:      NewAudienceResolver(devices, users),
		minter:        NewCredentialMinter(cfg.ServiceAccountJSON, cfg.TokenEndpoint, client),
		client:        client,
	}
}

// Dispatch runs the full delivery pipeline for one notification.
//
// Only a missing notification record or an unreachable store is fatal.
// Every per-device failure is absorbed into the failed count, and a
// total channel misconfiguration still finalizes the record as 100%
// failed.
func (d *Dispatcher) Dispatch(ctx context.Context, notificationID string) (*DispatchResult, error) {
	n, err := d.notifications.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.Status == models.NotificationStatusSent {
		return nil, ErrAlreadySent
	}

	// Visible to concurrent readers before any device is contacted.
	if err := d.notifications.SetStatus(ctx, notificationID, models.NotificationStatusSending); err != nil {
		return nil, err
	}

	devices := d.resolver.Resolve(ctx, n)
	if len(devices) == 0 {
		d.finalize(ctx, notificationID, 0, 0)
		return &DispatchResult{Success: true, APIUsed: APINone}, nil
	}

	log.Printf("Dispatching notification %s to %d devices", notificationID, len(devices))

	sender, apiUsed := d.selectChannel(ctx)

	var sent, failed int
	invalid := make(map[uint]struct{})

	if sender == nil {
		log.Printf("No delivery channel configured, counting %d devices as failed", len(devices))
		failed = len(devices)
	} else {
		for outcome := range d.deliver(ctx, sender, devices, n) {
			switch outcome.Class {
			case ClassSent:
				sent++
			case ClassInvalidToken:
				failed++
				invalid[outcome.DeviceID] = struct{}{}
				log.Printf("Device %d token invalid: %s", outcome.DeviceID, outcome.Err)
			default:
				failed++
				log.Printf("Device %d delivery failed: %s", outcome.DeviceID, outcome.Err)
			}
		}
	}

	removed := d.cleanupInvalid(ctx, invalid)
	d.finalize(ctx, notificationID, sent, failed)

	log.Printf("Dispatch %s done: %d sent, %d failed, %d tokens removed", notificationID, sent, failed, removed)

	return &DispatchResult{
		Success:              true,
		Sent:                 sent,
		Failed:               failed,
		TotalDevices:         len(devices),
		InvalidTokensRemoved: removed,
		APIUsed:              apiUsed,
	}, nil
}

// selectChannel picks the delivery channel for this run. Fallback is
// all-or-nothing: a failed mint switches every device to the legacy
// sender, never a per-device mix.
func (d *Dispatcher) selectChannel(ctx context.Context) (Sender, string) {
	if d.cfg.structuredConfigured() {
		token, _, err := d.minter.Mint(ctx)
		if err == nil {
			return NewFCMv1Sender(d.cfg.FCMEndpoint, d.cfg.ProjectID, token, d.client), APIStructured
		}
		log.Printf("Credential minting failed, falling back: %v", err)
	}
	if d.cfg.legacyConfigured() {
		return NewLegacyFCMSender(d.cfg.LegacyEndpoint, d.cfg.LegacyServerKey, d.client), APILegacy
	}
	return nil, APINone
}

// deliver fans the device list out over a bounded pool of workers and
// fans the outcomes back in. One outcome is produced per device; no
// outcome can abort the batch.
func (d *Dispatcher) deliver(ctx context.Context, sender Sender, devices []models.UserDevice, n *models.PushNotification) <-chan DeliveryOutcome {
	jobs := make(chan models.UserDevice)
	outcomes := make(chan DeliveryOutcome, len(devices))

	workers := d.cfg.Workers
	if workers > len(devices) {
		workers = len(devices)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for device := range jobs {
				outcomes <- sender.Send(ctx, device, n)
			}
		}()
	}

	go func() {
		for _, device := range devices {
			jobs <- device
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// cleanupInvalid deactivates dead registrations in one batch and
// returns how many were removed. Failures are logged, never fatal.
func (d *Dispatcher) cleanupInvalid(ctx context.Context, invalid map[uint]struct{}) int {
	if len(invalid) == 0 {
		return 0
	}
	ids := make([]uint, 0, len(invalid))
	for id := range invalid {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := d.devices.Deactivate(ctx, ids); err != nil {
		log.Printf("Error deactivating %d invalid tokens: %v", len(ids), err)
		return 0
	}
	return len(ids)
}

// finalize writes the terminal status and tally. Counts already
// computed are never rolled back on a write failure.
func (d *Dispatcher) finalize(ctx context.Context, id string, sent, failed int) {
	if err := d.notifications.MarkSent(ctx, id, sent, failed, time.Now()); err != nil {
		log.Printf("Error finalizing notification %s: %v", id, err)
	}
}
