package push

import (
	"context"
	"log"
	"strconv"

	"github.com/ailist-app/ailist-server/cmd/models"
)

// Subscription plans that count as paying customers.
var paidPlans = []string{"basic", "plus", "pro", "starter", "business"}

// AudienceResolver turns a notification's targeting fields into the
// concrete set of devices to contact.
type AudienceResolver struct {
	devices DeviceStore
	users   UserStore
}

func NewAudienceResolver(devices DeviceStore, users UserStore) *AudienceResolver {
	return &AudienceResolver{devices: devices, users: users}
}

// Resolve never fails: delivering to nobody is preferred over failing
// the whole dispatch, so lookup errors degrade to an empty result.
func (r *AudienceResolver) Resolve(ctx context.Context, n *models.PushNotification) []models.UserDevice {
	if len(n.TargetUserIDs) > 0 {
		return r.activeForUsers(ctx, parseUserIDs(n.TargetUserIDs))
	}

	if n.TargetAudience != models.AudienceAll {
		userIDs := r.segmentUserIDs(ctx, n.TargetAudience)
		if len(userIDs) == 0 {
			return nil
		}
		return r.activeForUsers(ctx, userIDs)
	}

	devices, err := r.devices.AllActive(ctx)
	if err != nil {
		log.Printf("Device query error: %v", err)
		return nil
	}
	return devices
}

func (r *AudienceResolver) activeForUsers(ctx context.Context, userIDs []uint) []models.UserDevice {
	if len(userIDs) == 0 {
		return nil
	}
	devices, err := r.devices.ActiveByUserIDs(ctx, userIDs)
	if err != nil {
		log.Printf("Device query error: %v", err)
		return nil
	}
	return devices
}

func (r *AudienceResolver) segmentUserIDs(ctx context.Context, audience string) []uint {
	var (
		ids []uint
		err error
	)
	switch audience {
	case models.AudienceUsers:
		ids, err = r.users.IDsByRoles(ctx, []string{"user"})
	case models.AudiencePartners:
		ids, err = r.users.IDsByRoles(ctx, []string{"partner", "professional"})
	case models.AudienceFree:
		ids, err = r.users.IDsByPlans(ctx, []string{"free"})
	default:
		// "paid" and anything unrecognized select paying plans.
		ids, err = r.users.IDsByPlans(ctx, paidPlans)
	}
	if err != nil {
		log.Printf("Audience query error for %q: %v", audience, err)
		return nil
	}
	return ids
}

func parseUserIDs(raw []string) []uint {
	ids := make([]uint, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			log.Printf("Skipping malformed target user id %q", s)
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
