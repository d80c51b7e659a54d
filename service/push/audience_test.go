package push

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ailist-app/ailist-server/cmd/models"
)

func TestResolveExplicitUserIDs(t *testing.T) {
	devices := &fakeDeviceStore{devices: []models.UserDevice{
		device(1, 5, "tok-a"),
		device(2, 6, "tok-b"),
		device(3, 7, "tok-c"),
	}}
	users := &fakeUserStore{}
	r := NewAudienceResolver(devices, users)

	n := &models.PushNotification{
		TargetUserIDs:  []string{"5", "not-a-number", "7"},
		TargetAudience: models.AudiencePaid, // ignored when explicit ids exist
	}

	got := r.Resolve(context.Background(), n)
	if len(got) != 2 || got[0].UserID != 5 || got[1].UserID != 7 {
		t.Errorf("resolved %v", got)
	}
	if len(users.gotRoles)+len(users.gotPlans) != 0 {
		t.Error("explicit user ids must bypass segment lookup")
	}
}

func TestResolveSegments(t *testing.T) {
	tests := []struct {
		audience  string
		wantRoles []string
		wantPlans []string
	}{
		{models.AudienceUsers, []string{"user"}, nil},
		{models.AudiencePartners, []string{"partner", "professional"}, nil},
		{models.AudienceFree, nil, []string{"free"}},
		{models.AudiencePaid, nil, []string{"basic", "plus", "pro", "starter", "business"}},
	}

	for _, tt := range tests {
		t.Run(tt.audience, func(t *testing.T) {
			devices := &fakeDeviceStore{devices: []models.UserDevice{device(1, 9, "tok")}}
			users := &fakeUserStore{ids: []uint{9}}
			r := NewAudienceResolver(devices, users)

			got := r.Resolve(context.Background(), &models.PushNotification{TargetAudience: tt.audience})
			if len(got) != 1 {
				t.Fatalf("resolved %d devices, want 1", len(got))
			}
			if tt.wantRoles != nil && !reflect.DeepEqual(users.gotRoles, [][]string{tt.wantRoles}) {
				t.Errorf("roles query = %v, want %v", users.gotRoles, tt.wantRoles)
			}
			if tt.wantPlans != nil && !reflect.DeepEqual(users.gotPlans, [][]string{tt.wantPlans}) {
				t.Errorf("plans query = %v, want %v", users.gotPlans, tt.wantPlans)
			}
		})
	}
}

func TestResolveAllAudience(t *testing.T) {
	devices := &fakeDeviceStore{devices: []models.UserDevice{
		device(1, 1, "a"),
		device(2, 2, "b"),
	}}
	users := &fakeUserStore{}
	r := NewAudienceResolver(devices, users)

	got := r.Resolve(context.Background(), &models.PushNotification{TargetAudience: models.AudienceAll})
	if len(got) != 2 {
		t.Errorf("resolved %d devices, want 2", len(got))
	}
	if len(users.gotRoles)+len(users.gotPlans) != 0 {
		t.Error("audience all must not query user segments")
	}
}

func TestResolveDegradesToEmptyOnLookupFailure(t *testing.T) {
	devices := &fakeDeviceStore{queryErr: errors.New("connection reset")}
	r := NewAudienceResolver(devices, &fakeUserStore{})

	got := r.Resolve(context.Background(), &models.PushNotification{TargetAudience: models.AudienceAll})
	if got != nil {
		t.Errorf("resolved %v, want empty on lookup failure", got)
	}
}

func TestResolveEmptySegmentYieldsNoDevices(t *testing.T) {
	devices := &fakeDeviceStore{devices: []models.UserDevice{device(1, 1, "a")}}
	users := &fakeUserStore{ids: nil}
	r := NewAudienceResolver(devices, users)

	got := r.Resolve(context.Background(), &models.PushNotification{TargetAudience: models.AudienceFree})
	if len(got) != 0 {
		t.Errorf("resolved %v, want none for an empty segment", got)
	}
}
