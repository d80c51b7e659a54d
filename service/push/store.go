package push

import (
	"context"
	"errors"
	"time"

	"github.com/ailist-app/ailist-server/cmd/models"
	"gorm.io/gorm"
)

// ErrNotificationNotFound is the only fatal precondition of a dispatch.
var ErrNotificationNotFound = errors.New("push: notification not found")

// NotificationStore is the read/write contract the engine holds against
// the notification record.
type NotificationStore interface {
	Get(ctx context.Context, id string) (*models.PushNotification, error)
	SetStatus(ctx context.Context, id, status string) error
	MarkSent(ctx context.Context, id string, sent, failed int, at time.Time) error
}

// DeviceStore resolves and deactivates device registrations.
type DeviceStore interface {
	AllActive(ctx context.Context) ([]models.UserDevice, error)
	ActiveByUserIDs(ctx context.Context, userIDs []uint) ([]models.UserDevice, error)
	Deactivate(ctx context.Context, deviceIDs []uint) error
}

// UserStore resolves audience segments to user id sets.
type UserStore interface {
	IDsByRoles(ctx context.Context, roles []string) ([]uint, error)
	IDsByPlans(ctx context.Context, plans []string) ([]uint, error)
}

type GormNotificationStore struct {
	db *gorm.DB
}

func NewGormNotificationStore(db *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{db: db}
}

func (s *GormNotificationStore) Get(ctx context.Context, id string) (*models.PushNotification, error) {
	var n models.PushNotification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormNotificationStore) SetStatus(ctx context.Context, id, status string) error {
	return s.db.WithContext(ctx).
		Model(&models.PushNotification{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *GormNotificationStore) MarkSent(ctx context.Context, id string, sent, failed int, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.PushNotification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.NotificationStatusSent,
			"sent_at":      at,
			"sent_count":   sent,
			"failed_count": failed,
		}).Error
}

type GormDeviceStore struct {
	db *gorm.DB
}

func NewGormDeviceStore(db *gorm.DB) *GormDeviceStore {
	return &GormDeviceStore{db: db}
}

func (s *GormDeviceStore) AllActive(ctx context.Context) ([]models.UserDevice, error) {
	var devices []models.UserDevice
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&devices).Error
	return devices, err
}

func (s *GormDeviceStore) ActiveByUserIDs(ctx context.Context, userIDs []uint) ([]models.UserDevice, error) {
	var devices []models.UserDevice
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND user_id IN ?", true, userIDs).
		Order("id").
		Find(&devices).Error
	return devices, err
}

func (s *GormDeviceStore) Deactivate(ctx context.Context, deviceIDs []uint) error {
	if len(deviceIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.UserDevice{}).
		Where("id IN ?", deviceIDs).
		Update("is_active", false).Error
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) IDsByRoles(ctx context.Context, roles []string) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role IN ?", roles).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *GormUserStore) IDsByPlans(ctx context.Context, plans []string) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("subscription_plan IN ?", plans).
		Pluck("id", &ids).Error
	return ids, err
}
