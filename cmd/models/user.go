package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName         string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email            string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash     string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role             string `gorm:"column:role;size:50;not null;default:user" json:"role"`
	SubscriptionPlan string `gorm:"column:subscription_plan;size:50;not null;default:free" json:"subscription_plan"`
	UnlockBalance    int    `gorm:"column:unlock_balance;default:0" json:"unlock_balance"`
	City             string `gorm:"column:city;size:100" json:"city"`
}

type Professional struct {
	gorm.Model
	UserID           uint           `gorm:"column:user_id;index" json:"user_id"`
	DisplayName      string         `gorm:"column:display_name;size:255;not null" json:"display_name"`
	Profession       string         `gorm:"column:profession;size:100" json:"profession"`
	Description      string         `gorm:"column:description;type:text" json:"description"`
	City             string         `gorm:"column:city;size:100;index" json:"city"`
	Area             string         `gorm:"column:area;size:100" json:"area"`
	Services         pq.StringArray `gorm:"column:services;type:text[]" json:"services"`
	Rating           float64        `gorm:"column:rating;default:0" json:"rating"`
	TotalReviews     int            `gorm:"column:total_reviews;default:0" json:"total_reviews"`
	ExperienceYears  int            `gorm:"column:experience_years;default:0" json:"experience_years"`
	IsVerified       bool           `gorm:"column:is_verified;default:false" json:"is_verified"`
	IsAvailable      bool           `gorm:"column:is_available;default:true" json:"is_available"`
	SubscriptionPlan string         `gorm:"column:subscription_plan;size:50;default:free" json:"subscription_plan"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
