package models

import "time"

// Student represents a learner that questions can be assigned to.
type Student struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID string    `gorm:"size:64;uniqueIndex;not null" json:"student_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     *string   `gorm:"size:255;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an instructor account, upserted from authentication claims.
type User struct {
	ID              string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email           *string   `gorm:"size:255" json:"email"`
	FirstName       *string   `gorm:"size:128" json:"first_name"`
	LastName        *string   `gorm:"size:128" json:"last_name"`
	ProfileImageURL *string   `gorm:"size:512" json:"profile_image_url"`
	Role            string    `gorm:"size:32;not null;default:instructor" json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultUserRole is assigned to users without an explicit role.
const DefaultUserRole = "instructor"
