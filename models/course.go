// models/course.go
package models

import "time"

// GolfCourse is a directory entry. Coordinates are optional; only geocoded
// courses show up on the map.
type GolfCourse struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:200;index"`
	Address   string    `json:"address" gorm:"size:300"`
	City      string    `json:"city" gorm:"size:100"`
	State     string    `json:"state" gorm:"size:2;index"`
	ZipCode   string    `json:"zip_code" gorm:"size:10;index"`
	Phone     string    `json:"phone" gorm:"size:30"`
	Website   string    `json:"website"`
	Holes     int       `json:"holes"`
	Par       int       `json:"par"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GolfCourse) TableName() string {
	return "golf_courses"
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	Email     string    `json:"email" gorm:"not null;size:255"`
	Subject   string    `json:"subject" gorm:"size:200"`
	Message   string    `json:"message" gorm:"not null;type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (ContactMessage) TableName() string {
	return "contact_messages"
}

type EmailSubscriber struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Source    string    `json:"source" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`
}

func (EmailSubscriber) TableName() string {
	return "email_subscribers"
}
