package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a list of image references as a JSON text column so the
// same model works on postgres and on the sqlite test database.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:USER"    json:"role"`
	IsActive     bool      `gorm:"default:false"            json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Product struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string     `gorm:"not null"                 json:"title"`
	Category     string     `gorm:"not null"                 json:"category"`
	MobileBrand  *string    `json:"mobileBrand"`
	PtaStatus    *string    `json:"ptaStatus"`
	Condition    *string    `json:"condition"`
	Description  string     `json:"description"`
	Price        float64    `gorm:"not null"                 json:"price"`
	Location     string     `json:"location"`
	ContactName  string     `json:"contactName"`
	ContactPhone string     `json:"contactPhone"`
	Status       string     `gorm:"not null;default:available" json:"status"`
	Images       StringList `gorm:"type:text"                json:"images"`
	AcceptTerms  bool       `gorm:"default:false"            json:"acceptTerms"`
	UserID       *uint      `gorm:"index"                    json:"userId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
