package models

import "time"

type Item struct {
	ID          int64     `yaml:"id" json:"id"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Available   bool      `yaml:"available" json:"available"`
	RequestID   int64     `yaml:"request_id" json:"request_id,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}
