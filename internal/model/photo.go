package model

import "time"

// Photo is an image referenced from an item or walk photoRef.
type Photo struct {
	ID        string    `json:"id"`
	Data      []byte    `json:"-"`
	MIME      string    `json:"mime"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}
