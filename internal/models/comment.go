package models

import "time"

type Comment struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	Created    time.Time `json:"created"`
}

// ItemRequest is a wish posted by a user who could not find a suitable
// item; owners may list new items in answer to it.
type ItemRequest struct {
	ID          int64     `json:"id"`
	RequestorID int64     `json:"requestor_id"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}
