package models

// ItemPatch carries the optional fields of a partial item update; nil
// means "leave unchanged".
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// UserPatch carries the optional fields of a partial user update.
type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}
