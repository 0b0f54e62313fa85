package tutorial

import "time"

// Tutorial is the stored document.
type Tutorial struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput carries the fields accepted on creation.
type CreateInput struct {
	Title       string
	Description string
	Published   bool
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Published   *bool
}

// IsEmpty reports whether the update carries no fields.
func (u UpdateInput) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Published == nil
}

// Apply copies the set fields onto t.
func (u UpdateInput) Apply(t *Tutorial) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Published != nil {
		t.Published = *u.Published
	}
}

// Filter narrows List results. Title is a case-insensitive substring match.
type Filter struct {
	Title     string
	Published *bool
}
