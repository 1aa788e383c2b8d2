// Package profile stores per-learner state: identity, experience points,
// active practice mode and the rolling conversation history.
package profile

import (
	"context"
	"time"
)

// Level is a named rank on the experience ladder.
type Level string

const (
	Beginner     Level = "Beginner"
	Intermediate Level = "Intermediate"
	Advanced     Level = "Advanced"
	Expert       Level = "Expert"
	Master       Level = "Master"
	Legend       Level = "Legend"
)

// Mode selects the conversation persona.
type Mode string

const (
	ModeChat        Mode = "chat"
	ModeRestaurant  Mode = "restaurant"
	ModeImmigration Mode = "immigration"
)

// Turn is one exchange entry in the conversation history.
type Turn struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// UserProfile is the durable record for one learner, keyed by their
// messaging identity.
type UserProfile struct {
	ExternalID string    `bson:"externalId" json:"externalId"`
	FirstName  string    `bson:"firstName,omitempty" json:"firstName,omitempty"`
	Level      Level     `bson:"level" json:"level"`
	XP         int       `bson:"xp" json:"xp"`
	Mode       Mode      `bson:"mode" json:"mode"`
	History    []Turn    `bson:"history" json:"history"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// New creates a fresh profile with the starting rank and default mode.
func New(externalID, firstName string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		ExternalID: externalID,
		FirstName:  firstName,
		Level:      Beginner,
		Mode:       ModeChat,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Repository persists learner profiles.
type Repository interface {
	// LoadOrCreate returns the stored profile for the id, creating and
	// persisting a fresh one when none exists.
	LoadOrCreate(ctx context.Context, externalID, firstName string) (*UserProfile, error)
	// Save writes the profile back. The caller owns turn atomicity: a
	// profile is saved once per processed message, after all mutations.
	Save(ctx context.Context, p *UserProfile) error
}
