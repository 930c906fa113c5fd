package domain

import (
	"time"
)

// DefaultStatus is assigned to every new user.
const DefaultStatus = "new"

type User struct {
	ID        string
	Email     string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
