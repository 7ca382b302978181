package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Candidate struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Party     string    `json:"party"`
	Age       *int      `json:"age,omitempty"`
	LogoRef   string    `json:"logo_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the registry's required fields.
func (c *Candidate) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(c.Party) == "" {
		problems = append(problems, "party is required")
	}
	if c.Age != nil && *c.Age < 0 {
		problems = append(problems, "age must not be negative")
	}
	if len(problems) > 0 {
		return Validationf("%s", strings.Join(problems, "; "))
	}
	return nil
}
