package directory

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Specialty     string    `json:"specialty"`
	LicenseNumber *string   `json:"license_number,omitempty"`
	Active        bool      `json:"active"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Patient struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     *string    `json:"email,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DoctorFilter narrows a doctor listing. Nil fields are ignored.
type DoctorFilter struct {
	Specialty *string
	Active    *bool
}
