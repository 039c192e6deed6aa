// Package staffing carries the representative facility mutation used by the
// scheduling modules; it shows how business handlers attach audit records to
// the current identity context.
package staffing

import (
	"errors"
	"time"
)

// ErrFacilityNotFound indicates the facility does not exist.
var ErrFacilityNotFound = errors.New("staffing: facility not found")

// Facility is an organizational unit that staff and shifts are scoped to.
type Facility struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updatedAt"`
}
