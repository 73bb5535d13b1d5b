package banner

import (
	"time"

	"github.com/gofrs/uuid"
)

// Banner is a promotional image on the storefront home page. TargetURL is
// where a click on the image leads; it may be empty.
type Banner struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"image_url"`
	TargetURL string    `json:"target_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input creates a banner. A nil Active means active.
type Input struct {
	ImageURL  string
	TargetURL string
	Active    *bool
}

// Patch changes only the non-nil fields.
type Patch struct {
	ImageURL  *string
	TargetURL *string
	Active    *bool
}
