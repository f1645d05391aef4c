package model

// Advertisement is a banner image shown on the public pages, ordered by
// DisplayOrder ascending.
type Advertisement struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	ImageData    string `json:"imageData" db:"image_data"`
	Type         string `json:"type" db:"mime_type"`
	Size         string `json:"size" db:"size_label"`
	DisplayOrder int    `json:"displayOrder" db:"display_order"`
	Active       bool   `json:"active" db:"active"`
	CreatedAt    string `json:"createdAt" db:"created_at"`
	UpdatedAt    string `json:"updatedAt" db:"updated_at"`
}

// Logo is the site logo. At most one exists at a time.
type Logo struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ImageData string `json:"imageData" db:"image_data"`
	Type      string `json:"type" db:"mime_type"`
	CreatedAt string `json:"createdAt" db:"created_at"`
	UpdatedAt string `json:"updatedAt" db:"updated_at"`
}
