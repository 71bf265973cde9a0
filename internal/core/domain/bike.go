package domain

import "time"

// Bike is a registered bicycle. Only the fields the client displays
// or updates are modelled.
type Bike struct {
	// ID is the server-assigned identifier.
	ID int64 `json:"id"`
	// Title is the display name, e.g. "2019 Surly Long Haul Trucker".
	Title string `json:"title,omitempty"`
	// Serial is the frame serial number.
	Serial string `json:"serial,omitempty"`
	// Manufacturer is the manufacturer name.
	Manufacturer string `json:"manufacturer_name,omitempty"`
	// Images are the uploaded photos, newest last.
	Images []Image `json:"public_images,omitempty"`
	// UpdatedAt is when the local copy was last written.
	UpdatedAt time.Time `json:"-"`
}

// Image is one uploaded photo with its rendition URLs.
type Image struct {
	ID     int64  `json:"id"`
	Name   string `json:"name,omitempty"`
	Full   string `json:"full,omitempty"`
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Thumb  string `json:"thumb,omitempty"`
}

// AddImage appends img, replacing an existing image with the same ID.
func (b *Bike) AddImage(img Image) {
	for i := range b.Images {
		if b.Images[i].ID == img.ID {
			b.Images[i] = img
			return
		}
	}
	b.Images = append(b.Images, img)
}

// User is the authenticated account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}
