package bikeindex

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// ==================== Response shapes ====================

// TokenResponse is the token endpoint's JSON body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// Grant converts the response into a domain grant. A missing created_at
// is taken to be now.
func (t TokenResponse) Grant(now time.Time) *domain.TokenGrant {
	created := now
	if t.CreatedAt > 0 {
		created = time.Unix(t.CreatedAt, 0).UTC()
	}
	return &domain.TokenGrant{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		ExpiresIn:    time.Duration(t.ExpiresIn) * time.Second,
		RefreshToken: t.RefreshToken,
		Scopes:       domain.ParseScopes(t.Scope),
		CreatedAt:    created,
	}
}

// UserResponse is the body of the current-user endpoint.
type UserResponse struct {
	ID      string      `json:"id"`
	User    domain.User `json:"user"`
	BikeIDs []int64     `json:"bike_ids"`
}

// BikesResponse is a list of bikes.
type BikesResponse struct {
	Bikes []domain.Bike `json:"bikes"`
}

// BikeResponse wraps a single bike.
type BikeResponse struct {
	Bike domain.Bike `json:"bike"`
}

// ImageResponse wraps an uploaded image.
type ImageResponse struct {
	Image domain.Image `json:"image"`
}

// AutocompleteResponse holds lookup matches.
type AutocompleteResponse struct {
	Matches []Match `json:"matches"`
}

// Match is one autocomplete suggestion.
type Match struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Slug     string `json:"slug,omitempty"`
}

// NoContent is the response type of endpoints whose body is ignored.
type NoContent struct{}

// ==================== Request payloads ====================

// BikeForm holds the registration fields of a bike. Empty fields are omitted.
type BikeForm struct {
	Serial       string
	Manufacturer string
	Color        string
	OwnerEmail   string
	Title        string
	Year         int
}

// ErrEmptyForm indicates a form with no fields set.
var ErrEmptyForm = errors.New("no fields set")

// Fields implements Payload.
func (f BikeForm) Fields() (url.Values, error) {
	if f.Year < 0 {
		return nil, fmt.Errorf("year %d is negative", f.Year)
	}

	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("serial", f.Serial)
	set("manufacturer", f.Manufacturer)
	set("color", f.Color)
	set("owner_email", f.OwnerEmail)
	set("frame_model", f.Title)
	if f.Year > 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}

	if len(v) == 0 {
		return nil, ErrEmptyForm
	}
	return v, nil
}

// ImagePayload is a photo to attach to a bike.
type ImagePayload struct {
	Name string
	Data []byte
}

// Fields implements Payload. Images carry no fields besides the file.
func (p ImagePayload) Fields() (url.Values, error) {
	if len(p.Data) == 0 {
		return nil, errors.New("image is empty")
	}
	return url.Values{}, nil
}

// File implements FilePayload.
func (p ImagePayload) File() (string, []byte) {
	name := p.Name
	if name == "" {
		name = "image"
	}
	return name, p.Data
}
