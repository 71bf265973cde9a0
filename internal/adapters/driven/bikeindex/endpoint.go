package bikeindex

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// apiPrefix is prepended to the path of every data endpoint.
var apiPrefix = []string{"api", "v3"}

// Encoding is how a request body is serialised.
type Encoding int

const (
	// EncodingNone means no body encoding was declared.
	EncodingNone Encoding = iota
	// EncodingForm is application/x-www-form-urlencoded.
	EncodingForm
	// EncodingMultipart is multipart/form-data.
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingForm:
		return "form"
	case EncodingMultipart:
		return "multipart"
	default:
		return "none"
	}
}

// Payload is a request body.
type Payload interface {
	// Fields returns the key/value pairs to encode.
	Fields() (url.Values, error)
}

// FilePayload is a Payload that also carries a binary part.
type FilePayload interface {
	Payload
	// File returns the file name and bytes embedded in the multipart body.
	File() (name string, data []byte)
}

// Descriptor describes one API operation. It is immutable once built and
// knows nothing about authorization beyond RequiresAuth.
type Descriptor struct {
	// Op names the operation in logs and errors.
	Op string
	// Method is the HTTP verb.
	Method string
	// Path segments below the host, or below the API prefix if API is set.
	Path []string
	// API places Path under api/v3.
	API bool
	// RequiresAuth asks the client to attach the bearer token.
	RequiresAuth bool
	// Query is appended to the URL.
	Query url.Values
	// Body is the request payload, if any.
	Body Payload
	// Encoding declares how Body is serialised.
	Encoding Encoding
	// BikeID is the record the operation targets, when there is one.
	BikeID int64
}

// Endpoint is a Descriptor whose response decodes into R.
type Endpoint[R any] struct {
	Descriptor
}

// Resolve builds the endpoint URL on host. The result never carries the
// bearer token.
func (d Descriptor) Resolve(host *url.URL) *url.URL {
	segments := d.Path
	if d.API {
		segments = append(append([]string(nil), apiPrefix...), d.Path...)
	}
	u := host.JoinPath(segments...)
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
		u.RawPath = ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	if len(d.Query) > 0 {
		u.RawQuery = d.Query.Encode()
	}
	return u
}

func bikePath(id int64, rest ...string) []string {
	return append([]string{"bikes", strconv.FormatInt(id, 10)}, rest...)
}

// ==================== Data endpoints ====================

// CurrentUser fetches the signed-in user.
func CurrentUser() Endpoint[UserResponse] {
	return Endpoint[UserResponse]{Descriptor{
		Op:           "current user",
		Method:       http.MethodGet,
		Path:         []string{"me"},
		API:          true,
		RequiresAuth: true,
	}}
}

// MyBikes fetches the signed-in user's bikes.
func MyBikes() Endpoint[BikesResponse] {
	return Endpoint[BikesResponse]{Descriptor{
		Op:           "my bikes",
		Method:       http.MethodGet,
		Path:         []string{"me", "bikes"},
		API:          true,
		RequiresAuth: true,
	}}
}

// FetchBike fetches one bike.
func FetchBike(id int64) Endpoint[BikeResponse] {
	return Endpoint[BikeResponse]{Descriptor{
		Op:           "fetch bike",
		Method:       http.MethodGet,
		Path:         bikePath(id),
		API:          true,
		RequiresAuth: true,
		BikeID:       id,
	}}
}

// CreateBike registers a bike.
func CreateBike(form BikeForm) Endpoint[BikeResponse] {
	return Endpoint[BikeResponse]{Descriptor{
		Op:           "create bike",
		Method:       http.MethodPost,
		Path:         []string{"bikes"},
		API:          true,
		RequiresAuth: true,
		Body:         form,
		Encoding:     EncodingForm,
	}}
}

// UpdateBike changes fields of an existing bike.
func UpdateBike(id int64, form BikeForm) Endpoint[BikeResponse] {
	return Endpoint[BikeResponse]{Descriptor{
		Op:           "update bike",
		Method:       http.MethodPut,
		Path:         bikePath(id),
		API:          true,
		RequiresAuth: true,
		Body:         form,
		Encoding:     EncodingForm,
		BikeID:       id,
	}}
}

// UploadImage attaches a photo to a bike.
func UploadImage(id int64, image ImagePayload) Endpoint[ImageResponse] {
	return Endpoint[ImageResponse]{Descriptor{
		Op:           "upload image",
		Method:       http.MethodPost,
		Path:         bikePath(id, "images"),
		API:          true,
		RequiresAuth: true,
		Body:         image,
		Encoding:     EncodingMultipart,
		BikeID:       id,
	}}
}

// Autocomplete looks up manufacturers, colours and other terms. It is public.
func Autocomplete(query string) Endpoint[AutocompleteResponse] {
	return Endpoint[AutocompleteResponse]{Descriptor{
		Op:     "autocomplete",
		Method: http.MethodGet,
		Path:   []string{"search", "autocomplete"},
		API:    true,
		Query:  url.Values{"q": []string{query}},
	}}
}

// ==================== OAuth endpoints ====================

// TokenForm is the body of a token endpoint request.
type TokenForm url.Values

// Fields implements Payload.
func (f TokenForm) Fields() (url.Values, error) {
	return url.Values(f), nil
}

// ExchangeCode trades an authorization code for a grant.
func ExchangeCode(clientID, clientSecret, redirectURI, code string) Endpoint[TokenResponse] {
	return tokenEndpoint("exchange code", TokenForm{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	})
}

// RefreshToken trades a refresh token for a new grant.
func RefreshToken(clientID, refreshToken string) Endpoint[TokenResponse] {
	return tokenEndpoint("refresh token", TokenForm{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
	})
}

func tokenEndpoint(op string, form TokenForm) Endpoint[TokenResponse] {
	return Endpoint[TokenResponse]{Descriptor{
		Op:       op,
		Method:   http.MethodPost,
		Path:     []string{"oauth", "token"},
		Body:     form,
		Encoding: EncodingForm,
	}}
}

// Logout ends the server-side browser session.
func Logout() Endpoint[NoContent] {
	return Endpoint[NoContent]{Descriptor{
		Op:     "logout",
		Method: http.MethodGet,
		Path:   []string{"logout"},
	}}
}
