package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

const myBikesJSON = `{"bikes":[
	{"id":4,"title":"2019 Surly Long Haul Trucker","serial":"WSBC123","manufacturer_name":"Surly"},
	{"id":5,"serial":"XYZ","manufacturer_name":"Trek"}
]}`

// TestBikesList_SavesLocally tests fetched bikes are listed and kept for offline use
func TestBikesList_SavesLocally(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.handle(t, "GET /api/v3/me/bikes", "tok-1", myBikesJSON, http.StatusOK)

	out, err := execute(t, "bikes", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "[4] 2019 Surly Long Haul Trucker")
	assert.Contains(t, out, "[5] Trek")

	local, err := env.bikes.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, local, 2)
	saved, err := env.bikes.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, epoch, saved.UpdatedAt)
}

func TestBikesList_Offline(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.bikes.Save(context.Background(), domain.Bike{ID: 9, Title: "Local Bike", Serial: "L9"}))

	out, err := execute(t, "bikes", "list", "--offline")

	require.NoError(t, err)
	assert.Contains(t, out, "[9] Local Bike")
}

func TestBikesList_OfflineEmpty(t *testing.T) {
	newTestEnv(t)

	out, err := execute(t, "bikes", "list", "--offline")

	require.NoError(t, err)
	assert.Contains(t, out, "No bikes found.")
}

func TestBikesList_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.handle(t, "GET /api/v3/me/bikes", "tok-1", myBikesJSON, http.StatusOK)

	out, err := execute(t, "bikes", "list", "--json")

	require.NoError(t, err)
	var bikes []domain.Bike
	require.NoError(t, json.Unmarshal([]byte(out), &bikes))
	assert.Len(t, bikes, 2)
}

func TestBikesList_SignedOut(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "bikes", "list")

	assert.ErrorIs(t, err, errSignedOut)
}

func TestBikesGet(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.handle(t, "GET /api/v3/bikes/4", "tok-1",
		`{"bike":{"id":4,"title":"Trucker","serial":"WSBC123","manufacturer_name":"Surly","public_images":[{"id":1}]}}`,
		http.StatusOK)

	out, err := execute(t, "bikes", "get", "4")

	require.NoError(t, err)
	assert.Contains(t, out, "Trucker")
	assert.Contains(t, out, "WSBC123")
	assert.Regexp(t, `Photos\s+1`, out)
}

// TestBikesGet_ServerMessage tests a 404 surfaces the server's wording
func TestBikesGet_ServerMessage(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.handle(t, "GET /api/v3/bikes/4", "tok-1", `{"error":"Couldn't find Bike"}`, http.StatusNotFound)

	_, err := execute(t, "bikes", "get", "4")

	assert.EqualError(t, err, "failed to fetch bike: Couldn't find Bike")
}

func TestBikesGet_InvalidID(t *testing.T) {
	tests := []string{"abc", "0", "-3"}

	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			newTestEnv(t)

			_, err := execute(t, "bikes", "get", "--", id)

			assert.EqualError(t, err, `invalid bike id "`+id+`"`)
		})
	}
}

// TestBikesCreate tests the flags are sent as a form and the result stored
func TestBikesCreate(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.mux.HandleFunc("POST /api/v3/bikes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "WSBC123", r.PostForm.Get("serial"))
		assert.Equal(t, "Surly", r.PostForm.Get("manufacturer"))
		assert.Equal(t, "black", r.PostForm.Get("color"))
		assert.Equal(t, "2019", r.PostForm.Get("year"))
		assert.False(t, r.PostForm.Has("owner_email"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bike":{"id":77,"title":"2019 Surly","serial":"WSBC123","manufacturer_name":"Surly"}}`))
	})

	out, err := execute(t, "bikes", "create",
		"--serial", "WSBC123", "--manufacturer", "Surly", "--color", "black", "--year", "2019")

	require.NoError(t, err)
	assert.Contains(t, out, "Registered bike 77")
	_, err = env.bikes.Get(context.Background(), 77)
	assert.NoError(t, err)
}

func TestBikesCreate_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.handle(t, "POST /api/v3/bikes", "tok-1", `{"error":"Serial can't be blank"}`, http.StatusUnprocessableEntity)

	_, err := execute(t, "bikes", "create", "--serial", " ", "--manufacturer", "Surly")

	assert.EqualError(t, err, "failed to register bike: Serial can't be blank")
}

func TestBikesCreate_RequiresSerial(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "bikes", "create", "--manufacturer", "Surly")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "serial")
}

func TestBikesUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.mux.HandleFunc("PUT /api/v3/bikes/4", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "red", r.PostForm.Get("color"))
		assert.False(t, r.PostForm.Has("serial"))
		_, _ = w.Write([]byte(`{"bike":{"id":4,"title":"Trucker"}}`))
	})

	out, err := execute(t, "bikes", "update", "4", "--color", "red")

	require.NoError(t, err)
	assert.Contains(t, out, "Updated bike 4")
}

// TestBikesUpdate_EmptyForm tests nothing is sent when no field changed
func TestBikesUpdate_EmptyForm(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")
	env.mux.HandleFunc("PUT /api/v3/bikes/4", func(w http.ResponseWriter, r *http.Request) {
		t.Error("an empty form must not be sent")
	})

	_, err := execute(t, "bikes", "update", "4")

	assert.Error(t, err)
}
