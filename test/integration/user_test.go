package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/election/internal/core/domain"
)

func TestGetMe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	userID, token := createUserAndToken(t, app.DB, domain.RoleVoter)

	resp := app.send(t, http.MethodGet, "/api/me", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))

	var dbEmail, dbName string
	err := app.DB.QueryRow("SELECT email, name FROM users WHERE id = $1", userID).Scan(&dbEmail, &dbName)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), user["id"])
	assert.Equal(t, dbEmail, user["email"])
	assert.Equal(t, dbName, user["name"])
	assert.Equal(t, "voter", user["role"])
}

func TestGetMe_Unauthorized(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	resp := app.send(t, http.MethodGet, "/api/me", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListVoters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	_, admin := createUserAndToken(t, app.DB, domain.RoleAdmin)
	_, voter := createUserAndToken(t, app.DB, domain.RoleVoter)
	createUserAndToken(t, app.DB, domain.RoleVoter)

	resp := app.send(t, http.MethodGet, "/api/voters", voter, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.send(t, http.MethodGet, "/api/voters", admin, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var voters []domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&voters))
	assert.Len(t, voters, 2)
}
