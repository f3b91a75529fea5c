package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplecrate/core/auth"
	"samplecrate/model"
)

// stubUserRepo serves canned users keyed by username and email.
type stubUserRepo struct {
	byUsername map[string]*model.User
	byEmail    map[string]*model.User
	created    []*model.User
}

func (r *stubUserRepo) CreateUser(user *model.User) (int64, error) {
	r.created = append(r.created, user)
	return int64(len(r.created)), nil
}

func (r *stubUserRepo) GetUserByID(id int64) (*model.User, error) { return nil, nil }

func (r *stubUserRepo) GetUserByUsername(username string) (*model.User, error) {
	return r.byUsername[username], nil
}

func (r *stubUserRepo) GetUserByEmail(email string) (*model.User, error) {
	return r.byEmail[email], nil
}

func newAuthTestHandler(users *stubUserRepo) *APIHandler {
	auth.Init("test-secret")
	return NewAPIHandler(nil, users, nil, NewWSHub(), nil)
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterCreatesUserAndReturnsToken(t *testing.T) {
	users := &stubUserRepo{byUsername: map[string]*model.User{}, byEmail: map[string]*model.User{}}
	h := newAuthTestHandler(users)

	rec := postJSON(h.RegisterHandler,
		`{"username":"beatsmith","password":"hunter2","email":"beats@example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users.created, 1)
	assert.Equal(t, "beatsmith", users.created[0].Username)
	assert.NotEqual(t, "hunter2", users.created[0].PasswordHash)
	assert.Contains(t, rec.Body.String(), "token")
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	users := &stubUserRepo{
		byUsername: map[string]*model.User{"beatsmith": {ID: 1, Username: "beatsmith"}},
		byEmail:    map[string]*model.User{},
	}
	h := newAuthTestHandler(users)

	rec := postJSON(h.RegisterHandler,
		`{"username":"beatsmith","password":"hunter2","email":"other@example.com"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, users.created)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := &stubUserRepo{
		byUsername: map[string]*model.User{},
		byEmail:    map[string]*model.User{"beats@example.com": {ID: 1, Email: "beats@example.com"}},
	}
	h := newAuthTestHandler(users)

	rec := postJSON(h.RegisterHandler,
		`{"username":"newcomer","password":"hunter2","email":"beats@example.com"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, users.created, "no insert may be attempted for a taken email")
}

func TestRegisterRequiresAllFields(t *testing.T) {
	h := newAuthTestHandler(&stubUserRepo{byUsername: map[string]*model.User{}, byEmail: map[string]*model.User{}})

	rec := postJSON(h.RegisterHandler, `{"username":"beatsmith","password":"hunter2"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	users := &stubUserRepo{
		byUsername: map[string]*model.User{"beatsmith": {ID: 1, Username: "beatsmith", PasswordHash: hash}},
		byEmail:    map[string]*model.User{},
	}
	h := newAuthTestHandler(users)

	rec := postJSON(h.LoginHandler, `{"username":"beatsmith","password":"hunter3"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginByEmailSucceeds(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	users := &stubUserRepo{
		byUsername: map[string]*model.User{},
		byEmail:    map[string]*model.User{"beats@example.com": {ID: 1, Username: "beatsmith", Email: "beats@example.com", PasswordHash: hash}},
	}
	h := newAuthTestHandler(users)

	rec := postJSON(h.LoginHandler, `{"username":"beats@example.com","password":"hunter2"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
}
