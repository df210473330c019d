package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
)

func TestProfile_Update(t *testing.T) {
	profiles := newFakeProfiles()
	p := profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	h := NewProfileHandler(profiles, &fakeCreators{})
	claims := userClaims(p.ID, models.RoleUser)

	nickname := "  physics lee "
	bio := "grade 11"
	rec := httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/api/profile", dto.UpdateProfileRequest{Nickname: &nickname, Bio: &bio}, claims, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[dto.UserResponse](t, rec)
	assert.Equal(t, "physics lee", resp.Nickname)
	require.NotNil(t, resp.Bio)
	assert.Equal(t, "grade 11", *resp.Bio)

	blank := "   "
	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/api/profile", dto.UpdateProfileRequest{Nickname: &blank}, claims, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	badURL := "not a url"
	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/api/profile", dto.UpdateProfileRequest{AvatarURL: &badURL}, claims, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/api/profile", nil, claims, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "physics lee", decodeJSON[dto.UserResponse](t, rec).Nickname)
}

func TestProfile_GetPublic(t *testing.T) {
	creator := models.Profile{ID: uuid.New(), Nickname: "tutor kim", Role: models.RoleCreator}
	newCreator := models.Profile{ID: uuid.New(), Nickname: "tutor park", Role: models.RoleCreator}
	user := models.Profile{ID: uuid.New(), Nickname: "student lee", Role: models.RoleUser}
	creators := &fakeCreators{settings: map[uuid.UUID]models.CreatorSettings{
		creator.ID: {UserID: creator.ID, DisplayName: "Kim Physics", QuestionPrice: 3000, AcceptsQuestions: true},
		// settings of a plain user are never shown
		user.ID: {UserID: user.ID, DisplayName: "hidden"},
	}}
	h := NewProfileHandler(newFakeProfiles(creator, newCreator, user), creators)

	get := func(id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.GetPublic(rec, newRequest(t, http.MethodGet, "/x", nil, nil, map[string]string{"id": id}))
		return rec
	}

	rec := get(creator.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[dto.PublicProfileResponse](t, rec)
	require.NotNil(t, resp.Creator)
	assert.Equal(t, "Kim Physics", resp.Creator.DisplayName)

	rec = get(newCreator.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeJSON[dto.PublicProfileResponse](t, rec).Creator)

	rec = get(user.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeJSON[dto.PublicProfileResponse](t, rec).Creator)

	assert.Equal(t, http.StatusNotFound, get(uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get("nope").Code)
}
