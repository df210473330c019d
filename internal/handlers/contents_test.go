package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/storage"
)

func newContentsHandlerFor(f *marketFixture) *ContentsHandler {
	return NewContentsHandler(f.contents, f.market, &fakeSubscriptions{}, f.purchases, f.notifier, storage.PassthroughSigner{})
}

func TestContents_GetHidesFilePathWithoutAccess(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	c := f.addContent(5000, true)
	params := map[string]string{"id": c.ID.String()}

	get := func(claims *middleware.JWTClaims) dto.ContentResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		h.Get(rec, newRequest(t, http.MethodGet, "/api/contents/"+c.ID.String(), nil, claims, params))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeJSON[dto.ContentResponse](t, rec)
	}
	buyer := userClaims(f.buyer.ID, models.RoleUser)

	anon := get(nil)
	assert.Nil(t, anon.FilePath)
	assert.False(t, anon.Purchased)

	resp := get(buyer)
	assert.Nil(t, resp.FilePath)
	assert.False(t, resp.Purchased)

	owner := get(userClaims(f.creator.ID, models.RoleCreator))
	require.NotNil(t, owner.FilePath)
	assert.Equal(t, "materials/physics.pdf", *owner.FilePath)

	f.addSale(c)
	resp = get(buyer)
	require.NotNil(t, resp.FilePath)
	assert.Equal(t, "materials/physics.pdf", *resp.FilePath)
	assert.True(t, resp.Purchased)
	assert.Equal(t, int64(4), resp.ViewCount)
}

func TestContents_GetUnpublishedIsHiddenFromOthers(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	c := f.addContent(5000, false)
	params := map[string]string{"id": c.ID.String()}

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/x", nil, userClaims(f.buyer.ID, models.RoleUser), params))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/x", nil, userClaims(f.admin.ID, models.RoleAdmin), params))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContents_DeleteUnpublishesWhenPurchased(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	owner := userClaims(f.creator.ID, models.RoleCreator)

	sold := f.addContent(5000, true)
	f.contents.purchaseCounts[sold.ID] = 1
	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, owner, map[string]string{"id": sold.ID.String()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[dto.ContentDeleteResponse](t, rec).Unpublished)
	require.Contains(t, f.contents.items, sold.ID)
	assert.False(t, f.contents.items[sold.ID].IsPublished)

	unsold := f.addContent(5000, true)
	rec = httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, owner, map[string]string{"id": unsold.ID.String()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeJSON[dto.ContentDeleteResponse](t, rec).Unpublished)
	assert.NotContains(t, f.contents.items, unsold.ID)
}

func TestContents_DeleteRequiresOwner(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	c := f.addContent(5000, true)

	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, userClaims(f.buyer.ID, models.RoleUser), map[string]string{"id": c.ID.String()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, f.contents.items, c.ID)

	rec = httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, userClaims(f.buyer.ID, models.RoleUser), map[string]string{"id": uuid.NewString()}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContents_Access(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	buyer := userClaims(f.buyer.ID, models.RoleUser)

	c := f.addContent(5000, true)
	params := map[string]string{"id": c.ID.String()}
	rec := httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, buyer, params))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a pending transfer does not unlock the file
	p := f.market.addPurchase(models.Purchase{
		ContentID: c.ID, BuyerID: f.buyer.ID, CreatorID: f.creator.ID, Amount: 5000,
		PaymentMethod: models.MethodP2P, Status: models.PurchasePendingConfirm,
	})
	rec = httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, buyer, params))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.market.setStatus(p.ID, models.PurchaseCompleted)

	rec = httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, buyer, params))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "materials/physics.pdf", decodeJSON[dto.ContentAccessResponse](t, rec).URL)
}

func TestContents_AccessFreeContent(t *testing.T) {
	f := newMarketFixture()
	h := newContentsHandlerFor(f)
	buyer := userClaims(f.buyer.ID, models.RoleUser)

	free := f.addContent(0, true)
	rec := httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, buyer, map[string]string{"id": free.ID.String()}))
	assert.Equal(t, http.StatusOK, rec.Code)

	draft := f.addContent(0, false)
	rec = httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, buyer, map[string]string{"id": draft.ID.String()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Access(rec, newRequest(t, http.MethodGet, "/x", nil, userClaims(f.creator.ID, models.RoleCreator), map[string]string{"id": draft.ID.String()}))
	assert.Equal(t, http.StatusOK, rec.Code)
}
