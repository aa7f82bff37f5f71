package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/captcha"
	"resource-site-backend/internal/logger"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/repository"
	"resource-site-backend/internal/service"
	"resource-site-backend/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-test-secret-with-32-chars!"

func newIntegrationRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Discard()
	store := repository.NewInMemoryStore()

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	root := t.TempDir()
	ingestor, err := upload.NewIngestor(filepath.Join(root, "description"), filepath.Join(root, "avatar"), log)
	require.NoError(t, err)

	h, err := NewHandler(tokens, Services{
		Resources: service.NewResourceService(store, log),
		Users:     service.NewUserService(store, tokens, log),
		Orders:    service.NewOrderService(store, log),
		Website:   service.NewWebsiteService(store, service.WebsiteSettings{Name: "Resources", CarouselSize: 5}),
		Captcha:   service.NewCaptchaService(captcha.NewMemoryStore(), time.Minute),
		Uploads:   ingestor,
	}, Options{}, log)
	require.NoError(t, err)
	return h.Routes()
}

func decodeInto(t *testing.T, body string, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), dst), body)
}

// signUp registers username through the captcha flow, logs in and returns the token.
func signUp(t *testing.T, router http.Handler, username string) service.LoginResult {
	t.Helper()

	var ch service.Challenge
	rec := doRequest(t, router, http.MethodGet, "/comm/register/digit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec.Body.String(), &ch)

	rec = doRequest(t, router, http.MethodPost, "/comm/register/create", "", strings.NewReader(
		`{"username":"`+username+`","password":"password-123","captcha_id":"`+ch.ID+`","captcha_code":"`+ch.Challenge+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/comm/login/alpha", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec.Body.String(), &ch)

	rec = doRequest(t, router, http.MethodPost, "/comm/login/loading", "", strings.NewReader(
		`{"username":"`+username+`","password":"password-123","captcha_id":"`+ch.ID+`","captcha_code":"`+ch.Challenge+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res service.LoginResult
	decodeInto(t, rec.Body.String(), &res)
	require.NotEmpty(t, res.Token)
	return res
}

func TestIntegration_CreateThenDetail(t *testing.T) {
	router := newIntegrationRouter(t)
	owner := signUp(t, router, "owner")
	buyer := signUp(t, router, "buyer")

	rec := doRequest(t, router, http.MethodPost, "/resource/create", "Bearer "+owner.Token, strings.NewReader(
		`{"name":"Forum","description":"A forum","category":"web","language":"PHP","price":20,"download_link":"https://files.example.com/forum.zip","cover_image":"cover.png"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Resource
	decodeInto(t, rec.Body.String(), &created)
	assert.Equal(t, owner.User.ID, created.OwnerID)

	detailPath := "/index/resources/" + created.ID.String()

	var detail service.ResourceDetail
	rec = doRequest(t, router, http.MethodGet, detailPath, "Bearer "+owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec.Body.String(), &detail)
	assert.Equal(t, created.ID, detail.ID)
	assert.Equal(t, "Forum", detail.Name)
	assert.Equal(t, "web", detail.Category)
	assert.Equal(t, int64(20), detail.Price)
	assert.Equal(t, "https://files.example.com/forum.zip", detail.DownloadLink)

	anonymous := doRequest(t, router, http.MethodGet, detailPath, "", nil)
	garbage := doRequest(t, router, http.MethodGet, detailPath, "Bearer garbage", nil)
	require.Equal(t, http.StatusOK, anonymous.Code)
	assert.JSONEq(t, anonymous.Body.String(), garbage.Body.String())
	decodeInto(t, anonymous.Body.String(), &detail)
	assert.Empty(t, detail.DownloadLink)

	rec = doRequest(t, router, http.MethodPut, "/user/resource/"+created.ID.String(), "Bearer "+buyer.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doRequest(t, router, http.MethodPut, "/user/resource/"+created.ID.String(), "Bearer "+buyer.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodGet, detailPath, "Bearer "+buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail = service.ResourceDetail{}
	decodeInto(t, rec.Body.String(), &detail)
	assert.True(t, detail.Purchased)
	assert.Equal(t, "https://files.example.com/forum.zip", detail.DownloadLink)

	rec = doRequest(t, router, http.MethodGet, "/index/resources?language=PHP", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page ResourcePage
	decodeInto(t, rec.Body.String(), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)

	rec = doRequest(t, router, http.MethodGet, "/index/carousel", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cover.png")
}

func TestIntegration_ProfileOwnership(t *testing.T) {
	router := newIntegrationRouter(t)
	alice := signUp(t, router, "alice")
	bob := signUp(t, router, "bob")

	alicePath := "/user/profile/change_profile/" + alice.User.ID.String()
	body := `{"nickname":"Al","email":"al@example.com"}`

	rec := doRequest(t, router, http.MethodPut, alicePath, "Bearer "+bob.Token, strings.NewReader(body))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPut, alicePath, "Bearer "+alice.Token, strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/user/profile/view/"+alice.User.ID.String(), "Bearer "+alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	decodeInto(t, rec.Body.String(), &user)
	assert.Equal(t, "Al", user.Nickname)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = doRequest(t, router, http.MethodPut, "/user/profile/change_pwd/"+alice.User.ID.String(), "Bearer "+alice.Token,
		strings.NewReader(`{"old_password":"password-123","new_password":"password-456"}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/user/profile/orders/"+alice.User.ID.String(), "Bearer "+alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestIntegration_CaptchaIsSingleUse(t *testing.T) {
	router := newIntegrationRouter(t)
	signUp(t, router, "carol")

	var ch service.Challenge
	rec := doRequest(t, router, http.MethodGet, "/comm/login/digit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec.Body.String(), &ch)

	login := `{"username":"carol","password":"password-123","captcha_id":"` + ch.ID + `","captcha_code":"` + ch.Challenge + `"}`
	rec = doRequest(t, router, http.MethodPost, "/comm/login/loading", "", strings.NewReader(login))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/comm/login/loading", "", strings.NewReader(login))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/comm/login/emoji", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
