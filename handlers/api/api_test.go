package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftsync/drafts"
	"draftsync/middleware"
	"draftsync/models"
	"draftsync/storage"
)

type apiFixture struct {
	t       *testing.T
	app     *fiber.App
	storage *storage.Storage
	issuer  *middleware.TokenIssuer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	st, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	normalizer := drafts.NewNormalizer(st.Streams, st.Users, st.Recipients, drafts.DefaultLimits())
	service := drafts.NewService(st.Drafts, st.Users, normalizer, st.Recipients)
	issuer := middleware.NewTokenIssuer("test-secret", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := NewApp(Options{
		Context:  ctx,
		Service:  service,
		Users:    st.Users,
		LoadUser: st.Users.GetUser,
		Issuer:   issuer,
		RealmID:  1,
	})
	return &apiFixture{t: t, app: app, storage: st, issuer: issuer}
}

// user creates an account in realm 1 and returns it with a bearer token
func (f *apiFixture) user(email string, syncEnabled bool) (*models.User, string) {
	f.t.Helper()
	u := &models.User{RealmID: 1, Email: email, FullName: email}
	require.NoError(f.t, f.storage.Users.CreateUser(u, "password"))
	if syncEnabled {
		require.NoError(f.t, f.storage.Users.SetDraftsSynchronization(u.ID, true))
		u.EnableDraftsSynchronization = true
	}
	token, _, err := f.issuer.Issue(u)
	require.NoError(f.t, err)
	return u, token
}

type response struct {
	status int
	body   map[string]interface{}
}

func (f *apiFixture) do(req *http.Request, token string) response {
	f.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	var body map[string]interface{}
	require.NoError(f.t, json.Unmarshal(data, &body), "body: %s", data)
	return response{status: resp.StatusCode, body: body}
}

func (f *apiFixture) json(method, path, body, token string) response {
	f.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req, token)
}

func (f *apiFixture) form(method, path string, values url.Values, token string) response {
	f.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req, token)
}

func ids(t *testing.T, r response) []int64 {
	t.Helper()
	raw, ok := r.body["ids"].([]interface{})
	require.True(t, ok, "ids missing: %v", r.body)
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = int64(v.(float64))
	}
	return out
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.user("hamlet@example.com", false)

	r := f.json("POST", "/api/v1/login", `{"email":"hamlet@example.com","password":"password"}`, "")
	assert.Equal(t, 200, r.status)
	token, _ := r.body["token"].(string)
	require.NotEmpty(t, token)

	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "precondition", r.body["code"])

	r = f.json("POST", "/api/v1/login", `{"email":"hamlet@example.com","password":"nope"}`, "")
	assert.Equal(t, 401, r.status)
	assert.Equal(t, "Invalid email or password", r.body["error"])
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	r := f.json("GET", "/api/v1/drafts", "", "")
	assert.Equal(t, 401, r.status)
	assert.Equal(t, "unauthorized", r.body["code"])
	assert.Equal(t, "Missing authorization header", r.body["error"])

	r = f.json("GET", "/api/v1/drafts", "", "garbage")
	assert.Equal(t, 401, r.status)
	assert.Equal(t, "Invalid or expired token", r.body["error"])

	other := middleware.NewTokenIssuer("other-secret", time.Hour)
	u, _ := f.user("iago@example.com", true)
	forged, _, err := other.Issue(u)
	require.NoError(t, err)
	r = f.json("GET", "/api/v1/drafts", "", forged)
	assert.Equal(t, 401, r.status)

	_, token := f.user("gone@example.com", true)
	require.NoError(t, f.storage.Users.SetActive(2, false))
	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, 401, r.status)
}

func TestDrafts_SyncDisabledRejectsEveryOperation(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", false)

	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/api/v1/drafts", ""},
		{"POST", "/api/v1/drafts", `{"drafts":"not even a list"}`},
		{"PATCH", "/api/v1/drafts/1", `{}`},
		{"DELETE", "/api/v1/drafts/1", ""},
	} {
		r := f.json(tc.method, tc.path, tc.body, token)
		assert.Equal(t, 400, r.status, "%s %s", tc.method, tc.path)
		assert.Equal(t, "precondition", r.body["code"])
		assert.Equal(t, "User has not enabled drafts syncing.", r.body["error"])
	}
}

func TestDrafts_Lifecycle(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", true)
	other, _ := f.user("othello@example.com", true)

	r := f.json("POST", "/api/v1/drafts", `{"drafts":[
		{"type":"","to":[],"topic":"","content":"first","timestamp":1595479019.4391587},
		{"type":"private","to":[`+itoa(other.ID)+`],"topic":"","content":"second","timestamp":1595479020}
	]}`, token)
	require.Equal(t, 200, r.status, "%v", r.body)
	created := ids(t, r)
	require.Len(t, created, 2)

	r = f.json("GET", "/api/v1/drafts", "", token)
	require.Equal(t, 200, r.status)
	assert.Equal(t, float64(2), r.body["count"])
	list := r.body["drafts"].([]interface{})
	first := list[0].(map[string]interface{})
	assert.Equal(t, "first", first["content"])
	assert.Equal(t, float64(1595479019), first["timestamp"])
	second := list[1].(map[string]interface{})
	assert.Equal(t, "private", second["type"])
	assert.Equal(t, []interface{}{float64(other.ID)}, second["to"])

	r = f.json("PATCH", "/api/v1/drafts/"+itoa(created[0]),
		`{"draft":{"type":"","to":[],"topic":"","content":"edited","timestamp":1595479030}}`, token)
	require.Equal(t, 200, r.status, "%v", r.body)

	r = f.json("GET", "/api/v1/drafts", "", token)
	list = r.body["drafts"].([]interface{})
	assert.Equal(t, "second", list[0].(map[string]interface{})["content"])
	assert.Equal(t, "edited", list[1].(map[string]interface{})["content"])

	r = f.json("DELETE", "/api/v1/drafts/"+itoa(created[1]), "", token)
	assert.Equal(t, 200, r.status)

	r = f.json("DELETE", "/api/v1/drafts/"+itoa(created[1]), "", token)
	assert.Equal(t, 404, r.status)
	assert.Equal(t, "Draft does not exist", r.body["error"])
}

func TestDrafts_OtherUsersDraftIsNotFound(t *testing.T) {
	f := newAPIFixture(t)
	_, ownerToken := f.user("owner@example.com", true)
	_, intruderToken := f.user("intruder@example.com", true)

	r := f.json("POST", "/api/v1/drafts", `{"drafts":[{"type":"","to":[],"topic":"","content":"secret"}]}`, ownerToken)
	require.Equal(t, 200, r.status)
	id := itoa(ids(t, r)[0])

	r = f.json("PATCH", "/api/v1/drafts/"+id, `{"draft":{"type":"","to":[],"topic":"","content":"mine now"}}`, intruderToken)
	assert.Equal(t, 404, r.status)
	assert.Equal(t, "not_found", r.body["code"])

	r = f.json("DELETE", "/api/v1/drafts/"+id, "", intruderToken)
	assert.Equal(t, 404, r.status)

	r = f.json("GET", "/api/v1/drafts", "", ownerToken)
	assert.Equal(t, float64(1), r.body["count"])
}

func TestDrafts_FormEncodedArguments(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", true)

	r := f.form("POST", "/api/v1/drafts", url.Values{
		"drafts": {`[{"type":"","to":[],"topic":"","content":"from a form"}]`},
	}, token)
	require.Equal(t, 200, r.status, "%v", r.body)
	assert.Len(t, ids(t, r), 1)

	for _, bad := range []string{"[not json", `[{"type":"","to":[],"topic":"","content":"x"}]garbage`} {
		r = f.form("POST", "/api/v1/drafts", url.Values{"drafts": {bad}}, token)
		assert.Equal(t, 400, r.status, bad)
		assert.Equal(t, "schema", r.body["code"])
		assert.Equal(t, `Argument "drafts" is not valid JSON.`, r.body["error"])
	}

	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, float64(1), r.body["count"])
}

func TestDrafts_ArgumentErrors(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", true)

	r := f.json("POST", "/api/v1/drafts", `{}`, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "Missing 'drafts' argument", r.body["error"])

	r = f.json("POST", "/api/v1/drafts", `{"drafts":[{"type":"","to":[],"topic":"","content":""}]}`, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "schema", r.body["code"])
	assert.Equal(t, `drafts[0]["content"] cannot be blank.`, r.body["error"])

	r = f.json("POST", "/api/v1/drafts", `{"drafts":[{"type":"stream","to":[5,6],"topic":"t","content":"hi"}]}`, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "validation", r.body["code"])
	assert.Equal(t, "Must specify exactly 1 stream ID for stream messages", r.body["error"])

	r = f.json("PATCH", "/api/v1/drafts/abc", `{"draft":{}}`, token)
	assert.Equal(t, 404, r.status)
}

func TestDrafts_BatchIsAllOrNothing(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", true)

	r := f.json("POST", "/api/v1/drafts", `{"drafts":[
		{"type":"","to":[],"topic":"","content":"fine"},
		{"type":"","to":[],"topic":"","content":"bad\u0000","timestamp":1}
	]}`, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "Content must not contain null bytes", r.body["error"])

	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, float64(0), r.body["count"])
}

func TestSettings_DisablePurgesDrafts(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", false)

	r := f.json("PATCH", "/api/v1/settings", `{"enable_drafts_synchronization":true}`, token)
	require.Equal(t, 200, r.status)
	assert.Equal(t, true, r.body["enable_drafts_synchronization"])

	r = f.json("POST", "/api/v1/drafts", `{"drafts":[{"type":"","to":[],"topic":"","content":"kept?"}]}`, token)
	require.Equal(t, 200, r.status)

	r = f.form("PATCH", "/api/v1/settings", url.Values{"enable_drafts_synchronization": {"false"}}, token)
	require.Equal(t, 200, r.status, "%v", r.body)

	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, 400, r.status)

	r = f.json("PATCH", "/api/v1/settings", `{"enable_drafts_synchronization":true}`, token)
	require.Equal(t, 200, r.status)
	r = f.json("GET", "/api/v1/drafts", "", token)
	assert.Equal(t, float64(0), r.body["count"])

	r = f.json("PATCH", "/api/v1/settings", `{"enable_drafts_synchronization":"yes"}`, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "enable_drafts_synchronization is not a boolean", r.body["error"])
}

func TestErrors_LocalizedAndTagged(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.user("hamlet@example.com", false)

	req := httptest.NewRequest("GET", "/api/v1/drafts", nil)
	req.Header.Set("Accept-Language", "ja,en;q=0.5")
	req.Header.Set("X-Request-ID", "req-123")
	r := f.do(req, token)
	assert.Equal(t, 400, r.status)
	assert.Equal(t, "下書きの同期が有効になっていません。", r.body["error"])
	assert.Equal(t, "req-123", r.body["request_id"])

	r = f.json("GET", "/nowhere", "", "")
	assert.Equal(t, 404, r.status)
	assert.Equal(t, "not_found", r.body["code"])
}

func TestHealthAndTranslations(t *testing.T) {
	f := newAPIFixture(t)

	r := f.json("GET", "/health", "", "")
	assert.Equal(t, 200, r.status)
	assert.Equal(t, "ok", r.body["status"])

	r = f.json("GET", "/api/v1/i18n/ja", "", "")
	assert.Equal(t, 200, r.status)
	assert.Equal(t, "ja", r.body["lang"])
	translations := r.body["translations"].(map[string]interface{})
	assert.Equal(t, "下書きが存在しません", translations["draft_not_found"])

	r = f.json("GET", "/api/v1/i18n/xx", "", "")
	assert.Equal(t, "en", r.body["lang"])
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
