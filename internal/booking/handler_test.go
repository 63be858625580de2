package booking

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/internal/ratelimit"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

func formBody(fields map[string]string) string {
	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	return v.Encode()
}

func postForm(h *Handler, fields map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(formBody(fields)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", testClient)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func postMultipart(t *testing.T, h *Handler, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/booking", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Forwarded-For", testClient)
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHandler_FormPostRedirects(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())

	w := postForm(h, bookingForm(), nil)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, ConfirmationPath, loc.Path)
	assert.Equal(t, "Jane", loc.Query().Get("name"))

	stored := f.storedLeads(t)
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].Reference(), loc.Query().Get("ref"))
	assert.Equal(t, int64(1), f.count(t))
}

func TestHandler_JSONSuccess(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())

	body := `{"first_name":"Jane","last_name":"Smith","email":"jane@example.com","phone":"07700 900123",
		"contact_method":"email","treatment_interest":"Fat freezing","target_area":"arms","consent":true,"marketing_opt_in":false}`
	req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", testClient)
	w := httptest.NewRecorder()
	h.Submit(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Jane", resp.FirstName)
	assert.True(t, strings.HasPrefix(resp.Reference, leads.ReferencePrefix))
	assert.Contains(t, resp.Redirect, ConfirmationPath)

	stored := f.storedLeads(t)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].MarketingOptIn)
	assert.Equal(t, leads.AreaArms, stored[0].TargetArea)
}

func TestHandler_MultipartFormPost(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())

	w := postMultipart(t, h, bookingForm())
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	stored := f.storedLeads(t)
	require.Len(t, stored, 1)
	assert.Equal(t, "Jane", stored[0].FirstName)
	assert.Equal(t, int64(1), f.count(t))
}

func TestHandler_MultipartHoneypotLooksLikeSuccess(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())
	form := bookingForm()
	form[leads.FieldHoneypot] = "https://seo.example"

	w := postMultipart(t, h, form)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, f.storedLeads(t))
	assert.Equal(t, 0, f.counter.Len())
}

func TestHandler_HoneypotLooksLikeSuccess(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())
	form := bookingForm()
	form[leads.FieldHoneypot] = "https://seo.example"

	w := postForm(h, form, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), ConfirmationPath+"?")
	assert.Empty(t, f.storedLeads(t))
	assert.Equal(t, 0, f.counter.Len())
}

func TestHandler_ValidationErrors(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())

	form := bookingForm()
	form[leads.FieldTargetArea] = "knees"
	w := postForm(h, form, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, MessageInvalid, body.Error)
	assert.Contains(t, body.FieldErrors, leads.FieldTargetArea)

	form = bookingForm()
	delete(form, leads.FieldConsent)
	w = postForm(h, form, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body = decodeError(t, w)
	assert.Equal(t, MessageConsentMissing, body.Error)
	assert.Equal(t, leads.ConsentRequiredMessage, body.FieldErrors[leads.FieldConsent])
}

func TestHandler_RateLimited(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())

	for i := 0; i < ratelimit.DefaultLimit; i++ {
		require.Equal(t, http.StatusSeeOther, postForm(h, bookingForm(), nil).Code)
	}
	w := postForm(h, bookingForm(), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2400", w.Header().Get("Retry-After"))
	body := decodeError(t, w)
	assert.NotEmpty(t, body.Error)
	assert.Empty(t, body.FieldErrors)
}

func TestHandler_StoreUnavailable(t *testing.T) {
	svc := NewService(ratelimit.NewLimiter(failingCounter{}, 5), leads.NewInMemoryRepository(), logging.Discard())
	h := NewHandler(svc, logging.Discard())

	w := postForm(h, bookingForm(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, MessageUnavailable, decodeError(t, w).Error)
}

func TestHandler_BadJSON(t *testing.T) {
	h := NewHandler(newFixture().svc, logging.Discard())

	for _, body := range []string{`{"first_name":`, `null`, `{"first_name":["a"]}`} {
		req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		w := httptest.NewRecorder()
		h.Submit(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
