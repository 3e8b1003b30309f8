package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitespeed/identity-reconciler/internal/httpapi"
	"github.com/bitespeed/identity-reconciler/internal/logging"
	"github.com/bitespeed/identity-reconciler/internal/reconcile"
	"github.com/bitespeed/identity-reconciler/internal/storetest"
)

func newTestRouter() http.Handler {
	fs := storetest.New(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	log := logging.New("error")
	r := reconcile.New(fs, 5*time.Second, 10*time.Second, log)
	return httpapi.NewRouter(fs, r, log)
}

func postIdentify(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/identify", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIdentify_NewCustomerReturns200(t *testing.T) {
	router := newTestRouter()
	rec := postIdentify(t, router, `{"email":"doc@hv.edu","phoneNumber":"555-0100"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Contact struct {
			PrimaryContactID int64    `json:"primaryContactId"`
			Emails           []string `json:"emails"`
			PhoneNumbers     []string `json:"phoneNumbers"`
		} `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Contact.PrimaryContactID)
	assert.Equal(t, []string{"doc@hv.edu"}, body.Contact.Emails)
	assert.Equal(t, []string{"555-0100"}, body.Contact.PhoneNumbers)
}

func TestIdentify_BothFieldsAbsentReturns400(t *testing.T) {
	router := newTestRouter()
	rec := postIdentify(t, router, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentify_MalformedEmailReturns400(t *testing.T) {
	router := newTestRouter()
	rec := postIdentify(t, router, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentify_InvalidJSONReturns400(t *testing.T) {
	router := newTestRouter()
	rec := postIdentify(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentify_SetsRequestIDHeader(t *testing.T) {
	router := newTestRouter()
	rec := postIdentify(t, router, `{"email":"doc@hv.edu"}`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIdentify_EchoesIncomingRequestID(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/identify", bytes.NewBufferString(`{"email":"doc@hv.edu"}`))
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
