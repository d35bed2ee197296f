package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientIP())
	r.GET("/x", h)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, env
}

func TestFail_MapsKindsAndHidesInternals(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Validation("phone number is required"), http.StatusBadRequest, "phone number is required"},
		{apperr.Precondition("audio not generated"), http.StatusBadRequest, "audio not generated"},
		{apperr.NotFound("bot not found"), http.StatusNotFound, "bot not found"},
		{apperr.Conflict("email taken"), http.StatusConflict, "email taken"},
		{apperr.Upstream("call engine unavailable", errors.New("dial tcp: refused")), http.StatusBadGateway, "call engine unavailable"},
		{apperr.Persistence("update call log", errors.New("pq: deadlock")), http.StatusInternalServerError, "internal error"},
		{errors.New("raw"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		w, env := serve(t, func(c *gin.Context) { fail(c, tc.err) })
		if w.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
		}
		if env.Success || env.Message != tc.msg {
			t.Fatalf("%v: unexpected envelope %+v", tc.err, env)
		}
	}
}

func TestClientIP_ReachesRequestContext(t *testing.T) {
	var got string
	_, env := serve(t, func(c *gin.Context) {
		got = audit.ClientIPFromContext(c.Request.Context())
		ok(c, http.StatusOK, "", nil)
	})
	if !env.Success {
		t.Fatalf("expected success envelope")
	}
	if got != "10.1.2.3" {
		t.Fatalf("expected client ip, got %q", got)
	}
}
