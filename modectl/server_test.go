package modectl

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardenfs/prfs"
)

func newTestRouter(store *prfs.ModeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewHandler(store, log).Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/prfs/mode", rd)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetModeDefault(t *testing.T) {
	r := newTestRouter(prfs.NewModeStore())

	w := doRequest(t, r, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1\n", w.Body.String())
}

func TestSetMode(t *testing.T) {
	store := prfs.NewModeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPut, "0\n")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0\n", w.Body.String())
	assert.Equal(t, prfs.ModeNormal, store.Get())

	w = doRequest(t, r, http.MethodPost, "2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prfs.ModeReversed, store.Get())
}

func TestSetModeOutOfRange(t *testing.T) {
	store := prfs.NewModeStore()
	store.Set(0)
	r := newTestRouter(store)

	// The value is stored verbatim; reads of the endpoint echo it
	// back while the guard's view clamps to read-only.
	w := doRequest(t, r, http.MethodPut, "7\n")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(7), store.Raw())
	assert.Equal(t, prfs.ModeReadOnly, store.Get())

	w = doRequest(t, r, http.MethodGet, "")
	assert.Equal(t, "7\n", w.Body.String())
}

func TestSetModeMalformed(t *testing.T) {
	store := prfs.NewModeStore()
	store.Set(0)
	r := newTestRouter(store)

	for _, body := range []string{"", "banana", "mode=1"} {
		w := doRequest(t, r, http.MethodPut, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Equal(t, prfs.ModeNormal, store.Get(), "malformed input changed the mode")
}

func TestSetModeLeadingToken(t *testing.T) {
	store := prfs.NewModeStore()
	r := newTestRouter(store)

	// Only the first token counts.
	w := doRequest(t, r, http.MethodPut, "  2 trailing junk\n")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prfs.ModeReversed, store.Get())
}

func TestParseLeadingInt(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int32
		ok   bool
	}{
		{"0", 0, true},
		{"1\n", 1, true},
		{" 2 ", 2, true},
		{"-5", -5, true},
		{"2 extra", 2, true},
		{"", 0, false},
		{"x1", 0, false},
		{"99999999999999999999", 0, false},
	} {
		v, err := parseLeadingInt(tc.in)
		if tc.ok {
			require.NoError(t, err, "input %q", tc.in)
			assert.Equal(t, tc.want, v, "input %q", tc.in)
		} else {
			assert.Error(t, err, "input %q", tc.in)
		}
	}
}
