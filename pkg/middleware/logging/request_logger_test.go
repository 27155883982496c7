package loggingmw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(&buf, "info")))
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside_handler")
		c.Set("user_id", uint(3))
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))
	out := buf.String()
	assert.Contains(t, out, `"msg":"inside_handler"`)
	assert.Contains(t, out, `"request_id":"rid-1"`)
	assert.Contains(t, out, `"user_id":3`)

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":404`)
}
