package api

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGzipRequestMiddlewareDecompresses(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"completed":true}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "br, gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	h := GzipRequestMiddleware(MaxDecompressedBody)(func(c echo.Context) error {
		data, err := io.ReadAll(c.Request().Body)
		got = string(data)
		return err
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got != `{"completed":true}` {
		t.Fatalf("unexpected body: %q", got)
	}
	if c.Request().Header.Get(echo.HeaderContentEncoding) != "" {
		t.Fatal("expected content encoding header to be removed")
	}
}

func TestGzipRequestMiddlewareCapsExpandedBody(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(bytes.Repeat([]byte{'a'}, 4096)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	c := e.NewContext(req, httptest.NewRecorder())

	var readErr error
	h := GzipRequestMiddleware(1024)(func(c echo.Context) error {
		_, readErr = io.ReadAll(c.Request().Body)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("expected max bytes error, got %v", readErr)
	}
}

func TestTokenFromQuerySetsHeader(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?token=a.b.c", nil), httptest.NewRecorder())

	var got string
	_ = tokenFromQuery(func(c echo.Context) error {
		got = c.Request().Header.Get(echo.HeaderAuthorization)
		return nil
	})(c)
	if got != "Bearer a.b.c" {
		t.Fatalf("unexpected header %q", got)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?token=garbage", nil), httptest.NewRecorder())
	got = ""
	_ = tokenFromQuery(func(c echo.Context) error {
		got = c.Request().Header.Get(echo.HeaderAuthorization)
		return nil
	})(c)
	if got != "" {
		t.Fatalf("malformed query token should be ignored, got %q", got)
	}
}

func TestGzipRequestMiddlewareRejectsInvalidBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	c := e.NewContext(req, httptest.NewRecorder())

	err := GzipRequestMiddleware(MaxDecompressedBody)(func(echo.Context) error { return nil })(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 http error, got %v", err)
	}
}
