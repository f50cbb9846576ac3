package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/ocrserver/internal/models"
	"github.com/lehigh-university-libraries/ocrserver/internal/ocr"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	result string
	err    error
	got    []byte
	calls  int
}

func (f *fakeRecognizer) Recognize(_ context.Context, data []byte) (string, error) {
	f.calls++
	f.got = data
	return f.result, f.err
}

func newTestServer(t *testing.T, rec Recognizer, maxBody int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(New(rec, maxBody)))
	t.Cleanup(srv.Close)
	return srv
}

func postImage(t *testing.T, srv *httptest.Server, path, image string) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(models.ImageRequest{Image: image})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestLivenessEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeRecognizer{}, 0)

	tests := []struct {
		path     string
		expected string
	}{
		{path: "/", expected: `{"message":"OCR service is running"}`},
		{path: "/ocr", expected: `{"status":"OCR endpoint is working"}`},
		{path: "/ocr/", expected: `{"status":"OCR endpoint is working"}`},
	}

	// twice, to show the payload does not depend on prior requests
	for i := 0; i < 2; i++ {
		for _, tt := range tests {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(resp.Body)
			resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			require.JSONEq(t, tt.expected, buf.String())
		}
		postImage(t, srv, "/ocr", "not base64!!")
	}
}

func TestPostOCRSuccess(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	rec := &fakeRecognizer{result: "x7Kp"}
	srv := newTestServer(t, rec, 0)

	encoded := base64.StdEncoding.EncodeToString(image)
	inputs := map[string]string{
		"plain":       encoded,
		"unpadded":    strings.TrimRight(encoded, "="),
		"data uri":    "data:image/png;base64," + encoded,
		"url encoded": url.QueryEscape("data:image/png;base64," + encoded),
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/ocr", "/ocr/"} {
				resp, body := postImage(t, srv, path, input)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.JSONEq(t, `{"result":"x7Kp"}`, string(body))
				require.Equal(t, image, rec.got)
			}
		})
	}
}

func TestPostOCRDecodeFailure(t *testing.T) {
	rec := &fakeRecognizer{result: "never"}
	srv := newTestServer(t, rec, 0)

	resp, body := postImage(t, srv, "/ocr", "not base64!!")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.True(t, strings.HasPrefix(errResp.Detail, "Base64 decoding failed"), errResp.Detail)
	require.Equal(t, 0, rec.calls)
}

func TestPostOCRRecognitionFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{
			name:   "empty result",
			err:    ocr.ErrEmptyResult,
			status: http.StatusBadRequest,
			detail: "OCR recognition failed, no result returned.",
		},
		{
			name:   "engine error",
			err:    fmt.Errorf("%w: tesseract: bad image", ocr.ErrRecognition),
			status: http.StatusBadRequest,
			detail: "OCR recognition failed: tesseract: bad image",
		},
		{
			name:   "unexpected error",
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			detail: "disk on fire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeRecognizer{err: tt.err}, 0)
			resp, body := postImage(t, srv, "/ocr", base64.StdEncoding.EncodeToString([]byte("img")))
			require.Equal(t, tt.status, resp.StatusCode)
			require.JSONEq(t, fmt.Sprintf(`{"detail":%q}`, tt.detail), string(body))
		})
	}
}

func TestPostOCRBadRequests(t *testing.T) {
	srv := newTestServer(t, &fakeRecognizer{result: "x"}, 64)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "invalid json", body: `{"image":`, status: http.StatusBadRequest},
		{name: "missing image", body: `{}`, status: http.StatusBadRequest},
		{name: "too large", body: `{"image":"` + strings.Repeat("A", 128) + `"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/ocr", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeRecognizer{}, 0)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/ocr", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPut, srv.URL+"/ocr/", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthcheck(t *testing.T) {
	srv := newTestServer(t, &fakeRecognizer{}, 0)

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
