package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shape-vision/internal/config"
	"github.com/ironsheep/shape-vision/internal/persist"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, rec *persist.Recorder) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	p, err := cfg.NewPipeline()
	require.NoError(t, err)
	return SetRouter(cfg, p, rec)
}

func redSquarePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	for y := 78; y <= 122; y++ {
		for x := 78; x <= 122; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, url, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "frame.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestConfig(t *testing.T) {
	w := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, w.Body.String(), "min_shape_area: 1000")
	assert.Contains(t, w.Body.String(), "strategy: hsv")
}

func TestDetect(t *testing.T) {
	w := serve(newRouter(t, nil), upload(t, "/api/v1/detect", UploadField, redSquarePNG(t)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result persist.FrameResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 200, result.Width)
	assert.Equal(t, 200, result.Height)
	require.Equal(t, 1, result.Count)
	require.Len(t, result.Shapes, 1)
	assert.Equal(t, "Square", result.Shapes[0].Label)
	assert.Equal(t, "Red", result.Shapes[0].Color)
	assert.Equal(t, persist.Point{0, 0}, result.Shapes[0].Coordinates)
	assert.Empty(t, result.Shapes[0].Session)
}

func TestDetect_Records(t *testing.T) {
	rec := persist.NewRecorder(nil)
	r := newRouter(t, rec)

	for i := 0; i < 2; i++ {
		w := serve(r, upload(t, "/api/v1/detect", UploadField, redSquarePNG(t)))
		require.Equal(t, http.StatusOK, w.Code)

		var result persist.FrameResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Len(t, result.Shapes, 1)
		assert.Equal(t, i, result.Shapes[0].Frame)
		assert.Equal(t, rec.Session(), result.Shapes[0].Session)
	}

	assert.Equal(t, 2, rec.Frames())
	assert.Len(t, rec.Records(), 2)
}

func TestDetect_Errors(t *testing.T) {
	r := newRouter(t, nil)

	tests := []struct {
		name  string
		field string
		data  []byte
		want  int
	}{
		{"wrong field", "file", redSquarePNG(t), http.StatusBadRequest},
		{"not an image", UploadField, []byte("definitely not a png"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, upload(t, "/api/v1/detect", tt.field, tt.data))
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestAnnotate_PNG(t *testing.T) {
	w := serve(newRouter(t, nil), upload(t, "/api/v1/annotate", UploadField, redSquarePNG(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Shape-Count"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())
}

func TestAnnotate_SVG(t *testing.T) {
	w := serve(newRouter(t, nil), upload(t, "/api/v1/annotate?format=svg&hide_coordinates=true", UploadField, redSquarePNG(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Red Square")
	assert.NotContains(t, w.Body.String(), "(0, 0)")
}

func TestAnnotate_BadFormat(t *testing.T) {
	w := serve(newRouter(t, nil), upload(t, "/api/v1/annotate?format=gif", UploadField, redSquarePNG(t)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
