// Package api serves the detection pipeline over HTTP.
package api

import (
	"bytes"
	"image"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/shape-vision/internal/config"
	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
	"github.com/ironsheep/shape-vision/internal/persist"
	"github.com/ironsheep/shape-vision/internal/render"
)

// UploadField is the multipart form field carrying the frame.
const UploadField = "image"

// maxUploadBytes caps the in-memory part of a multipart upload.
const maxUploadBytes = 32 << 20

type handler struct {
	cfg      config.Config
	pipeline *detection.Pipeline
	recorder *persist.Recorder
}

// SetRouter builds the HTTP API around pipeline. When rec is non-nil every
// detected frame is also added to it.
//
//	GET  /healthz
//	GET  /api/v1/config    effective configuration as YAML
//	POST /api/v1/detect    multipart "image" -> shapes as JSON
//	POST /api/v1/annotate  multipart "image" -> annotated PNG, or SVG with ?format=svg
func SetRouter(cfg config.Config, pipeline *detection.Pipeline, rec *persist.Recorder) *gin.Engine {
	h := &handler{cfg: cfg, pipeline: pipeline, recorder: rec}

	r := gin.Default()
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiRoutes := r.Group("/api/v1")
	apiRoutes.GET("/config", h.config)
	apiRoutes.POST("/detect", h.detect)
	apiRoutes.POST("/annotate", h.annotate)

	return r
}

func (h *handler) config(ctx *gin.Context) {
	data, err := h.cfg.Marshal()
	if err != nil {
		log.Printf("api/config: failed to marshal config: %v", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.Data(http.StatusOK, "application/x-yaml", data)
}

// upload decodes the frame in the request. On failure it has already
// written the response.
func (h *handler) upload(ctx *gin.Context) (image.Image, bool) {
	fh, err := ctx.FormFile(UploadField)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"" + UploadField + "\""})
		return nil, false
	}

	file, err := fh.Open()
	if err != nil {
		log.Printf("api: could not open upload '%s': %v", fh.Filename, err)
		ctx.Status(http.StatusInternalServerError)
		return nil, false
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, false
	}
	if h.cfg.Debug() {
		log.Printf("api: received '%s', %d bytes, %v", fh.Filename, fh.Size, img.Bounds().Size())
	}
	return img, true
}

// process runs the pipeline and records the frame when a recorder is set.
func (h *handler) process(img image.Image) ([]detection.IdentifiedShape, persist.FrameResult) {
	shapes := h.pipeline.Process(img)
	b := img.Bounds()
	result := persist.NewFrameResult(b.Dx(), b.Dy(), shapes)
	if h.recorder != nil {
		frame := h.recorder.Add(shapes)
		result.Shapes = persist.Records(shapes, frame, h.recorder.Session())
	}
	return shapes, result
}

func (h *handler) detect(ctx *gin.Context) {
	img, ok := h.upload(ctx)
	if !ok {
		return
	}
	_, result := h.process(img)
	ctx.JSON(http.StatusOK, result)
}

func (h *handler) annotate(ctx *gin.Context) {
	img, ok := h.upload(ctx)
	if !ok {
		return
	}
	shapes, result := h.process(img)

	style := render.DefaultStyle()
	if hide, err := strconv.ParseBool(ctx.DefaultQuery("hide_coordinates", "false")); err == nil {
		style.HideCoordinates = hide
	}
	ctx.Header("X-Shape-Count", strconv.Itoa(result.Count))

	switch ctx.DefaultQuery("format", "png") {
	case "png":
		data, err := render.PNGBytes(render.Annotate(img, shapes, style))
		if err != nil {
			log.Printf("api/annotate: %v", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Data(http.StatusOK, "image/png", data)
	case "svg":
		var buf bytes.Buffer
		render.WriteSVG(&buf, result.Width, result.Height, shapes, style)
		ctx.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "format must be png or svg"})
	}
}
