package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
)

// MediaController handles image and audio uploads of a session.
type MediaController struct {
	wizardService   services.WizardService
	validator       *RequestValidator
	maxRequestBytes int64
}

func NewMediaController(wizardService services.WizardService, validator *RequestValidator, maxRequestBytes int64) *MediaController {
	return &MediaController{wizardService: wizardService, validator: validator, maxRequestBytes: maxRequestBytes}
}

// AttachImages handles POST /api/sessions/:id/images/:field with multipart "files".
func (mc *MediaController) AttachImages(c *gin.Context) {
	field := models.ImageField(c.Param("field"))
	if !field.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown image field"})
		return
	}

	mc.limitBody(c)
	form, err := c.MultipartForm()
	if err != nil {
		mc.rejectForm(c, err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	view, svcErr := mc.wizardService.AttachImages(c.Request.Context(), c.Param("id"), field, media.FromFileHeaders(files))
	respondSession(c, http.StatusOK, view, svcErr)
}

// RemoveImage handles DELETE /api/sessions/:id/images/:field/:index.
func (mc *MediaController) RemoveImage(c *gin.Context) {
	idx, err := mc.validator.ParseIndex(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	view, svcErr := mc.wizardService.Apply(c.Request.Context(), c.Param("id"), wizard.RemoveImage{
		Field: models.ImageField(c.Param("field")),
		Index: idx,
	})
	respondSession(c, http.StatusOK, view, svcErr)
}

// SetAudio handles PUT /api/sessions/:id/audio with multipart "file".
func (mc *MediaController) SetAudio(c *gin.Context) {
	mc.limitBody(c)
	fh, err := c.FormFile("file")
	if err != nil {
		mc.rejectForm(c, err)
		return
	}

	view, svcErr := mc.wizardService.SetAudio(c.Request.Context(), c.Param("id"), media.FromFileHeaders([]*multipart.FileHeader{fh})[0])
	respondSession(c, http.StatusOK, view, svcErr)
}

// ClearAudio handles DELETE /api/sessions/:id/audio.
func (mc *MediaController) ClearAudio(c *gin.Context) {
	view, svcErr := mc.wizardService.Apply(c.Request.Context(), c.Param("id"), wizard.ClearAudio{})
	respondSession(c, http.StatusOK, view, svcErr)
}

func (mc *MediaController) limitBody(c *gin.Context) {
	if mc.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, mc.maxRequestBytes)
	}
}

func (mc *MediaController) rejectForm(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data", "details": err.Error()})
}
