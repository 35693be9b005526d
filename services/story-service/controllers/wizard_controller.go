package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
)

// WizardController handles the story wizard endpoints.
type WizardController struct {
	wizardService services.WizardService
	validator     *RequestValidator
}

func NewWizardController(wizardService services.WizardService, validator *RequestValidator) *WizardController {
	return &WizardController{wizardService: wizardService, validator: validator}
}

// CreateSession handles POST /api/sessions.
func (wc *WizardController) CreateSession(c *gin.Context) {
	view, svcErr := wc.wizardService.CreateSession(c.Request.Context())
	respondSession(c, http.StatusCreated, view, svcErr)
}

// GetSession handles GET /api/sessions/:id.
func (wc *WizardController) GetSession(c *gin.Context) {
	view, svcErr := wc.wizardService.GetSession(c.Request.Context(), c.Param("id"))
	respondSession(c, http.StatusOK, view, svcErr)
}

// DiscardSession handles DELETE /api/sessions/:id.
func (wc *WizardController) DiscardSession(c *gin.Context) {
	if svcErr := wc.wizardService.DiscardSession(c.Request.Context(), c.Param("id")); svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateFields handles PATCH /api/sessions/:id/fields. The response carries
// inline hints for malformed contact fields; they never block the update.
func (wc *WizardController) UpdateFields(c *gin.Context) {
	batch, err := wc.validator.ParseFields(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	view, svcErr := wc.wizardService.Apply(c.Request.Context(), c.Param("id"), batch)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}

	resp := gin.H{"session": view}
	if hints := wc.validator.FieldHints(view.Wizard.Form); len(hints) > 0 {
		resp["fieldErrors"] = hints
	}
	c.JSON(http.StatusOK, resp)
}

// AddPromise handles POST /api/sessions/:id/promises.
func (wc *WizardController) AddPromise(c *gin.Context) {
	p, err := wc.validator.ParsePromise(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.AddPromise{Promise: p})
}

// UpdatePromise handles PUT /api/sessions/:id/promises/:index.
func (wc *WizardController) UpdatePromise(c *gin.Context) {
	idx, err := wc.validator.ParseIndex(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	p, err := wc.validator.ParsePromise(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.UpdatePromise{Index: idx, Promise: p})
}

// RemovePromise handles DELETE /api/sessions/:id/promises/:index.
func (wc *WizardController) RemovePromise(c *gin.Context) {
	idx, err := wc.validator.ParseIndex(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.RemovePromise{Index: idx})
}

func (wc *WizardController) AddJourney(c *gin.Context) {
	j, err := wc.validator.ParseJourney(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.AddJourney{Journey: j})
}

func (wc *WizardController) UpdateJourney(c *gin.Context) {
	idx, err := wc.validator.ParseIndex(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	j, err := wc.validator.ParseJourney(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.UpdateJourney{Index: idx, Journey: j})
}

func (wc *WizardController) RemoveJourney(c *gin.Context) {
	idx, err := wc.validator.ParseIndex(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	wc.apply(c, wizard.RemoveJourney{Index: idx})
}

func (wc *WizardController) Next(c *gin.Context)           { wc.apply(c, wizard.Next{}) }
func (wc *WizardController) Back(c *gin.Context)           { wc.apply(c, wizard.Back{}) }
func (wc *WizardController) Submit(c *gin.Context)         { wc.apply(c, wizard.Submit{}) }
func (wc *WizardController) ConfirmPreview(c *gin.Context) { wc.apply(c, wizard.ConfirmPreview{}) }
func (wc *WizardController) ClosePreview(c *gin.Context)   { wc.apply(c, wizard.ClosePreview{}) }

// ApplyPromo handles POST /api/sessions/:id/promo.
func (wc *WizardController) ApplyPromo(c *gin.Context) {
	var req models.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	view, svcErr := wc.wizardService.ApplyPromo(c.Request.Context(), c.Param("id"), req.Code)
	respondSession(c, http.StatusOK, view, svcErr)
}

func (wc *WizardController) apply(c *gin.Context, action wizard.Action) {
	view, svcErr := wc.wizardService.Apply(c.Request.Context(), c.Param("id"), action)
	respondSession(c, http.StatusOK, view, svcErr)
}
