package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/controllers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWizardRouter(svc services.WizardService) *gin.Engine {
	r := gin.New()
	wc := controllers.NewWizardController(svc, controllers.NewRequestValidator())

	r.POST("/api/sessions", wc.CreateSession)
	r.GET("/api/sessions/:id", wc.GetSession)
	r.DELETE("/api/sessions/:id", wc.DiscardSession)
	r.PATCH("/api/sessions/:id/fields", wc.UpdateFields)
	r.POST("/api/sessions/:id/promises", wc.AddPromise)
	r.PUT("/api/sessions/:id/promises/:index", wc.UpdatePromise)
	r.DELETE("/api/sessions/:id/promises/:index", wc.RemovePromise)
	r.POST("/api/sessions/:id/journeys", wc.AddJourney)
	r.POST("/api/sessions/:id/next", wc.Next)
	r.POST("/api/sessions/:id/promo", wc.ApplyPromo)
	return r
}

// applyRecorder captures the action handed to the wizard service and applies
// it to a fresh state.
func applyRecorder(got *wizard.Action) func(ctx context.Context, id string, action wizard.Action) (*models.SessionView, *services.ServiceError) {
	return func(_ context.Context, id string, action wizard.Action) (*models.SessionView, *services.ServiceError) {
		*got = action
		view := sessionView(id)
		next, err := wizard.Reduce(view.Wizard, action)
		if err != nil {
			return nil, &services.ServiceError{StatusCode: http.StatusBadRequest, Message: err.Error()}
		}
		view.Wizard = next
		return view, nil
	}
}

func TestWizardController_CreateSession(t *testing.T) {
	svc := &mockWizardService{
		createFn: func(context.Context) (*models.SessionView, *services.ServiceError) {
			return sessionView("s1"), nil
		},
	}
	r := setupWizardRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/sessions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Session models.SessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.Session.ID)
	assert.Equal(t, 8, resp.Session.TotalSteps)
}

func TestWizardController_GetSession_NotFound(t *testing.T) {
	svc := &mockWizardService{
		getFn: func(context.Context, string) (*models.SessionView, *services.ServiceError) {
			return nil, &services.ServiceError{StatusCode: http.StatusNotFound, Message: "Session not found"}
		},
	}
	r := setupWizardRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Session not found"}`, w.Body.String())
}

func TestWizardController_DiscardSession(t *testing.T) {
	var discarded string
	svc := &mockWizardService{
		discardFn: func(_ context.Context, id string) *services.ServiceError {
			discarded = id
			return nil
		},
	}
	r := setupWizardRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/sessions/s1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", discarded)
}

func TestWizardController_UpdateFields(t *testing.T) {
	var got wizard.Action
	r := setupWizardRouter(&mockWizardService{applyFn: applyRecorder(&got)})

	body := `{"fromName":"Aarav","email":"aarav@","phone":"98765"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/api/sessions/s1/fields", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	batch, ok := got.(wizard.Batch)
	require.True(t, ok)
	assert.Len(t, batch, 3)

	var resp struct {
		Session     models.SessionView `json:"session"`
		FieldErrors map[string]string  `json:"fieldErrors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Aarav", resp.Session.Wizard.Form.FromName)
	assert.Contains(t, resp.FieldErrors, "email")
	assert.Contains(t, resp.FieldErrors, "phone")
}

func TestWizardController_UpdateFields_Invalid(t *testing.T) {
	r := setupWizardRouter(&mockWizardService{})

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"not json", `nope`},
		{"name too long", `{"fromName":"` + string(bytes.Repeat([]byte("a"), 101)) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPatch, "/api/sessions/s1/fields", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestWizardController_Promises(t *testing.T) {
	var got wizard.Action
	r := setupWizardRouter(&mockWizardService{applyFn: applyRecorder(&got)})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/sessions/s1/promises", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wizard.AddPromise{}, got)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPut, "/api/sessions/s1/promises/0", bytes.NewBufferString(`{"title":"Always","description":"Listen"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wizard.UpdatePromise{Index: 0, Promise: models.Promise{Title: "Always", Description: "Listen"}}, got)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/api/sessions/s1/promises/-1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/api/sessions/s1/promises/0", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "first entry")
}

func TestWizardController_Next_StepInvalid(t *testing.T) {
	svc := &mockWizardService{
		applyFn: func(_ context.Context, _ string, action wizard.Action) (*models.SessionView, *services.ServiceError) {
			assert.Equal(t, wizard.Next{}, action)
			return nil, &services.ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "current step is incomplete: Banner & Names"}
		},
	}
	r := setupWizardRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/sessions/s1/next", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Banner & Names")
}

func TestWizardController_ApplyPromo(t *testing.T) {
	svc := &mockWizardService{
		applyPromoFn: func(_ context.Context, id, code string) (*models.SessionView, *services.ServiceError) {
			view := sessionView(id)
			view.Promo = models.PromoState{Code: code, Applied: true, Discount: 100}
			return view, nil
		},
	}
	r := setupWizardRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/sessions/s1/promo", bytes.NewBufferString(`{"code":"LOVE100"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":true`)
}
