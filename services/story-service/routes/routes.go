package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/controllers"
)

// RegisterOrderRoutes sets up the stateless order and promo endpoints.
// limit guards order creation, which calls the gateway.
func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, limit gin.HandlerFunc) {
	api := r.Group("/api")
	api.POST("/create-order", limit, oc.CreateOrder)
	api.POST("/promo/apply", oc.QuotePromo)
}

// RegisterSessionRoutes sets up the wizard, media and checkout endpoints of a session.
func RegisterSessionRoutes(
	r *gin.Engine,
	wc *controllers.WizardController,
	mc *controllers.MediaController,
	cc *controllers.CheckoutController,
	limit gin.HandlerFunc,
) {
	sessions := r.Group("/api/sessions")
	sessions.POST("", wc.CreateSession)

	s := sessions.Group("/:id")
	s.GET("", wc.GetSession)
	s.DELETE("", wc.DiscardSession)
	s.PATCH("/fields", wc.UpdateFields)

	s.POST("/promises", wc.AddPromise)
	s.PUT("/promises/:index", wc.UpdatePromise)
	s.DELETE("/promises/:index", wc.RemovePromise)

	s.POST("/journeys", wc.AddJourney)
	s.PUT("/journeys/:index", wc.UpdateJourney)
	s.DELETE("/journeys/:index", wc.RemoveJourney)

	s.POST("/images/:field", mc.AttachImages)
	s.DELETE("/images/:field/:index", mc.RemoveImage)
	s.PUT("/audio", mc.SetAudio)
	s.DELETE("/audio", mc.ClearAudio)

	s.POST("/next", wc.Next)
	s.POST("/back", wc.Back)
	s.POST("/submit", wc.Submit)
	s.POST("/preview/confirm", wc.ConfirmPreview)
	s.POST("/preview/close", wc.ClosePreview)
	s.POST("/promo", wc.ApplyPromo)

	checkout := s.Group("/checkout", limit)
	checkout.POST("", cc.Start)
	checkout.POST("/dismiss", cc.Dismiss)
	checkout.POST("/complete", cc.Complete)
}

// RegisterWebhookRoutes sets up gateway callbacks.
func RegisterWebhookRoutes(r *gin.Engine, wh *controllers.WebhookController) {
	r.POST("/webhooks/razorpay", wh.Razorpay)
}

// RegisterMediaRoutes serves locally stored preview files.
func RegisterMediaRoutes(r *gin.Engine, dir string) {
	r.Static("/media", dir)
}
