package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Calls          *handlers.CallsHandler
	Technicians    *handlers.TechniciansHandler
	Feedback       *handlers.FeedbackHandler
	Claims         *handlers.ClaimsHandler
	AuthMiddleware *auth.AuthMiddleware
	OTPLimiter     fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	otpLimiter := cfg.OTPLimiter
	if otpLimiter == nil {
		otpLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Post("/auth/login", otpLimiter, cfg.Auth.Login)

	anyOperator := auth.RequireRole()
	admin := auth.RequireRole(domain.OperatorRoleAdmin)
	desk := auth.RequireRole(domain.OperatorRoleAdmin, domain.OperatorRoleDispatcher)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	api.Get("/auth/me", anyOperator, cfg.Auth.Me)
	api.Post("/auth/password/change", anyOperator, cfg.Auth.ChangePassword)
	api.Get("/metrics", admin, cfg.Health.Metrics)

	operators := api.Group("/operators", admin)
	operators.Post("/", cfg.Auth.CreateOperator)
	operators.Get("/", cfg.Auth.ListOperators)
	operators.Patch("/:id", cfg.Auth.UpdateOperator)

	calls := api.Group("/calls", anyOperator)
	calls.Post("/", desk, cfg.Calls.Create)
	calls.Get("/", cfg.Calls.List)
	calls.Get("/ref/:reference", cfg.Calls.GetByReference)
	calls.Get("/:id", cfg.Calls.Get)
	calls.Get("/:id/history", cfg.Calls.History)
	calls.Get("/:id/activity", cfg.Calls.Activity)
	calls.Get("/:id/attachments", cfg.Calls.ListAttachments)
	calls.Post("/:id/attachments", cfg.Calls.AddAttachment)
	calls.Get("/:id/feedback", cfg.Feedback.ListByCall)
	calls.Post("/:id/confirm", desk, cfg.Calls.Confirm)
	calls.Post("/:id/assign", desk, cfg.Calls.Assign)
	calls.Post("/:id/start", cfg.Calls.Start)
	calls.Post("/:id/pending-spares", cfg.Calls.PendingSpares)
	calls.Post("/:id/pending-customer", cfg.Calls.PendingCustomer)
	calls.Post("/:id/resolve", cfg.Calls.Resolve)
	calls.Post("/:id/close", otpLimiter, cfg.Calls.Close)
	calls.Post("/:id/cancel", desk, cfg.Calls.Cancel)
	calls.Post("/:id/reopen", desk, cfg.Calls.Reopen)

	technicians := api.Group("/technicians", anyOperator)
	technicians.Post("/", admin, cfg.Technicians.Create)
	technicians.Get("/", cfg.Technicians.List)
	technicians.Get("/:id", cfg.Technicians.Get)
	technicians.Patch("/:id", desk, cfg.Technicians.Update)
	technicians.Post("/:id/availability", cfg.Technicians.SetAvailability)
	technicians.Get("/:id/workload", cfg.Technicians.Workload)
	technicians.Get("/:id/activity", cfg.Technicians.Activity)
	technicians.Get("/:id/areas", cfg.Technicians.ListServiceAreas)
	technicians.Post("/:id/areas", desk, cfg.Technicians.AddServiceArea)

	areas := api.Group("/service-areas", anyOperator)
	areas.Patch("/:id", desk, cfg.Technicians.UpdateServiceArea)
	areas.Get("/:postal_code/technicians", cfg.Technicians.ForPostalCode)

	feedback := api.Group("/feedback", anyOperator)
	feedback.Post("/", cfg.Feedback.Create)
	feedback.Get("/:id", cfg.Feedback.Get)
	feedback.Post("/:id/otp", otpLimiter, cfg.Feedback.SendOTP)
	feedback.Post("/:id/verify", otpLimiter, cfg.Feedback.VerifyOTP)
	feedback.Post("/:id/submit", cfg.Feedback.Submit)
	feedback.Post("/:id/review", desk, cfg.Feedback.Review)
	feedback.Post("/:id/followup-done", desk, cfg.Feedback.FollowupDone)

	partners := api.Group("/partners", desk)
	partners.Post("/", admin, cfg.Claims.CreatePartner)
	partners.Get("/:id/tat-categories", cfg.Claims.ListTATCategories)
	partners.Post("/:id/tat-categories", admin, cfg.Claims.CreateTATCategory)

	claims := api.Group("/claims", desk)
	claims.Post("/", cfg.Claims.CreateClaim)
	claims.Get("/:id", cfg.Claims.Get)
	claims.Post("/:id/calculate", cfg.Claims.Calculate)
	claims.Post("/:id/submit", cfg.Claims.Submit)
	claims.Post("/:id/verify", cfg.Claims.Verify)
	claims.Post("/:id/approve", admin, cfg.Claims.Approve)
	claims.Post("/:id/pay", admin, cfg.Claims.Pay)
	claims.Post("/:id/reject", cfg.Claims.Reject)
	claims.Post("/:id/cancel", cfg.Claims.Cancel)
}
