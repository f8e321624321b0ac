package routes

import (
	"github.com/gofiber/fiber/v2"

	"valet-backend/controllers"
	"valet-backend/middlewares"
	"valet-backend/models"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Public site directory (booking screen shows it pre-login)
	api.Get("/locations", controllers.GetLocations)

	// Request-change stream (push alternative to polling; the JWT rides in
	// ?token= since browsers cannot set handshake headers)
	app.Use("/ws", controllers.UpgradeRequired)
	app.Get("/ws/requests", controllers.RequestStream())

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard for retried mutations
	protected.Use(middlewares.Idempotency())

	protected.Get("/user", controllers.CurrentUser)

	// Saved vehicle profiles (pre-fill for the booking form)
	protected.Get("/vehicles", controllers.ListVehicles)
	protected.Post("/vehicles", controllers.AddVehicle)
	protected.Delete("/vehicles/:id", controllers.RemoveVehicle)

	// Request store surface (shared record shape with other store variants)
	protected.Get("/requests", controllers.GetRequests)
	protected.Post("/requests", controllers.CreateRequest)
	protected.Patch("/requests/:id", controllers.PatchRequest)

	// User screens
	protected.Get("/requests/active", controllers.GetUserActive)
	protected.Get("/requests/current", controllers.GetCurrent)
	protected.Get("/requests/history", controllers.GetHistory)

	// Driver dashboard
	driver := protected.Group("/requests/driver", middlewares.RequireRole(models.RoleDriver))
	driver.Get("/active", controllers.GetDriverActive)
	driver.Get("/stats", controllers.GetDriverStats)
	protected.Get("/requests/pending", middlewares.RequireRole(models.RoleDriver), controllers.GetPending)
	protected.Post("/requests/:id/accept", middlewares.RequireRole(models.RoleDriver), controllers.AcceptRequest)

	// Workflow transitions (users confirm pickup/retrieval, drivers park/retrieve)
	protected.Put("/requests/:id/status", controllers.UpdateStatus)

	// Single record + audit trail (keep after the static /requests/... routes)
	protected.Get("/requests/:id", controllers.GetRequest)
	protected.Get("/requests/:id/events", middlewares.RequireRole(models.RoleManager, models.RoleAdmin), controllers.GetRequestEvents)

	// Manager/admin dashboards
	protected.Get("/stats", middlewares.RequireRole(models.RoleManager, models.RoleAdmin), controllers.GetStats)

	// Driver onboarding
	apps := protected.Group("/drivers/applications")
	apps.Post("", middlewares.RequireRole(models.RoleManager, models.RoleAdmin), controllers.SubmitApplication)
	apps.Put("/:id", middlewares.RequireRole(models.RoleManager, models.RoleAdmin), controllers.UpdateApplication)
	apps.Get("", middlewares.RequireRole(models.RoleAdmin), controllers.ListApplications)
	apps.Get("/:id", middlewares.RequireRole(models.RoleAdmin), controllers.GetApplication)
	apps.Post("/:id/approve", middlewares.RequireRole(models.RoleAdmin), controllers.ApproveApplication)
	apps.Post("/:id/reject", middlewares.RequireRole(models.RoleAdmin), controllers.RejectApplication)
}
