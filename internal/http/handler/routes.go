package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// Deps are the collaborators behind the HTTP routes. Auth must store an
// access.Actor in locals, normally middleware.Authenticate.
type Deps struct {
	DB            Pinger
	Documents     service.DocumentService
	Teams         service.TeamService
	Notifications service.NotificationService
	Stats         service.StatsService
	Profiles      service.ProfileService
	Gatherer      prometheus.Gatherer
	Auth          fiber.Handler
}

// RegisterRoutes attaches the health checks, /metrics and the /api routes.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", Liveness())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", d.Auth)

	api.Get("/auth/me", GetMe(d.Profiles))
	api.Put("/users/me", UpdateMyProfile(d.Profiles))

	docs := api.Group("/documents")
	docs.Post("/", UploadDocument(d.Documents))
	docs.Get("/", ListDocuments(d.Documents))
	docs.Get("/search", SearchDocuments(d.Documents))
	docs.Get("/versions/:versionId/download", DownloadVersion(d.Documents))
	docs.Get("/:id/versions", ListVersions(d.Documents))
	docs.Post("/:id/versions", UploadVersion(d.Documents))
	docs.Put("/:id", UpdateDocument(d.Documents))
	docs.Delete("/:id", DeleteDocument(d.Documents))

	team := api.Group("/team", middleware.RequireRoles(model.RoleManager, model.RoleAdmin))
	team.Get("/", GetTeam(d.Teams))
	team.Get("/available", AvailableUsers(d.Teams))
	team.Put("/add/:userId", AddTeamMember(d.Teams))
	team.Put("/remove/:userId", RemoveTeamMember(d.Teams))

	notes := api.Group("/notifications")
	notes.Get("/", ListNotifications(d.Notifications))
	notes.Put("/read", MarkNotificationsRead(d.Notifications))

	stats := api.Group("/stats", middleware.RequireRoles(model.RoleAdmin))
	stats.Get("/dashboard", DashboardStats(d.Stats))
}
