package routes

import (
	controller "replyloop/controllers"
	"replyloop/middleware"
	"replyloop/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes wires the control API. Every endpoint except the health check
// requires a bearer API token.
func SetupRoutes(app *fiber.App, db *gorm.DB, log *logrus.Logger, watcher *worker.MailboxWatcher, scheduler *worker.FollowUpScheduler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	engineController := controller.NewEngineController(db, log, watcher, scheduler)
	campaignController := controller.NewCampaignController(db, log)
	prospectController := controller.NewProspectController(db, log)
	providerController := controller.NewProviderController(db, log)
	templateController := controller.NewTemplateController(db, log)
	intentController := controller.NewIntentController(db, log)

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Engine lifecycle; start/stop are rate limited so clients cannot thrash
	// the worker loops
	engine := api.Group("/engine")
	controlLimiter := middleware.EngineRateLimiter()
	engine.Post("/start", controlLimiter, engineController.StartEngine)
	engine.Post("/stop", controlLimiter, engineController.StopEngine)
	engine.Post("/watcher/start", controlLimiter, engineController.StartWatcher)
	engine.Post("/watcher/stop", controlLimiter, engineController.StopWatcher)
	engine.Post("/scheduler/start", controlLimiter, engineController.StartScheduler)
	engine.Post("/scheduler/stop", controlLimiter, engineController.StopScheduler)
	engine.Get("/status", engineController.GetStatus)
	engine.Get("/stats", engineController.GetStats)

	// WebSocket route for live engine stats
	app.Get("/api/v1/engine/live", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		engineController.HandleEngineLiveWS(c)
	}))

	// Campaign routes
	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id", campaignController.UpdateCampaign)
	campaign.Delete("/:id", campaignController.DeleteCampaign)
	campaign.Get("/:id/stats", campaignController.GetCampaignStats)

	// Prospect routes
	prospect := api.Group("/prospects")
	prospect.Post("/", prospectController.CreateProspect)
	prospect.Get("/", prospectController.GetProspects)
	prospect.Get("/:id", prospectController.GetProspect)
	prospect.Put("/:id/follow-up-status", prospectController.UpdateFollowUpStatus)
	prospect.Delete("/:id", prospectController.DeleteProspect)
	prospect.Get("/:id/thread", prospectController.GetProspectThread)

	// Provider routes
	provider := api.Group("/providers")
	provider.Post("/", providerController.CreateProvider)
	provider.Get("/", providerController.GetProviders)
	provider.Get("/:id", providerController.GetProvider)
	provider.Put("/:id", providerController.UpdateProvider)
	provider.Delete("/:id", providerController.DeleteProvider)

	// Template routes
	template := api.Group("/templates")
	template.Post("/", templateController.CreateTemplate)
	template.Get("/", templateController.GetTemplates)
	template.Get("/:id", templateController.GetTemplate)
	template.Put("/:id", templateController.UpdateTemplate)
	template.Delete("/:id", templateController.DeleteTemplate)

	// Intent routes
	intent := api.Group("/intents")
	intent.Post("/", intentController.CreateIntent)
	intent.Get("/", intentController.GetIntents)
	intent.Get("/:id", intentController.GetIntent)
	intent.Put("/:id", intentController.UpdateIntent)
	intent.Delete("/:id", intentController.DeleteIntent)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Info("API routes initialized")
}
