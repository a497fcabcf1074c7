package controller

import (
	"context"
	"time"

	"replyloop/models"
	"replyloop/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EngineController exposes the worker lifecycle over the control API. The
// watcher and scheduler run as background loops; this controller only flips
// them on and off and reports what they are doing.
type EngineController struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Watcher   *worker.MailboxWatcher
	Scheduler *worker.FollowUpScheduler
}

func NewEngineController(db *gorm.DB, logger *logrus.Logger, watcher *worker.MailboxWatcher, scheduler *worker.FollowUpScheduler) *EngineController {
	return &EngineController{
		DB:        db,
		Logger:    logger,
		Watcher:   watcher,
		Scheduler: scheduler,
	}
}

// StartEngine launches both background loops. Starting an already running
// engine is not an error.
func (ec *EngineController) StartEngine(c *fiber.Ctx) error {
	ec.Watcher.Start(context.Background())
	ec.Scheduler.Start(context.Background())

	ec.Logger.WithField("caller", c.Locals("caller")).Info("engine started via API")
	return c.JSON(fiber.Map{
		"message": "Engine started",
		"status":  ec.statusMap(),
	})
}

// StopEngine stops both loops, waiting for in-flight cycles to finish
func (ec *EngineController) StopEngine(c *fiber.Ctx) error {
	ec.Scheduler.Stop()
	ec.Watcher.Stop()

	ec.Logger.WithField("caller", c.Locals("caller")).Info("engine stopped via API")
	return c.JSON(fiber.Map{
		"message": "Engine stopped",
		"status":  ec.statusMap(),
	})
}

// Per-loop lifecycle, for operators who want one loop without the other

func (ec *EngineController) StartWatcher(c *fiber.Ctx) error {
	ec.Watcher.Start(context.Background())
	return c.JSON(fiber.Map{"message": "Mailbox watcher started", "status": ec.statusMap()})
}

func (ec *EngineController) StopWatcher(c *fiber.Ctx) error {
	ec.Watcher.Stop()
	return c.JSON(fiber.Map{"message": "Mailbox watcher stopped", "status": ec.statusMap()})
}

func (ec *EngineController) StartScheduler(c *fiber.Ctx) error {
	ec.Scheduler.Start(context.Background())
	return c.JSON(fiber.Map{"message": "Follow-up scheduler started", "status": ec.statusMap()})
}

func (ec *EngineController) StopScheduler(c *fiber.Ctx) error {
	ec.Scheduler.Stop()
	return c.JSON(fiber.Map{"message": "Follow-up scheduler stopped", "status": ec.statusMap()})
}

func (ec *EngineController) GetStatus(c *fiber.Ctx) error {
	return c.JSON(ec.statusMap())
}

func (ec *EngineController) statusMap() fiber.Map {
	return fiber.Map{
		"mailbox_watcher":     ec.Watcher.IsRunning(),
		"follow_up_scheduler": ec.Scheduler.IsRunning(),
	}
}

// GetStats aggregates engine-wide counters for the dashboard
func (ec *EngineController) GetStats(c *fiber.Ctx) error {
	stats, err := ec.collectStats()
	if err != nil {
		ec.Logger.WithError(err).Error("failed to collect engine stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect stats",
		})
	}
	return c.JSON(stats)
}

func (ec *EngineController) collectStats() (fiber.Map, error) {
	var totalSent, totalFailed, followUpsSent, activeProspects, responded int64

	if err := ec.DB.Model(&models.EmailRecord{}).
		Where("status = ?", models.EmailStatusSent).Count(&totalSent).Error; err != nil {
		return nil, err
	}
	if err := ec.DB.Model(&models.EmailRecord{}).
		Where("status = ?", models.EmailStatusFailed).Count(&totalFailed).Error; err != nil {
		return nil, err
	}
	if err := ec.DB.Model(&models.EmailRecord{}).
		Where("status = ? AND is_follow_up = ?", models.EmailStatusSent, true).
		Count(&followUpsSent).Error; err != nil {
		return nil, err
	}
	if err := ec.DB.Model(&models.Prospect{}).
		Where("follow_up_status = ?", models.FollowUpActive).
		Count(&activeProspects).Error; err != nil {
		return nil, err
	}
	if err := ec.DB.Model(&models.Prospect{}).
		Where("responded_at IS NOT NULL").Count(&responded).Error; err != nil {
		return nil, err
	}

	return fiber.Map{
		"emails_sent":         totalSent,
		"emails_failed":       totalFailed,
		"follow_ups_sent":     followUpsSent,
		"active_prospects":    activeProspects,
		"responded":           responded,
		"mailbox_watcher":     ec.Watcher.IsRunning(),
		"follow_up_scheduler": ec.Scheduler.IsRunning(),
	}, nil
}

// HandleEngineLiveWS streams engine stats to a websocket client until it
// disconnects
func (ec *EngineController) HandleEngineLiveWS(c *websocket.Conn) {
	defer c.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		stats, err := ec.collectStats()
		if err != nil {
			ec.Logger.WithError(err).Error("live stats collection failed")
			return
		}
		if err := c.WriteJSON(stats); err != nil {
			return
		}
		<-ticker.C
	}
}
