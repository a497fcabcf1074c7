package controller

import (
	"errors"

	"replyloop/models"
	"replyloop/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IntentController manages the keyword-driven intent catalog used to classify
// inbound replies and decide on automatic responses
type IntentController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewIntentController(db *gorm.DB, logger *logrus.Logger) *IntentController {
	return &IntentController{DB: db, Logger: logger}
}

type intentInput struct {
	Name                string   `json:"name" validate:"required"`
	Keywords            []string `json:"keywords" validate:"required,min=1,dive,required"`
	AutoRespond         *bool    `json:"auto_respond"`
	ConfidenceThreshold *float64 `json:"confidence_threshold" validate:"omitempty,gte=0,lte=1"`
	PrimaryTemplateID   *uint    `json:"primary_template_id"`
	IsActive            *bool    `json:"is_active"`
}

func (ic *IntentController) CreateIntent(c *fiber.Ctx) error {
	var input intentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	intent := models.IntentConfig{
		Name:              input.Name,
		Keywords:          input.Keywords,
		PrimaryTemplateID: input.PrimaryTemplateID,
		IsActive:          true,
	}
	if input.AutoRespond != nil {
		intent.AutoRespond = *input.AutoRespond
	}
	if input.ConfidenceThreshold != nil {
		intent.ConfidenceThreshold = *input.ConfidenceThreshold
	}
	if input.IsActive != nil {
		intent.IsActive = *input.IsActive
	}

	// An auto-responding intent without a template can never produce a reply
	if intent.AutoRespond && intent.PrimaryTemplateID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Auto-responding intents need a primary_template_id",
		})
	}

	if err := ic.DB.Create(&intent).Error; err != nil {
		ic.Logger.WithError(err).Error("failed to create intent config")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create intent",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Intent created successfully",
		"intent":  intent,
	})
}

func (ic *IntentController) GetIntents(c *fiber.Ctx) error {
	var intents []models.IntentConfig
	if err := ic.DB.Order("id ASC").Find(&intents).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch intents",
		})
	}
	return c.JSON(fiber.Map{"intents": intents})
}

func (ic *IntentController) GetIntent(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid intent ID",
		})
	}

	var intent models.IntentConfig
	if err := ic.DB.First(&intent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Intent not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch intent",
		})
	}
	return c.JSON(fiber.Map{"intent": intent})
}

func (ic *IntentController) UpdateIntent(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid intent ID",
		})
	}

	var intent models.IntentConfig
	if err := ic.DB.First(&intent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Intent not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch intent",
		})
	}

	var input intentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Name != "" {
		intent.Name = input.Name
	}
	if input.Keywords != nil {
		intent.Keywords = input.Keywords
	}
	if input.AutoRespond != nil {
		intent.AutoRespond = *input.AutoRespond
	}
	if input.ConfidenceThreshold != nil {
		intent.ConfidenceThreshold = *input.ConfidenceThreshold
	}
	if input.PrimaryTemplateID != nil {
		intent.PrimaryTemplateID = input.PrimaryTemplateID
	}
	if input.IsActive != nil {
		intent.IsActive = *input.IsActive
	}

	if intent.AutoRespond && intent.PrimaryTemplateID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Auto-responding intents need a primary_template_id",
		})
	}

	if err := ic.DB.Save(&intent).Error; err != nil {
		ic.Logger.WithError(err).Error("failed to update intent config")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update intent",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Intent updated successfully",
		"intent":  intent,
	})
}

func (ic *IntentController) DeleteIntent(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid intent ID",
		})
	}

	result := ic.DB.Delete(&models.IntentConfig{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete intent",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Intent not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Intent deleted successfully"})
}
