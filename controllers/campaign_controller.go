package controller

import (
	"errors"

	"replyloop/models"
	"replyloop/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewCampaignController(db *gorm.DB, logger *logrus.Logger) *CampaignController {
	return &CampaignController{DB: db, Logger: logger}
}

type campaignInput struct {
	Name                    string   `json:"name" validate:"required"`
	Description             string   `json:"description"`
	Status                  string   `json:"status" validate:"omitempty,oneof=draft active sending paused completed"`
	TemplateID              *uint    `json:"template_id"`
	FollowUpEnabled         *bool    `json:"follow_up_enabled"`
	FollowUpIntervals       []int    `json:"follow_up_intervals" validate:"omitempty,dive,gt=0"`
	FollowUpTemplateIDs     []uint   `json:"follow_up_template_ids"`
	FollowUpTimeWindowStart string   `json:"follow_up_time_window_start"`
	FollowUpTimeWindowEnd   string   `json:"follow_up_time_window_end"`
	FollowUpDaysOfWeek      []string `json:"follow_up_days_of_week"`
	FollowUpTimezone        string   `json:"follow_up_timezone"`
	StopOnReply             *bool    `json:"stop_on_reply"`
}

func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input campaignInput
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

	campaign := models.Campaign{
		Name:                input.Name,
		Description:         input.Description,
		Status:              "draft",
		TemplateID:          input.TemplateID,
		FollowUpIntervals:   input.FollowUpIntervals,
		FollowUpTemplateIDs: input.FollowUpTemplateIDs,
		FollowUpDaysOfWeek:  input.FollowUpDaysOfWeek,
	}
	if input.Status != "" {
		campaign.Status = input.Status
	}
	if input.FollowUpEnabled != nil {
		campaign.FollowUpEnabled = *input.FollowUpEnabled
	}
	if input.StopOnReply != nil {
		campaign.StopOnReply = *input.StopOnReply
	}
	applyWindow(&campaign, &input)

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to create campaign")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Campaign created successfully",
		"campaign": campaign,
	})
}

func applyWindow(campaign *models.Campaign, input *campaignInput) {
	if input.FollowUpTimeWindowStart != "" {
		campaign.FollowUpTimeWindowStart = input.FollowUpTimeWindowStart
	}
	if input.FollowUpTimeWindowEnd != "" {
		campaign.FollowUpTimeWindowEnd = input.FollowUpTimeWindowEnd
	}
	if input.FollowUpTimezone != "" {
		campaign.FollowUpTimezone = input.FollowUpTimezone
	}
}

func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	var campaigns []models.Campaign
	if err := cc.DB.Order("id DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaigns",
		})
	}
	return c.JSON(fiber.Map{"campaigns": campaigns})
}

func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid campaign ID",
		})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaign",
		})
	}
	return c.JSON(fiber.Map{"campaign": campaign})
}

func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid campaign ID",
		})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaign",
		})
	}

	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Name != "" {
		campaign.Name = input.Name
	}
	if input.Description != "" {
		campaign.Description = input.Description
	}
	if input.Status != "" {
		campaign.Status = input.Status
	}
	if input.TemplateID != nil {
		campaign.TemplateID = input.TemplateID
	}
	if input.FollowUpEnabled != nil {
		campaign.FollowUpEnabled = *input.FollowUpEnabled
	}
	if input.StopOnReply != nil {
		campaign.StopOnReply = *input.StopOnReply
	}
	if input.FollowUpIntervals != nil {
		campaign.FollowUpIntervals = input.FollowUpIntervals
	}
	if input.FollowUpTemplateIDs != nil {
		campaign.FollowUpTemplateIDs = input.FollowUpTemplateIDs
	}
	if input.FollowUpDaysOfWeek != nil {
		campaign.FollowUpDaysOfWeek = input.FollowUpDaysOfWeek
	}
	applyWindow(&campaign, &input)

	if err := utils.ValidateStruct(campaignInput{Name: campaign.Name, Status: campaign.Status, FollowUpIntervals: campaign.FollowUpIntervals}); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := cc.DB.Save(&campaign).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to update campaign")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Campaign updated successfully",
		"campaign": campaign,
	})
}

func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid campaign ID",
		})
	}

	result := cc.DB.Delete(&models.Campaign{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete campaign",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Campaign deleted successfully"})
}

// GetCampaignStats returns per-campaign counters plus follow-up pipeline
// breakdown
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid campaign ID",
		})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaign",
		})
	}

	breakdown := fiber.Map{}
	for _, status := range []string{models.FollowUpActive, models.FollowUpPaused, models.FollowUpCompleted, models.FollowUpStopped} {
		var count int64
		if err := cc.DB.Model(&models.Prospect{}).
			Where("campaign_id = ? AND follow_up_status = ?", campaign.ID, status).
			Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute stats",
			})
		}
		breakdown[status] = count
	}

	return c.JSON(fiber.Map{
		"campaign_id":      campaign.ID,
		"sent_count":       campaign.SentCount,
		"reply_count":      campaign.ReplyCount,
		"follow_up_count":  campaign.FollowUpCount,
		"follow_up_status": breakdown,
	})
}
