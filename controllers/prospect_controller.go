package controller

import (
	"errors"
	"strings"

	"replyloop/models"
	"replyloop/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProspectController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewProspectController(db *gorm.DB, logger *logrus.Logger) *ProspectController {
	return &ProspectController{DB: db, Logger: logger}
}

type prospectInput struct {
	CampaignID      uint   `json:"campaign_id" validate:"required"`
	Email           string `json:"email" validate:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Company         string `json:"company"`
	Industry        string `json:"industry"`
	JobTitle        string `json:"job_title"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	EmailProviderID *uint  `json:"email_provider_id"`
}

func (pc *ProspectController) CreateProspect(c *fiber.Ctx) error {
	var input prospectInput
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

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := checkmail.ValidateFormat(email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address",
		})
	}

	var campaign models.Campaign
	if err := pc.DB.First(&campaign, input.CampaignID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	prospect := models.Prospect{
		CampaignID:      input.CampaignID,
		Email:           email,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Company:         input.Company,
		Industry:        input.Industry,
		JobTitle:        input.JobTitle,
		Phone:           input.Phone,
		Location:        input.Location,
		EmailProviderID: input.EmailProviderID,
	}

	if err := pc.DB.Create(&prospect).Error; err != nil {
		pc.Logger.WithError(err).Error("failed to create prospect")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create prospect",
		})
	}

	pc.DB.Model(&campaign).Update("total_prospects", gorm.Expr("total_prospects + ?", 1))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Prospect created successfully",
		"prospect": prospect,
	})
}

func (pc *ProspectController) GetProspects(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	query := pc.DB.Model(&models.Prospect{})
	if campaignID := c.Query("campaign_id"); campaignID != "" {
		query = query.Where("campaign_id = ?", campaignID)
	}
	if status := c.Query("follow_up_status"); status != "" {
		query = query.Where("follow_up_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count prospects",
		})
	}

	var prospects []models.Prospect
	if err := query.Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&prospects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch prospects",
		})
	}

	return c.JSON(utils.PaginatedResponse(prospects, page, perPage, total))
}

func (pc *ProspectController) GetProspect(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid prospect ID",
		})
	}

	var prospect models.Prospect
	if err := pc.DB.First(&prospect, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Prospect not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch prospect",
		})
	}
	return c.JSON(fiber.Map{"prospect": prospect})
}

// UpdateFollowUpStatus pauses, resumes or stops an individual prospect's
// follow-up sequence
func (pc *ProspectController) UpdateFollowUpStatus(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid prospect ID",
		})
	}

	var input struct {
		FollowUpStatus string `json:"follow_up_status" validate:"required,oneof=active paused completed stopped"`
	}
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

	result := pc.DB.Model(&models.Prospect{}).
		Where("id = ?", id).
		Update("follow_up_status", input.FollowUpStatus)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update prospect",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Prospect not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Follow-up status updated"})
}

func (pc *ProspectController) DeleteProspect(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid prospect ID",
		})
	}

	result := pc.DB.Delete(&models.Prospect{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete prospect",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Prospect not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Prospect deleted successfully"})
}

// GetProspectThread returns the full conversation history for a prospect
func (pc *ProspectController) GetProspectThread(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid prospect ID",
		})
	}

	store := utils.NewThreadStore(pc.DB, pc.Logger)
	thread, err := store.GetByProspect(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch thread",
		})
	}
	if thread == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No conversation thread for this prospect",
		})
	}

	return c.JSON(fiber.Map{"thread": thread})
}
