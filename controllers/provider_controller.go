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

// ProviderController manages sending accounts. Secrets are encrypted before
// they touch the database and never serialized back out.
type ProviderController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewProviderController(db *gorm.DB, logger *logrus.Logger) *ProviderController {
	return &ProviderController{DB: db, Logger: logger}
}

type providerInput struct {
	Name           string `json:"name" validate:"required"`
	FromEmail      string `json:"from_email" validate:"required"`
	FromName       string `json:"from_name"`
	SMTPHost       string `json:"smtp_host" validate:"required"`
	SMTPPort       int    `json:"smtp_port" validate:"required,gt=0,lte=65535"`
	SMTPUsername   string `json:"smtp_username" validate:"required"`
	SMTPPassword   string `json:"smtp_password"`
	SMTPEncryption string `json:"smtp_encryption" validate:"omitempty,oneof=SSL TLS STARTTLS NONE"`
	IMAPHost       string `json:"imap_host"`
	IMAPPort       int    `json:"imap_port" validate:"omitempty,gt=0,lte=65535"`
	IMAPUsername   string `json:"imap_username"`
	IMAPPassword   string `json:"imap_password"`
	IMAPEncryption string `json:"imap_encryption" validate:"omitempty,oneof=SSL TLS STARTTLS NONE"`
	IMAPMailbox     string `json:"imap_mailbox"`
	DailySendLimit  *int   `json:"daily_send_limit" validate:"omitempty,gt=0"`
	HourlySendLimit *int   `json:"hourly_send_limit" validate:"omitempty,gt=0"`
	IsDefault       *bool  `json:"is_default"`
	IsActive        *bool  `json:"is_active"`
}

func (pc *ProviderController) CreateProvider(c *fiber.Ctx) error {
	var input providerInput
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
	if err := checkmail.ValidateFormat(input.FromEmail); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid from_email address",
		})
	}
	if input.SMTPPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "smtp_password is required",
		})
	}

	provider := models.EmailProvider{
		Name:           input.Name,
		FromEmail:      strings.ToLower(strings.TrimSpace(input.FromEmail)),
		FromName:       input.FromName,
		SMTPHost:       input.SMTPHost,
		SMTPPort:       input.SMTPPort,
		SMTPUsername:   input.SMTPUsername,
		SMTPEncryption: input.SMTPEncryption,
		IMAPHost:       input.IMAPHost,
		IMAPPort:       input.IMAPPort,
		IMAPUsername:   input.IMAPUsername,
		IMAPEncryption: input.IMAPEncryption,
		IMAPMailbox:    input.IMAPMailbox,
	}

	encrypted, err := utils.Encrypt(input.SMTPPassword)
	if err != nil {
		pc.Logger.WithError(err).Error("failed to encrypt SMTP password")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store credentials",
		})
	}
	provider.SMTPPassword = encrypted

	if input.IMAPPassword != "" {
		encrypted, err := utils.Encrypt(input.IMAPPassword)
		if err != nil {
			pc.Logger.WithError(err).Error("failed to encrypt IMAP password")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store credentials",
			})
		}
		provider.IMAPPassword = encrypted
	}

	if input.DailySendLimit != nil {
		provider.DailySendLimit = *input.DailySendLimit
	}
	if input.HourlySendLimit != nil {
		provider.HourlySendLimit = *input.HourlySendLimit
	}
	if input.IsDefault != nil {
		provider.IsDefault = *input.IsDefault
	}
	if input.IsActive != nil {
		provider.IsActive = *input.IsActive
	} else {
		provider.IsActive = true
	}

	if err := pc.DB.Transaction(func(tx *gorm.DB) error {
		// Only one default provider at a time
		if provider.IsDefault {
			if err := tx.Model(&models.EmailProvider{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&provider).Error
	}); err != nil {
		pc.Logger.WithError(err).Error("failed to create provider")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create provider",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Provider created successfully",
		"provider": provider.Sanitize(),
	})
}

func (pc *ProviderController) GetProviders(c *fiber.Ctx) error {
	var providers []models.EmailProvider
	if err := pc.DB.Order("id ASC").Find(&providers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch providers",
		})
	}

	out := make([]interface{}, 0, len(providers))
	for i := range providers {
		out = append(out, providers[i].Sanitize())
	}
	return c.JSON(fiber.Map{"providers": out})
}

func (pc *ProviderController) GetProvider(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid provider ID",
		})
	}

	var provider models.EmailProvider
	if err := pc.DB.First(&provider, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Provider not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch provider",
		})
	}
	return c.JSON(fiber.Map{"provider": provider.Sanitize()})
}

func (pc *ProviderController) UpdateProvider(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid provider ID",
		})
	}

	var provider models.EmailProvider
	if err := pc.DB.First(&provider, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Provider not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch provider",
		})
	}

	var input providerInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Name != "" {
		provider.Name = input.Name
	}
	if input.FromEmail != "" {
		if err := checkmail.ValidateFormat(input.FromEmail); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid from_email address",
			})
		}
		provider.FromEmail = strings.ToLower(strings.TrimSpace(input.FromEmail))
	}
	if input.FromName != "" {
		provider.FromName = input.FromName
	}
	if input.SMTPHost != "" {
		provider.SMTPHost = input.SMTPHost
	}
	if input.SMTPPort != 0 {
		provider.SMTPPort = input.SMTPPort
	}
	if input.SMTPUsername != "" {
		provider.SMTPUsername = input.SMTPUsername
	}
	if input.SMTPEncryption != "" {
		provider.SMTPEncryption = input.SMTPEncryption
	}
	if input.SMTPPassword != "" {
		encrypted, err := utils.Encrypt(input.SMTPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store credentials",
			})
		}
		provider.SMTPPassword = encrypted
	}
	if input.IMAPHost != "" {
		provider.IMAPHost = input.IMAPHost
	}
	if input.IMAPPort != 0 {
		provider.IMAPPort = input.IMAPPort
	}
	if input.IMAPUsername != "" {
		provider.IMAPUsername = input.IMAPUsername
	}
	if input.IMAPEncryption != "" {
		provider.IMAPEncryption = input.IMAPEncryption
	}
	if input.IMAPMailbox != "" {
		provider.IMAPMailbox = input.IMAPMailbox
	}
	if input.IMAPPassword != "" {
		encrypted, err := utils.Encrypt(input.IMAPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store credentials",
			})
		}
		provider.IMAPPassword = encrypted
	}
	if input.DailySendLimit != nil {
		provider.DailySendLimit = *input.DailySendLimit
	}
	if input.HourlySendLimit != nil {
		provider.HourlySendLimit = *input.HourlySendLimit
	}
	if input.IsActive != nil {
		provider.IsActive = *input.IsActive
	}

	makeDefault := input.IsDefault != nil && *input.IsDefault && !provider.IsDefault
	if input.IsDefault != nil {
		provider.IsDefault = *input.IsDefault
	}

	if err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if makeDefault {
			if err := tx.Model(&models.EmailProvider{}).
				Where("is_default = ? AND id <> ?", true, provider.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(&provider).Error
	}); err != nil {
		pc.Logger.WithError(err).Error("failed to update provider")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update provider",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Provider updated successfully",
		"provider": provider.Sanitize(),
	})
}

func (pc *ProviderController) DeleteProvider(c *fiber.Ctx) error {
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid provider ID",
		})
	}

	result := pc.DB.Delete(&models.EmailProvider{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete provider",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Provider not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Provider deleted successfully"})
}
