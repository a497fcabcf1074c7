package utils

import (
	"strings"

	"replyloop/models"
)

// Personalize substitutes prospect merge tags in template content. Missing
// fields render as empty string, never as the raw tag and never as an error.
func Personalize(content string, p *models.Prospect) string {
	if p == nil {
		p = &models.Prospect{}
	}

	replacer := strings.NewReplacer(
		"{{first_name}}", p.FirstName,
		"{{last_name}}", p.LastName,
		"{{full_name}}", p.FullName(),
		"{{company}}", p.Company,
		"{{industry}}", p.Industry,
		"{{job_title}}", p.JobTitle,
		"{{phone}}", p.Phone,
		"{{location}}", p.Location,
		"{{email}}", p.Email,
	)
	return replacer.Replace(content)
}
