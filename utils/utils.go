package utils

import (
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ExtractEmailAddress pulls the bare address out of a header value such as
// "Jane Doe <jane@example.com>". Already-bare addresses pass through.
func ExtractEmailAddress(header string) string {
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	// Fall back to a manual bracket scan for headers net/mail rejects
	if start := strings.LastIndex(header, "<"); start != -1 {
		if end := strings.Index(header[start:], ">"); end != -1 {
			return strings.ToLower(strings.TrimSpace(header[start+1 : start+end]))
		}
	}
	return strings.ToLower(strings.TrimSpace(header))
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseUint parses a route parameter into a uint
func ParseUint(s string) (uint, error) {
	i, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(i), nil
}

// PaginatedResponse wraps a result page in the standard envelope
func PaginatedResponse(data interface{}, page, limit int, total int64) fiber.Map {
	return fiber.Map{
		"data":  data,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}
