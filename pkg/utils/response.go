package utils

import (
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	"github.com/gofiber/fiber/v2"
)

type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// ErrorResponse writes err using the status and code it carries (500 for plain errors).
func ErrorResponse(c *fiber.Ctx, err error) error {
	status, code := pkgError.StatusFor(err)
	return c.Status(status).JSON(ResponseData{
		Status:  status,
		Code:    code,
		Message: err.Error(),
	})
}

func SuccessResponse(c *fiber.Ctx, message string, results any) error {
	return c.JSON(ResponseData{
		Status:  fiber.StatusOK,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}
