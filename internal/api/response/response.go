package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Extras  any  `json:"extras"`
}

func NewResponse(success bool, code int, extras any) Response {
	return Response{
		Success: success,
		Code:    code,
		Extras:  extras,
	}
}

// SuccessResponse returns a JSON response with a success message with no type limitation
func SuccessResponse(c *gin.Context, extras any) {
	c.JSON(
		http.StatusOK,
		NewResponse(
			true,
			http.StatusOK,
			extras,
		))
}

// ErrorResponse returns a JSON response with an error message
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(
		code,
		NewResponse(
			false,
			code,
			map[string]interface{}{
				"message": message,
			},
		))
}

// ValidationErrorResponse returns a 400 JSON response listing the messages
// of every rejected field
func ValidationErrorResponse(c *gin.Context, fields map[string][]string) {
	c.JSON(
		http.StatusBadRequest,
		NewResponse(
			false,
			http.StatusBadRequest,
			map[string]any{
				"message": "Invalid input.",
				"errors":  fields,
			},
		))
}

// AbortWithError writes an error response and stops the handler chain
func AbortWithError(c *gin.Context, code int, message string) {
	ErrorResponse(c, code, message)
	c.Abort()
}
