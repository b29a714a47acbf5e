package controller

import (
	"ctchen222/accounts/internal/api/middleware"
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/response"
	"ctchen222/accounts/internal/api/service"
	"ctchen222/accounts/internal/validator"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserController handles user-related HTTP requests.
type UserController struct {
	userService service.UserService
}

// NewUserController creates a new UserController.
func NewUserController(userService service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := uc.userService.Login(c.Request.Context(), &req)
	if err != nil {
		uc.fail(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// SignUp handles the user registration endpoint.
func (uc *UserController) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := uc.userService.SignUp(c.Request.Context(), &req)
	if err != nil {
		uc.fail(c, err)
		return
	}

	response.SuccessResponse(c, models.ProfileOf(user))
}

// ChangePassword handles the password change endpoint. The response carries
// a new token because the one used for this request is no longer valid.
func (uc *UserController) ChangePassword(c *gin.Context) {
	var req models.PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	token, err := uc.userService.ChangePassword(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		uc.fail(c, err)
		return
	}

	response.SuccessResponse(c, models.PasswordChangeResponse{Token: token})
}

// Profile returns the authenticated user's profile.
func (uc *UserController) Profile(c *gin.Context) {
	response.SuccessResponse(c, models.ProfileOf(middleware.CurrentUser(c)))
}

// UpdateProfile handles partial updates of the authenticated user's profile.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	var req models.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := uc.userService.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		uc.fail(c, err)
		return
	}

	response.SuccessResponse(c, models.ProfileOf(user))
}

// fail maps service errors to HTTP responses. Validation failures are the
// client's fault, everything else is reported as a 500 without details.
func (uc *UserController) fail(c *gin.Context, err error) {
	if ve, ok := validator.AsValidationError(err); ok {
		response.ValidationErrorResponse(c, ve.Fields)
		return
	}
	slog.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
	response.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
}
