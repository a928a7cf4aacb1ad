package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"mailwriter/internal/service"
	"mailwriter/internal/view"
)

// UserHandler serves the pages of a logged-in user.
type UserHandler struct {
	emailService service.EmailService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(emailService service.EmailService) *UserHandler {
	return &UserHandler{emailService: emailService}
}

// GenerateRequest asks for an email draft.
type GenerateRequest struct {
	Prompt *string `json:"prompt" example:"Ask my manager for Friday off"`
	Tone   *string `json:"tone" example:"formal"`
}

// GenerateResponse carries the draft or a fixed explanatory text.
type GenerateResponse struct {
	Email string `json:"email" example:"Subject: Request for Leave on Friday"`
}

// Dashboard renders the user's landing page.
func (h *UserHandler) Dashboard(c echo.Context) error {
	return c.Render(http.StatusOK, view.DashboardPage, view.DashboardData{UserName: CurrentUser(c).Name})
}

// Generate godoc
// @Summary Draft an email
// @Description Sends the prompt to the language model and returns the cleaned draft. Always answers 200; failures are reported in the email field.
// @Tags email
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Prompt and tone"
// @Success 200 {object} GenerateResponse
// @Failure 302 "Redirect to /login without a session"
// @Security SessionCookie
// @Router /generate [post]
func (h *UserHandler) Generate(c echo.Context) error {
	req, err := decodeGenerate(c)
	if err != nil {
		return c.JSON(http.StatusOK, GenerateResponse{Email: service.ServerErrorReply})
	}

	prompt, tone := "", service.DefaultTone
	if req.Prompt != nil {
		prompt = *req.Prompt
	}
	if req.Tone != nil {
		tone = *req.Tone
	}

	text := h.emailService.Generate(c.Request().Context(), CurrentUser(c), prompt, tone)
	return c.JSON(http.StatusOK, GenerateResponse{Email: text})
}

// decodeGenerate accepts only a JSON object body. Empty bodies, other content
// types, and a bare null are rejected.
func decodeGenerate(c echo.Context) (*GenerateRequest, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return nil, echo.ErrUnsupportedMediaType
	}
	var req *GenerateRequest
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return req, nil
}
