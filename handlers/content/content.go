package content

import (
	"github.com/gofiber/fiber/v2"
	contentsvc "github.com/shiksha-labs/shiksha-api/services/content"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
)

// ContentHandler serves the versioned About/Privacy/Terms/Contact pages
type ContentHandler struct {
	service   *contentsvc.Service
	validator *validation.Validator
}

// NewContentHandler creates a new content handler
func NewContentHandler(service *contentsvc.Service) *ContentHandler {
	return &ContentHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// GetPage returns the current document for a page type, seeding the
// default on first read of an empty collection. Public endpoint.
func (h *ContentHandler) GetPage(c *fiber.Ctx) error {
	page, err := h.service.GetCurrent(c.Params("type"))
	if err != nil {
		if err == contentsvc.ErrUnknownType {
			return response.NotFound(c, "Unknown content page")
		}
		return response.InternalServerError(c, "Failed to load content")
	}

	return response.Success(c, page)
}

// CreateVersionRequest carries a new page version
type CreateVersionRequest struct {
	Title string `json:"title" validate:"required,min=3"`
	Body  string `json:"body" validate:"required"`
}

// CreateVersion publishes a new version of a page. Admin only.
func (h *ContentHandler) CreateVersion(c *fiber.Ctx) error {
	var req CreateVersionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	page, err := h.service.CreateVersion(c.Params("type"), req.Title, req.Body)
	if err != nil {
		if err == contentsvc.ErrUnknownType {
			return response.NotFound(c, "Unknown content page")
		}
		return response.InternalServerError(c, "Failed to publish content")
	}

	return response.Created(c, page)
}

// History lists all versions of a page, newest first. Admin only.
func (h *ContentHandler) History(c *fiber.Ctx) error {
	pages, err := h.service.History(c.Params("type"))
	if err != nil {
		if err == contentsvc.ErrUnknownType {
			return response.NotFound(c, "Unknown content page")
		}
		return response.InternalServerError(c, "Failed to load content history")
	}

	return response.Success(c, pages)
}
