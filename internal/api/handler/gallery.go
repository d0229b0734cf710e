package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// GalleryService interface for the service
type GalleryService interface {
	Recognize(ctx context.Context, image []byte) (*domain.Result, error)
	Search(ctx context.Context, image []byte) (*domain.Result, error)
	Register(ctx context.Context, image []byte, req domain.EnrollRequest) (*domain.Result, error)
	Process(ctx context.Context, image []byte, action domain.Action, req *domain.EnrollRequest) (*domain.Result, error)
	Extract(ctx context.Context, image []byte) (*domain.Signature, error)
	Status(ctx context.Context) *domain.Status
	ListPeople(ctx context.Context) ([]domain.PersonSummary, error)
	Delete(ctx context.Context, name string) (*domain.MutationResult, error)
	ClearAll(ctx context.Context) (*domain.MutationResult, error)
}

// GalleryHandler handles gallery requests
type GalleryHandler struct {
	service GalleryService
	logger  *slog.Logger
}

// NewGalleryHandler creates a new GalleryHandler instance
func NewGalleryHandler(service GalleryService, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		service: service,
		logger:  logger,
	}
}

// ExtractResponse response for extract endpoint
type ExtractResponse struct {
	Signature  *domain.Signature `json:"signature"`
	Dimensions int               `json:"dimensions"`
}

// PeopleResponse response for people listing
type PeopleResponse struct {
	People []domain.PersonSummary `json:"people"`
	Total  int                    `json:"total"`
}

// Recognize POST /v1/recognize - identify the person in the image
func (h *GalleryHandler) Recognize(c *fiber.Ctx) error {
	image, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	res, err := h.service.Recognize(c.Context(), image)
	if err != nil {
		return err
	}

	return c.JSON(res)
}

// Search POST /v1/search - list similar faces
func (h *GalleryHandler) Search(c *fiber.Ctx) error {
	image, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	res, err := h.service.Search(c.Context(), image)
	if err != nil {
		return err
	}

	return c.JSON(res)
}

// Register POST /v1/register - enroll the face under a name
func (h *GalleryHandler) Register(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return domain.ErrInvalidName
	}

	image, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	req := domain.EnrollRequest{
		Name:      name,
		Tags:      splitList(c.FormValue("tags")),
		Locations: splitList(c.FormValue("locations")),
		Notes:     strings.TrimSpace(c.FormValue("notes")),
	}

	res, err := h.service.Register(c.Context(), image, req)
	if err != nil {
		return err
	}

	return c.Status(registrationStatus(res)).JSON(res)
}

// Extract POST /v1/extract - return the face signature without touching the gallery
func (h *GalleryHandler) Extract(c *fiber.Ctx) error {
	image, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	sig, err := h.service.Extract(c.Context(), image)
	if err != nil {
		return err
	}

	return c.JSON(ExtractResponse{
		Signature:  sig,
		Dimensions: len(sig.Embedding),
	})
}

// Status GET /v1/status
func (h *GalleryHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.service.Status(c.Context()))
}

// ListPeople GET /v1/people
func (h *GalleryHandler) ListPeople(c *fiber.Ctx) error {
	people, err := h.service.ListPeople(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(PeopleResponse{
		People: people,
		Total:  len(people),
	})
}

// DeletePerson DELETE /v1/people/:name - remove every record of the person
func (h *GalleryHandler) DeletePerson(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))
	if name == "" {
		return domain.ErrInvalidName
	}

	res, err := h.service.Delete(c.Context(), name)
	if err != nil {
		return err
	}

	h.logger.Info("person deleted", "name", name, "records", res.Deleted)

	return c.JSON(res)
}

// ClearAll DELETE /v1/gallery
func (h *GalleryHandler) ClearAll(c *fiber.Ctx) error {
	res, err := h.service.ClearAll(c.Context())
	if err != nil {
		return err
	}

	h.logger.Warn("gallery cleared")

	return c.JSON(res)
}

// registrationStatus maps the enrollment outcome embedded in a register result
func registrationStatus(res *domain.Result) int {
	reg := res.Registration
	switch {
	case reg == nil:
		return fiber.StatusOK
	case reg.Success:
		return fiber.StatusCreated
	case reg.Code == domain.ErrFaceBiometricExists.Code:
		return fiber.StatusConflict
	case reg.Code == domain.ErrStoreUnavailable.Code:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusUnprocessableEntity
	}
}

// splitList parses a comma separated form field, dropping empty items
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// extractAndValidateImage extracts and validates the image from the form
func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	return readImageFile(file)
}

// readImageFile checks size and content type of an uploaded image and reads it
func readImageFile(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image exceeds 10MB"))
	}

	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}

	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("unsupported content type " + contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	image, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return image, nil
}
