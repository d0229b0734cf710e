package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

const (
	maxBatchImages   = 10
	batchConcurrency = 4

	// MaxBodySize fits a full batch, or one base64 image, plus form overhead
	MaxBodySize = maxBatchImages*maxImageSize + 1024*1024
)

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// ProcessRequest body of the single request process endpoint
type ProcessRequest struct {
	ImageData  string   `json:"image_data"`
	Action     string   `json:"action"`
	PersonName string   `json:"person_name"`
	Tags       []string `json:"tags"`
	Locations  []string `json:"locations"`
	Notes      string   `json:"notes"`
}

// BatchItem is the outcome for one uploaded file
type BatchItem struct {
	Filename string         `json:"filename"`
	Success  bool           `json:"success"`
	Result   *domain.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// BatchResponse response for batch endpoint
type BatchResponse struct {
	Action    domain.Action `json:"action"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Results   []BatchItem   `json:"results"`
}

// Process POST /v1/process - base64 image plus action in a single JSON request
func (h *GalleryHandler) Process(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if strings.TrimSpace(req.ImageData) == "" {
		return domain.ErrValidationFailed.WithError(errors.New("image_data is required"))
	}

	action, err := parseActionOrDefault(req.Action)
	if err != nil {
		return err
	}

	image, err := decodeImageData(req.ImageData)
	if err != nil {
		return err
	}

	var enroll *domain.EnrollRequest
	if name := strings.TrimSpace(req.PersonName); action == domain.ActionRegister && name != "" {
		enroll = &domain.EnrollRequest{
			Name:      name,
			Tags:      req.Tags,
			Locations: req.Locations,
			Notes:     strings.TrimSpace(req.Notes),
		}
	}

	res, err := h.service.Process(c.Context(), image, action, enroll)
	if err != nil {
		return err
	}

	return c.Status(registrationStatus(res)).JSON(res)
}

// Batch POST /v1/batch - up to 10 images under the same action, one result per file.
// Registering needs a name per file in the form field name_<filename>.
func (h *GalleryHandler) Batch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["images"]
	if len(files) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("no images provided"))
	}
	if len(files) > maxBatchImages {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("at most %d images per batch, got %d", maxBatchImages, len(files)))
	}

	action, err := parseActionOrDefault(firstValue(form.Value, "action"))
	if err != nil {
		return err
	}

	items := make([]BatchItem, len(files))

	g, ctx := errgroup.WithContext(c.Context())
	g.SetLimit(batchConcurrency)

	for i, file := range files {
		i, file := i, file // per-iteration copy; the module targets go 1.21 loop semantics
		items[i].Filename = file.Filename

		var enroll *domain.EnrollRequest
		if action == domain.ActionRegister {
			name := strings.TrimSpace(firstValue(form.Value, "name_"+file.Filename))
			if name == "" {
				items[i].Error = "missing name_" + file.Filename
				continue
			}
			enroll = &domain.EnrollRequest{Name: name}
		}

		g.Go(func() error {
			image, err := readImageFile(file)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}

			res, err := h.service.Process(ctx, image, action, enroll)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}

			items[i].Result = res
			if reg := res.Registration; reg != nil && !reg.Success {
				items[i].Error = reg.Error
				return nil
			}
			items[i].Success = true
			return nil
		})
	}

	// per file failures never abort the batch
	_ = g.Wait()

	resp := BatchResponse{Action: action, Processed: len(items), Results: items}
	for _, item := range items {
		if !item.Success {
			resp.Failed++
		}
	}

	h.logger.Info("batch processed", "action", action, "files", resp.Processed, "failed", resp.Failed)

	return c.JSON(resp)
}

func parseActionOrDefault(raw string) (domain.Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ActionRecognize, nil
	}
	return domain.ParseAction(raw)
}

// decodeImageData accepts raw base64 or a data:image/...;base64, URL
func decodeImageData(data string) ([]byte, error) {
	data = dataURLPrefix.ReplaceAllString(strings.TrimSpace(data), "")

	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode base64: %w", err))
	}
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}
	if len(image) > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image exceeds 10MB"))
	}

	return image, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
