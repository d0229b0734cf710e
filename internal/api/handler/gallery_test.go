package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// MockGalleryService is a mock implementation of GalleryService
type MockGalleryService struct {
	mock.Mock
}

func (m *MockGalleryService) Recognize(ctx context.Context, image []byte) (*domain.Result, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *MockGalleryService) Search(ctx context.Context, image []byte) (*domain.Result, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *MockGalleryService) Register(ctx context.Context, image []byte, req domain.EnrollRequest) (*domain.Result, error) {
	args := m.Called(ctx, image, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *MockGalleryService) Process(ctx context.Context, image []byte, action domain.Action, req *domain.EnrollRequest) (*domain.Result, error) {
	args := m.Called(ctx, image, action, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *MockGalleryService) Extract(ctx context.Context, image []byte) (*domain.Signature, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Signature), args.Error(1)
}

func (m *MockGalleryService) Status(ctx context.Context) *domain.Status {
	args := m.Called(ctx)
	return args.Get(0).(*domain.Status)
}

func (m *MockGalleryService) ListPeople(ctx context.Context) ([]domain.PersonSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PersonSummary), args.Error(1)
}

func (m *MockGalleryService) Delete(ctx context.Context, name string) (*domain.MutationResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

func (m *MockGalleryService) ClearAll(ctx context.Context) (*domain.MutationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper to create multipart request
func createMultipartRequest(fields map[string]string, imageContent []byte, contentType string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="face.jpg"`)
		h.Set("Content-Type", contentType)

		part, _ := writer.CreatePart(h)
		_, _ = part.Write(imageContent)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func createTestApp(h *GalleryHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})

	app.Post("/v1/recognize", h.Recognize)
	app.Post("/v1/search", h.Search)
	app.Post("/v1/register", h.Register)
	app.Post("/v1/extract", h.Extract)
	app.Post("/v1/process", h.Process)
	app.Post("/v1/batch", h.Batch)
	app.Get("/v1/status", h.Status)
	app.Get("/v1/people", h.ListPeople)
	app.Delete("/v1/people/:name", h.DeletePerson)
	app.Delete("/v1/gallery", h.ClearAll)

	return app
}

func boolPtr(b bool) *bool { return &b }

func TestGalleryHandler_Recognize(t *testing.T) {
	personID := uuid.New()
	image := []byte("jpeg-bytes")

	tests := []struct {
		name           string
		imageContent   []byte
		contentType    string
		setupMock      func(*MockGalleryService)
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:         "recognized",
			imageContent: image,
			contentType:  "image/jpeg",
			setupMock: func(m *MockGalleryService) {
				m.On("Recognize", mock.Anything, image).Return(&domain.Result{
					Action:       domain.ActionRecognize,
					FaceDetected: true,
					Recognized:   boolPtr(true),
					Person:       &domain.Person{ID: personID, Name: "alice", Confidence: 0.92},
					Message:      "Recognized as alice with 92.0% confidence",
				}, nil)
			},
			expectedStatus: 200,
			checkResponse: func(t *testing.T, body []byte) {
				var res domain.Result
				require.NoError(t, json.Unmarshal(body, &res))
				require.NotNil(t, res.Person)
				assert.Equal(t, "alice", res.Person.Name)
				assert.Equal(t, personID, res.Person.ID)
				assert.True(t, *res.Recognized)
			},
		},
		{
			name:         "no face is still a result",
			imageContent: image,
			contentType:  "image/png",
			setupMock: func(m *MockGalleryService) {
				m.On("Recognize", mock.Anything, image).Return(&domain.Result{
					Action:  domain.ActionRecognize,
					Message: "No face detected in the image",
				}, nil)
			},
			expectedStatus: 200,
			checkResponse: func(t *testing.T, body []byte) {
				var res domain.Result
				require.NoError(t, json.Unmarshal(body, &res))
				assert.False(t, res.FaceDetected)
				assert.Nil(t, res.Recognized)
			},
		},
		{
			name:           "missing image",
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 422,
		},
		{
			name:           "unsupported content type",
			imageContent:   image,
			contentType:    "application/pdf",
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 422,
		},
		{
			name:         "extractor unavailable",
			imageContent: image,
			contentType:  "image/jpeg",
			setupMock: func(m *MockGalleryService) {
				m.On("Recognize", mock.Anything, image).Return(nil, domain.ErrExtractorUnavailable.WithError(errors.New("dial tcp")))
			},
			expectedStatus: 503,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGalleryService{}
			tt.setupMock(mockService)

			app := createTestApp(NewGalleryHandler(mockService, testLogger()))

			body, contentType := createMultipartRequest(nil, tt.imageContent, tt.contentType)
			req := httptest.NewRequest("POST", "/v1/recognize", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				respBody, _ := io.ReadAll(resp.Body)
				tt.checkResponse(t, respBody)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestGalleryHandler_Register(t *testing.T) {
	id := uuid.New()
	image := []byte("jpeg-bytes")
	wantReq := domain.EnrollRequest{
		Name:      "alice",
		Tags:      []string{"staff", "vip"},
		Locations: []string{"lobby"},
		Notes:     "badge 12",
	}
	fields := map[string]string{
		"name":      " alice ",
		"tags":      "staff, vip,,",
		"locations": "lobby",
		"notes":     "badge 12",
	}

	tests := []struct {
		name           string
		fields         map[string]string
		setupMock      func(*MockGalleryService)
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:   "registered",
			fields: fields,
			setupMock: func(m *MockGalleryService) {
				m.On("Register", mock.Anything, image, wantReq).Return(&domain.Result{
					Action:            domain.ActionRegister,
					FaceDetected:      true,
					RegistrationReady: true,
					Registration:      &domain.MutationResult{Success: true, ID: &id, CacheRefreshed: true},
				}, nil)
			},
			expectedStatus: 201,
			checkResponse: func(t *testing.T, body []byte) {
				var res domain.Result
				require.NoError(t, json.Unmarshal(body, &res))
				require.NotNil(t, res.Registration)
				assert.Equal(t, id, *res.Registration.ID)
			},
		},
		{
			name:   "duplicate face",
			fields: fields,
			setupMock: func(m *MockGalleryService) {
				m.On("Register", mock.Anything, image, wantReq).Return(&domain.Result{
					Action:       domain.ActionRegister,
					FaceDetected: true,
					Registration: &domain.MutationResult{
						Code:          domain.ErrFaceBiometricExists.Code,
						SimilarPerson: "alicia",
					},
				}, nil)
			},
			expectedStatus: 409,
			checkResponse: func(t *testing.T, body []byte) {
				var res domain.Result
				require.NoError(t, json.Unmarshal(body, &res))
				assert.Equal(t, "alicia", res.Registration.SimilarPerson)
			},
		},
		{
			name:   "store unavailable",
			fields: fields,
			setupMock: func(m *MockGalleryService) {
				m.On("Register", mock.Anything, image, wantReq).Return(&domain.Result{
					FaceDetected: true,
					Registration: &domain.MutationResult{Code: domain.ErrStoreUnavailable.Code},
				}, nil)
			},
			expectedStatus: 503,
		},
		{
			name:   "no face detected",
			fields: fields,
			setupMock: func(m *MockGalleryService) {
				m.On("Register", mock.Anything, image, wantReq).Return(&domain.Result{
					Action:  domain.ActionRegister,
					Message: "No face detected in the image",
				}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "missing name",
			fields:         map[string]string{"name": "  "},
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGalleryService{}
			tt.setupMock(mockService)

			app := createTestApp(NewGalleryHandler(mockService, testLogger()))

			body, contentType := createMultipartRequest(tt.fields, image, "image/jpeg")
			req := httptest.NewRequest("POST", "/v1/register", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				respBody, _ := io.ReadAll(resp.Body)
				tt.checkResponse(t, respBody)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestGalleryHandler_Search(t *testing.T) {
	image := []byte("jpeg-bytes")
	mockService := &MockGalleryService{}
	mockService.On("Search", mock.Anything, image).Return(&domain.Result{
		Action:       domain.ActionSearch,
		FaceDetected: true,
		SearchResults: []domain.Match{
			{IdentityID: uuid.New(), Name: "alice", Similarity: 0.91},
			{IdentityID: uuid.New(), Name: "carol", Similarity: 0.7},
		},
		Message: "Found 2 similar faces",
	}, nil)

	app := createTestApp(NewGalleryHandler(mockService, testLogger()))

	body, contentType := createMultipartRequest(nil, image, "image/webp")
	req := httptest.NewRequest("POST", "/v1/search", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var res domain.Result
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.SearchResults, 2)
	assert.Equal(t, "alice", res.SearchResults[0].Name)
}

func TestGalleryHandler_Extract(t *testing.T) {
	image := []byte("jpeg-bytes")

	tests := []struct {
		name           string
		setupMock      func(*MockGalleryService)
		expectedStatus int
	}{
		{
			name: "signature returned",
			setupMock: func(m *MockGalleryService) {
				m.On("Extract", mock.Anything, image).Return(&domain.Signature{
					Embedding:           []float64{0.6, 0.8},
					DetectionConfidence: 0.9,
					QualityScore:        1.0,
					BoundingBox:         []int{1, 2, 3, 4},
				}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "no face",
			setupMock: func(m *MockGalleryService) {
				m.On("Extract", mock.Anything, image).Return(nil, domain.ErrNoFaceDetected)
			},
			expectedStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGalleryService{}
			tt.setupMock(mockService)

			app := createTestApp(NewGalleryHandler(mockService, testLogger()))

			body, contentType := createMultipartRequest(nil, image, "image/jpeg")
			req := httptest.NewRequest("POST", "/v1/extract", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if resp.StatusCode == 200 {
				var res ExtractResponse
				raw, _ := io.ReadAll(resp.Body)
				require.NoError(t, json.Unmarshal(raw, &res))
				assert.Equal(t, 2, res.Dimensions)
			}
		})
	}
}

func TestGalleryHandler_StatusAndPeople(t *testing.T) {
	mockService := &MockGalleryService{}
	mockService.On("Status", mock.Anything).Return(&domain.Status{
		Status:            "healthy",
		TotalFaces:        3,
		TotalRecognitions: 7,
		ExtractorLoaded:   true,
		LastUpdated:       time.Now().UTC(),
	})
	mockService.On("ListPeople", mock.Anything).Return([]domain.PersonSummary{
		{Name: "alice", ImageCount: 2, RecognitionCount: 5},
		{Name: "bob", ImageCount: 1, RecognitionCount: 2},
	}, nil)

	app := createTestApp(NewGalleryHandler(mockService, testLogger()))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var status domain.Status
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, 3, status.TotalFaces)
	assert.Equal(t, int64(7), status.TotalRecognitions)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/people", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var people PeopleResponse
	raw, _ = io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &people))
	assert.Equal(t, 2, people.Total)
	assert.Equal(t, "alice", people.People[0].Name)
}

func TestGalleryHandler_DeletePerson(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockGalleryService)
		expectedStatus int
	}{
		{
			name: "deleted",
			setupMock: func(m *MockGalleryService) {
				m.On("Delete", mock.Anything, "alice").Return(&domain.MutationResult{Success: true, Deleted: 2, CacheRefreshed: true}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "unknown person",
			setupMock: func(m *MockGalleryService) {
				m.On("Delete", mock.Anything, "alice").Return(nil, domain.ErrPersonNotFound)
			},
			expectedStatus: 404,
		},
		{
			name: "store unavailable",
			setupMock: func(m *MockGalleryService) {
				m.On("Delete", mock.Anything, "alice").Return(nil, domain.ErrStoreUnavailable.WithError(context.DeadlineExceeded))
			},
			expectedStatus: 503,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGalleryService{}
			tt.setupMock(mockService)

			app := createTestApp(NewGalleryHandler(mockService, testLogger()))

			resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/people/alice", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			mockService.AssertExpectations(t)
		})
	}
}

func TestGalleryHandler_ClearAll(t *testing.T) {
	mockService := &MockGalleryService{}
	mockService.On("ClearAll", mock.Anything).Return(&domain.MutationResult{Success: true, Message: "Gallery cleared", CacheRefreshed: true}, nil)

	app := createTestApp(NewGalleryHandler(mockService, testLogger()))

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/gallery", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var res domain.MutationResult
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.True(t, res.Success)
	mockService.AssertExpectations(t)
}
