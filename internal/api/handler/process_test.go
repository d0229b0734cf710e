package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

type uploadFile struct {
	name        string
	content     []byte
	contentType string
}

func createBatchRequest(fields map[string]string, files []uploadFile) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)

		part, _ := writer.CreatePart(h)
		_, _ = part.Write(f.content)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func postJSON(t *testing.T, h *GalleryHandler, path string, payload any) (int, []byte) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := createTestApp(h).Test(req)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func TestGalleryHandler_Process(t *testing.T) {
	id := uuid.New()
	image := []byte("jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(image)

	tests := []struct {
		name           string
		payload        map[string]any
		setupMock      func(*MockGalleryService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:    "defaults to recognize",
			payload: map[string]any{"image_data": encoded},
			setupMock: func(m *MockGalleryService) {
				m.On("Process", mock.Anything, image, domain.ActionRecognize, (*domain.EnrollRequest)(nil)).
					Return(&domain.Result{Action: domain.ActionRecognize, FaceDetected: true}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:    "data url prefix is stripped",
			payload: map[string]any{"image_data": "data:image/png;base64," + encoded, "action": "search"},
			setupMock: func(m *MockGalleryService) {
				m.On("Process", mock.Anything, image, domain.ActionSearch, (*domain.EnrollRequest)(nil)).
					Return(&domain.Result{Action: domain.ActionSearch, FaceDetected: true}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "register with name enrolls",
			payload: map[string]any{
				"image_data":  encoded,
				"action":      "register",
				"person_name": " alice ",
				"tags":        []string{"staff"},
			},
			setupMock: func(m *MockGalleryService) {
				want := &domain.EnrollRequest{Name: "alice", Tags: []string{"staff"}}
				m.On("Process", mock.Anything, image, domain.ActionRegister, want).Return(&domain.Result{
					Action:       domain.ActionRegister,
					FaceDetected: true,
					Registration: &domain.MutationResult{Success: true, ID: &id, CacheRefreshed: true},
				}, nil)
			},
			expectedStatus: 201,
		},
		{
			name: "register duplicate",
			payload: map[string]any{
				"image_data":  encoded,
				"action":      "register",
				"person_name": "alicia",
			},
			setupMock: func(m *MockGalleryService) {
				m.On("Process", mock.Anything, image, domain.ActionRegister, &domain.EnrollRequest{Name: "alicia"}).
					Return(&domain.Result{
						Action:       domain.ActionRegister,
						FaceDetected: true,
						Registration: &domain.MutationResult{Code: domain.ErrFaceBiometricExists.Code, SimilarPerson: "alice"},
					}, nil)
			},
			expectedStatus: 409,
		},
		{
			name:    "register without name only signals readiness",
			payload: map[string]any{"image_data": encoded, "action": "register"},
			setupMock: func(m *MockGalleryService) {
				m.On("Process", mock.Anything, image, domain.ActionRegister, (*domain.EnrollRequest)(nil)).
					Return(&domain.Result{Action: domain.ActionRegister, FaceDetected: true, RegistrationReady: true}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "missing image data",
			payload:        map[string]any{"action": "recognize"},
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 422,
			expectedCode:   domain.ErrValidationFailed.Code,
		},
		{
			name:           "unknown action",
			payload:        map[string]any{"image_data": encoded, "action": "verify"},
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 400,
			expectedCode:   domain.ErrInvalidAction.Code,
		},
		{
			name:           "invalid base64",
			payload:        map[string]any{"image_data": "not base64!!"},
			setupMock:      func(m *MockGalleryService) {},
			expectedStatus: 422,
			expectedCode:   domain.ErrInvalidImage.Code,
		},
		{
			name:    "extractor down",
			payload: map[string]any{"image_data": encoded},
			setupMock: func(m *MockGalleryService) {
				m.On("Process", mock.Anything, image, domain.ActionRecognize, (*domain.EnrollRequest)(nil)).
					Return(nil, domain.ErrExtractorUnavailable)
			},
			expectedStatus: domain.ErrExtractorUnavailable.StatusCode,
			expectedCode:   domain.ErrExtractorUnavailable.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGalleryService{}
			tt.setupMock(mockService)

			status, body := postJSON(t, NewGalleryHandler(mockService, testLogger()), "/v1/process", tt.payload)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedCode != "" {
				assert.Contains(t, string(body), tt.expectedCode)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestDecodeImageData(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0}
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := decodeImageData("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeImageData("  " + encoded + "\n")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeImageData("")
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	_, err = decodeImageData(base64.StdEncoding.EncodeToString(make([]byte, maxImageSize+1)))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestGalleryHandler_Batch(t *testing.T) {
	alice := []byte("alice-bytes")
	bob := []byte("bob-bytes")
	blank := []byte("blank-bytes")

	t.Run("recognize reports each file", func(t *testing.T) {
		mockService := &MockGalleryService{}
		recognized := true
		mockService.On("Process", mock.Anything, alice, domain.ActionRecognize, (*domain.EnrollRequest)(nil)).
			Return(&domain.Result{Action: domain.ActionRecognize, FaceDetected: true, Recognized: &recognized}, nil)
		mockService.On("Process", mock.Anything, blank, domain.ActionRecognize, (*domain.EnrollRequest)(nil)).
			Return(nil, domain.ErrExtractorUnavailable)

		body, contentType := createBatchRequest(nil, []uploadFile{
			{name: "alice.jpg", content: alice, contentType: "image/jpeg"},
			{name: "notes.txt", content: []byte("text"), contentType: "text/plain"},
			{name: "blank.jpg", content: blank, contentType: "image/jpeg"},
		})
		req := httptest.NewRequest("POST", "/v1/batch", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := createTestApp(NewGalleryHandler(mockService, testLogger())).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var out BatchResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, domain.ActionRecognize, out.Action)
		assert.Equal(t, 3, out.Processed)
		assert.Equal(t, 2, out.Failed)
		require.Len(t, out.Results, 3)

		assert.Equal(t, "alice.jpg", out.Results[0].Filename)
		assert.True(t, out.Results[0].Success)
		require.NotNil(t, out.Results[0].Result)
		assert.True(t, *out.Results[0].Result.Recognized)

		assert.Equal(t, "notes.txt", out.Results[1].Filename)
		assert.False(t, out.Results[1].Success)
		assert.Contains(t, out.Results[1].Error, "unsupported content type")

		assert.False(t, out.Results[2].Success)
		assert.NotEmpty(t, out.Results[2].Error)

		mockService.AssertExpectations(t)
	})

	t.Run("register uses per file names", func(t *testing.T) {
		id := uuid.New()
		mockService := &MockGalleryService{}
		mockService.On("Process", mock.Anything, alice, domain.ActionRegister, &domain.EnrollRequest{Name: "alice"}).
			Return(&domain.Result{
				Action:       domain.ActionRegister,
				FaceDetected: true,
				Registration: &domain.MutationResult{Success: true, ID: &id},
			}, nil)
		mockService.On("Process", mock.Anything, blank, domain.ActionRegister, &domain.EnrollRequest{Name: "carol"}).
			Return(&domain.Result{
				Action:       domain.ActionRegister,
				FaceDetected: true,
				Registration: &domain.MutationResult{
					Code:          domain.ErrFaceBiometricExists.Code,
					Error:         "face already enrolled as alice",
					SimilarPerson: "alice",
				},
			}, nil)

		body, contentType := createBatchRequest(
			map[string]string{"action": "register", "name_alice.jpg": "alice", "name_blank.jpg": "carol"},
			[]uploadFile{
				{name: "alice.jpg", content: alice, contentType: "image/jpeg"},
				{name: "bob.jpg", content: bob, contentType: "image/jpeg"},
				{name: "blank.jpg", content: blank, contentType: "image/jpeg"},
			},
		)
		req := httptest.NewRequest("POST", "/v1/batch", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := createTestApp(NewGalleryHandler(mockService, testLogger())).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var out BatchResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Len(t, out.Results, 3)

		assert.True(t, out.Results[0].Success)
		assert.False(t, out.Results[1].Success)
		assert.Equal(t, "missing name_bob.jpg", out.Results[1].Error)
		assert.False(t, out.Results[2].Success)
		assert.Equal(t, "alice", out.Results[2].Result.Registration.SimilarPerson)
		assert.Equal(t, 2, out.Failed)

		mockService.AssertExpectations(t)
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		tooMany := make([]uploadFile, maxBatchImages+1)
		for i := range tooMany {
			tooMany[i] = uploadFile{name: fmt.Sprintf("%d.jpg", i), content: alice, contentType: "image/jpeg"}
		}

		tests := []struct {
			name           string
			fields         map[string]string
			files          []uploadFile
			expectedStatus int
			expectedCode   string
		}{
			{name: "no images", fields: map[string]string{"action": "recognize"}, expectedStatus: 422, expectedCode: domain.ErrValidationFailed.Code},
			{name: "too many images", files: tooMany, expectedStatus: 422, expectedCode: domain.ErrValidationFailed.Code},
			{
				name:           "unknown action",
				fields:         map[string]string{"action": "verify"},
				files:          []uploadFile{{name: "a.jpg", content: alice, contentType: "image/jpeg"}},
				expectedStatus: 400,
				expectedCode:   domain.ErrInvalidAction.Code,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := &MockGalleryService{}

				body, contentType := createBatchRequest(tt.fields, tt.files)
				req := httptest.NewRequest("POST", "/v1/batch", body)
				req.Header.Set("Content-Type", contentType)

				resp, err := createTestApp(NewGalleryHandler(mockService, testLogger())).Test(req)
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, resp.StatusCode)

				respBody, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(respBody), tt.expectedCode)
				assert.Empty(t, mockService.Calls)
			})
		}
	})
}
