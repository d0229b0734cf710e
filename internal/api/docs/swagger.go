package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// PersonData represents the recognized person
type PersonData struct {
	ID         string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name       string  `json:"name" example:"alice"`
	Confidence float64 `json:"confidence" example:"0.92"`
}

// ContextData represents the match context derived from similar faces
type ContextData struct {
	Context         string   `json:"context" example:"Similar person: alice (similarity: 0.920)"`
	Recommendations []string `json:"recommendations" example:"High confidence match - this is likely the same person"`
	Confidence      float64  `json:"confidence" example:"0.92"`
	SimilarCount    int      `json:"similar_count" example:"1"`
}

// TechnicalData describes the query face
type TechnicalData struct {
	FaceQuality    float64 `json:"face_quality" example:"1.0"`
	DetectionScore float64 `json:"detection_score" example:"0.98"`
	BBox           []int   `json:"bbox" example:"10,20,210,260"`
	SimilarCount   int     `json:"similar_faces_count" example:"1"`
}

// MatchData represents a search hit
type MatchData struct {
	FaceID     string  `json:"face_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name       string  `json:"name" example:"alice"`
	Similarity float64 `json:"similarity" example:"0.87"`
	Index      int     `json:"index" example:"0"`
}

// MutationData reports an enroll, delete or clear outcome
type MutationData struct {
	Success        bool   `json:"success" example:"true"`
	FaceID         string `json:"face_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Message        string `json:"message,omitempty" example:"Successfully registered alice"`
	Error          string `json:"error,omitempty" example:""`
	Code           string `json:"code,omitempty" example:""`
	SimilarPerson  string `json:"similar_person,omitempty" example:""`
	Deleted        int64  `json:"deleted,omitempty" example:"0"`
	CacheRefreshed bool   `json:"cache_refreshed" example:"true"`
}

// ResultResponse represents the response of recognize, search and register
type ResultResponse struct {
	Timestamp         string        `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Action            string        `json:"action" example:"recognize"`
	FaceDetected      bool          `json:"face_detected" example:"true"`
	Context           ContextData   `json:"context"`
	Recognized        bool          `json:"recognized,omitempty" example:"true"`
	Person            PersonData    `json:"person,omitempty"`
	RegistrationReady bool          `json:"registration_ready,omitempty" example:"false"`
	SearchResults     []MatchData   `json:"search_results,omitempty"`
	Message           string        `json:"message" example:"Recognized as alice with 92.0% confidence"`
	Technical         TechnicalData `json:"technical"`
	Registration      MutationData  `json:"registration,omitempty"`
}

// SignatureData represents an extracted face signature
type SignatureData struct {
	Embedding    []float64 `json:"embedding" example:"0.01,-0.02"`
	DetScore     float64   `json:"det_score" example:"0.98"`
	QualityScore float64   `json:"quality_score" example:"1.0"`
	BBox         []int     `json:"bbox" example:"10,20,210,260"`
}

// ExtractResponse represents the response of the extract endpoint
type ExtractResponse struct {
	Signature  SignatureData `json:"signature"`
	Dimensions int           `json:"dimensions" example:"512"`
}

// BatchItemData is the outcome for one uploaded file
type BatchItemData struct {
	Filename string         `json:"filename" example:"alice.jpg"`
	Success  bool           `json:"success" example:"true"`
	Result   ResultResponse `json:"result,omitempty"`
	Error    string         `json:"error,omitempty" example:""`
}

// BatchResponse represents the response of the batch endpoint
type BatchResponse struct {
	Action    string          `json:"action" example:"recognize"`
	Processed int             `json:"processed" example:"3"`
	Failed    int             `json:"failed" example:"0"`
	Results   []BatchItemData `json:"results"`
}

// StatusResponse represents gallery status
type StatusResponse struct {
	Status             string `json:"status" example:"healthy"`
	TotalFaces         int    `json:"total_faces" example:"42"`
	TotalRecognitions  int64  `json:"total_recognitions" example:"1337"`
	ExtractorAvailable bool   `json:"extractor_available" example:"true"`
	CacheStale         bool   `json:"cache_stale" example:"false"`
	CacheBuiltAt       string `json:"cache_built_at" example:"2024-01-01T00:00:00Z"`
	LastUpdated        string `json:"last_updated" example:"2024-01-01T00:00:00Z"`
}

// PersonSummaryData represents one person in the listing
type PersonSummaryData struct {
	Name             string `json:"name" example:"alice"`
	ImageCount       int    `json:"image_count" example:"2"`
	RecognitionCount int64  `json:"recognition_count" example:"17"`
	LastSeen         string `json:"last_seen" example:"2024-01-01T00:00:00Z"`
}

// PeopleResponse represents the people listing
type PeopleResponse struct {
	People []PersonSummaryData `json:"people"`
	Total  int                 `json:"total" example:"1"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

var (
	errInvalidImage = response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity")
	errExtractor    = response.New(ErrorResponse{Code: "EXTRACTOR_UNAVAILABLE", Message: "Face signature extractor is unavailable"}, "503", "Service Unavailable")
	errStore        = response.New(ErrorResponse{Code: "STORE_UNAVAILABLE", Message: "Gallery store is unavailable"}, "503", "Service Unavailable")
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
)

func imageEndpoint(path, summary, description string, ok response.Response) *endpoint.EndPoint {
	return endpoint.New(
		endpoint.POST,
		path,
		endpoint.WithTags("Gallery"),
		endpoint.WithSummary(summary),
		endpoint.WithDescription(description),
		endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
		endpoint.WithProduce([]mime.MIME{mime.JSON}),
		endpoint.WithSuccessfulReturns([]response.Response{ok}),
		endpoint.WithErrors([]response.Response{errInvalidImage, errExtractor, errInternal}),
	)
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Face Gallery API",
		Version:     "v1.0.0",
		Description: "Face recognition against a local gallery of enrolled identities",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		imageEndpoint("/recognize", "Recognize the person in an image",
			"Multipart field image. Returns recognized=true with the best match when the mean similarity of the matches passes the recognition threshold.",
			response.New(ResultResponse{}, "200", "Recognition completed")),

		imageEndpoint("/search", "Search similar faces",
			"Multipart field image. Returns up to top_k gallery matches above the similarity threshold, best first.",
			response.New(ResultResponse{}, "200", "Search completed")),

		imageEndpoint("/extract", "Extract the face signature",
			"Multipart field image. Returns the normalized embedding of the best face without touching the gallery.",
			response.New(ExtractResponse{}, "200", "Signature extracted")),

		endpoint.New(
			endpoint.POST,
			"/register",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Register a face under a name"),
			endpoint.WithDescription("Multipart fields image, name and optional tags, locations (comma separated) and notes. Refused when the face is already enrolled."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ResultResponse{}, "201", "Face registered"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_NAME", Message: "Person name is required"}, "422", "Unprocessable Entity"),
				response.New(ResultResponse{}, "409", "Similar face already exists"),
				errExtractor,
				errStore,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/process",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Process a base64 image"),
			endpoint.WithDescription("JSON body {image_data, action, person_name, tags, locations, notes}. image_data is base64, optionally as a data:image URL. action is recognize (default), search or register; register enrolls when person_name is set."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ResultResponse{}, "200", "Request processed"),
				response.New(ResultResponse{}, "201", "Face registered"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_ACTION", Message: "Invalid action"}, "400", "Bad Request"),
				response.New(ResultResponse{}, "409", "Similar face already exists"),
				errInvalidImage,
				errExtractor,
				errStore,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/batch",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Process up to 10 images"),
			endpoint.WithDescription("Multipart files images (max 10) and field action. Registering takes the name of each file from the field name_<filename>. Failures are reported per file."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(BatchResponse{}, "200", "Batch processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_ACTION", Message: "Invalid action"}, "400", "Bad Request"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/status",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Gallery status"),
			endpoint.WithDescription("Gallery size, total recognitions and extractor availability"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{}, "200", "Status"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/people",
			endpoint.WithTags("People"),
			endpoint.WithSummary("List enrolled people"),
			endpoint.WithDescription("Identities grouped by name with image and recognition counts"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PeopleResponse{}, "200", "People"),
			}),
			endpoint.WithErrors([]response.Response{errStore}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/people/{name}",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Delete a person"),
			endpoint.WithDescription("Removes every identity record with the given name. Recognition logs are kept."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("name", parameter.Path, parameter.WithDescription("Person name")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MutationData{}, "200", "Person deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "PERSON_NOT_FOUND", Message: "No person found with that name"}, "404", "Not Found"),
				errStore,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/gallery",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Clear the gallery"),
			endpoint.WithDescription("Removes every identity and every recognition log"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MutationData{}, "200", "Gallery cleared"),
			}),
			endpoint.WithErrors([]response.Response{errStore}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
