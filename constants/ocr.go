package constants

// OCR error codes surfaced to callers. Values are stable and shown in logs.
const (
	OCRTimeout     = "OCR_TIMEOUT"
	OCRRateLimit   = "OCR_RATE_LIMIT"
	OCROffline     = "OCR_OFFLINE"
	OCRNoAPIKey    = "OCR_NO_API_KEY"
	OCRServerError = "OCR_SERVER_ERROR"
	OCRAborted     = "OCR_ABORTED"
	OCRBadImage    = "OCR_BAD_IMAGE"
	OCRNoText      = "OCR_NO_TEXT"
)

// OCR providers selectable through configuration.
const (
	ProviderVision    = "vision"
	ProviderMock      = "mock"
	ProviderTesseract = "tesseract"
	ProviderNone      = "none"
)

// DefaultVisionEndpoint is the Cloud Vision images:annotate REST endpoint.
const DefaultVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// LowConfidenceThreshold flags OCR output worth a manual check.
const LowConfidenceThreshold = 0.6
