package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/joseph-ayodele/techtime/constants"
)

// visionProvider calls a Cloud Vision style images:annotate endpoint.
type visionProvider struct {
	client   *http.Client
	endpoint string
	apiKey   string
	logger   *slog.Logger
}

func (v *visionProvider) Name() string       { return constants.ProviderVision }
func (v *visionProvider) NeedsNetwork() bool { return true }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionVertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description  string `json:"description"`
			BoundingPoly struct {
				Vertices []visionVertex `json:"vertices"`
			} `json:"boundingPoly"`
		} `json:"textAnnotations"`
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (v *visionProvider) Recognize(ctx context.Context, img preparedImage) (Result, error) {
	if v.apiKey == "" {
		return Result{}, newError(constants.OCRNoAPIKey, "OCR_API_KEY is not set", nil)
	}
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(img.Data)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return Result{}, newError(constants.OCRBadImage, "encode request", err)
	}

	u, err := url.Parse(v.endpoint)
	if err != nil {
		return Result{}, newPermanentError(constants.OCRServerError, "invalid OCR endpoint", err)
	}
	q := u.Query()
	q.Set("key", v.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, newPermanentError(constants.OCRServerError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	v.logger.Debug("ocr.vision.request", "endpoint", v.endpoint, "content_length", len(body))
	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			v.logger.Warn("ocr.vision.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	v.logger.Info("ocr.vision.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err := statusError(resp.StatusCode, raw); err != nil {
		return Result{}, err
	}
	return decodeVision(raw)
}

// statusError maps a non-2xx status to a tagged error.
func statusError(status int, raw []byte) error {
	if status/100 == 2 {
		return nil
	}
	cause := fmt.Errorf("status %d: %s", status, truncate(string(raw), 512))
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newError(constants.OCRNoAPIKey, "the OCR API key was rejected", cause)
	case status == http.StatusTooManyRequests:
		return newError(constants.OCRRateLimit, "rate limited by the OCR service", cause)
	case status >= 500:
		return newError(constants.OCRServerError, "OCR service error", cause)
	}
	return newPermanentError(constants.OCRServerError, fmt.Sprintf("OCR request rejected with status %d", status), cause)
}

func decodeVision(raw []byte) (Result, error) {
	var vr visionResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return Result{}, newError(constants.OCRServerError, "malformed OCR response", err)
	}
	if len(vr.Responses) == 0 {
		return Result{}, newError(constants.OCRServerError, "empty OCR response", nil)
	}
	r := vr.Responses[0]
	if r.Error != nil {
		return Result{}, newError(constants.OCRServerError, r.Error.Message,
			fmt.Errorf("vision error code %d", r.Error.Code))
	}

	var res Result
	for i, a := range r.TextAnnotations {
		if i == 0 {
			res.Text = a.Description
			continue
		}
		b := Block{Text: a.Description}
		for _, vx := range a.BoundingPoly.Vertices {
			b.Bounds = append(b.Bounds, Point{X: vx.X, Y: vx.Y})
		}
		res.Blocks = append(res.Blocks, b)
	}
	if fa := r.FullTextAnnotation; fa != nil {
		if res.Text == "" {
			res.Text = fa.Text
		}
		var sum float64
		for _, p := range fa.Pages {
			sum += p.Confidence
		}
		if len(fa.Pages) > 0 {
			res.Confidence = sum / float64(len(fa.Pages))
		}
	}
	return res, nil
}
