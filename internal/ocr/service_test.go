package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	path := filepath.Join(t.TempDir(), "card.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func visionConfig(endpoint string) common.OCRConfig {
	return common.OCRConfig{
		Provider:   constants.ProviderVision,
		APIKey:     "test-key",
		Endpoint:   endpoint,
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}
}

func TestPerformOCR_VisionSuccess(t *testing.T) {
	var gotKey string
	var gotBody visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"responses":[{
			"textAnnotations":[
				{"description":"WIP No: 48291\r\nReg: AB12 CDE"},
				{"description":"WIP","boundingPoly":{"vertices":[{"x":1,"y":2},{"x":30,"y":2}]}}
			],
			"fullTextAnnotation":{"text":"ignored","pages":[{"confidence":0.9},{"confidence":0.7}]}
		}]}`))
	}))
	defer srv.Close()

	svc := NewService(visionConfig(srv.URL), nil, WithConnectivity(StaticConnectivity(true)))
	res, err := svc.PerformOCR(context.Background(), writePNG(t, 40, 20))
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Requests, 1)
	assert.Equal(t, "TEXT_DETECTION", gotBody.Requests[0].Features[0].Type)
	assert.NotEmpty(t, gotBody.Requests[0].Image.Content)

	assert.Equal(t, "WIP No: 48291\nReg: AB12 CDE", res.Text)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, []Point{{X: 1, Y: 2}, {X: 30, Y: 2}}, res.Blocks[0].Bounds)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, constants.ProviderVision, res.Provider)
}

func TestPerformOCR_OfflineFailsWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	svc := NewService(visionConfig(srv.URL), nil, WithConnectivity(StaticConnectivity(false)))
	start := time.Now()
	res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))

	require.Error(t, err)
	assert.Equal(t, constants.OCROffline, CodeOf(err))
	assert.Equal(t, 0, res.Attempts)
	assert.Zero(t, atomic.LoadInt32(&hits))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, UserMessage(err), "No internet connection")
}

func TestPerformOCR_RetriesTransientFailures(t *testing.T) {
	for _, tc := range []struct {
		status int
		code   string
	}{
		{http.StatusTooManyRequests, constants.OCRRateLimit},
		{http.StatusServiceUnavailable, constants.OCRServerError},
	} {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(tc.status)
		}))

		svc := NewService(visionConfig(srv.URL), nil, WithConnectivity(StaticConnectivity(true)))
		res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, tc.code, CodeOf(err))
		assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "MaxRetries+1 attempts for %d", tc.status)
		assert.Equal(t, 3, res.Attempts)
	}
}

func TestPerformOCR_PermanentFailuresNotRetried(t *testing.T) {
	for _, tc := range []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, constants.OCRNoAPIKey},
		{http.StatusForbidden, constants.OCRNoAPIKey},
		{http.StatusBadRequest, constants.OCRServerError},
		{http.StatusNotFound, constants.OCRServerError},
		{http.StatusUnprocessableEntity, constants.OCRServerError},
	} {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(tc.status)
		}))

		svc := NewService(visionConfig(srv.URL), nil, WithConnectivity(StaticConnectivity(true)))
		_, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, tc.code, CodeOf(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "status %d", tc.status)
	}
}

func TestPerformOCR_RecoversAfterTransientFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[{"description":"WIP 12345"}]}]}`))
	}))
	defer srv.Close()

	svc := NewService(visionConfig(srv.URL), nil, WithConnectivity(StaticConnectivity(true)))
	res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "WIP 12345", res.Text)
	assert.Greater(t, res.Confidence, 0.0, "heuristic confidence when provider reports none")
}

func TestPerformOCR_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := visionConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 0
	svc := NewService(cfg, nil, WithConnectivity(StaticConnectivity(true)))

	_, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
	require.Error(t, err)
	assert.Equal(t, constants.OCRTimeout, CodeOf(err))
}

func TestPerformOCR_CancelledParentIsAborted(t *testing.T) {
	svc := NewService(visionConfig("http://127.0.0.1:1"), nil, WithConnectivity(StaticConnectivity(true)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.PerformOCR(ctx, writePNG(t, 10, 10))
	require.Error(t, err)
	assert.Equal(t, constants.OCRAborted, CodeOf(err))
}

func TestPerformOCR_MockAndNoneProviders(t *testing.T) {
	path := writePNG(t, 10, 10)

	mock := NewService(common.OCRConfig{Provider: constants.ProviderMock}, nil, WithConnectivity(StaticConnectivity(false)))
	res, err := mock.PerformOCR(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "WIP No: 482913")
	assert.False(t, res.LowConfidence())

	none := NewService(common.OCRConfig{Provider: constants.ProviderNone}, nil)
	_, err = none.PerformOCR(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, constants.OCRNoAPIKey, CodeOf(err))
}

func TestPerformOCR_BadImage(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	svc := NewService(common.OCRConfig{Provider: constants.ProviderMock}, nil)
	for _, p := range []string{empty, garbage, filepath.Join(dir, "notes.txt"), filepath.Join(dir, "missing.jpg")} {
		_, err := svc.PerformOCR(context.Background(), p)
		require.Error(t, err, p)
		assert.Equal(t, constants.OCRBadImage, CodeOf(err), p)
	}
}

func TestImagePrep_Downscales(t *testing.T) {
	p := imagePrep{maxDimension: 100, logger: slog.Default()}
	img, err := p.prepare(context.Background(), writePNG(t, 300, 150))
	require.NoError(t, err)
	assert.True(t, img.Downscaled)
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 50, img.Height)

	small, err := p.prepare(context.Background(), writePNG(t, 80, 40))
	require.NoError(t, err)
	assert.False(t, small.Downscaled)
}

type fakeRunner struct {
	calls [][]string
	out   map[bool][]byte // keyed by tsv mode
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	tsv := len(args) > 0 && args[len(args)-1] == "tsv"
	return f.out[tsv], nil, nil
}

func TestPerformOCR_TesseractUsesRunner(t *testing.T) {
	r := &fakeRunner{out: map[bool][]byte{
		false: []byte("Job No: 7781\n\n\n\nWIP 99812\n"),
		true: []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
			"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tJob\n" +
			"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tNo\n" +
			"4\t1\t1\t1\t1\t0\t0\t0\t10\t10\t-1\t\n"),
	}}
	svc := NewService(common.OCRConfig{Provider: constants.ProviderTesseract, TesseractBin: "tess"}, nil, WithRunner(r))

	res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "Job No: 7781\n\nWIP 99812", res.Text)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	require.Len(t, r.calls, 2)
	assert.Equal(t, "tess", r.calls[0][0])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "WIP No: 12345\nReg AB12 CDE", Normalize("ＷＩＰ No:\t12345  \r\n-----\r\nReg   AB12 CDE  "))
	assert.Equal(t, "", Normalize(""))
}

func TestUserMessageCoversCodes(t *testing.T) {
	for _, code := range []string{
		constants.OCRTimeout, constants.OCRRateLimit, constants.OCROffline, constants.OCRNoAPIKey,
		constants.OCRServerError, constants.OCRAborted, constants.OCRBadImage, constants.OCRNoText,
	} {
		msg := newError(code, "x", nil).UserMessage()
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, code)
	}
	assert.Equal(t, "Scan cancelled.", common.UserMessage(newError(constants.OCRAborted, "x", nil)))
}

type failingRunner struct {
	calls int
}

func (f *failingRunner) Run(context.Context, string, ...string) ([]byte, []byte, error) {
	f.calls++
	return nil, []byte("Error opening data file eng.traineddata"), errors.New("exit status 1")
}

func TestPerformOCR_TesseractFailureNotRetried(t *testing.T) {
	r := &failingRunner{}
	svc := NewService(common.OCRConfig{
		Provider:     constants.ProviderTesseract,
		TesseractBin: "tess",
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBase:    time.Millisecond,
	}, nil, WithRunner(r))

	res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
	require.Error(t, err)
	assert.Equal(t, constants.OCRServerError, CodeOf(err))
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1, res.Attempts)
}

func TestPerformOCR_InvalidEndpointNotRetried(t *testing.T) {
	svc := NewService(visionConfig("http://[::1"), nil, WithConnectivity(StaticConnectivity(true)))

	res, err := svc.PerformOCR(context.Background(), writePNG(t, 10, 10))
	require.Error(t, err)
	assert.Equal(t, constants.OCRServerError, CodeOf(err))
	assert.Equal(t, 1, res.Attempts)
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{name: "server error", err: newError(constants.OCRServerError, "x", nil), want: true},
		{name: "rate limit", err: newError(constants.OCRRateLimit, "x", nil), want: true},
		{name: "timeout", err: newError(constants.OCRTimeout, "x", nil), want: true},
		{name: "rejected request", err: newPermanentError(constants.OCRServerError, "x", nil), want: false},
		{name: "no key", err: newError(constants.OCRNoAPIKey, "x", nil), want: false},
		{name: "offline", err: newError(constants.OCROffline, "x", nil), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
	assert.Nil(t, statusError(http.StatusOK, nil))
	assert.True(t, statusError(http.StatusBadGateway, nil).(*Error).Retryable())
	assert.False(t, statusError(http.StatusBadRequest, nil).(*Error).Retryable())
}
