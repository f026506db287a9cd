package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/docsquare/docsquare/internal/pipeline"
)

// smallImage creates an image below the pipeline's minimum dimension so
// uploads take the fast minimal path
func smallImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// addFilePart appends a file part with an explicit content type, which
// multipart.Writer.CreateFormFile does not allow
func addFilePart(t *testing.T, w *multipart.Writer, field, filename, contentType string, data []byte) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
}

func newTestServer() *Server {
	return New(pipeline.DefaultConfig(), nil, "test")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
}

func TestHealthMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestProcessSingleImage(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	addFilePart(t, w, "file", "doc.png", "image/png", pngBytes(t, smallImage(60, 60)))
	w.Close()

	resp, err := http.Post(srv.URL+"/process", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /process: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var pr ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pr.OriginalSize != (Size{Width: 60, Height: 60}) {
		t.Errorf("original size = %+v", pr.OriginalSize)
	}
	// Small uploads take the minimal path: padded, never rotated.
	if pr.FinalSize != (Size{Width: 140, Height: 140}) {
		t.Errorf("final size = %+v, want 140x140", pr.FinalSize)
	}
	if pr.RotationAngle != 0 {
		t.Errorf("rotation angle = %v", pr.RotationAngle)
	}
	decoded, err := base64.StdEncoding.DecodeString(pr.ImageBase64)
	if err != nil || len(decoded) == 0 {
		t.Errorf("image_base64 is not valid base64: %v", err)
	}
}

func TestProcessRejectsNonImageContentType(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	addFilePart(t, w, "file", "doc.txt", "text/plain", []byte("not an image"))
	w.Close()

	resp, err := http.Post(srv.URL+"/process", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /process: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestProcessBatchTooManyFiles(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	png := pngBytes(t, smallImage(20, 20))
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i := 0; i < MaxBatchFiles+1; i++ {
		addFilePart(t, w, "files", "doc.png", "image/png", png)
	}
	w.Close()

	resp, err := http.Post(srv.URL+"/process-batch", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /process-batch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	addFilePart(t, w, "files", "good.png", "image/png", pngBytes(t, smallImage(40, 40)))
	addFilePart(t, w, "files", "bad.png", "image/png", []byte("corrupt bytes"))
	w.Close()

	resp, err := http.Post(srv.URL+"/process-batch", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /process-batch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var batch BatchProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.TotalProcessed != 1 || len(batch.Results) != 1 {
		t.Errorf("processed = %d, results = %d", batch.TotalProcessed, len(batch.Results))
	}
	if len(batch.FailedFiles) != 1 || batch.FailedFiles[0].Filename != "bad.png" {
		t.Errorf("failed files = %+v", batch.FailedFiles)
	}
}
