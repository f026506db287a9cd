package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/docsquare/docsquare/internal/pipeline"
)

// jpegQuality is the encoding quality of returned images.
const jpegQuality = 95

// Size reports image dimensions in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProcessResponse is the result of processing a single image.
type ProcessResponse struct {
	RotationAngle        float64 `json:"rotation_angle"`
	ProcessingTimeMillis float64 `json:"processing_time_ms"`
	ImageBase64          string  `json:"image_base64"`
	OriginalSize         Size    `json:"original_size"`
	FinalSize            Size    `json:"final_size"`
}

// BatchItemResult pairs one batch file with its processing result.
type BatchItemResult struct {
	Filename string `json:"filename"`
	ProcessResponse
}

// FailedFile reports one batch file that could not be processed.
type FailedFile struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchProcessResponse is the result of a batch request.
type BatchProcessResponse struct {
	TotalProcessed  int               `json:"total_processed"`
	TotalTimeMillis float64           `json:"total_time_ms"`
	Results         []BatchItemResult `json:"results"`
	FailedFiles     []FailedFile      `json:"failed_files"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth responds to liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// handleProcess processes one uploaded image.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	header, err := singleFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.processFile(header)
	if err != nil {
		log.Printf("process %s: %v", header.Filename, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProcessBatch processes up to MaxBatchFiles uploads with a bounded
// worker pool, reporting per-file failures separately from the successes.
func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(files) > MaxBatchFiles {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: %d exceeds the limit of %d", len(files), MaxBatchFiles))
		return
	}

	start := time.Now()
	type outcome struct {
		resp ProcessResponse
		err  error
	}
	outcomes := make([]outcome, len(files))

	var wg sync.WaitGroup
	jobs := make(chan int)
	for i := 0; i < batchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				resp, err := s.processFile(files[idx])
				outcomes[idx] = outcome{resp: resp, err: err}
			}
		}()
	}
	for idx := range files {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	batch := BatchProcessResponse{
		Results:     []BatchItemResult{},
		FailedFiles: []FailedFile{},
	}
	for idx, o := range outcomes {
		name := files[idx].Filename
		if o.err != nil {
			log.Printf("batch process %s: %v", name, o.err)
			batch.FailedFiles = append(batch.FailedFiles, FailedFile{Filename: name, Error: o.err.Error()})
			continue
		}
		batch.Results = append(batch.Results, BatchItemResult{Filename: name, ProcessResponse: o.resp})
		batch.TotalProcessed++
	}
	batch.TotalTimeMillis = float64(time.Since(start).Microseconds()) / 1000
	writeJSON(w, http.StatusOK, batch)
}

// processFile decodes one upload, runs it through a fresh pipeline
// Processor, and encodes the result as base64 JPEG.
func (s *Server) processFile(header *multipart.FileHeader) (ProcessResponse, error) {
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return ProcessResponse{}, fmt.Errorf("unsupported content type %q", ct)
	}

	f, err := header.Open()
	if err != nil {
		return ProcessResponse{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return ProcessResponse{}, fmt.Errorf("decode image: %w", err)
	}

	start := time.Now()
	result, err := pipeline.NewProcessor(s.cfg, s.sink).Process(img)
	if err != nil {
		return ProcessResponse{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result.Image, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return ProcessResponse{}, fmt.Errorf("encode result: %w", err)
	}

	return ProcessResponse{
		RotationAngle:        result.RotationAngle,
		ProcessingTimeMillis: float64(time.Since(start).Microseconds()) / 1000,
		ImageBase64:          base64.StdEncoding.EncodeToString(buf.Bytes()),
		OriginalSize:         sizeOf(img),
		FinalSize:            sizeOf(result.Image),
	}, nil
}

func singleFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("missing %q upload", field)
	}
	return files[0], nil
}

func sizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
