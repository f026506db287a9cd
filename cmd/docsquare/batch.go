package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/docsquare/docsquare/internal/pipeline"
	"github.com/docsquare/docsquare/internal/trace"
)

// supportedExtensions lists the input formats the loader can decode.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// batchRunner processes files from the command line and writes results to
// the output directory.
type batchRunner struct {
	cfg    pipeline.Config
	sink   trace.Sink
	outDir string
	base64 bool
}

type fileOutcome struct {
	name   string
	angle  float64
	millis float64
	err    error
}

// Run processes a single file or every supported image in a directory.
func (r *batchRunner) Run(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var files []string
	if info.IsDir() {
		files, err = listImages(path)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no supported images in %s", path)
		}
	} else {
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return fmt.Errorf("unsupported file type: %s", path)
		}
		files = []string{path}
	}

	outcomes := r.processAll(files)
	return summarize(outcomes)
}

// processAll runs the files through a bounded worker pool, one fresh
// Processor per file, printing progress as each file completes.
func (r *batchRunner) processAll(files []string) []fileOutcome {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	if workers > len(files) {
		workers = len(files)
	}

	outcomes := make([]fileOutcome, len(files))
	jobs := make(chan int)
	var (
		wg        sync.WaitGroup
		printMu   sync.Mutex
		completed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				o := r.processOne(files[idx])
				outcomes[idx] = o

				printMu.Lock()
				completed++
				mark := "✓"
				detail := fmt.Sprintf("%+.2f°  %.0fms", o.angle, o.millis)
				if o.err != nil {
					mark = "✗"
					detail = o.err.Error()
				}
				fmt.Printf("[%2d/%d] %-40s %s %s\n", completed, len(files), o.name, detail, mark)
				printMu.Unlock()
			}
		}()
	}
	for idx := range files {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// processOne loads, processes, and saves a single file.
func (r *batchRunner) processOne(path string) fileOutcome {
	name := filepath.Base(path)
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fileOutcome{name: name, err: fmt.Errorf("load: %w", err)}
	}

	start := time.Now()
	result, err := pipeline.NewProcessor(r.cfg, r.sink).Process(img)
	if err != nil {
		return fileOutcome{name: name, err: err}
	}
	millis := float64(time.Since(start).Microseconds()) / 1000

	if err := r.save(name, result); err != nil {
		return fileOutcome{name: name, err: err}
	}
	return fileOutcome{name: name, angle: result.RotationAngle, millis: millis}
}

// save writes the processed image either as a JPEG or as a base64 text file.
func (r *batchRunner) save(name string, result *pipeline.Result) error {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if r.base64 {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, result.Image, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
		return os.WriteFile(filepath.Join(r.outDir, stem+".b64"), []byte(encoded), 0o644)
	}
	out := filepath.Join(r.outDir, stem+".jpg")
	if err := imaging.Save(result.Image, out, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// listImages returns the supported images directly inside dir, sorted by
// name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// summarize prints the batch totals and returns an error when every file
// failed.
func summarize(outcomes []fileOutcome) error {
	var (
		processed int
		failed    int
		totalMs   float64
		maxMs     float64
	)
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			continue
		}
		processed++
		totalMs += o.millis
		if o.millis > maxMs {
			maxMs = o.millis
		}
	}

	fmt.Println()
	fmt.Printf("Processed %d, failed %d\n", processed, failed)
	if processed > 0 {
		fmt.Printf("Timing: avg %.0fms, max %.0fms\n", totalMs/float64(processed), maxMs)
	}
	if processed == 0 {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}
