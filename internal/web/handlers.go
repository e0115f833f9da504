package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/logging"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/web/templates"
)

// formOverhead is the room left for multipart boundaries and headers on top of
// the file size limit.
const formOverhead = 1 << 20

// maxHistoryLimit caps the limit query parameter of /api/runs.
const maxHistoryLimit = 100

var (
	errUnsupportedType = errors.New("unsupported file type")
	errHistoryDisabled = errors.New("run history is not configured")
)

// allowedExtensions are the upload types the loader can read.
var allowedExtensions = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// cleanResult is a finished upload run. The cleaned file lives in dir until
// cleanup is called.
type cleanResult struct {
	report  core.Report
	output  string
	name    string
	ext     string
	cleanup func()
}

// handleIndex renders the upload page with the most recent runs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var runs []core.Report
	if s.history != nil {
		var err error
		runs, err = s.history.Recent(r.Context(), core.DefaultHistoryLimit)
		if err != nil {
			// The page still works without history
			logging.FromContext(r.Context()).Warn("failed to load run history", "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.IndexPage(templates.IndexData{
		Runs:           runs,
		HistoryEnabled: s.history != nil,
		KeyRequired:    len(s.cfg.APIKeys) > 0,
		MaxFileSize:    s.maxFileSize,
	})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("failed to render page", "error", err)
	}
}

// handleHealth reports liveness and current load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":      "ok",
		"active_runs": s.limiter.Active(),
		"capacity":    s.limiter.Capacity(),
	})
}

// handleClean cleans an uploaded file and returns the result as an attachment.
// Run counters are sent as X-Clean-* headers.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	res, err := s.cleanUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer res.cleanup()

	f, err := os.Open(res.output)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", allowedExtensions[res.ext])
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.name))
	h.Set("X-Clean-Run-Id", res.report.RunID)
	h.Set("X-Clean-Rows-Read", strconv.Itoa(res.report.RowsRead))
	h.Set("X-Clean-Duplicates-Removed", strconv.Itoa(res.report.DuplicatesRemoved))
	h.Set("X-Clean-Rows-Written", strconv.Itoa(res.report.RowsWritten))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		logging.FromContext(r.Context()).Warn("failed to stream cleaned file", "error", err)
	}
}

// handleCleanReport cleans an uploaded file and returns only the run report.
func (s *Server) handleCleanReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.cleanUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer res.cleanup()

	render.JSON(w, r, res.report)
}

// handleListRuns returns recent run reports, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, r, errHistoryDisabled, http.StatusNotFound)
		return
	}

	limit := core.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.Report{}
	}
	render.JSON(w, r, runs)
}

// cleanUpload stores the multipart "file" field in a temporary directory and
// runs the pipeline on it. Concurrent runs are bounded by the run limiter.
func (s *Server) cleanUpload(w http.ResponseWriter, r *http.Request) (*cleanResult, error) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+formOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: upload exceeds limit of %d bytes", core.ErrFileTooLarge, s.maxFileSize)
		}
		return nil, errNoFile
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", errUnsupportedType, ext)
	}

	dir, err := os.MkdirTemp("", "cleaner-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	in := filepath.Join(dir, "source"+ext)
	if err := saveUpload(in, file); err != nil {
		cleanup()
		return nil, err
	}

	out := filepath.Join(dir, "cleaned"+ext)
	report, err := s.pipeline.Run(core.ContextWithSourceName(ctx, name), in, out)
	if err != nil {
		cleanup()
		return nil, err
	}

	report.Output = cleanedName(name)
	return &cleanResult{
		report:  report,
		output:  out,
		name:    report.Output,
		ext:     ext,
		cleanup: cleanup,
	}, nil
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("store upload: %w", err)
	}
	return dst.Close()
}

// cleanedName is the download name for a cleaned upload.
func cleanedName(name string) string {
	return "applied_changes_" + name
}
