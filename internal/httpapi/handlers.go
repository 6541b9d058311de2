// Package httpapi is the HTTP surface the core consumes: one endpoint per
// language, plus a generic endpoint, all terminating in Pipeline.Judge. The
// multipart parsing and response encoding here are the "external collaborator"
// layer the spec describes — the core pipeline has no knowledge of HTTP.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sempr/judgecore/internal/admission"
	"github.com/sempr/judgecore/internal/execution"
	"github.com/sempr/judgecore/internal/languages"
	"github.com/sempr/judgecore/internal/pipeline"
	"github.com/sempr/judgecore/internal/sandbox"
	"github.com/sempr/judgecore/internal/validator"
)

// maxMultipartMemory bounds how much of a multipart request is buffered in
// memory before spilling to temp files.
const maxMultipartMemory = 32 << 20 // 32 MiB

// Handler serves the judge endpoints.
type Handler struct {
	pipeline *pipeline.Pipeline
	logger   *zerolog.Logger
}

func NewHandler(p *pipeline.Pipeline, logger *zerolog.Logger) *Handler {
	return &Handler{pipeline: p, logger: logger}
}

// ForLanguage returns a handler bound to a fixed language, for the
// per-language routes (e.g. /languages/java).
func (h *Handler) ForLanguage(lang languages.Language) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, lang)
	}
}

// Generic serves /execute, which reads the language from the form instead of
// the route.
func (h *Handler) Generic(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, fixedLang languages.Language) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			StatusCode: http.StatusBadRequest,
			Status:     "Bad Request",
			Error:      "invalid multipart form: " + err.Error(),
		})
		return
	}

	lang := fixedLang
	if lang == "" {
		lang = languages.Language(r.FormValue("language"))
	}

	req, err := buildRequest(r, lang)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			StatusCode: http.StatusBadRequest,
			Status:     "Bad Request",
			Error:      err.Error(),
		})
		return
	}

	verdict, err := h.pipeline.Judge(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		StatusCode: verdict.StatusCode,
		Status:     string(verdict.Status),
		Output:     verdict.Output,
		Error:      verdict.Error,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var valErr *validator.Error
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, Response{
			StatusCode: http.StatusBadRequest,
			Status:     "Bad Request",
			Error:      valErr.Message,
		})
	case errors.Is(err, admission.ErrThrottled):
		writeJSON(w, http.StatusTooManyRequests, Response{
			StatusCode: http.StatusTooManyRequests,
			Status:     "Too Many Requests",
			Error:      "Request throttled, service reached max allowed requests",
		})
	case errors.Is(err, sandbox.ErrSandboxUnavailable):
		h.logger.Error().Err(err).Msg("sandbox unavailable")
		writeJSON(w, http.StatusInternalServerError, Response{
			StatusCode: http.StatusInternalServerError,
			Status:     "Internal Server Error",
			Error:      "the sandbox engine is unavailable",
		})
	default:
		h.logger.Error().Err(err).Msg("unexpected pipeline failure")
		writeJSON(w, http.StatusInternalServerError, Response{
			StatusCode: http.StatusInternalServerError,
			Status:     "Internal Server Error",
			Error:      "an unexpected error occurred",
		})
	}
}

func buildRequest(r *http.Request, lang languages.Language) (execution.Request, error) {
	source, sourceName, err := readFormFile(r, "sourceCode")
	if err != nil {
		return execution.Request{}, err
	}
	expected, expectedName, err := readFormFile(r, "expectedOutput")
	if err != nil {
		return execution.Request{}, err
	}

	var input []byte
	var inputName string
	if _, ok := r.MultipartForm.File["input"]; ok {
		input, inputName, err = readFormFile(r, "input")
		if err != nil {
			return execution.Request{}, err
		}
	}

	timeLimit, err := strconv.Atoi(r.FormValue("timeLimit"))
	if err != nil {
		return execution.Request{}, errors.New("timeLimit must be an integer number of seconds")
	}
	memoryLimit, err := strconv.Atoi(r.FormValue("memoryLimit"))
	if err != nil {
		return execution.Request{}, errors.New("memoryLimit must be an integer number of megabytes")
	}

	return execution.Request{
		Language:     lang,
		SourceName:   sourceName,
		SourceCode:   source,
		ExpectedName: expectedName,
		Expected:     expected,
		InputName:    inputName,
		Input:        input,
		TimeLimit:    timeLimit,
		MemoryLimit:  memoryLimit,
	}, nil
}

func readFormFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", errors.New(field + " file is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
