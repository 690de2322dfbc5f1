package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/telemetry/logging"
)

// ValidateRequest is the JSON body accepted by POST /validate.
type ValidateRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
}

// ErrorResponse is returned for requests that could not be processed.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// validateHandler checks one interview. The body is either a
// ValidateRequest or, for any other content type, the raw interview text
// with the file name in the "filename" query parameter.
type validateHandler struct {
	checker  *dayaml.Checker
	logger   *logging.Logger
	maxBytes int64
}

func (h *validateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)

	req, err := decodeValidateRequest(r, body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, r, status, err.Error())
		return
	}

	ctx = logging.WithFile(ctx, req.Filename)
	result := h.checker.Check(ctx, req.Filename, req.Content)
	h.logger.InfoContext(ctx, "validated interview",
		"errors", len(result.Errors),
		"real", result.RealCount(),
		"jinja", result.Jinja,
	)

	writeJSON(w, http.StatusOK, result.Report())
}

func decodeValidateRequest(r *http.Request, body io.Reader) (ValidateRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req ValidateRequest
		decoder := json.NewDecoder(body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return req, err
			}
			return req, errors.New("invalid JSON body: " + err.Error())
		}
		return req, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return ValidateRequest{}, err
	}
	return ValidateRequest{Content: string(data), Filename: r.URL.Query().Get("filename")}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		RequestID: logging.GetRequestID(r.Context()),
	})
}
