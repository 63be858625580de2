package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("booking: empty request body")

// Submitter is the part of Service the HTTP handler needs.
type Submitter interface {
	Submit(ctx context.Context, fields map[string]string, clientID string) Result
}

// Handler accepts booking form posts.
type Handler struct {
	svc    Submitter
	logger *logging.Logger
}

func NewHandler(svc Submitter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// ErrorResponse is the body of every failed submission.
type ErrorResponse struct {
	Error       string            `json:"error"`
	FieldErrors leads.FieldErrors `json:"fieldErrors,omitempty"`
}

// SuccessResponse is returned to clients asking for JSON.
type SuccessResponse struct {
	Redirect  string `json:"redirect"`
	Reference string `json:"reference"`
	FirstName string `json:"first_name"`
}

// Submit handles POST /booking.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	fields, err := readFields(r)
	if err != nil {
		h.logger.Debug("unreadable booking body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	res := h.svc.Submit(r.Context(), fields, ClientIdentifier(r))

	switch res.Outcome {
	case OutcomeAccepted, OutcomeHoneypot:
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, SuccessResponse{
				Redirect:  res.RedirectURL(),
				Reference: res.Reference,
				FirstName: res.FirstName,
			})
			return
		}
		http.Redirect(w, r, res.RedirectURL(), http.StatusSeeOther)
	case OutcomeInvalid, OutcomeConsentMissing:
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: res.Error, FieldErrors: res.FieldErrors})
	case OutcomeRateLimited:
		if res.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+0.5)))
		}
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: res.Error})
	default:
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: res.Error})
	}
}

func readFields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		return decodeJSONFields(r)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

// decodeJSONFields flattens a JSON object to form values. Booleans map to
// the checkbox marker so JSON clients can send "consent": true.
func decodeJSONFields(r *http.Request) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errEmptyBody
	}
	fields := make(map[string]string, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case string:
			fields[key] = val
		case bool:
			if val {
				fields[key] = leads.CheckedMarker
			}
		case float64:
			fields[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
		default:
			return nil, fmt.Errorf("booking: field %q has unsupported type %T", key, v)
		}
	}
	return fields, nil
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
