// Package httputil holds the JSON response and request helpers shared by handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "certus/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; the largest legitimate body is an answer sheet.
const maxBodyBytes = 1 << 20

// retryAfterSeconds is advertised on retryable failures.
const retryAfterSeconds = "5"

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// StatusFor maps a domain error code onto an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeExternal:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as the standard error envelope. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := errorResponse{Error: string(code)}
	if status != http.StatusInternalServerError {
		if de, ok := dErrors.As(err); ok {
			resp.ErrorDescription = de.Error()
		}
	}
	if dErrors.Retryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// Normalizer is implemented by requests that trim or default fields after decoding.
type Normalizer interface {
	Normalize()
}

// Validator is implemented by requests with rules the struct tags cannot express.
type Validator interface {
	Validate() error
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// DecodeAndPrepare decodes a JSON body into T, normalizes it, then validates
// struct tags followed by the request's own Validate.
func DecodeAndPrepare[T any](r *http.Request) (*T, error) {
	var req T
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}

	if n, ok := any(&req).(Normalizer); ok {
		n.Normalize()
	}
	if err := structValidator().Struct(&req); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, describeValidation(err))
	}
	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, coded := dErrors.As(err); coded {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
		}
	}
	return &req, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid", "uuid4":
		return fe.Field() + " must be a UUID"
	case "min":
		return fe.Field() + " must contain at least " + fe.Param() + " item(s)"
	case "max":
		return fe.Field() + " must contain at most " + fe.Param() + " item(s)"
	default:
		return fe.Field() + " is invalid"
	}
}
