package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeAndValidate reads a JSON body into out and runs its validate tags.
// Any problem is reported as domain.ErrInvalidInput.
func decodeAndValidate(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return invalidInput("failed to read body")
	}
	if len(body) == 0 {
		return invalidInput("request body is required")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return invalidInput("invalid JSON body")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalidInput(fe.Field() + " failed '" + fe.Tag() + "' validation")
		}
		return invalidInput(err.Error())
	}
	return nil
}

type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }
func (e *inputError) Unwrap() error { return domain.ErrInvalidInput }

func invalidInput(msg string) error { return &inputError{msg: msg} }

// parseDay parses a YYYY-MM-DD query or body value.
func parseDay(field, s string) (time.Time, error) {
	t, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, invalidInput(field + ": " + err.Error())
	}
	return t, nil
}

// writeError maps err to a status and logs server-side failures.
func writeError(w http.ResponseWriter, mapper *ErrorMapper, logger *zap.Logger, op string, err error) {
	info := mapper.Map(err)
	if info.Status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
	} else {
		logger.Debug(op+" rejected", zap.Int("status", info.Status), zap.Error(err))
	}
	writeJSON(w, info.Status, Fail(info.Message))
}
