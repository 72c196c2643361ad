package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/pkg/types"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, types.Data{Data: v})
}

func statusFor(kind race.ErrorKind) int {
	switch kind {
	case race.KindInvalid:
		return http.StatusBadRequest
	case race.KindNotFound:
		return http.StatusNotFound
	case race.KindNotActive, race.KindNoActiveSession:
		return http.StatusUnprocessableEntity
	case race.KindConflict:
		return http.StatusConflict
	case race.KindDoubleCount:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a tracker error onto a status and the error envelope.
// Internal failures are logged and hidden from the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := race.KindOf(err)
	body := types.Error{Kind: string(kind), Error: "internal error"}

	var re *race.Error
	if kind != race.KindInternal && errors.As(err, &re) && re.Msg != "" {
		body.Error = re.Msg
	}
	if kind == race.KindInternal {
		log.Error("request failed", zap.Error(err))
	}
	if kind == race.KindDoubleCount {
		body.RetryAfter = race.RetryAfter(err)
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	writeJSON(w, statusFor(kind), body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return race.Errorf("httpapi.decode", race.KindInvalid, "bad json: %v", err)
	}
	return nil
}
