// Package responses writes the JSON envelopes every handler returns:
// {"success":true,"data":...} or {"success":false,"error":...,"code":...}.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// encodeFailure is sent when a payload cannot be marshalled.
var encodeFailure = []byte(`{"success":false,"error":"internal server error","code":"INTERNAL_ERROR"}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Data: data})
}

// WriteError renders err as an error envelope. Errors without a code are
// treated as internal; the client only sees what the code's metadata allows,
// while the log gets the whole chain.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	status, msg, details := typed.Public()
	logRejection(ctx, logg, status, err)
	writeJSON(w, status, types.ErrorEnvelope{
		Error:   msg,
		Code:    string(typed.Code()),
		Details: details,
	})
}

func logRejection(ctx context.Context, logg *logger.Logger, status int, err error) {
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, encodeFailure
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
