package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/wire"
)

const internalErrorMessage = "internal error"

// statusFor maps domain and decoding errors to an HTTP status and a client
// message. Unknown errors become 500 with a generic message.
func statusFor(err error) (int, string) {
	var (
		syntaxErr   *wire.SyntaxError
		validateErr *wire.ValidationError
		notFound    *invoice.OrderNotFoundError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &validateErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, invoice.ErrEmptyBatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, invoice.ErrInvalidQuantity), errors.Is(err, invoice.ErrInvalidUnitPrice):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}

// InternalError writes the generic 500 body. It serves as the response for
// recovered panics.
func InternalError(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusInternalServerError, internalErrorMessage)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	wire.EncodeError(e, status, msg)
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already sent; a write error means the client went away.
	_, _ = w.Write(body)
}
