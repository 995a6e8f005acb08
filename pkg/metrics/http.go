package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
)

type resultCodeHandler func(*newrelic.Transaction, string)

const (
	httpResponseStatusCodeLevelAttributeKey = "http.response.statusCodeLevel"

	resultCodeAttributeKey      = "memo.response.resultCode"
	resultCodeLevelAttributeKey = "memo.response.resultCodeLevel"

	infoLevel    = "info"
	warningLevel = "warning"
	errorLevel   = "error"
)

var (
	resultCodeHandlers = map[string]resultCodeHandler{
		"OK":            infoResultCodeHandler,
		"NOT_FOUND":     infoResultCodeHandler,
		"EMPTY_MEMO":    infoResultCodeHandler,
		"TOO_LONG":      infoResultCodeHandler,
		"NO_WALLET":     infoResultCodeHandler,
		"NOT_RETRIABLE": infoResultCodeHandler,

		"USER_CANCELLED":     warningResultCodeHandler,
		"INSUFFICIENT_FUNDS": warningResultCodeHandler,
		"TIMEOUT":            warningResultCodeHandler,
		"IN_FLIGHT":          warningResultCodeHandler,
		"RATE_LIMITED":       warningResultCodeHandler,
	}
	defaultResultCodeHandler = errorResultCodeHandler
)

func infoResultCodeHandler(m *newrelic.Transaction, resultCode string) {
	m.AddAttribute(resultCodeAttributeKey, resultCode)
	m.AddAttribute(resultCodeLevelAttributeKey, infoLevel)
}

func warningResultCodeHandler(m *newrelic.Transaction, resultCode string) {
	m.AddAttribute(resultCodeAttributeKey, resultCode)
	m.AddAttribute(resultCodeLevelAttributeKey, warningLevel)
}

func errorResultCodeHandler(m *newrelic.Transaction, resultCode string) {
	m.AddAttribute(resultCodeAttributeKey, resultCode)
	m.AddAttribute(resultCodeLevelAttributeKey, errorLevel)
	m.NoticeError(&newrelic.Error{
		Class: "Memo Result: " + resultCode,
	})
}

// RecordResultCode annotates the transaction carried by r with a
// submission result code. Unknown codes are treated as errors.
func RecordResultCode(r *http.Request, resultCode string) {
	txn := newrelic.FromContext(r.Context())
	if txn == nil {
		return
	}

	handler, ok := resultCodeHandlers[resultCode]
	if !ok {
		handler = defaultResultCodeHandler
	}
	handler(txn, resultCode)
}

// HTTPMiddleware wraps each request in a New Relic web transaction, injects
// the application for downstream Record* calls and counts requests per chi
// route pattern. A nil app only counts requests.
func HTTPMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var txn *newrelic.Transaction
			if app != nil {
				txn = app.StartTransaction(r.Method + " " + r.URL.Path)
				defer txn.End()

				txn.SetWebRequestHTTP(r)
				w = txn.SetWebResponse(w)

				ctx := WithApplication(r.Context(), app)
				r = r.WithContext(newrelic.NewContext(ctx, txn))
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

			if txn != nil {
				txn.SetName(r.Method + " " + route)
				txn.AddAttribute(httpResponseStatusCodeLevelAttributeKey, statusCodeLevel(status))
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func statusCodeLevel(status int) string {
	switch {
	case status >= 500:
		return errorLevel
	case status == http.StatusTooManyRequests, status == http.StatusConflict:
		return warningLevel
	default:
		return infoLevel
	}
}
