package web

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

const (
	successJsonKey  = "success"
	errorJsonKey    = "error"
	sessionJsonKey  = "session_id"
	snapshotJsonKey = "snapshot"
	acceptedJsonKey = "accepted"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
	clientIPHeaderName         = "x-forwarded-for"
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// getClientIP returns the first x-forwarded-for entry, falling back to the
// connection's remote host.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get(clientIPHeaderName); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
