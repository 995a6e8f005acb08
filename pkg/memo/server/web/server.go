package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/memo-server/pkg/cache"
	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/localization"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
	"github.com/code-payments/memo-server/pkg/metrics"
	"github.com/code-payments/memo-server/pkg/rate"
	xsync "github.com/code-payments/memo-server/pkg/sync"
	"github.com/code-payments/memo-server/pkg/wallet"
)

const (
	v1PathPrefix      = "/v1"
	sessionsPath      = v1PathPrefix + "/sessions"
	sessionPath       = sessionsPath + "/{id}"
	connectPath       = "/wallet/connect"
	disconnectPath    = "/wallet/disconnect"
	draftPath         = "/draft"
	submitPath        = "/submit"
	retryPath         = "/retry"
	errorPath         = "/error"
	receiptPath       = "/receipt"
	sessionIDURLParam = "id"

	maxRequestBodySize = 16 * 1024

	// Idle rate limiter keys are forgotten after this long
	rateLimiterIdleTTL = 10 * time.Minute

	sessionLockStripes = 64
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRateLimited     = errors.New("too many requests")
)

// Server exposes memo sessions over a JSON HTTP API. Every session relays
// through the same server wallet, which it connects to on request.
type Server struct {
	log  *logrus.Entry
	conf *conf

	relay           wallet.Wallet
	workflowConfig  memo.ConfigProvider
	presenterConfig presenter.ConfigProvider

	sessions cache.Cache[*session]
	locks    *xsync.StripedLock
	limiter  rate.Limiter
}

func NewServer(
	relay wallet.Wallet,
	configProvider ConfigProvider,
	workflowConfig memo.ConfigProvider,
	presenterConfig presenter.ConfigProvider,
) *Server {
	s := &Server{
		log:             logrus.StandardLogger().WithField("type", "memo/server/web"),
		conf:            configProvider(),
		relay:           relay,
		workflowConfig:  workflowConfig,
		presenterConfig: presenterConfig,
		locks:           xsync.NewStripedLock(sessionLockStripes),
	}

	ctx := context.Background()

	s.sessions = cache.NewCache[*session](int(s.conf.sessionBudget.Get(ctx)), s.onSessionEvicted)

	rps := s.conf.requestsPerSecond.Get(ctx)
	if rps > 0 {
		s.limiter = rate.NewLocalRateLimiter(xrate.Limit(rps), rateLimiterIdleTTL)
	} else {
		s.limiter = &rate.NoLimiter{}
	}

	return s
}

// Handler returns the API router. A nil app disables New Relic transactions.
func (s *Server) Handler(app *newrelic.Application) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.conf.allowedOrigins.Get(context.Background()),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metrics.HTTPMiddleware(app))
	r.Use(s.rateLimit)

	r.Post(sessionsPath, s.handle(sessionsPath, s.createSession))
	r.Route(sessionPath, func(r chi.Router) {
		r.Get("/", s.handleSession(sessionPath, s.getSession))
		r.Post(connectPath, s.handleSession(connectPath, s.serialized(s.connectWallet)))
		r.Post(disconnectPath, s.handleSession(disconnectPath, s.serialized(s.disconnectWallet)))
		r.Put(draftPath, s.handleSession(draftPath, s.serialized(s.editDraft)))
		r.Delete(draftPath, s.handleSession(draftPath, s.serialized(s.clearDraft)))
		r.Post(submitPath, s.handleSession(submitPath, s.submit))
		r.Post(retryPath, s.handleSession(retryPath, s.retry))
		r.Delete(errorPath, s.handleSession(errorPath, s.serialized(s.clearError)))
		r.Delete(receiptPath, s.handleSession(receiptPath, s.serialized(s.dismissSuccess)))
	})

	return r
}

// Close ends every session
func (s *Server) Close() {
	s.sessions.Clear()
}

func (s *Server) handle(path string, fn func(r *http.Request) (int, GenericApiResponseBody)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := fn(r)

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) handleSession(path string, fn func(r *http.Request, sess *session) (int, GenericApiResponseBody)) http.HandlerFunc {
	return s.handle(path, func(r *http.Request) (int, GenericApiResponseBody) {
		sess, ok := s.sessions.Retrieve(chi.URLParam(r, sessionIDURLParam))
		if !ok {
			metrics.RecordResultCode(r, "NOT_FOUND")
			return http.StatusNotFound, NewGenericApiFailureResponseBody(ErrSessionNotFound)
		}
		return fn(r, sess)
	})
}

// serialized applies fn while holding the session's stripe, so mutations to
// one session land in arrival order. Submit and retry stay outside it as
// they block for the whole send.
func (s *Server) serialized(fn func(r *http.Request, sess *session) (int, GenericApiResponseBody)) func(r *http.Request, sess *session) (int, GenericApiResponseBody) {
	return func(r *http.Request, sess *session) (int, GenericApiResponseBody) {
		unlock := s.locks.Lock(sess.id)
		defer unlock()
		return fn(r, sess)
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		allowed, err := s.limiter.Allow(ip)
		if err != nil {
			s.log.WithError(err).Warn("failure checking rate limit")
		} else if !allowed {
			s.log.WithField("ip", ip).Debug("request rate limited")
			metrics.RecordResultCode(r, "RATE_LIMITED")
			s.handle(r.URL.Path, func(*http.Request) (int, GenericApiResponseBody) {
				return http.StatusTooManyRequests, NewGenericApiFailureResponseBody(ErrRateLimited)
			})(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) createSession(r *http.Request) (int, GenericApiResponseBody) {
	locale := localization.ParseLocale(r.Header.Get("Accept-Language"))

	walletSession := wallet.NewSession(s.relay)
	workflow := memo.NewWorkflow(walletSession, s.workflowConfig, memo.WithLocale(locale))

	sess := &session{
		id:        uuid.New().String(),
		wallet:    walletSession,
		workflow:  workflow,
		presenter: presenter.New(workflow, walletSession, s.presenterConfig),
	}

	if err := s.sessions.Insert(sess.id, sess, 1); err != nil {
		sess.close()
		s.log.WithError(err).Warn("failure storing session")
		return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errors.New("internal server error"))
	}
	metrics.SetActiveSessions(s.sessions.Len())

	s.log.WithFields(logrus.Fields{
		"session": sess.id,
		"locale":  locale.String(),
	}).Debug("session created")

	body := snapshotBody(sess)
	body[sessionJsonKey] = sess.id
	return http.StatusCreated, body
}

func (s *Server) getSession(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	return http.StatusOK, snapshotBody(sess)
}

func (s *Server) connectWallet(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	if _, err := sess.wallet.Connect(); err != nil {
		s.log.WithError(err).WithField("session", sess.id).Warn("failure connecting wallet")
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	return http.StatusOK, snapshotBody(sess)
}

func (s *Server) disconnectWallet(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	sess.wallet.Disconnect()
	return http.StatusOK, snapshotBody(sess)
}

type editDraftRequest struct {
	Text string `json:"text"`
}

func (s *Server) editDraft(r *http.Request, sess *session) (int, GenericApiResponseBody) {
	var req editDraftRequest
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBodySize))
	if err := decoder.Decode(&req); err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.Wrap(err, "invalid request body"))
	}

	accepted := sess.presenter.EditDraft(req.Text)

	body := snapshotBody(sess)
	body[acceptedJsonKey] = accepted
	return http.StatusOK, body
}

func (s *Server) clearDraft(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	sess.presenter.ClearDraft()
	return http.StatusOK, snapshotBody(sess)
}

func (s *Server) submit(r *http.Request, sess *session) (int, GenericApiResponseBody) {
	// A dropped connection must not abandon a transaction mid-flight
	ctx := context.WithoutCancel(r.Context())

	state, err := sess.presenter.Submit(ctx)
	return s.submissionResult(r, sess, state, err)
}

func (s *Server) retry(r *http.Request, sess *session) (int, GenericApiResponseBody) {
	ctx := context.WithoutCancel(r.Context())

	state, err := sess.presenter.Retry(ctx)
	return s.submissionResult(r, sess, state, err)
}

func (s *Server) submissionResult(r *http.Request, sess *session, state memo.State, err error) (int, GenericApiResponseBody) {
	switch {
	case errors.Is(err, memo.ErrSubmissionInFlight):
		metrics.RecordResultCode(r, "IN_FLIGHT")
		return http.StatusConflict, NewGenericApiFailureResponseBody(err)
	case errors.Is(err, memo.ErrNotRetriable):
		metrics.RecordResultCode(r, "NOT_RETRIABLE")
		return http.StatusConflict, NewGenericApiFailureResponseBody(err)
	case err != nil:
		s.log.WithError(err).WithField("session", sess.id).Warn("unexpected submission failure")
		return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errors.New("internal server error"))
	}

	body := snapshotBody(sess)
	if state.Kind == memo.KindFailed && state.Err != nil {
		metrics.RecordResultCode(r, string(state.Err.Code))
		body[successJsonKey] = false
		body[errorJsonKey] = state.Err.Message
	} else {
		metrics.RecordResultCode(r, "OK")
	}

	// The snapshot may already reflect a later transition
	body["result"] = state
	return http.StatusOK, body
}

func (s *Server) clearError(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	sess.presenter.ClearError()
	return http.StatusOK, snapshotBody(sess)
}

func (s *Server) dismissSuccess(_ *http.Request, sess *session) (int, GenericApiResponseBody) {
	sess.presenter.DismissSuccess()
	return http.StatusOK, snapshotBody(sess)
}

func (s *Server) onSessionEvicted(id string, sess *session) {
	sess.close()
	metrics.SetActiveSessions(s.sessions.Len())
	s.log.WithField("session", id).Debug("session closed")
}

func snapshotBody(sess *session) GenericApiResponseBody {
	body := NewGenericApiSuccessResponseBody()
	body[snapshotJsonKey] = sess.presenter.Snapshot()
	return body
}
