package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/services"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
)

const maxRequestBodySize = 1 << 16 // 64 KB

const (
	cacheKeyCounter   = "counter"
	cacheKeyOnline    = "online"
	cacheKeyRecent    = "recent"
	cacheKeyDashboard = "dashboard"
)

type ApiController struct {
	logger    providers.Logger
	counter   services.CounterServiceInterface
	presence  services.PresenceServiceInterface
	activity  services.ActivityServiceInterface
	dashboard services.DashboardServiceInterface
	cache     providers.CacheProviderInterface

	// cacheMu orders cache fills against invalidations; generation counts writes.
	cacheMu    sync.RWMutex
	generation uint64
}

func NewApiController(logger providers.Logger, counter services.CounterServiceInterface, presence services.PresenceServiceInterface, activity services.ActivityServiceInterface, dashboard services.DashboardServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:    logger,
		counter:   counter,
		presence:  presence,
		activity:  activity,
		dashboard: dashboard,
		cache:     cache,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if cacheKey != "" {
		if data, ok := ac.cache.Get(cacheKey); ok {
			writeJSON(w, http.StatusOK, data)
			return
		}
	}

	ac.cacheMu.RLock()
	generation := ac.generation
	ac.cacheMu.RUnlock()

	result, err := compute()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	if cacheKey != "" {
		ac.fill(cacheKey, generation, gson)
	}
	writeJSON(w, http.StatusOK, gson)
}

// decode reads a JSON body into dst and runs its validate tags. An empty body
// decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	v := validate.Struct(dst)
	if !v.Validate() {
		return v.Errors
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (ac *ApiController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidIdentity), errors.Is(err, models.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrNotAuthenticated):
		http.Error(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s failed: %s rid=%s",
			r.Method, r.URL.Path, err, providers.RequestIDFromContext(r.Context()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// fill stores a computed response unless a write landed while it was computed.
func (ac *ApiController) fill(key string, generation uint64, data []byte) {
	ac.cacheMu.RLock()
	defer ac.cacheMu.RUnlock()
	if ac.generation != generation {
		return
	}
	ac.cache.Set(key, data)
}

func (ac *ApiController) invalidate(keys ...string) {
	ac.cacheMu.Lock()
	defer ac.cacheMu.Unlock()
	ac.generation++
	ac.cache.Del(append(keys, cacheKeyDashboard)...)
}

func (ac *ApiController) GetCounter(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, cacheKeyCounter, func() (any, error) {
		return ac.counter.GetSnapshot(r.Context())
	})
}

func (ac *ApiController) Increment(w http.ResponseWriter, r *http.Request) {
	var payload models.IncrementRequest
	if err := decode(w, r, &payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.counter.Increment(r.Context(), payload.ActorIdentity); err != nil {
		ac.writeError(w, r, err)
		return
	}
	ac.invalidate(cacheKeyCounter, cacheKeyRecent)
	w.WriteHeader(http.StatusCreated)
}

// Reset authorizes the authenticated caller when auth is on, otherwise the
// identity named in the body.
func (ac *ApiController) Reset(w http.ResponseWriter, r *http.Request) {
	var payload models.ResetRequest
	if err := decode(w, r, &payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	caller := payload.Identity
	if key, ok := providers.CallerFromContext(r.Context()); ok {
		caller = key
	}
	if err := ac.counter.Reset(r.Context(), caller); err != nil {
		ac.writeError(w, r, err)
		return
	}
	ac.invalidate(cacheKeyCounter)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var payload models.HeartbeatRequest
	if err := decode(w, r, &payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	hb := models.Heartbeat{
		Identity:         payload.Identity,
		PreviousIdentity: payload.PreviousIdentity,
	}
	if key, ok := providers.CallerFromContext(r.Context()); ok {
		hb.Key = key
	}
	if err := ac.presence.Heartbeat(r.Context(), hb); err != nil {
		ac.writeError(w, r, err)
		return
	}
	ac.invalidate(cacheKeyOnline)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GetOnline(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, cacheKeyOnline, func() (any, error) {
		return ac.presence.GetOnline(r.Context())
	})
}

// GetRecent accepts optional limit and since (unix ms) query params. Only the
// default query is cached.
func (ac *ApiController) GetRecent(w http.ResponseWriter, r *http.Request) {
	q, err := parseRecentQuery(r)
	if err != nil {
		ac.writeError(w, r, err)
		return
	}
	cacheKey := ""
	if q == (models.RecentQuery{}) {
		cacheKey = cacheKeyRecent
	}
	ac.serveFromCacheOrCompute(w, r, cacheKey, func() (any, error) {
		return ac.activity.GetRecent(r.Context(), q)
	})
}

func (ac *ApiController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, cacheKeyDashboard, func() (any, error) {
		return ac.dashboard.GetDashboard(r.Context())
	})
}

func parseRecentQuery(r *http.Request) (models.RecentQuery, error) {
	var q models.RecentQuery
	values := r.URL.Query()
	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, models.ErrInvalidQuery
		}
		q.Limit = n
	}
	if s := values.Get("since"); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil || ms < 0 {
			return q, models.ErrInvalidQuery
		}
		q.Since = models.FromMillis(ms)
	}
	return q, nil
}
