package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	ac     *ApiController
	store  storage.Store
	clock  *testutil.FakeClock
	cache  *testutil.MockCache
	logger *testutil.MockLogger
}

func newHarness(t *testing.T, admins ...string) *harness {
	t.Helper()
	conf := testutil.Config()
	conf.Admin.Identities = admins
	store := testutil.NewStore(t)
	clock := testutil.NewFakeClock(now)
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	cache := testutil.NewMockCache()

	counter, err := services.NewCounterService(conf, store, clock, logger, metrics)
	require.NoError(t, err)
	presence := services.NewPresenceService(conf, store, clock, logger, metrics)
	activity := services.NewActivityService(conf, store, clock, logger, metrics)
	dashboard := services.NewDashboardService(counter, presence, activity)

	return &harness{
		ac:     NewApiController(logger, counter, presence, activity, dashboard, cache),
		store:  store,
		clock:  clock,
		cache:  cache,
		logger: logger,
	}
}

func do(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func doAs(handler http.HandlerFunc, caller, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(providers.WithCaller(req.Context(), caller))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

// --- counter ---

func TestGetCounter_EmptyStore(t *testing.T) {
	h := newHarness(t)
	rr := do(h.ac.GetCounter, http.MethodGet, "/counter", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"dailyCount":0,"totalCount":0}`, rr.Body.String())
}

func TestIncrement_Created(t *testing.T) {
	h := newHarness(t)

	rr := do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"alice"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":1,"totalCount":1}`, rr.Body.String())
}

func TestIncrement_DailyRollover(t *testing.T) {
	h := newHarness(t)
	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"alice"}`)
	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"alice"}`)

	h.clock.Advance(24 * time.Hour)
	rr := do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":0,"totalCount":2}`, rr.Body.String())

	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"bob"}`)
	rr = do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":1,"totalCount":3}`, rr.Body.String())
}

func TestIncrement_Validation(t *testing.T) {
	h := newHarness(t)
	cases := map[string]string{
		"missing field": `{}`,
		"blank":         `{"actorIdentity":"   "}`,
		"not json":      `not json`,
		"empty body":    ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(h.ac.Increment, http.MethodPost, "/counter/increment", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	rr := do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":0,"totalCount":0}`, rr.Body.String())
}

func TestIncrement_OversizedBody(t *testing.T) {
	h := newHarness(t)
	big := `{"actorIdentity":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rr := do(h.ac.Increment, http.MethodPost, "/counter/increment", big)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReset_Admin(t *testing.T) {
	h := newHarness(t, "root")
	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"alice"}`)

	rr := do(h.ac.Reset, http.MethodPost, "/counter/reset", `{"identity":"root"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":0,"totalCount":0}`, rr.Body.String())
}

func TestReset_Forbidden(t *testing.T) {
	h := newHarness(t, "root")
	rr := do(h.ac.Reset, http.MethodPost, "/counter/reset", `{"identity":"alice"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestReset_MissingIdentity(t *testing.T) {
	h := newHarness(t, "root")
	rr := do(h.ac.Reset, http.MethodPost, "/counter/reset", ``)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReset_AuthenticatedCallerWins(t *testing.T) {
	h := newHarness(t, "root")
	rr := doAs(h.ac.Reset, "mallory", http.MethodPost, "/counter/reset", `{"identity":"root"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doAs(h.ac.Reset, "root", http.MethodPost, "/counter/reset", ``)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

// --- presence ---

func TestHeartbeat_AndOnline(t *testing.T) {
	h := newHarness(t)
	rr := do(h.ac.Heartbeat, http.MethodPost, "/presence/heartbeat", `{"identity":"alice"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h.ac.GetOnline, http.MethodGet, "/presence/online", "")
	online := decodeBody[[]models.PresenceRecord](t, rr)
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0].Identity)
}

func TestHeartbeat_RenameRemovesPrevious(t *testing.T) {
	h := newHarness(t)
	do(h.ac.Heartbeat, http.MethodPost, "/presence/heartbeat", `{"identity":"alice"}`)
	do(h.ac.Heartbeat, http.MethodPost, "/presence/heartbeat", `{"identity":"alicia","previousIdentity":"alice"}`)

	rr := do(h.ac.GetOnline, http.MethodGet, "/presence/online", "")
	online := decodeBody[[]models.PresenceRecord](t, rr)
	require.Len(t, online, 1)
	assert.Equal(t, "alicia", online[0].Identity)
}

func TestHeartbeat_AuthenticatedKeysByCaller(t *testing.T) {
	h := newHarness(t)
	doAs(h.ac.Heartbeat, "user-1", http.MethodPost, "/presence/heartbeat", `{"identity":"Alice"}`)
	doAs(h.ac.Heartbeat, "user-1", http.MethodPost, "/presence/heartbeat", `{"identity":"Alicia","previousIdentity":"Alice"}`)

	rr := do(h.ac.GetOnline, http.MethodGet, "/presence/online", "")
	online := decodeBody[[]models.PresenceRecord](t, rr)
	require.Len(t, online, 1)
	assert.Equal(t, "user-1", online[0].Identity)
	assert.Equal(t, "Alicia", online[0].Name)
}

func TestHeartbeat_EmptyIdentity(t *testing.T) {
	h := newHarness(t)
	rr := do(h.ac.Heartbeat, http.MethodPost, "/presence/heartbeat", `{"identity":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetOnline_EmptyIsArray(t *testing.T) {
	h := newHarness(t)
	rr := do(h.ac.GetOnline, http.MethodGet, "/presence/online", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

// --- activity ---

func TestGetRecent_DefaultsAndOrder(t *testing.T) {
	h := newHarness(t)
	for _, who := range []string{"a", "b", "c"} {
		do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"`+who+`"}`)
	}

	rr := do(h.ac.GetRecent, http.MethodGet, "/activity/recent", "")
	require.Equal(t, http.StatusOK, rr.Code)
	events := decodeBody[[]models.ActivityEvent](t, rr)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].ActorIdentity)
	assert.Equal(t, "a", events[2].ActorIdentity)
	assert.Equal(t, models.ActionIncremented, events[0].Action)
	assert.NotEmpty(t, events[0].EventID)
	assert.Greater(t, events[0].Timestamp, events[1].Timestamp)
}

func TestGetRecent_LimitAndSince(t *testing.T) {
	h := newHarness(t)
	for _, who := range []string{"a", "b", "c"} {
		do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"`+who+`"}`)
	}

	rr := do(h.ac.GetRecent, http.MethodGet, "/activity/recent?limit=1", "")
	events := decodeBody[[]models.ActivityEvent](t, rr)
	require.Len(t, events, 1)
	assert.Equal(t, "c", events[0].ActorIdentity)

	all := decodeBody[[]models.ActivityEvent](t, do(h.ac.GetRecent, http.MethodGet, "/activity/recent", ""))
	since := all[1].Timestamp
	rr = do(h.ac.GetRecent, http.MethodGet, "/activity/recent?since="+strconv.FormatInt(since, 10), "")
	events = decodeBody[[]models.ActivityEvent](t, rr)
	require.Len(t, events, 1)
	assert.Equal(t, "c", events[0].ActorIdentity)
}

func TestGetRecent_WindowExcludesOld(t *testing.T) {
	h := newHarness(t)
	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"a"}`)
	h.clock.Advance(6 * time.Minute)

	rr := do(h.ac.GetRecent, http.MethodGet, "/activity/recent", "")
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestGetRecent_BadParams(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{"limit=abc", "limit=-1", "since=yesterday", "since=-5"} {
		t.Run(q, func(t *testing.T) {
			rr := do(h.ac.GetRecent, http.MethodGet, "/activity/recent?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

// --- dashboard and cache ---

func TestGetDashboard(t *testing.T) {
	h := newHarness(t)
	do(h.ac.Heartbeat, http.MethodPost, "/presence/heartbeat", `{"identity":"alice"}`)
	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"alice"}`)

	rr := do(h.ac.GetDashboard, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	d := decodeBody[models.Dashboard](t, rr)
	assert.Equal(t, int64(1), d.Counter.TotalCount)
	assert.Len(t, d.Online, 1)
	assert.Len(t, d.Recent, 1)
}

func TestCacheHit_ServiceNotCalled(t *testing.T) {
	h := newHarness(t)
	h.cache.Set(cacheKeyCounter, []byte(`{"dailyCount":42,"totalCount":42}`))

	rr := do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.Equal(t, `{"dailyCount":42,"totalCount":42}`, rr.Body.String())
}

func TestCache_InvalidatedOnIncrement(t *testing.T) {
	h := newHarness(t)
	do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	do(h.ac.GetDashboard, http.MethodGet, "/dashboard", "")
	_, ok := h.cache.Get(cacheKeyCounter)
	require.True(t, ok)

	do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"a"}`)
	_, ok = h.cache.Get(cacheKeyCounter)
	assert.False(t, ok)
	_, ok = h.cache.Get(cacheKeyDashboard)
	assert.False(t, ok)

	rr := do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":1,"totalCount":1}`, rr.Body.String())
}

func TestCache_ReadRacingWriteNotStored(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/counter", nil)
	rr := httptest.NewRecorder()

	h.ac.serveFromCacheOrCompute(rr, req, cacheKeyCounter, func() (any, error) {
		snap, err := h.ac.counter.GetSnapshot(req.Context())
		// a write commits after the read computed its result
		w := do(h.ac.Increment, http.MethodPost, "/counter/increment", `{"actorIdentity":"a"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		return snap, err
	})

	assert.JSONEq(t, `{"dailyCount":0,"totalCount":0}`, rr.Body.String())
	_, ok := h.cache.Get(cacheKeyCounter)
	assert.False(t, ok)

	rr = do(h.ac.GetCounter, http.MethodGet, "/counter", "")
	assert.JSONEq(t, `{"dailyCount":1,"totalCount":1}`, rr.Body.String())
	cached, ok := h.cache.Get(cacheKeyCounter)
	require.True(t, ok)
	assert.JSONEq(t, `{"dailyCount":1,"totalCount":1}`, string(cached))
}

func TestCache_OnlyDefaultRecentQueryCached(t *testing.T) {
	h := newHarness(t)
	do(h.ac.GetRecent, http.MethodGet, "/activity/recent?limit=2", "")
	_, ok := h.cache.Get(cacheKeyRecent)
	assert.False(t, ok)

	do(h.ac.GetRecent, http.MethodGet, "/activity/recent", "")
	_, ok = h.cache.Get(cacheKeyRecent)
	assert.True(t, ok)
}

// --- error mapping ---

type failingCounter struct {
	services.CounterServiceInterface
	err error
}

func (f failingCounter) GetSnapshot(_ context.Context) (models.CounterSnapshot, error) {
	return models.CounterSnapshot{}, f.err
}

func TestWriteError_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrInvalidIdentity, http.StatusBadRequest},
		{models.ErrInvalidQuery, http.StatusBadRequest},
		{models.ErrNotAuthenticated, http.StatusUnauthorized},
		{models.ErrForbidden, http.StatusForbidden},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			logger := &testutil.MockLogger{}
			ac := NewApiController(logger, failingCounter{err: tc.err}, nil, nil, nil, testutil.NewMockCache())
			rr := do(ac.GetCounter, http.MethodGet, "/counter", "")
			assert.Equal(t, tc.code, rr.Code)
			if tc.code == http.StatusInternalServerError {
				assert.Equal(t, 1, logger.Count("error"))
				assert.NotContains(t, rr.Body.String(), "disk on fire")
			}
		})
	}
}
