package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentloop/internal/config"
	"rentloop/internal/database"
	"rentloop/internal/models"
	"rentloop/internal/repository"
	"rentloop/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identityHeader = "X-Sharer-User-Id"

// noopExportQueue records enqueued tasks without running a worker.
type noopExportQueue struct {
	tasks []models.ExportTask
}

func (q *noopExportQueue) EnqueueExport(_ context.Context, task models.ExportTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}

type testEnv struct {
	ts      *httptest.Server
	db      *database.DB
	exports *noopExportQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.APIConfig{
		Port:           0,
		IdentityHeader: identityHeader,
		DefaultSize:    10,
		RateLimit: config.APIRateLimitConfig{
			RPS:    1000,
			Burst:  1000,
			Limit:  100000,
			Window: 60,
		},
	}

	bookingSvc := service.NewBookingService(db, db, db, nil, nil, &logger)
	itemSvc := service.NewItemService(db, db, db, db, nil, nil, &logger)
	userSvc := service.NewUserService(db, &logger)
	requestSvc := service.NewRequestService(db, db, db, &logger)

	exports := &noopExportQueue{}
	server := NewHTTPServer(cfg, bookingSvc, itemSvc, userSvc, requestSvc, exports,
		repository.NewMemoryRateLimitRepository(), &logger)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, exports: exports}
}

func (e *testEnv) do(t *testing.T, method, path string, callerID int64, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if callerID != 0 {
		req.Header.Set(identityHeader, fmt.Sprintf("%d", callerID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) createUser(t *testing.T, name, email string) models.User {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/users", 0, models.User{Name: name, Email: email})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.User](t, resp)
}

func (e *testEnv) createItem(t *testing.T, ownerID int64, name string, available bool) models.Item {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/items", ownerID, models.Item{Name: name, Available: available})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.Item](t, resp)
}

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)

	alice := env.createUser(t, "Alice", "alice@example.com")
	assert.NotZero(t, alice.ID)

	// Duplicate email conflicts.
	resp := env.do(t, http.MethodPost, "/users", 0, models.User{Name: "Clone", Email: "alice@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Patch only the email.
	email := "alice.new@example.com"
	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), 0, models.UserPatch{Email: &email})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.User](t, resp)
	assert.Equal(t, "alice.new@example.com", updated.Email)
	assert.Equal(t, "Alice", updated.Name)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", alice.ID), 0, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), 0, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestItemEndpointsRequireIdentity(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/items", 0, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestItemUpdateAccess(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	other := env.createUser(t, "Other", "other@example.com")
	item := env.createItem(t, owner.ID, "Drill", true)

	name := "Hammer drill"
	// Non-owner cannot see the item exists for updating.
	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/items/%d", item.ID), other.ID, models.ItemPatch{Name: &name})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/items/%d", item.ID), owner.ID, models.ItemPatch{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.Item](t, resp)
	assert.Equal(t, "Hammer drill", updated.Name)
}

func TestItemSearch(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	env.createItem(t, owner.ID, "Power Drill", true)
	env.createItem(t, owner.ID, "Tent", true)

	resp := env.do(t, http.MethodGet, "/items/search?text=drill", 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeBody[[]models.Item](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "Power Drill", items[0].Name)

	// Blank query returns an empty list, not an error.
	resp = env.do(t, http.MethodGet, "/items/search?text=", 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items = decodeBody[[]models.Item](t, resp)
	assert.Empty(t, items)
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	booker := env.createUser(t, "Booker", "booker@example.com")
	item := env.createItem(t, owner.ID, "Drill", true)

	start := time.Now().Add(time.Hour).UTC()
	end := start.Add(24 * time.Hour)

	// Owner cannot book their own item; reported as 404.
	resp := env.do(t, http.MethodPost, "/bookings", owner.ID, createBookingRequest{ItemID: item.ID, Start: start, End: end})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/bookings", booker.ID, createBookingRequest{ItemID: item.ID, Start: start, End: end})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decodeBody[models.BookingView](t, resp)
	assert.Equal(t, models.StatusWaiting, booking.Status)
	assert.Equal(t, booker.ID, booking.Booker.ID)

	// The booker may not decide; surfaces as 404.
	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/bookings/%d?approved=true", booking.ID), booker.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Missing approved parameter is a 400.
	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/bookings/%d", booking.ID), owner.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/bookings/%d?approved=true", booking.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decided := decodeBody[models.BookingView](t, resp)
	assert.Equal(t, models.StatusApproved, decided.Status)

	// A second decision is rejected.
	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/bookings/%d?approved=false", booking.ID), owner.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Booker and owner can read it; a stranger gets 404.
	stranger := env.createUser(t, "Stranger", "stranger@example.com")
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/bookings/%d", booking.ID), stranger.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/bookings/%d", booking.ID), booker.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestBookingCreate_UnavailableItem(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	booker := env.createUser(t, "Booker", "booker@example.com")
	item := env.createItem(t, owner.ID, "Broken drill", false)

	start := time.Now().Add(time.Hour).UTC()
	resp := env.do(t, http.MethodPost, "/bookings", booker.ID, createBookingRequest{
		ItemID: item.ID, Start: start, End: start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestBookingListings(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	booker := env.createUser(t, "Booker", "booker@example.com")
	item := env.createItem(t, owner.ID, "Drill", true)

	start := time.Now().Add(time.Hour).UTC()
	resp := env.do(t, http.MethodPost, "/bookings", booker.ID, createBookingRequest{
		ItemID: item.ID, Start: start, End: start.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Booker's WAITING bucket.
	resp = env.do(t, http.MethodGet, "/bookings?state=WAITING", booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views := decodeBody[[]models.BookingView](t, resp)
	require.Len(t, views, 1)

	// Owner's listing of bookings on their items.
	resp = env.do(t, http.MethodGet, "/bookings/owner?state=ALL", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views = decodeBody[[]models.BookingView](t, resp)
	require.Len(t, views, 1)

	// The booker has no owned items, so the owner listing is empty.
	resp = env.do(t, http.MethodGet, "/bookings/owner", booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views = decodeBody[[]models.BookingView](t, resp)
	assert.Empty(t, views)

	// Unknown state bucket.
	resp = env.do(t, http.MethodGet, "/bookings?state=SOMEDAY", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Invalid paging.
	resp = env.do(t, http.MethodGet, "/bookings?from=-1&size=10", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCommentEligibility(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")
	booker := env.createUser(t, "Booker", "booker@example.com")
	item := env.createItem(t, owner.ID, "Drill", true)

	// No booking yet: not eligible.
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/comment", item.ID), booker.ID, commentRequest{Text: "nice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Blank text is rejected before eligibility.
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/comment", item.ID), booker.ID, commentRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Insert a finished booking directly; creation via the API only
	// accepts future intervals.
	finished := &models.Booking{
		BookerID: booker.ID,
		ItemID:   item.ID,
		Start:    time.Now().Add(-48 * time.Hour),
		End:      time.Now().Add(-24 * time.Hour),
		Status:   models.StatusApproved,
	}
	require.NoError(t, env.db.CreateBooking(t.Context(), finished))

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/comment", item.ID), booker.ID, commentRequest{Text: "worked great"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decodeBody[models.Comment](t, resp)
	assert.Equal(t, "Booker", comment.AuthorName)

	// The comment shows up in the item detail.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody[models.ItemDetail](t, resp)
	require.Len(t, detail.Comments, 1)
	// Non-owner viewer gets no annotation.
	assert.Nil(t, detail.LastBooking)

	// The owner sees the finished booking as last.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail = decodeBody[models.ItemDetail](t, resp)
	require.NotNil(t, detail.LastBooking)
	assert.Equal(t, booker.ID, detail.LastBooking.BookerID)
}

func TestRequestEndpoints(t *testing.T) {
	env := newTestEnv(t)

	requestor := env.createUser(t, "Requestor", "requestor@example.com")
	owner := env.createUser(t, "Owner", "owner@example.com")

	resp := env.do(t, http.MethodPost, "/requests", requestor.ID, createRequestRequest{Description: "need a drill"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	request := decodeBody[models.ItemRequest](t, resp)

	// Answer the request with a listed item.
	answer := &models.Item{OwnerID: owner.ID, Name: "Drill", Available: true, RequestID: request.ID}
	require.NoError(t, env.db.CreateItem(t.Context(), answer))

	resp = env.do(t, http.MethodGet, "/requests", requestor.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own := decodeBody[[]models.ItemRequestView](t, resp)
	require.Len(t, own, 1)
	require.Len(t, own[0].Items, 1)

	// Others see it in /requests/all; the requestor does not.
	resp = env.do(t, http.MethodGet, "/requests/all", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	others := decodeBody[[]models.ItemRequestView](t, resp)
	require.Len(t, others, 1)

	resp = env.do(t, http.MethodGet, "/requests/all", requestor.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	others = decodeBody[[]models.ItemRequestView](t, resp)
	assert.Empty(t, others)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/requests/%d", request.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[models.ItemRequestView](t, resp)
	assert.Equal(t, "need a drill", view.Description)
}

func TestBookingsExport(t *testing.T) {
	env := newTestEnv(t)

	owner := env.createUser(t, "Owner", "owner@example.com")

	resp := env.do(t, http.MethodPost, "/bookings/export", owner.ID, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.NotEmpty(t, body["task_id"])

	require.Len(t, env.exports.tasks, 1)
	assert.Equal(t, owner.ID, env.exports.tasks[0].OwnerID)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	user := env.createUser(t, "User", "user@example.com")

	resp := env.do(t, http.MethodDelete, "/bookings", user.ID, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}
