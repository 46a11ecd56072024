package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/lifecycle"
)

type alertPage struct {
	Items       []alert.Alert `json:"items"`
	TotalItems  int           `json:"total_items"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
	State       string        `json:"state"`
}

func alertIDs(page alertPage) []string {
	ids := make([]string, 0, len(page.Items))
	for _, a := range page.Items {
		ids = append(ids, a.ID)
	}
	return ids
}

func Test_collectionApi_query(t *testing.T) {
	app, _ := setup(t)

	tests := []struct {
		httpTest
		wantIDs  []string
		wantPage alertPage // without items, see wantIDs
		checkIDs bool
	}{
		{
			httpTest: httpTest{name: "critical", method: http.MethodGet, path: "/v1/alerts?priority=critical&ordering=createdAt", role: "student", wantCode: http.StatusOK},
			wantIDs:  []string{"AL-002", "AL-004", "AL-007"},
			wantPage: alertPage{TotalItems: 3, TotalPages: 1, CurrentPage: 1, PageSize: 10, State: "ready"},
			checkIDs: true,
		},
		{
			httpTest: httpTest{name: "default ordering", method: http.MethodGet, path: "/v1/alerts?status=unread", role: "teacher", wantCode: http.StatusOK},
			wantIDs:  []string{"AL-008", "AL-005", "AL-004", "AL-002", "AL-001"},
			wantPage: alertPage{TotalItems: 5, TotalPages: 1, CurrentPage: 1, PageSize: 10, State: "ready"},
			checkIDs: true,
		},
		{
			httpTest: httpTest{name: "search & filter", method: http.MethodGet, path: "/v1/alerts?search=NETWORK&category=system", role: "leader", wantCode: http.StatusOK},
			wantIDs:  []string{"AL-004"},
			wantPage: alertPage{TotalItems: 1, TotalPages: 1, CurrentPage: 1, PageSize: 10, State: "ready"},
			checkIDs: true,
		},
		{
			httpTest: httpTest{name: "malformed paging is normalized", method: http.MethodGet, path: "/v1/alerts?page=abc&page_size=3", role: "student", wantCode: http.StatusOK},
			wantPage: alertPage{TotalItems: 8, TotalPages: 3, CurrentPage: 1, PageSize: 3, State: "ready"},
		},
		{
			httpTest: httpTest{name: "page clamped", method: http.MethodGet, path: "/v1/alerts?page=99&page_size=3&ordering=createdAt", role: "student", wantCode: http.StatusOK},
			wantIDs:  []string{"AL-007", "AL-008"},
			wantPage: alertPage{TotalItems: 8, TotalPages: 3, CurrentPage: 3, PageSize: 3, State: "ready"},
			checkIDs: true,
		},
		{
			httpTest: httpTest{name: "no match", method: http.MethodGet, path: "/v1/alerts?search=zzz", role: "student", wantCode: http.StatusOK},
			wantIDs:  []string{},
			wantPage: alertPage{TotalItems: 0, TotalPages: 0, CurrentPage: 1, PageSize: 10, State: "no_match"},
			checkIDs: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt.httpTest)
			checkCode(t, tt.httpTest, rec)

			var got alertPage
			unmarshall(t, rec, &got)
			require.NotNil(t, got.Items, "items is never null")
			if tt.checkIDs {
				assert.Equal(t, tt.wantIDs, alertIDs(got))
			}
			got.Items = nil
			assert.Equal(t, tt.wantPage, got)
		})
	}
}

func Test_collectionApi_identity(t *testing.T) {
	app, _ := setup(t)

	tests := []httpTest{
		{name: "no identity", method: http.MethodGet, path: "/v1/alerts", wantCode: http.StatusUnauthorized, wantData: []byte(`{"error":"missing identity"}`)},
		{name: "unknown role", method: http.MethodGet, path: "/v1/alerts", role: "janitor", wantCode: http.StatusForbidden, wantData: []byte(`{"error":"unknown role"}`)},
		{name: "section hidden from role", method: http.MethodGet, path: "/v1/resources", role: "parent", wantCode: http.StatusForbidden, wantData: []byte(`{"error":"permission denied"}`)},
		{name: "section hidden from employees", method: http.MethodGet, path: "/v1/submissions", role: "employee", wantCode: http.StatusForbidden, wantData: []byte(`{"error":"permission denied"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}
}

func Test_collectionApi_transition(t *testing.T) {
	app, _ := setup(t)
	status := func(s string) []byte { return []byte(`{"status":"` + s + `"}`) }

	tests := []httpTest{
		{name: "mark read", method: http.MethodPost, path: "/v1/alerts/AL-001/status", body: status("read"), role: "student", wantCode: http.StatusOK, extra: lifecycle.AlertRead},
		{name: "mark read again", method: http.MethodPost, path: "/v1/alerts/AL-001/status", body: status("read"), role: "student", wantCode: http.StatusOK, extra: lifecycle.AlertRead},
		{name: "case & spaces", method: http.MethodPost, path: "/v1/alerts/AL-001/status", body: status(" UNREAD "), role: "student", wantCode: http.StatusOK, extra: lifecycle.AlertUnread},
		{name: "unknown record", method: http.MethodPost, path: "/v1/alerts/AL-999/status", body: status("read"), role: "student", wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
		{name: "terminal state", method: http.MethodPost, path: "/v1/alerts/AL-006/status", body: status("read"), role: "student", wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"illegal status transition"}`)},
		{name: "unknown status", method: http.MethodPost, path: "/v1/alerts/AL-001/status", body: status("snoozed"), role: "student", wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"illegal status transition"}`)},
		{name: "missing status", method: http.MethodPost, path: "/v1/alerts/AL-001/status", body: []byte(`{}`), role: "student", wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"this field is required"}`)},
		{name: "ticket skips ahead", method: http.MethodPost, path: "/v1/tickets/TK-1A2B3C4D/status", body: status("closed"), role: "employee", wantCode: http.StatusOK, extra: lifecycle.TicketClosed},
		{name: "ticket never goes back", method: http.MethodPost, path: "/v1/tickets/TK-1A2B3C4D/status", body: status("open"), role: "employee", wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"illegal status transition"}`)},
		{name: "unknown ticket status", method: http.MethodPost, path: "/v1/tickets/TK-5E6F7A8B/status", body: status("On-Hold"), role: "employee", wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"status must be one of open, in-progress, resolved or closed"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt, rec)
			if want, ok := tt.extra.(string); ok {
				var got struct {
					Status string `json:"status"`
				}
				unmarshall(t, rec, &got)
				assert.Equal(t, want, got.Status)
			}
		})
	}
}

func Test_collectionApi_noStatusRoute(t *testing.T) {
	app, _ := setup(t)
	rec := do(app, httpTest{method: http.MethodPost, path: "/v1/resources/LR-001/status", body: []byte(`{"status":"read"}`), role: "student"})
	assert.Contains(t, []int{http.StatusNotFound, http.StatusMethodNotAllowed}, rec.Code, "resources have no status")
}

func Test_collectionApi_destroy(t *testing.T) {
	app, _ := setup(t)

	tests := []httpTest{
		{name: "retrieve", method: http.MethodGet, path: "/v1/meetings/MT-01", role: "parent", wantCode: http.StatusOK},
		{name: "delete: not a leader", method: http.MethodDelete, path: "/v1/meetings/MT-01", role: "parent", wantCode: http.StatusForbidden, wantData: []byte(`{"error":"permission denied"}`)},
		{name: "delete", method: http.MethodDelete, path: "/v1/meetings/MT-01", role: "leader", wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodGet, path: "/v1/meetings/MT-01", role: "parent", wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
		{name: "delete again", method: http.MethodDelete, path: "/v1/meetings/MT-01", role: "leader", wantCode: http.StatusNotFound, wantData: []byte(`{"error":"not found"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt, rec)
		})
	}
}

func Test_collectionApi_loadFailure(t *testing.T) {
	app, store := setup(t)
	store.setErr(errors.New("db down"))

	tt := httpTest{method: http.MethodGet, path: "/v1/conversations", role: "student", wantCode: http.StatusServiceUnavailable}
	rec := do(app, tt)
	checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: marshallObj(t, map[string]interface{}{
		"error": "could not load conversations: listing conversations: db down",
		"retry": true,
	})}, rec)

	// the failure sticks until an explicit reload
	rec = do(app, httpTest{method: http.MethodGet, path: "/v1/conversations/state", role: "student"})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(
		`{"collection":"conversations","state":"failed","error":"could not load conversations: listing conversations: db down"}`,
	)}, rec)

	store.setErr(nil)
	rec = do(app, tt)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(app, httpTest{method: http.MethodPost, path: "/v1/conversations/reload", role: "student"})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"collection":"conversations","state":"ready"}`)}, rec)

	rec = do(app, httpTest{method: http.MethodGet, path: "/v1/conversations?search=ayaan", role: "student"})
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "CV-02", got.Items[0].ID)
}

func Test_collectionApi_empty(t *testing.T) {
	app, _ := setup(t)

	for _, id := range []string{"LR-001", "LR-002", "LR-003", "LR-004", "LR-005"} {
		rec := do(app, httpTest{method: http.MethodDelete, path: "/v1/resources/" + id, role: "leader"})
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	tt := httpTest{method: http.MethodGet, path: "/v1/resources?page=2", role: "leader", wantCode: http.StatusOK, wantData: []byte(
		`{"items":[],"total_items":0,"total_pages":0,"current_page":1,"page_size":10,"state":"empty"}`,
	)}
	checkCodeAndData(t, tt, do(app, tt))
}
