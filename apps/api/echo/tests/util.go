package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	. "github.com/trezcool/portal/apps/api/echo"
	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/dashboard"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
	"github.com/trezcool/portal/storage/fixtures"
	"github.com/trezcool/portal/storage/inmem"
)

// flakyStore fails every listing while err is set.
type flakyStore struct {
	core.RecordStore
	mu  sync.Mutex
	err error
}

func (s *flakyStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *flakyStore) ListRecords(ctx context.Context, collection string) ([]core.Record, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.RecordStore.ListRecords(ctx, collection)
}

func newDeps(store core.RecordStore) *Deps {
	alerts := collection.NewStoreAdapter(store, alert.Schema)
	tickets := collection.NewStoreAdapter(store, ticket.Schema)
	meetings := collection.NewStoreAdapter(store, meeting.Schema)
	submissions := collection.NewStoreAdapter(store, submission.Schema)
	resources := collection.NewStoreAdapter(store, resource.Schema)
	conversations := collection.NewStoreAdapter(store, conversation.Schema)

	deps := &Deps{
		Alerts:        alert.NewService(alerts, alerts, nil),
		Tickets:       ticket.NewService(tickets, tickets, nil),
		Meetings:      meeting.NewService(meetings, meetings, nil),
		Submissions:   submission.NewService(submissions, submissions, nil),
		Resources:     resource.NewService(resources, resources, nil),
		Conversations: conversation.NewService(conversations, conversations, nil),
	}
	deps.Dashboard = dashboard.NewBuilder(dashboard.Cards(dashboard.Services{
		Alerts:        deps.Alerts,
		Meetings:      deps.Meetings,
		Submissions:   deps.Submissions,
		Conversations: deps.Conversations,
		Resources:     deps.Resources,
		Tickets:       deps.Tickets,
	}), nil)
	return deps
}

// setup returns a server over the seeded fixtures, and the store behind it.
func setup(t *testing.T) (Server, *flakyStore) {
	store := &flakyStore{RecordStore: inmemdb.Open()}
	if _, err := fixtures.Seed(context.Background(), store); err != nil {
		t.Fatalf("fixtures.Seed() failed: %v", err)
	}
	app := NewServer(&Options{DisableReqLogs: true, TestMode: true}, newDeps(store))
	return app, store
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	role     string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newIdentityRequest(method, path, role string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderRole, role)
		req.Header.Set(HeaderUser, "Test "+role)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func do(app Server, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newIdentityRequest(tt.method, tt.path, tt.role, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
