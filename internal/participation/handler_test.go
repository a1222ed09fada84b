package participation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/pkg/middleware"
)

func TestHandlerJoinFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tr, host := f.trip(t)
	rahul := f.user(t, "Rahul", trust.Profile{})

	r := chi.NewRouter()
	r.Use(middleware.TestUserMiddleware)
	r.Mount("/trips/{id}/members", NewHandler(f.svc).Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	post := func(path string, caller int64) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, srv.URL+path, nil)
		req.Header.Set("X-Test-User-ID", fmt.Sprint(caller))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}
	base := fmt.Sprintf("/trips/%d/members", tr.ID)

	resp := post(base+"/join", rahul.ID)
	var joined struct {
		Data MembershipResponse `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&joined)
	if resp.StatusCode != http.StatusOK || joined.Data.State != StateRequested {
		t.Fatalf("expected REQUESTED, got %d %+v", resp.StatusCode, joined.Data)
	}

	if resp := post(fmt.Sprintf("%s/%d/approve", base, rahul.ID), rahul.ID); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host approve, got %d", resp.StatusCode)
	}
	if resp := post(fmt.Sprintf("%s/%d/approve", base, rahul.ID), host.ID); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for host approve, got %d", resp.StatusCode)
	}
	if resp := post(fmt.Sprintf("%s/%d/deny", base, rahul.ID), host.ID); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 denying an approved member, got %d", resp.StatusCode)
	}
	if resp := post("/trips/999/members/join", rahul.ID); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown trip, got %d", resp.StatusCode)
	}

	list, err := http.Get(srv.URL + base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer list.Body.Close()
	var members struct {
		Data []MembershipResponse `json:"data"`
	}
	json.NewDecoder(list.Body).Decode(&members)
	if len(members.Data) != 2 {
		t.Fatalf("expected host and Rahul, got %+v", members.Data)
	}
}
