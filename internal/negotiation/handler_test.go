package negotiation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/pkg/middleware"
)

func TestHandlerNegotiation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tr, host, member := f.trip(t)

	r := chi.NewRouter()
	r.Use(middleware.TestUserMiddleware)
	r.Mount("/trips/{id}/negotiation", NewHandler(f.svc).Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	do := func(method, path string, caller int64, body interface{}) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req, _ := http.NewRequest(method, srv.URL+path, &buf)
		req.Header.Set("X-Test-User-ID", fmt.Sprint(caller))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}
	base := fmt.Sprintf("/trips/%d/negotiation", tr.ID)

	propose := func(category, title string, price int64) Proposal {
		t.Helper()
		resp := do(http.MethodPost, base+"/"+category+"/proposals", member.ID,
			map[string]interface{}{"title": title, "price_per_person": price})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		var out struct {
			Data Proposal `json:"data"`
		}
		json.NewDecoder(resp.Body).Decode(&out)
		return out.Data
	}

	bus := propose("transport", "Volvo sleeper bus", 1450)
	villa := propose("LODGING", "Anjuna villa", 8500)

	if resp := do(http.MethodPost, base+"/FOOD/proposals", member.ID, map[string]interface{}{"title": "Thali", "price_per_person": 200}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, fmt.Sprintf("%s/TRANSPORT/proposals/%s/vote", base, bus.ID), host.ID, VoteRequest{Decision: "perhaps"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown decision, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, base+"/TRANSPORT/proposals/not-a-uuid/vote", host.ID, VoteRequest{Decision: "YES"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed proposal id, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, fmt.Sprintf("%s/TRANSPORT/proposals/%s/vote", base, bus.ID), host.ID, VoteRequest{Decision: "yes"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for vote, got %d", resp.StatusCode)
	}

	if resp := do(http.MethodPost, base+"/TRANSPORT/lock", member.ID, LockRequest{ProposalID: bus.ID.String()}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member lock, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, base+"/TRANSPORT/lock", host.ID, LockRequest{ProposalID: bus.ID.String()}); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for host lock, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, base+"/TRANSPORT/lock", host.ID, LockRequest{ProposalID: bus.ID.String()}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 locking twice, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, base+"/LODGING/lock", host.ID, LockRequest{ProposalID: villa.ID.String()}); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for lodging lock, got %d", resp.StatusCode)
	}

	resp := do(http.MethodGet, base, member.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for ledger, got %d", resp.StatusCode)
	}
	var ledger struct {
		Data LedgerResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ledger); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if ledger.Data.Status != trip.StatusPaymentOpen || !ledger.Data.PayableAmount.Equal(decimal.NewFromInt(9950)) {
		t.Fatalf("unexpected ledger %+v", ledger.Data)
	}
	if ledger.Data.Categories[0].Category != CategoryTransport || ledger.Data.Categories[0].LockedProposalID == nil {
		t.Fatalf("expected locked transport first, got %+v", ledger.Data.Categories[0])
	}

	if resp := do(http.MethodGet, "/trips/999/negotiation", member.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown trip, got %d", resp.StatusCode)
	}
}
