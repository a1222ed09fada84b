package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fkhayef/tribe/internal/config"
	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/pkg/middleware"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	bus := events.NewHub(0)
	t.Cleanup(func() { bus.Close() })
	srv := httptest.NewServer(newApp(memoryStores(), bus).routes(cfg))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t       *testing.T
	url     string
	service string
}

func (c client) do(method, path string, caller int64, body, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, c.url+path, &buf)
	if caller > 0 {
		req.Header.Set("X-Test-User-ID", fmt.Sprint(caller))
	}
	if c.service != "" {
		req.Header.Set(middleware.ServiceTokenHeader, c.service)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		env := struct {
			Data interface{} `json:"data"`
		}{Data: out}
		json.NewDecoder(resp.Body).Decode(&env)
	}
	return resp.StatusCode
}

func TestRoutesTripFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &config.Config{CORSAllowedOrigins: []string{"*"}})
	c := client{t: t, url: srv.URL + "/api/v1"}

	resp, err := http.Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	var host, guest user.UserResponse
	if code := c.do(http.MethodPost, "/users", 0, user.CreateUserRequest{Name: "Meera Iyer"}, &host); code != http.StatusCreated {
		t.Fatalf("expected 201 creating host, got %d", code)
	}
	c.do(http.MethodPost, "/users", 0, user.CreateUserRequest{Name: "Kabir Shah"}, &guest)

	var tr trip.TripResponse
	if code := c.do(http.MethodPost, "/trips", host.ID, trip.CreateTripRequest{Name: "Spiti in June", Destination: "Kaza"}, &tr); code != http.StatusCreated {
		t.Fatalf("expected 201 creating trip, got %d", code)
	}
	if tr.Status != trip.StatusPlanning || tr.OwnerID != host.ID {
		t.Fatalf("unexpected trip: %+v", tr)
	}

	var got trip.TripResponse
	if code := c.do(http.MethodGet, fmt.Sprintf("/trips/%d", tr.ID), host.ID, nil, &got); code != http.StatusOK || got.ID != tr.ID {
		t.Fatalf("expected trip %d, got %d (%+v)", tr.ID, code, got)
	}

	members := fmt.Sprintf("/trips/%d/members", tr.ID)
	var m participation.MembershipResponse
	if code := c.do(http.MethodPost, members+"/join", guest.ID, nil, &m); code != http.StatusOK {
		t.Fatalf("expected 200 on join, got %d", code)
	}
	if m.State != participation.StateRequested {
		t.Fatalf("unverified guest should wait for the host, got %s", m.State)
	}

	// The ledger is closed to anyone not yet approved
	negotiation := fmt.Sprintf("/trips/%d/negotiation", tr.ID)
	if code := c.do(http.MethodGet, negotiation, guest.ID, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for requested guest, got %d", code)
	}

	if code := c.do(http.MethodPost, fmt.Sprintf("%s/%d/approve", members, guest.ID), guest.ID, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 when guest approves themselves, got %d", code)
	}
	if code := c.do(http.MethodPost, fmt.Sprintf("%s/%d/approve", members, guest.ID), host.ID, nil, &m); code != http.StatusOK {
		t.Fatalf("expected 200 on approve, got %d", code)
	}
	if m.State != participation.StateApprovedUnpaid || m.Paid {
		t.Fatalf("unexpected membership after approval: %+v", m)
	}

	if code := c.do(http.MethodGet, negotiation, guest.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 for approved guest, got %d", code)
	}

	var gt struct {
		Members int `json:"members"`
	}
	if code := c.do(http.MethodGet, fmt.Sprintf("/trips/%d/trust", tr.ID), guest.ID, nil, &gt); code != http.StatusOK {
		t.Fatalf("expected 200 for group trust, got %d", code)
	}
	if gt.Members != 2 {
		t.Fatalf("expected host and guest in group trust, got %d", gt.Members)
	}

	var status struct {
		Eligible bool `json:"eligible"`
	}
	if code := c.do(http.MethodGet, fmt.Sprintf("/trips/%d/payment", tr.ID), guest.ID, nil, &status); code != http.StatusOK {
		t.Fatalf("expected 200 for payment status, got %d", code)
	}
	if status.Eligible {
		t.Fatal("payments must stay closed while planning")
	}

	if code := c.do(http.MethodGet, "/trips/9999", host.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown trip, got %d", code)
	}
}

func TestRoutesRequireBearerWhenSecretSet(t *testing.T) {
	t.Parallel()
	const secret = "tribe-test-secret"
	srv := newTestServer(t, &config.Config{JWTSecret: secret, CORSAllowedOrigins: []string{"*"}})

	resp, err := http.Get(srv.URL + "/api/v1/trips")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	token, err := middleware.GenerateToken(1, secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	// Health stays public
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for health, got %d", resp.StatusCode)
	}
}

func TestRoutesInternalNeedServiceToken(t *testing.T) {
	t.Parallel()
	const serviceToken = "kyc-and-gateway"
	srv := newTestServer(t, &config.Config{ServiceToken: serviceToken, CORSAllowedOrigins: []string{"*"}})
	c := client{t: t, url: srv.URL + "/api/v1"}
	svc := client{t: t, url: srv.URL + "/api/v1", service: serviceToken}

	var host, guest user.UserResponse
	c.do(http.MethodPost, "/users", 0, user.CreateUserRequest{Name: "Meera Iyer"}, &host)
	c.do(http.MethodPost, "/users", 0, user.CreateUserRequest{Name: "Kabir Shah"}, &guest)
	var tr trip.TripResponse
	c.do(http.MethodPost, "/trips", host.ID, trip.CreateTripRequest{Name: "Spiti in June", Destination: "Kaza"}, &tr)

	// Guests cannot verify themselves to skip the host's approval
	kyc := fmt.Sprintf("/users/%d/kyc", guest.ID)
	if code := c.do(http.MethodPut, kyc, guest.ID, user.KYCRequest{Verified: true}, nil); code < 400 {
		t.Fatalf("self verification accepted with %d", code)
	}
	if code := c.do(http.MethodPut, "/internal"+kyc, guest.ID, user.KYCRequest{Verified: true}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 on internal route without service token, got %d", code)
	}
	outcome := fmt.Sprintf("/internal/users/%d/trips/outcome", guest.ID)
	if code := c.do(http.MethodPost, outcome, guest.ID, user.TripOutcomeRequest{Outcome: "completed"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 recording own trip outcome, got %d", code)
	}

	members := fmt.Sprintf("/trips/%d/members", tr.ID)
	var m participation.MembershipResponse
	c.do(http.MethodPost, members+"/join", guest.ID, nil, &m)
	if m.State != participation.StateRequested {
		t.Fatalf("unverified guest should wait for the host, got %s", m.State)
	}

	// Once the verification service vouches for them the join goes straight through
	var verified user.UserResponse
	if code := svc.do(http.MethodPut, "/internal"+kyc, 0, user.KYCRequest{Verified: true}, &verified); code != http.StatusOK {
		t.Fatalf("expected 200 from verification service, got %d", code)
	}
	c.do(http.MethodPost, members+"/join", guest.ID, nil, &m)
	if m.State != participation.StateApprovedUnpaid {
		t.Fatalf("verified guest should be approved on re-request, got %s", m.State)
	}

	// Payment confirmation is a gateway signal, not a member action
	confirm := fmt.Sprintf("/internal/trips/%d/payment/%d/confirm", tr.ID, guest.ID)
	if code := c.do(http.MethodPost, confirm, guest.ID, map[string]float64{"amount": 1}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 confirming own payment, got %d", code)
	}
	if code := c.do(http.MethodPost, fmt.Sprintf("/trips/%d/payment/confirm", tr.ID), guest.ID, map[string]float64{"amount": 1}, nil); code < 400 {
		t.Fatalf("public confirm route accepted a payment with %d", code)
	}
	if code := svc.do(http.MethodPost, confirm, 0, map[string]float64{"amount": 1}, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 while payments are closed, got %d", code)
	}
}

func TestRoutesInternalDisabledWithoutServiceToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &config.Config{CORSAllowedOrigins: []string{"*"}})
	c := client{t: t, url: srv.URL + "/api/v1", service: "anything"}

	c.do(http.MethodPost, "/users", 0, user.CreateUserRequest{Name: "Meera Iyer"}, nil)
	if code := c.do(http.MethodPut, "/internal/users/1/kyc", 1, user.KYCRequest{Verified: true}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 with internal routes disabled, got %d", code)
	}
}
