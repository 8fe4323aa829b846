package umapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"aum/internal/config"
	"aum/internal/errors"
	"aum/internal/retry"
)

// newTestClient builds a client pointed at a local test server. Retries
// run with millisecond backoff so failure tests stay fast.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ims/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":86400}`)
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.OrgID = "TESTORG@AdobeOrg"
	cfg.ClientID = "test-client"
	cfg.ClientSecret = "test-secret"
	cfg.BaseURL = server.URL
	cfg.TokenURL = server.URL + "/ims/token"
	cfg.MaxConcurrent = 3
	cfg.CacheCapacity = 100

	client := NewClient(cfg)
	client.executor = retry.NewExecutor(&retry.Config{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
		Multiplier:  2.0,
	})
	t.Cleanup(client.Close)

	return client
}

func TestCallCachesResults(t *testing.T) {
	var requests int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	ctx := context.Background()
	first, err := client.Call(ctx, "/v2/usermanagement/products/TESTORG", "GET", nil, nil)
	if err != nil {
		t.Fatalf("First call returned error: %v", err)
	}

	second, err := client.Call(ctx, "/v2/usermanagement/products/TESTORG", "GET", nil, nil)
	if err != nil {
		t.Fatalf("Second call returned error: %v", err)
	}

	if atomic.LoadInt64(&requests) != 1 {
		t.Errorf("Expected a single upstream request, got %d", requests)
	}
	if string(first) != string(second) {
		t.Error("Expected cached payload to match the original")
	}

	metrics := client.Metrics()
	if metrics.CacheHits != 1 || metrics.APICalls != 1 {
		t.Errorf("Expected 1 cache hit and 1 API call, got %+v", metrics)
	}
}

func TestCallRetriesTransientFailures(t *testing.T) {
	var attempts int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	_, err := client.Call(context.Background(), "/v2/usermanagement/groups/TESTORG", "GET", nil, nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", got)
	}
}

func TestCallExhaustsRetries(t *testing.T) {
	var attempts int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Call(context.Background(), "/v2/usermanagement/users/TESTORG", "GET", nil, nil)

	var exhausted *errors.ExhaustedRetriesError
	if !stderrors.As(err, &exhausted) {
		t.Fatalf("Expected ExhaustedRetriesError, got %v", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", got)
	}
	if metrics := client.Metrics(); metrics.APIFailures != 1 {
		t.Errorf("Expected 1 recorded failure, got %+v", metrics)
	}
}

func TestSlotNotLeakedAfterFailure(t *testing.T) {
	var healthy atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	if _, err := client.Call(context.Background(), "/v2/usermanagement/users/TESTORG?page=0", "GET", nil, nil); err == nil {
		t.Fatal("Expected the first call to exhaust retries")
	}

	// Every limiter slot must be free again
	healthy.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < client.limiter.Cap(); i++ {
		endpoint := fmt.Sprintf("/v2/usermanagement/users/TESTORG?page=%d", i+1)
		if _, err := client.Call(ctx, endpoint, "GET", nil, nil); err != nil {
			t.Fatalf("Call %d after failure returned error: %v", i, err)
		}
	}
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	var attempts int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	start := time.Now()
	_, err := client.Call(context.Background(), "/v2/usermanagement/products/TESTORG", "GET", nil, nil)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected success after the rate-limit wait, got %v", err)
	}
	if elapsed < time.Second {
		t.Errorf("Expected the server-dictated 1s wait, elapsed %v", elapsed)
	}
	if got := atomic.LoadInt64(&attempts); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestCallDeadlineExceeded(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, "/v2/usermanagement/users/TESTORG", "GET", nil, nil)

	var deadline *errors.DeadlineExceededError
	if !stderrors.As(err, &deadline) {
		t.Fatalf("Expected DeadlineExceededError, got %v", err)
	}
	var exhausted *errors.ExhaustedRetriesError
	if stderrors.As(err, &exhausted) {
		t.Error("A fired deadline must not be reported as exhaustion")
	}

	// The slot held during the aborted call must have been released
	if !client.limiter.TryAcquire() {
		t.Error("Deadline expiry leaked a concurrency slot")
	} else {
		client.limiter.Release()
	}
}

func TestConcurrencyCapAcrossBatch(t *testing.T) {
	var inFlight, peak int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			observed := atomic.LoadInt64(&peak)
			if current <= observed || atomic.CompareAndSwapInt64(&peak, observed, current) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	requests := make([]Request, 10)
	for i := range requests {
		requests[i] = Request{
			Endpoint: fmt.Sprintf("/v2/usermanagement/users/TESTORG?page=%d", i),
			Method:   "GET",
		}
	}

	outcomes := client.CallBatch(context.Background(), requests)
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			t.Errorf("Request %d failed: %v", i, outcome.Err)
		}
	}

	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Errorf("Observed %d requests in flight, cap is 3", got)
	}
}

func TestBatchPartialFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "second@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"malformed user"}`)
			return
		}
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	requests := []Request{
		{Endpoint: "/v2/usermanagement/users/TESTORG?email=first@example.com", Method: "GET"},
		{Endpoint: "/v2/usermanagement/users/TESTORG?email=second@example.com", Method: "GET"},
		{Endpoint: "/v2/usermanagement/users/TESTORG?email=third@example.com", Method: "GET"},
	}

	outcomes := client.CallBatch(context.Background(), requests)

	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("Expected items 1 and 3 to succeed, got %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("Expected item 2 to fail")
	}
	for i, outcome := range outcomes {
		if outcome.Index != i {
			t.Errorf("Outcome %d carries index %d", i, outcome.Index)
		}
	}

	summary := Summarize(outcomes)
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "known@example.com" {
			fmt.Fprint(w, `{"users":[{"email":"known@example.com","firstname":"Known","lastname":"User","country":"US","status":"active"}],"lastPage":true}`)
			return
		}
		fmt.Fprint(w, `{"users":[],"lastPage":true}`)
	}))

	ctx := context.Background()

	user, err := client.GetUser(ctx, "known@example.com")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if user.Email != "known@example.com" || user.FirstName != "Known" {
		t.Errorf("Unexpected user payload: %+v", user)
	}

	if !client.IsUserCached("known@example.com") {
		t.Error("Expected the fetched user to be marked cached")
	}
	if client.IsUserCached("unknown@example.com") {
		t.Error("Expected unfetched user to not be cached")
	}

	_, err = client.GetUser(ctx, "missing@example.com")
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) || apiErr.Type != errors.ErrorTypeNotFound {
		t.Errorf("Expected not-found error for empty result, got %v", err)
	}
}

func TestListUsersWalksPages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "0":
			fmt.Fprint(w, `{"users":[{"email":"a@example.com"},{"email":"b@example.com"}],"lastPage":false}`)
		case "1":
			fmt.Fprint(w, `{"users":[{"email":"c@example.com"}],"lastPage":true}`)
		default:
			t.Errorf("Unexpected page requested: %s", r.URL.RawQuery)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	users, err := client.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("Expected 3 users across pages, got %d", len(users))
	}
	if users[2].Email != "c@example.com" {
		t.Errorf("Expected page order preserved, got %+v", users)
	}
}

func TestValidationFailsBeforeNetwork(t *testing.T) {
	var requests int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	_, err := client.CreateUser(context.Background(), &User{Email: "not-an-email", FirstName: "X", LastName: "Y"})

	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) || apiErr.Type != errors.ErrorTypeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if atomic.LoadInt64(&requests) != 0 {
		t.Errorf("Validation failures must not reach the network, saw %d requests", requests)
	}
}

func TestActionEndpoints(t *testing.T) {
	var bodies [][]byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	ctx := context.Background()

	if _, err := client.UpdateUser(ctx, "a@example.com", map[string]any{"firstname": "New"}); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if _, err := client.AssignProducts(ctx, "a@example.com", []string{"Photoshop CC"}); err != nil {
		t.Fatalf("AssignProducts returned error: %v", err)
	}
	if _, err := client.RemoveProducts(ctx, "a@example.com", []string{"Photoshop CC"}); err != nil {
		t.Fatalf("RemoveProducts returned error: %v", err)
	}
	if _, err := client.AddToGroups(ctx, "a@example.com", []string{"Designers"}); err != nil {
		t.Fatalf("AddToGroups returned error: %v", err)
	}

	if len(bodies) != 4 {
		t.Fatalf("Expected 4 distinct action posts, got %d", len(bodies))
	}

	wantVerbs := []string{`"update"`, `"add"`, `"remove"`, `"add"`}
	for i, body := range bodies {
		if !strings.Contains(string(body), `"a@example.com"`) {
			t.Errorf("Action %d missing user email: %s", i, body)
		}
		if !strings.Contains(string(body), wantVerbs[i]) {
			t.Errorf("Action %d missing verb %s: %s", i, wantVerbs[i], body)
		}
	}
}

func TestProvisionUsersPartialFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"success"}`)
	}))

	users := []User{
		{Email: "ok1@example.com", FirstName: "A", LastName: "One", Country: "US"},
		{Email: "broken", FirstName: "B", LastName: "Two"},
		{Email: "ok2@example.com", FirstName: "C", LastName: "Three", Country: "DE"},
	}

	outcomes := client.ProvisionUsers(context.Background(), users)

	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("Expected valid users to provision, got %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("Expected the invalid user to fail")
	}
}
