package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/node"
	"github.com/rsquared-project/witness-manager/internal/progress"
	"github.com/rsquared-project/witness-manager/internal/rotation"
	"github.com/rsquared-project/witness-manager/internal/wallet"
)

type stubWallet struct{ authErr error }

func (s stubWallet) VerifyKey(context.Context, string, string) (string, error) {
	return "1.6.42", nil
}

func (s stubWallet) GenerateKeypair(context.Context) (wallet.Keypair, error) {
	return wallet.Keypair{PublicKey: "RQRX1new", PrivateKeyWIF: "5Jnew"}, nil
}

func (s stubWallet) Authorize(context.Context, string, string, string, string) error {
	return s.authErr
}

type stubController struct{}

func (stubController) Start(context.Context, node.StartOpts) error       { return nil }
func (stubController) Stop(context.Context) error                        { return nil }
func (stubController) Status(context.Context) (node.Status, error)       { return node.Status{}, nil }
func (stubController) IsReady(context.Context, int, time.Duration) bool  { return true }

func newTestServer(t *testing.T) (*Server, *rotation.Service) {
	t.Helper()
	svc := rotation.NewService(func() rotation.WalletOps { return stubWallet{} }, stubController{})
	svc.ConfigureOrch = func(o *rotation.Orchestrator) {
		o.ReadyDelay = time.Millisecond
	}
	home := t.TempDir()
	if err := SaveCredentials(home, "admin", "pw"); err != nil {
		t.Fatal(err)
	}
	creds, err := LoadCredentials(home)
	if err != nil {
		t.Fatal(err)
	}
	prof := config.Profile{Backend: config.BackendDocker, LocalNode: true, HomeDir: home}
	return New(svc, prof, creds), svc
}

func authedReq(method, url, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	req.SetBasicAuth("admin", "pw")
	return req
}

func waitIdle(t *testing.T, svc *rotation.Service) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for svc.Active() {
		select {
		case <-deadline:
			t.Fatal("run never finished")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, path := range []string{"/", "/keys", "/config", "/progress"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without auth = %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/config", nil)
	req.SetBasicAuth("admin", "wrong")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", rec.Code)
	}
}

func TestStartAndKeys(t *testing.T) {
	s, svc := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("GET", "/keys", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("keys before any run = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("POST", "/start", `{"account_name":"init0","wif_key":"5Jold"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("start = %d: %s", rec.Code, rec.Body)
	}
	waitIdle(t, svc)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("GET", "/keys", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("keys after run = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Keys map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Keys["pub_key"] != "RQRX1new" || body.Keys["wif_key"] != "5Jnew" {
		t.Fatalf("keys = %+v", body.Keys)
	}
}

func TestStartValidation(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("POST", "/start", `{"account_name":"init0"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing wif = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "required") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	s, svc := newTestServer(t)
	release := make(chan struct{})
	svc.PreFlight = func(ctx context.Context, feed *progress.Feed) error {
		feed.Publish("waiting on node...")
		<-release
		return nil
	}
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("POST", "/start", `{"account_name":"init0","wif_key":"5Jold"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("first start = %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("POST", "/start", `{"account_name":"init0","wif_key":"5Jold"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second start = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already running") {
		t.Fatalf("body = %s", rec.Body)
	}

	close(release)
	waitIdle(t, svc)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedReq("POST", "/start", `{"account_name":"init0","wif_key":"5Jold"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("third start = %d: %s", rec.Code, rec.Body)
	}
	waitIdle(t, svc)
}

func TestProgressStreamsEvents(t *testing.T) {
	s, svc := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("POST", srv.URL+"/start", strings.NewReader(`{"account_name":"init0","wif_key":"5Jold"}`))
	req.SetBasicAuth("admin", "pw")
	req.Header.Set("Content-Type", "application/json")
	if res, err := srv.Client().Do(req); err != nil || res.StatusCode != 200 {
		t.Fatalf("start: %v %v", err, res)
	}
	waitIdle(t, svc)

	req, _ = http.NewRequest("GET", srv.URL+"/progress", nil)
	req.SetBasicAuth("admin", "pw")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(res.Body)
	var sawSentinel bool
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "5Jold") || strings.Contains(line, "5Jnew") {
			t.Fatalf("WIF leaked into SSE stream: %s", line)
		}
		if line == "data: PROCESS_COMPLETE_SUCCESS" {
			sawSentinel = true
			break
		}
	}
	if !sawSentinel {
		t.Fatal("sentinel never streamed")
	}
}

func TestProgressClientDisconnectDoesNotStallRun(t *testing.T) {
	s, svc := newTestServer(t)
	release := make(chan struct{})
	svc.PreFlight = func(ctx context.Context, feed *progress.Feed) error {
		feed.Publish("waiting on node...")
		<-release
		// A watcher that went away must not block the run's publishing.
		for i := 0; i < 200; i++ {
			feed.Publish("still working")
		}
		return nil
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("POST", srv.URL+"/start", strings.NewReader(`{"account_name":"init0","wif_key":"5Jold"}`))
	req.SetBasicAuth("admin", "pw")
	if res, err := srv.Client().Do(req); err != nil || res.StatusCode != 200 {
		t.Fatalf("start: %v %v", err, res)
	}

	// Attach a progress watcher, read one event, then drop the connection.
	ctx, cancel := context.WithCancel(context.Background())
	req, _ = http.NewRequestWithContext(ctx, "GET", srv.URL+"/progress", nil)
	req.SetBasicAuth("admin", "pw")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bufio.NewReader(res.Body).ReadString('\n'); err != nil {
		t.Fatal(err)
	}
	cancel()
	res.Body.Close()

	close(release)
	waitIdle(t, svc)
	if last := svc.Last(); last == nil || !last.Succeeded() {
		t.Fatalf("run did not complete cleanly: %+v", last)
	}
}

func TestConfigExposesSafeSubsetOnly(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authedReq("GET", "/config", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("config = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"backend":"docker"`) {
		t.Fatalf("missing backend: %s", body)
	}
	if strings.Contains(body, "cli_wallet") || strings.Contains(body, "rpc_endpoint") {
		t.Fatalf("sensitive fields exposed: %s", body)
	}
}

func TestCredentialsWrongPassword(t *testing.T) {
	home := t.TempDir()
	if err := SaveCredentials(home, "admin", "pw"); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCredentials(home)
	if err != nil {
		t.Fatal(err)
	}
	if c.check("admin", "nope") || c.check("other", "pw") {
		t.Fatal("bad credentials accepted")
	}
	if !c.check("admin", "pw") {
		t.Fatal("good credentials rejected")
	}
}
