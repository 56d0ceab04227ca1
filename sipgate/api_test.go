package sipgate

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/kr/pretty"
	"github.com/shopspring/decimal"
)

// fakeServer answers XML-RPC calls with canned replies and records the
// method names and request bodies it has seen.
type fakeServer struct {
	*httptest.Server
	replies map[string]string // method name -> methodResponse body
	mu      sync.Mutex
	methods []string
	bodies  []string
	auth    []string
}

func newFakeServer(t *testing.T, replies map[string]string) *fakeServer {
	fs := &fakeServer{replies: replies}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
			return
		}
		var call struct {
			MethodName string `xml:"methodName"`
		}
		if err := xml.Unmarshal(body, &call); err != nil {
			t.Errorf("bad request body: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, pass, _ := r.BasicAuth()
		fs.mu.Lock()
		fs.methods = append(fs.methods, call.MethodName)
		fs.bodies = append(fs.bodies, string(body))
		fs.auth = append(fs.auth, user+":"+pass)
		fs.mu.Unlock()
		reply, ok := fs.replies[call.MethodName]
		if !ok {
			reply = fault(400, "Method not supported")
		}
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, reply)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) calls() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.methods...)
}

func (fs *fakeServer) body(i int) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if i < 0 {
		i += len(fs.bodies)
	}
	return fs.bodies[i]
}

func (fs *fakeServer) lastBody() string { return fs.body(-1) }

func member(name, value string) string {
	return "<member><name>" + name + "</name><value>" + value + "</value></member>"
}

func reply(members ...string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value><struct>` +
		strings.Join(members, "") +
		`</struct></value></param></params></methodResponse>`
}

func status(code int, text string) string {
	return member("StatusCode", fmt.Sprintf("<i4>%d</i4>", code)) +
		member("StatusString", "<string>"+text+"</string>")
}

func fault(code int, text string) string {
	return `<?xml version="1.0"?><methodResponse><fault><value><struct>` +
		member("faultCode", fmt.Sprintf("<int>%d</int>", code)) +
		member("faultString", "<string>"+text+"</string>") +
		`</struct></value></fault></methodResponse>`
}

var defaultReplies = map[string]string{
	"samurai.ClientIdentify":  reply(status(200, "Method success")),
	"samurai.SessionInitiate": reply(status(200, "Method success"), member("SessionID", "<string>abc</string>")),
	"samurai.BalanceGet": reply(status(200, "Method success"),
		member("CurrentBalance", "<struct>"+
			member("Currency", "<string>EUR</string>")+
			member("TotalIncludingVat", "<double>12.34</double>")+
			"</struct>")),
	"samurai.OwnUriListGet": reply(status(200, "Method success"),
		member("OwnUriList", "<array><data><value><struct>"+
			member("SipUri", "<string>sip:1234567e0@sipgate.de</string>")+
			"</struct></value></data></array>")),
}

func newTestAPI(t *testing.T, replies map[string]string) (*API, *fakeServer) {
	fs := newFakeServer(t, replies)
	api, err := NewURL(strings.Replace(fs.URL, "http://", "http://user:secret@", 1), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { api.Close() })
	return api, fs
}

func TestIdentifyOnce(t *testing.T) {
	api, fs := newTestAPI(t, defaultReplies)
	if _, err := api.Balance(); err != nil {
		t.Fatal(err)
	}
	if _, err := api.SendSMS("+491701234567", "Hello", ""); err != nil {
		t.Fatal(err)
	}
	if err := api.Identify(); err != nil {
		t.Fatal(err)
	}
	want := []string{"samurai.ClientIdentify", "samurai.BalanceGet", "samurai.SessionInitiate"}
	if diff := pretty.Diff(fs.calls(), want); len(diff) > 0 {
		t.Errorf("calls: %v", diff)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, auth := range fs.auth {
		if auth != "user:secret" {
			t.Errorf("basic auth %q", auth)
		}
	}
}

func TestIdentifyExplicit(t *testing.T) {
	api, fs := newTestAPI(t, defaultReplies)
	if err := api.Identify(); err != nil {
		t.Fatal(err)
	}
	if _, err := api.OwnURIList(); err != nil {
		t.Fatal(err)
	}
	want := []string{"samurai.ClientIdentify", "samurai.OwnUriListGet"}
	if diff := pretty.Diff(fs.calls(), want); len(diff) > 0 {
		t.Errorf("calls: %v", diff)
	}
	if body := fs.body(0); !strings.Contains(body, "Go-SipgateAPI") {
		t.Errorf("client name missing: %s", body)
	}
}

func TestIdentifyRetriedAfterFault(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify": fault(401, "Unauthorized"),
	}
	api, fs := newTestAPI(t, replies)
	if _, err := api.Balance(); err == nil {
		t.Fatal("expected error")
	}
	if _, err := api.Balance(); err == nil {
		t.Fatal("expected error")
	}
	want := []string{"samurai.ClientIdentify", "samurai.ClientIdentify"}
	if diff := pretty.Diff(fs.calls(), want); len(diff) > 0 {
		t.Errorf("calls: %v", diff)
	}
}

func TestSendSMS(t *testing.T) {
	api, fs := newTestAPI(t, defaultReplies)
	resp, err := api.SendSMS("+491701234567", "Hello world", "sip:4930123@sipgate.net")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.StatusCode != 200 || resp.StatusMessage != "Method success" {
		t.Errorf("unexpected response: %# v", pretty.Formatter(resp))
	}
	body := fs.lastBody()
	for _, s := range []string{
		"samurai.SessionInitiate",
		"sip:491701234567@sipgate.net",
		"Hello world",
		"<name>TOS</name>",
		"<name>LocalURI</name>",
	} {
		if !strings.Contains(body, s) {
			t.Errorf("request lacks %q: %s", s, body)
		}
	}
	if strings.Contains(body, "+49") {
		t.Errorf("leading + sent: %s", body)
	}

	if _, err := api.SendSMS("491701234567", "no sender", ""); err != nil {
		t.Fatal(err)
	}
	if body := fs.lastBody(); strings.Contains(body, "LocalURI") {
		t.Errorf("empty sender sent: %s", body)
	}
}

func TestSendSMSStatusNotError(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify":  defaultReplies["samurai.ClientIdentify"],
		"samurai.SessionInitiate": reply(status(508, "Format is not valid E.164.")),
	}
	api, _ := newTestAPI(t, replies)
	resp, err := api.SendSMS("0170", "Hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.StatusCode != 508 || resp.StatusMessage != "Format is not valid E.164." {
		t.Errorf("unexpected response: %# v", pretty.Formatter(resp))
	}
}

func TestUnknownStatus(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify": defaultReplies["samurai.ClientIdentify"],
		"samurai.OwnUriListGet":  reply(status(599, "Something new")),
	}
	api, _ := newTestAPI(t, replies)
	resp, err := api.OwnURIList()
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusMessage != "unknown" || resp.StatusString != "Something new" || resp.Success {
		t.Errorf("unexpected response: %# v", pretty.Formatter(resp))
	}
}

func TestBalance(t *testing.T) {
	api, _ := newTestAPI(t, defaultReplies)
	balance, err := api.Balance()
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("balance %s", balance)
	}
}

func TestBalanceMissing(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify": defaultReplies["samurai.ClientIdentify"],
		"samurai.BalanceGet":     reply(status(401, "Request denied")),
	}
	api, _ := newTestAPI(t, replies)
	_, err := api.Balance()
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOwnURIList(t *testing.T) {
	api, _ := newTestAPI(t, defaultReplies)
	resp, err := api.OwnURIList()
	if err != nil {
		t.Fatal(err)
	}
	list, ok := resp.Values["OwnUriList"].([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected list: %# v", pretty.Formatter(resp.Values))
	}
}

func TestFault(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify": defaultReplies["samurai.ClientIdentify"],
		"samurai.BalanceGet":     fault(403, "Invalid arguments given"),
	}
	api, _ := newTestAPI(t, replies)
	_, err := api.Balance()
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if rpcErr.Method != "samurai.BalanceGet" || !strings.Contains(err.Error(), "Invalid arguments given") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTransportError(t *testing.T) {
	fs := newFakeServer(t, defaultReplies)
	api, err := NewURL(fs.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	fs.Close()
	_, err = api.SendSMS("491701234567", "Hello", "")
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Method != "samurai.ClientIdentify" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMalformedReply(t *testing.T) {
	replies := map[string]string{
		"samurai.ClientIdentify": reply(member("Foo", "<string>bar</string>")),
	}
	api, _ := newTestAPI(t, replies)
	err := api.Identify()
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTier(t *testing.T) {
	for _, tier := range []Tier{TierTeam, TierBasic, TierPlus} {
		api, err := New("user", "p@ss:word", tier)
		if err != nil {
			t.Fatalf("%s: %v", tier, err)
		}
		api.Close()
	}
	if _, err := New("user", "pass", "gold"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	for tier, host := range map[Tier]string{
		TierTeam:  "api.sipgate.net",
		TierBasic: "samurai.sipgate.net",
		TierPlus:  "samurai.sipgate.net",
	} {
		rawurl, err := endpoint("user", "p@ss:word", tier)
		if err != nil {
			t.Fatalf("%s: %v", tier, err)
		}
		if want := "https://user:p%40ss%3Aword@" + host + "/RPC2"; rawurl != want {
			t.Errorf("%s: %q, want %q", tier, rawurl, want)
		}
		u, err := url.Parse(rawurl)
		if err != nil {
			t.Fatalf("%s: %v", tier, err)
		}
		password, _ := u.User.Password()
		if u.Host != host || u.User.Username() != "user" || password != "p@ss:word" {
			t.Errorf("%s: %# v", tier, pretty.Formatter(u))
		}
	}
	if _, err := endpoint("user", "pass", "gold"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStatusMessage(t *testing.T) {
	if msg := StatusMessage(200); msg != "Method success" {
		t.Errorf("200: %q", msg)
	}
	if msg := StatusMessage(42); msg != "unknown" {
		t.Errorf("42: %q", msg)
	}
	if TypeOfService["text"] != "characters" {
		t.Error("text is accounted in characters")
	}
}
