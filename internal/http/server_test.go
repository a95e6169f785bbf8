// README: Route tests: health, signed storefront intake, photo intake and the chat webhook.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dishbee/internal/callback"
	"dishbee/internal/chat/chattest"
	"dishbee/internal/config"
	httptransport "dishbee/internal/http"
	"dishbee/internal/ingress"
	"dishbee/internal/kv"
	"dishbee/internal/metrics"
	"dishbee/internal/modules/dispatch"
	"dishbee/internal/modules/ocr"
	"dishbee/internal/modules/order"
	"dishbee/internal/render"
	"dishbee/internal/types"
)

const (
	botToken     = "123456:test-token"
	secret       = "s3cret"
	dispatchChat = int64(-100)
	lrChat       = int64(-1001)
)

// stubParser is a test double for the OCR service.
type stubParser struct {
	parsed *ocr.Parsed
	err    error
}

func (s *stubParser) Process(_ context.Context, _ []byte) (*ocr.Parsed, error) {
	return s.parsed, s.err
}

type testServer struct {
	handler http.Handler
	gw      *chattest.Recorder
	store   *order.Store
}

func newTestServer(t *testing.T, parser *stubParser) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	reg, err := config.NewRegistry(
		[]config.Restaurant{{Name: "Leckerolls", ChatID: lrChat}},
		[]config.Courier{{Name: "Alice", UserID: 111}},
	)
	if err != nil {
		t.Fatal(err)
	}
	clock := types.NewFixedClock(time.Date(2025, 3, 10, 17, 50, 0, 0, loc))
	gw := chattest.NewRecorder()
	store := order.NewStore(kv.NewMemoryStore(), 24*time.Hour, loc, nil)
	m := metrics.New()
	orch := dispatch.New(dispatch.Deps{
		Gateway:        gw,
		Store:          store,
		Registry:       reg,
		Renderer:       render.New("dishbee", reg, loc),
		Clock:          clock,
		Metrics:        m,
		DispatchChatID: dispatchChat,
	})
	deps := httptransport.ServerDeps{
		Orchestrator:  orch,
		Decoder:       ingress.NewDecoder(reg, loc, dispatchChat),
		Orders:        store,
		Gateway:       gw,
		Metrics:       m,
		Clock:         clock,
		BotToken:      botToken,
		WebhookSecret: secret,
	}
	if parser != nil {
		deps.OCR = parser
	}
	return &testServer{handler: httptransport.NewServer(deps).Routes(), gw: gw, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func storefrontBody(vendor string) []byte {
	b, _ := json.Marshal(map[string]any{
		"id":          1001,
		"name":        "#1001",
		"total_price": "12.50",
		"customer":    map[string]any{"first_name": "Max", "last_name": "Muster", "phone": "0151 1234567"},
		"shipping_address": map[string]any{
			"address1": "Innstraße 5", "zip": "94032", "city": "Passau",
		},
		"line_items": []map[string]any{{"title": "Zimtschnecke", "quantity": 1, "vendor": vendor}},
	})
	return b
}

func signedRequest(body []byte, sig string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/storefront", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(ingress.SignatureHeader, sig)
	}
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["open_orders"] != float64(0) {
		t.Errorf("expected 0 open orders, got %v", body["open_orders"])
	}
	if body["ts"] != "2025-03-10T17:50:00+01:00" {
		t.Errorf("unexpected ts %v", body["ts"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestStorefront_Signature(t *testing.T) {
	s := newTestServer(t, nil)
	body := storefrontBody("Leckerolls")

	if w := s.do(signedRequest(body, "")); w.Code != http.StatusUnauthorized {
		t.Errorf("missing signature: expected 401, got %d", w.Code)
	}
	if w := s.do(signedRequest(body, ingress.Sign("other", body))); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", w.Code)
	}
	if n := len(s.gw.Calls()); n != 0 {
		t.Errorf("expected no chat calls, got %d", n)
	}
	if s.store.Exists("1001") {
		t.Error("rejected webhook created state")
	}
}

func TestStorefront_CreatesOrder(t *testing.T) {
	s := newTestServer(t, nil)
	body := storefrontBody("Leckerolls")

	w := s.do(signedRequest(body, ingress.Sign(secret, body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["order_id"]; got != "1001" {
		t.Errorf("expected order_id 1001, got %v", got)
	}
	post, ok := s.gw.LastSent(dispatchChat)
	if !ok || !strings.Contains(post.Text, "🔖 #01 - dishbee (LR)") {
		t.Errorf("unexpected dispatch post %q", post.Text)
	}
	if len(s.gw.Sent(lrChat)) != 1 {
		t.Errorf("expected one vendor post, got %d", len(s.gw.Sent(lrChat)))
	}

	// redelivery
	w = s.do(signedRequest(body, ingress.Sign(secret, body)))
	if w.Code != http.StatusOK {
		t.Errorf("redelivery: expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["result"]; got != "ignored" {
		t.Errorf("redelivery: expected ignored, got %v", got)
	}
	if len(s.gw.Sent(dispatchChat)) != 1 {
		t.Errorf("redelivery posted again")
	}

	health := decode(t, s.do(httptest.NewRequest(http.MethodGet, "/", nil)))
	if health["open_orders"] != float64(1) {
		t.Errorf("expected 1 open order, got %v", health["open_orders"])
	}
}

func TestStorefront_Validation(t *testing.T) {
	s := newTestServer(t, nil)
	body := storefrontBody("Nowhere")
	w := s.do(signedRequest(body, ingress.Sign(secret, body)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if n := len(s.gw.Calls()); n != 0 {
		t.Errorf("expected no chat calls, got %d", n)
	}
}

func photoRequest(t *testing.T, vendor string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("vendor", vendor); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("image", "order.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("fake png bytes"))
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPhoto_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(photoRequest(t, "Leckerolls")); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestPhoto_CreatesOrder(t *testing.T) {
	total := decimal.RequireFromString("24.50")
	s := newTestServer(t, &stubParser{parsed: &ocr.Parsed{
		OrderCode:    "47",
		CustomerName: "Max Mustermann",
		Street:       "Musterstraße 12",
		Zip:          "94032",
		Phone:        "+491511234567",
		Time:         types.ASAP,
		Total:        &total,
	}})

	w := s.do(photoRequest(t, "Leckerolls"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["order_id"].(string)
	if !strings.HasPrefix(id, "ph-47-") {
		t.Errorf("unexpected order id %q", id)
	}
	if !s.store.Exists(id) {
		t.Errorf("order %s not stored", id)
	}
	if len(s.gw.Sent(dispatchChat)) != 1 {
		t.Errorf("expected the dispatch post")
	}
}

func TestPhoto_Taxonomy(t *testing.T) {
	s := newTestServer(t, &stubParser{err: &ocr.ParseError{Code: ocr.CodeNoteCollapsed}})

	w := s.do(photoRequest(t, "Leckerolls"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "NOTE_COLLAPSED" {
		t.Errorf("expected NOTE_COLLAPSED, got %v", got)
	}
	post, ok := s.gw.LastSent(dispatchChat)
	if !ok || post.Text != ocr.Instruction(ocr.CodeNoteCollapsed) {
		t.Errorf("expected the operator instruction, got %q", post.Text)
	}
}

func TestPhoto_MissingImage(t *testing.T) {
	s := newTestServer(t, &stubParser{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/photo", strings.NewReader("vendor=Leckerolls"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func chatRequest(t *testing.T, path string, update any) *http.Request {
	t.Helper()
	b, err := json.Marshal(update)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func press(data string) map[string]any {
	return map[string]any{
		"update_id": 1,
		"callback_query": map[string]any{
			"id":   "cb-1",
			"from": map[string]any{"id": 555, "is_bot": false, "first_name": "Op"},
			"data": data,
			"message": map[string]any{
				"message_id": 101,
				"date":       0,
				"chat":       map[string]any{"id": dispatchChat, "type": "supergroup"},
			},
		},
	}
}

func TestChat_TokenPath(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(chatRequest(t, "/wrong-token", press(callback.Encode(callback.Remove, "1001"))))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if n := len(s.gw.Calls()); n != 0 {
		t.Errorf("expected no chat calls, got %d", n)
	}
}

func TestChat_CallbackDrivesOrder(t *testing.T) {
	s := newTestServer(t, nil)
	body := storefrontBody("Leckerolls")
	if w := s.do(signedRequest(body, ingress.Sign(secret, body))); w.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d", w.Code)
	}

	w := s.do(chatRequest(t, "/"+botToken, press(callback.Encode(callback.ReqAsap, "1001"))))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	req, ok := s.gw.LastSent(lrChat)
	if !ok || !strings.Contains(req.Text, "ASAP") {
		t.Errorf("expected an ASAP request in the vendor group, got %q", req.Text)
	}
	o, err := s.store.Get("1001")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != order.StatusTimeRequested {
		t.Errorf("expected time_requested, got %s", o.Status)
	}
	if s.gw.Count(chattest.OpAnswer, 0) != 1 {
		t.Errorf("expected the press to be answered")
	}

	// unknown order: still answered, no state
	w = s.do(chatRequest(t, "/"+botToken, press(callback.Encode(callback.Remove, "9999"))))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if s.gw.Count(chattest.OpAnswer, 0) != 2 {
		t.Errorf("expected the second press to be answered")
	}
}

func TestChat_MalformedToken(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(chatRequest(t, "/"+botToken, press("garbage")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	calls := s.gw.Calls()
	if len(calls) != 1 || calls[0].Op != chattest.OpAnswer || calls[0].Text == "" {
		t.Errorf("expected one answer with a reason, got %+v", calls)
	}
}

func TestChat_ListCommand(t *testing.T) {
	s := newTestServer(t, nil)
	update := map[string]any{
		"update_id": 2,
		"message": map[string]any{
			"message_id": 9,
			"date":       0,
			"text":       "/scheduled",
			"chat":       map[string]any{"id": dispatchChat, "type": "supergroup"},
			"entities":   []map[string]any{{"type": "bot_command", "offset": 0, "length": 10}},
		},
	}
	if w := s.do(chatRequest(t, "/"+botToken, update)); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(s.gw.Sent(dispatchChat)) != 1 {
		t.Errorf("expected the scheduled list in the dispatch chat")
	}
}

func TestChat_MalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/"+botToken, strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	body := storefrontBody("Leckerolls")
	s.do(signedRequest(body, ingress.Sign(secret, body)))

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dispatch_events_total") {
		t.Errorf("expected the events counter in %q", w.Body.String()[:min(200, w.Body.Len())])
	}
}
