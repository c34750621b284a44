package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
	"github.com/vidasana/coach/internal/testutil"
)

type fakeCoach struct {
	answer    string
	fragments []string
	answerErr error

	plan    *rag.Plan
	planErr error

	reloadCount int
	reloadErr   error

	docs      []rag.DocumentInfo
	listErr   error
	uploadRes rag.UploadResult
	uploadErr error

	ready bool

	lastQuestion       string
	lastConversationID string
	lastUploadName     string
	lastUploadData     []byte
	lastUploadReload   bool
}

func (f *fakeCoach) Answer(_ context.Context, question, conversationID string) (string, error) {
	f.lastQuestion = question
	f.lastConversationID = conversationID
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func (f *fakeCoach) AnswerStream(ctx context.Context, question, conversationID string, onChunk rag.StreamFunc) (string, error) {
	f.lastQuestion = question
	f.lastConversationID = conversationID
	if f.answerErr != nil {
		return "", f.answerErr
	}
	var b strings.Builder
	for _, frag := range f.fragments {
		if err := onChunk(ctx, frag); err != nil {
			return "", err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}

func (f *fakeCoach) GeneratePlan(context.Context, rag.UserProfile, float64, []string) (*rag.Plan, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.plan, nil
}

func (f *fakeCoach) Reload(context.Context) (int, error) {
	if f.reloadErr != nil {
		return 0, f.reloadErr
	}
	return f.reloadCount, nil
}

func (f *fakeCoach) ListDocuments(context.Context) ([]rag.DocumentInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeCoach) UploadDocument(_ context.Context, filename string, data []byte, reload bool) (rag.UploadResult, error) {
	f.lastUploadName = filename
	f.lastUploadData = data
	f.lastUploadReload = reload
	if f.uploadErr != nil {
		return rag.UploadResult{}, f.uploadErr
	}
	return f.uploadRes, nil
}

func (f *fakeCoach) Ready() bool { return f.ready }

type fakeConversations struct {
	available bool
	pingErr   error
	deleted   int64
	clearErr  error
	clearedID string
}

func (f *fakeConversations) Clear(_ context.Context, id string) (int64, error) {
	f.clearedID = id
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	return f.deleted, nil
}

func (f *fakeConversations) Available() bool            { return f.available }
func (f *fakeConversations) Ping(context.Context) error { return f.pingErr }

func newTestServer(coach *fakeCoach, conversations *fakeConversations) *httptest.Server {
	var conv Conversations
	if conversations != nil {
		conv = conversations
	}
	return httptest.NewServer(NewServer(coach, conv, log.NewNop()).Handler())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestAsk(t *testing.T) {
	coach := &fakeCoach{answer: "Bebe más agua [guia.md].", ready: true}
	srv := newTestServer(coach, &fakeConversations{available: true})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/ask", `{"question": "¿debo tomar agua?", "conversation_id": "c1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[askResponse](t, resp)
	if body.Answer != coach.answer {
		t.Errorf("answer = %q", body.Answer)
	}
	if body.ConversationID != "c1" {
		t.Errorf("conversation_id = %q", body.ConversationID)
	}
	if coach.lastQuestion != "¿debo tomar agua?" {
		t.Errorf("question passed = %q", coach.lastQuestion)
	}
}

func TestAsk_DefaultsConversationID(t *testing.T) {
	coach := &fakeCoach{answer: "ok", ready: true}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/ask", `{"question": "hola"}`)
	body := decodeBody[askResponse](t, resp)
	if body.ConversationID != "default" {
		t.Errorf("conversation_id = %q, want default", body.ConversationID)
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty question", rag.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"},
		{"provider exhausted", rag.ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "generation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeCoach{answerErr: tt.err}, nil)
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/api/ask", `{"question": "hola"}`)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeBody[ErrorResponse](t, resp)
			if body.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	srv := newTestServer(&fakeCoach{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/ask", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAskStream(t *testing.T) {
	coach := &fakeCoach{fragments: []string{"Hola, ", "bebe ", "agua."}, ready: true}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/ask/stream", `{"question": "¿agua?", "conversation_id": "c9"}`)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var raw strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		raw.Write(buf[:n])
		if err != nil {
			break
		}
	}

	events := testutil.ParseSSEEvents(t, raw.String())
	chunks := testutil.FindAllEvents(events, EventChunk)
	if len(chunks) != 3 {
		t.Fatalf("chunk events = %d, want 3", len(chunks))
	}

	var first ChunkPayload
	if err := json.Unmarshal([]byte(chunks[0].Data), &first); err != nil {
		t.Fatalf("decoding chunk payload: %v", err)
	}
	if first.Text != "Hola, " {
		t.Errorf("first chunk = %q", first.Text)
	}

	done := testutil.FindEvent(events, EventDone)
	if done == nil {
		t.Fatal("missing done event")
	}
	var dp DonePayload
	if err := json.Unmarshal([]byte(done.Data), &dp); err != nil {
		t.Fatalf("decoding done payload: %v", err)
	}
	if dp.Answer != "Hola, bebe agua." {
		t.Errorf("done answer = %q", dp.Answer)
	}
	if dp.ConversationID != "c9" {
		t.Errorf("done conversation_id = %q", dp.ConversationID)
	}
}

func TestAskStream_ErrorEvent(t *testing.T) {
	srv := newTestServer(&fakeCoach{answerErr: rag.ErrServiceUnavailable}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/ask/stream", `{"question": "hola"}`)
	defer resp.Body.Close()

	var raw strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		raw.Write(buf[:n])
		if err != nil {
			break
		}
	}

	events := testutil.ParseSSEEvents(t, raw.String())
	errEvent := testutil.FindEvent(events, EventError)
	if errEvent == nil {
		t.Fatal("missing error event")
	}
	var ep ErrorPayload
	if err := json.Unmarshal([]byte(errEvent.Data), &ep); err != nil {
		t.Fatalf("decoding error payload: %v", err)
	}
	if ep.Code != "service_unavailable" {
		t.Errorf("error code = %q", ep.Code)
	}
	if testutil.FindEvent(events, EventDone) != nil {
		t.Error("failed stream must not emit done")
	}
}

func TestCoach(t *testing.T) {
	coach := &fakeCoach{plan: &rag.Plan{Plan: "Semana 1: dormir mejor.", Sources: []string{"sueño.md"}}, ready: true}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	body := `{
		"user_profile": {"age": 52, "sex": "M", "height_cm": 172, "weight_kg": 89, "waist_cm": 104},
		"risk_score": 0.45,
		"top_drivers": ["bmi", "sleep_hours"]
	}`
	resp := postJSON(t, srv.URL+"/api/coach", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	plan := decodeBody[rag.Plan](t, resp)
	if plan.Plan != "Semana 1: dormir mejor." {
		t.Errorf("plan = %q", plan.Plan)
	}
	if len(plan.Sources) != 1 || plan.Sources[0] != "sueño.md" {
		t.Errorf("sources = %v", plan.Sources)
	}
}

func TestCoach_RejectsInvalidProfile(t *testing.T) {
	srv := newTestServer(&fakeCoach{plan: &rag.Plan{Plan: "p"}}, nil)
	defer srv.Close()

	tests := []struct {
		name string
		body string
	}{
		{"age too low", `{"user_profile": {"age": 15, "sex": "M", "height_cm": 172, "weight_kg": 80, "waist_cm": 100}, "risk_score": 0.4, "top_drivers": ["bmi"]}`},
		{"bad sex", `{"user_profile": {"age": 40, "sex": "X", "height_cm": 172, "weight_kg": 80, "waist_cm": 100}, "risk_score": 0.4, "top_drivers": ["bmi"]}`},
		{"risk out of range", `{"user_profile": {"age": 40, "sex": "F", "height_cm": 172, "weight_kg": 80, "waist_cm": 100}, "risk_score": 1.5, "top_drivers": ["bmi"]}`},
		{"no drivers", `{"user_profile": {"age": 40, "sex": "F", "height_cm": 172, "weight_kg": 80, "waist_cm": 100}, "risk_score": 0.4, "top_drivers": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/coach", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			resp.Body.Close()
		})
	}
}

func TestReload(t *testing.T) {
	coach := &fakeCoach{reloadCount: 42, ready: true}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/reload", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[reloadResponse](t, resp)
	if !body.Reloaded || body.Chunks != 42 {
		t.Errorf("body = %+v", body)
	}
}

func postMultipart(t *testing.T, url, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestDocumentUpload(t *testing.T) {
	coach := &fakeCoach{uploadRes: rag.UploadResult{
		Path:     "/kb/hidratacion.txt",
		Reloaded: true,
		Chunks:   7,
	}}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postMultipart(t, srv.URL+"/api/documents/upload", "hidratacion.txt", "Bebe agua.")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[uploadResponse](t, resp)
	if body.Path != "/kb/hidratacion.txt" || !body.Reloaded || body.Chunks != 7 {
		t.Errorf("unexpected body: %+v", body)
	}
	if coach.lastUploadName != "hidratacion.txt" {
		t.Errorf("filename = %q", coach.lastUploadName)
	}
	if string(coach.lastUploadData) != "Bebe agua." {
		t.Errorf("data = %q", coach.lastUploadData)
	}
	if !coach.lastUploadReload {
		t.Error("reload should default to true")
	}
}

func TestDocumentUpload_ReloadDisabled(t *testing.T) {
	coach := &fakeCoach{}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postMultipart(t, srv.URL+"/api/documents/upload?reload=false", "nota.txt", "contenido")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if coach.lastUploadReload {
		t.Error("reload=false must be forwarded")
	}
}

func TestDocumentUpload_InvalidDocument(t *testing.T) {
	coach := &fakeCoach{uploadErr: rag.ErrInvalidDocument}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp := postMultipart(t, srv.URL+"/api/documents/upload", "informe.exe", "binario")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Error != "invalid_document" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDocumentUpload_MissingFile(t *testing.T) {
	srv := newTestServer(&fakeCoach{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/documents/upload", `{"not":"multipart"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDocumentList(t *testing.T) {
	coach := &fakeCoach{docs: []rag.DocumentInfo{
		{Name: "guia.txt", Path: "/kb/guia.txt", Size: 120, Type: ".txt"},
		{Name: "diagrama.svg", Path: "/kb/diagrama.svg", Size: 2048, Type: ".svg"},
	}}
	srv := newTestServer(coach, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/documents/list")
	if err != nil {
		t.Fatalf("GET /api/documents/list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[listResponse](t, resp)
	if body.Count != 2 || len(body.Documents) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Documents[0].Name != "guia.txt" {
		t.Errorf("first document = %+v", body.Documents[0])
	}
}

func TestDocumentList_Empty(t *testing.T) {
	srv := newTestServer(&fakeCoach{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/documents/list")
	if err != nil {
		t.Fatalf("GET /api/documents/list: %v", err)
	}
	body := decodeBody[listResponse](t, resp)
	if body.Count != 0 || body.Documents == nil {
		t.Errorf("empty listing must be an empty array, got %+v", body)
	}
}

func TestDeleteConversation(t *testing.T) {
	conv := &fakeConversations{available: true, deleted: 6}
	srv := newTestServer(&fakeCoach{ready: true}, conv)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/conversations/c1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[deleteResponse](t, resp)
	if body.Deleted != 6 || body.ConversationID != "c1" {
		t.Errorf("body = %+v", body)
	}
	if conv.clearedID != "c1" {
		t.Errorf("cleared id = %q", conv.clearedID)
	}
}

func TestDeleteConversation_MemoryUnavailable(t *testing.T) {
	srv := newTestServer(&fakeCoach{ready: true}, &fakeConversations{available: false})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/conversations/c1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeCoach{ready: true}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		conv       *fakeConversations
		wantStatus int
		wantMemory string
	}{
		{"all ready", true, &fakeConversations{available: true}, http.StatusOK, "available"},
		{"index not loaded", false, &fakeConversations{available: true}, http.StatusServiceUnavailable, "available"},
		{"memory degraded", true, &fakeConversations{available: false}, http.StatusOK, "degraded"},
		{"memory unreachable", true, &fakeConversations{available: true, pingErr: errors.New("down")}, http.StatusOK, "degraded"},
		{"no store configured", true, nil, http.StatusOK, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeCoach{ready: tt.ready}, tt.conv)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/ready")
			if err != nil {
				t.Fatalf("GET /ready: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeBody[readinessResponse](t, resp)
			if body.Memory != tt.wantMemory {
				t.Errorf("memory = %q, want %q", body.Memory, tt.wantMemory)
			}
		})
	}
}
