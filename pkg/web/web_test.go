package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-lens/pkg/camera"
	"github.com/teslashibe/go-lens/pkg/engine"
	"github.com/teslashibe/go-lens/pkg/hub"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/record"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

// fakeEngine records calls and returns canned results
type fakeEngine struct {
	mu        sync.Mutex
	running   bool
	effect    lens.ID
	recording bool
	tuning    tracking.TuningParams
	facings   []record.Facing
	frameErr  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{effect: lens.None, tuning: tracking.TuningParams{SmoothingAlpha: 0.45}}
}

func (f *fakeEngine) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeEngine) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeEngine) SetEffect(id string) error {
	parsed, err := lens.Parse(id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.effect = parsed
	return nil
}

func (f *fakeEngine) Effect() lens.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.effect
}

func (f *fakeEngine) Effects() []lens.Info {
	return []lens.Info{{ID: lens.Dog, Kind: "face", Name: "Dog"}}
}

func (f *fakeEngine) CaptureFrame(facing record.Facing) (*record.Still, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	f.facings = append(f.facings, facing)
	return &record.Still{ID: "still-1", Data: []byte("jpeg"), MIMEType: "image/jpeg"}, nil
}

func (f *fakeEngine) Preview(record.Facing) ([]byte, error) {
	return []byte{0xff, 0xd8, 0xff}, nil
}

func (f *fakeEngine) StartRecording(_ context.Context, facing record.Facing) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recording {
		return "", record.ErrAlreadyRecording
	}
	f.recording = true
	f.facings = append(f.facings, facing)
	return "rec-1", nil
}

func (f *fakeEngine) StopRecording() (*record.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.recording {
		return nil, record.ErrNotRecording
	}
	f.recording = false
	return &record.Recording{ID: "rec-1", Data: []byte("video"), MIMEType: "video/mp4", Frames: 12}, nil
}

func (f *fakeEngine) Telemetry() engine.Telemetry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return engine.Telemetry{Running: f.running, Effect: f.effect, Segmentation: "idle"}
}

func (f *fakeEngine) Tuning() tracking.TuningParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning
}

func (f *fakeEngine) SetTuning(p tracking.TuningParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.SmoothingAlpha > 0 {
		f.tuning.SmoothingAlpha = p.SmoothingAlpha
	}
}

func newTestServer() (*Server, *fakeEngine, *camera.Manager) {
	eng := newFakeEngine()
	cams := camera.NewManager(camera.DefaultConfig())
	return NewServer("0", eng, cams), eng, cams
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestServer_StartStop(t *testing.T) {
	s, eng, _ := newTestServer()

	if resp := do(t, s, http.MethodPost, "/api/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if !eng.Running() {
		t.Fatal("engine should be running")
	}

	var status StatusResponse
	decode(t, do(t, s, http.MethodGet, "/api/status", nil), &status)
	if !status.Running || status.Facing != "user" || status.Width != 640 {
		t.Errorf("status = %+v", status)
	}

	do(t, s, http.MethodPost, "/api/stop", nil)
	if eng.Running() {
		t.Fatal("engine should be stopped")
	}
}

func TestServer_SetEffect(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"valid", SetEffectRequest{ID: "dog"}, http.StatusOK},
		{"background", SetEffectRequest{ID: "bg_beach"}, http.StatusOK},
		{"unknown", SetEffectRequest{ID: "unicorn"}, http.StatusBadRequest},
		{"missing id", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestServer()
			resp := do(t, s, http.MethodPut, "/api/effect", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestServer_ListEffects(t *testing.T) {
	s, _, _ := newTestServer()

	var body struct {
		Active  lens.ID     `json:"active"`
		Effects []lens.Info `json:"effects"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/effects", nil), &body)
	if body.Active != lens.None || len(body.Effects) != 1 || body.Effects[0].ID != lens.Dog {
		t.Errorf("effects = %+v", body)
	}
}

func TestServer_Capture(t *testing.T) {
	s, eng, _ := newTestServer()

	resp := do(t, s, http.MethodPost, "/api/capture?facing=environment", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Capture-Id"); got != "still-1" {
		t.Errorf("X-Capture-Id = %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if eng.facings[0] != record.FacingEnvironment {
		t.Errorf("facing = %q", eng.facings[0])
	}

	if resp := do(t, s, http.MethodPost, "/api/capture?facing=sideways", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad facing status = %d", resp.StatusCode)
	}

	eng.frameErr = record.ErrNoFrame
	if resp := do(t, s, http.MethodPost, "/api/capture", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("no frame status = %d", resp.StatusCode)
	}
}

func TestServer_Recording(t *testing.T) {
	s, eng, _ := newTestServer()

	resp := do(t, s, http.MethodPost, "/api/recording/start", RecordingRequest{Facing: "environment"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if eng.facings[0] != record.FacingEnvironment {
		t.Errorf("facing = %q", eng.facings[0])
	}

	if resp := do(t, s, http.MethodPost, "/api/recording/start", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", resp.StatusCode)
	}

	resp = do(t, s, http.MethodPost, "/api/recording/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "video" || resp.Header.Get("X-Recording-Frames") != "12" {
		t.Errorf("body = %q frames = %q", data, resp.Header.Get("X-Recording-Frames"))
	}

	if resp := do(t, s, http.MethodPost, "/api/recording/stop", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("stop without recording status = %d, want 409", resp.StatusCode)
	}

	if resp := do(t, s, http.MethodPost, "/api/recording/start", RecordingRequest{Facing: "front"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid facing status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Tuning(t *testing.T) {
	s, _, _ := newTestServer()

	var got tracking.TuningParams
	decode(t, do(t, s, http.MethodPut, "/api/tuning", TuningRequest{SmoothingAlpha: 0.7}), &got)
	if got.SmoothingAlpha != 0.7 {
		t.Errorf("alpha = %v, want 0.7", got.SmoothingAlpha)
	}

	if resp := do(t, s, http.MethodPut, "/api/tuning", TuningRequest{SmoothingAlpha: 3}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range status = %d", resp.StatusCode)
	}
}

func TestServer_Camera(t *testing.T) {
	s, _, cams := newTestServer()

	resp := do(t, s, http.MethodPut, "/api/camera", map[string]interface{}{"preset": "720p", "facing": "environment"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cfg := cams.GetConfig(); cfg.Width != 1280 || cfg.Facing != "environment" {
		t.Errorf("config = %+v", cfg)
	}
	if s.facing() != record.FacingEnvironment {
		t.Errorf("server facing = %q", s.facing())
	}

	if resp := do(t, s, http.MethodPut, "/api/camera", map[string]interface{}{"width": 99999}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid width status = %d", resp.StatusCode)
	}

	var presets struct {
		Presets []string `json:"presets"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/camera/presets", nil), &presets)
	if len(presets.Presets) != len(camera.PresetNames()) {
		t.Errorf("presets = %v", presets.Presets)
	}
}

func TestServer_NoCamera(t *testing.T) {
	s := NewServer("0", newFakeEngine(), nil)
	if resp := do(t, s, http.MethodGet, "/api/camera", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if s.facing() != record.FacingUser {
		t.Errorf("facing = %q, want user", s.facing())
	}
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer()
	if resp := do(t, s, http.MethodGet, "/ws/telemetry", nil); resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lens.ErrUnknownEffect, http.StatusBadRequest},
		{record.ErrAlreadyRecording, http.StatusConflict},
		{record.ErrNotRecording, http.StatusConflict},
		{record.ErrNoFrame, http.StatusServiceUnavailable},
		{record.ErrNoCodec, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// listen serves the app on a loopback port and returns its ws:// base URL
func listen(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback listener unavailable: %v", err)
	}
	go s.App().Listener(ln)
	t.Cleanup(func() { s.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_TelemetryWebSocket(t *testing.T) {
	s, eng, _ := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	base := listen(t, s)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/telemetry", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string           `json:"type"`
		Data engine.Telemetry `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.Type != "telemetry" || first.Data.Running {
		t.Errorf("initial = %+v", first)
	}

	waitFor(t, func() bool { return s.telemetryHub.ClientCount() == 1 })

	eng.Start(ctx)
	s.UpdateTelemetry(engine.Telemetry{FPS: 30, Faces: 1, Running: true, Effect: lens.Dog})

	var next hub.Envelope
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	data, _ := json.Marshal(next.Data)
	var tel engine.Telemetry
	json.Unmarshal(data, &tel)
	if tel.FPS != 30 || tel.Faces != 1 || tel.Effect != lens.Dog {
		t.Errorf("telemetry = %+v", tel)
	}
}

func TestServer_PreviewWebSocket(t *testing.T) {
	s, eng, _ := newTestServer()
	s.PreviewInterval = 10 * time.Millisecond
	eng.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	base := listen(t, s)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/preview", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage || !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Errorf("frame kind = %d data = %x", kind, data)
	}
}
