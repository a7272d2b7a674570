package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"terraforge.ai/internal/encoding"
	"terraforge.ai/internal/observerproto"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/pipeline"
)

func testWorld() *pipeline.World {
	const w, h = 4, 2
	mk := func(v float64) *field.Scalar {
		f := field.NewScalar(w, h)
		f.Fill(v)
		return f
	}
	world := &pipeline.World{
		Width:       w,
		Height:      h,
		Seed:        7,
		Elevation:   mk(1),
		Moisture:    mk(0),
		Temperature: mk(0.5),
		Vegetation:  mk(0.25),
		Biomes:      field.NewLabels(w, h),
		BiomePalette: []pipeline.Swatch{
			{Name: "OCEAN", Color: field.Color{B: 0xff, A: 0xff}},
			{Name: "LAND", Color: field.Color{G: 0xff, A: 0xff}},
		},
		ResourceKinds: []pipeline.Swatch{{Name: "STONE", Color: field.Color{R: 0x80, G: 0x80, B: 0x80, A: 0xff}}},
		Rivers:        field.NewPointSet(),
		Resources:     field.NewPointSet(),
	}
	world.Biomes.Set(3, 1, 1)
	world.Rivers.Add(field.Point{X: 1, Y: 0}, 0)
	world.Resources.Add(field.Point{X: 2, Y: 1}, 0)
	return world
}

func TestBootstrapHandler(t *testing.T) {
	world := testWorld()
	s := NewServer(world, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldParams.Digest != world.Digest() || resp.WorldParams.Width != 4 {
		t.Fatalf("world params=%+v", resp.WorldParams)
	}
	if len(resp.Layers) != 7 {
		t.Fatalf("layers=%d want 7 (no plates)", len(resp.Layers))
	}
	if len(resp.BiomePalette) != 2 || resp.BiomePalette[1].Color != "#00ff00" {
		t.Fatalf("palette=%+v", resp.BiomePalette)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("post status=%d want 405", rec.Code)
	}
}

func TestBuildLayer(t *testing.T) {
	world := testWorld()

	msg, code, _ := buildLayer(world, pipeline.LayerTemperature)
	if code != "" || msg.Encoding != observerproto.EncodingQ8 {
		t.Fatalf("code=%q encoding=%q", code, msg.Encoding)
	}
	vals, err := encoding.DecodeRLE(msg.Data, 8)
	if err != nil || len(vals) != 8 || vals[0] != 128 {
		t.Fatalf("vals=%v err=%v", vals, err)
	}

	msg, code, _ = buildLayer(world, LayerBiomes)
	if code != "" || msg.Kind != observerproto.KindLabels {
		t.Fatalf("code=%q kind=%q", code, msg.Kind)
	}
	vals, _ = encoding.DecodeRLE(msg.Data, 8)
	if vals[7] != 1 || vals[0] != 0 {
		t.Fatalf("labels=%v", vals)
	}

	msg, _, _ = buildLayer(world, LayerRivers)
	if len(msg.Points) != 1 || msg.Points[0].X != 1 {
		t.Fatalf("points=%+v", msg.Points)
	}

	if _, code, _ := buildLayer(world, LayerPlates); code != observerproto.ErrLayerEmpty {
		t.Fatalf("plates code=%q want %q", code, observerproto.ErrLayerEmpty)
	}
	if _, code, _ := buildLayer(world, "lava"); code != observerproto.ErrUnknownLayer {
		t.Fatalf("unknown code=%q want %q", code, observerproto.ErrUnknownLayer)
	}
}

func TestWSHandler_SubscribeAndResubscribe(t *testing.T) {
	s := NewServer(testWorld(), nil)
	ts := httptest.NewServer(s.WSHandler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	subscribe := func(layer string) {
		t.Helper()
		err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, Layer: layer})
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var m map[string]any
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	subscribe(pipeline.LayerElevation)
	m := read()
	if m["type"] != "LAYER" || m["layer"] != pipeline.LayerElevation {
		t.Fatalf("first frame=%v", m)
	}

	subscribe("lava")
	m = read()
	if m["type"] != "ERROR" || m["code"] != observerproto.ErrUnknownLayer {
		t.Fatalf("error frame=%v", m)
	}

	subscribe(LayerResources)
	m = read()
	if m["type"] != "LAYER" || m["kind"] != observerproto.KindPoints {
		t.Fatalf("resources frame=%v", m)
	}
}

func TestWSHandler_RejectsBadHandshake(t *testing.T) {
	s := NewServer(testWorld(), nil)
	ts := httptest.NewServer(s.WSHandler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"10.1.2.3:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}
