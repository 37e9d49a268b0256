package share

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/digipin-grid/internal/cache"
	"github.com/mohammed-shakir/digipin-grid/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin-grid/internal/decision"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

func TestMessage_Format(t *testing.T) {
	c := digipin.Coordinate{Lat: 28.613901138305664, Lon: 77.20899772644043}
	want := "DigiPin: 39J-438-TJC7\n\nMaps Link: https://www.google.com/maps/search/?api=1&query=28.613901138305664,77.20899772644043"
	if got := Message("39J-438-TJC7", c); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
	if got := MapsURL(DefaultCenter); got != "https://www.google.com/maps/search/?api=1&query=23,78" {
		t.Fatalf("MapsURL(DefaultCenter)=%q", got)
	}
}

func TestCompose(t *testing.T) {
	code, c, text, err := Compose(" 4p3jk852c9 ")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if code != "4P3-JK8-52C9" || c.Lat != 12.971601486206055 || c.Lon != 77.59458351135254 {
		t.Fatalf("code=%s c=%+v", code, c)
	}
	if text != Message(code, c) {
		t.Fatalf("text mismatch: %q", text)
	}
	if _, _, _, err := Compose("39J-438-TJCA"); !errors.Is(err, digipin.ErrUnrecognizedSymbol) {
		t.Fatalf("expected ErrUnrecognizedSymbol, got %v", err)
	}
}

type fixedPolicy struct{ d decision.Decision }

func (p fixedPolicy) Decide(string) decision.Decision { return p.d }

func newRedisKV(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestService_CreateResolveAndExpire(t *testing.T) {
	kv, mr := newRedisKV(t)
	pol := fixedPolicy{decision.Decision{Tier: decision.TierWarm, TTL: time.Hour}}
	svc := NewService(NewStore(kv), pol, "", "https://pin.example")
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	ctx := context.Background()
	res, err := svc.Create(ctx, "39j438tjc7")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Code != "39J-438-TJC7" || res.Tier != "warm" || res.Link != "https://pin.example/s/"+res.ID {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ttl := mr.TTL("share:" + res.ID); ttl != time.Hour {
		t.Fatalf("redis ttl=%v want 1h", ttl)
	}

	again, err := svc.Create(ctx, "39J-438-TJC7")
	if err != nil || again.ID != res.ID {
		t.Fatalf("share ids must be stable: %s vs %s (err=%v)", again.ID, res.ID, err)
	}

	rec, err := svc.Resolve(ctx, res.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Code != res.Code || rec.MapsURL() != MapsURL(digipin.Coordinate{Lat: res.Lat, Lon: res.Lon}) {
		t.Fatalf("round trip mismatch: %+v", rec)
	}

	info, left, err := svc.Info(ctx, res.ID)
	if err != nil || info.Code != res.Code || left != time.Hour {
		t.Fatalf("Info: %+v left=%v err=%v", info, left, err)
	}
	mr.FastForward(30 * time.Minute)
	if _, left, _ := svc.Info(ctx, res.ID); left != 30*time.Minute {
		t.Fatalf("remaining after 30m=%v", left)
	}

	mr.FastForward(2 * time.Hour)
	if _, _, err := svc.Info(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Info after expiry: %v", err)
	}
	if _, err := svc.Resolve(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestStore_MemoryBackendAndBadPayload(t *testing.T) {
	kv, err := cache.NewMemory(16)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	st := NewStore(kv)
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = kv.Set(ctx, "share:broken", []byte("{"), 0)
	if _, err := st.Get(ctx, "broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if err := st.Put(ctx, Record{ID: "x", Code: "FFF-FFF-FFFF"}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec, err := st.Get(ctx, "x"); err != nil || rec.Code != "FFF-FFF-FFFF" {
		t.Fatalf("Get: %+v %v", rec, err)
	}
	if left, ok, err := st.Remaining(ctx, "x"); err != nil || !ok || left != 0 {
		t.Fatalf("persistent link: left=%v ok=%v err=%v", left, ok, err)
	}
	if _, ok, err := st.Remaining(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing link: ok=%v err=%v", ok, err)
	}
}
