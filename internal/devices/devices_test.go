package devices

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/digipin-grid/internal/cache"
	"github.com/mohammed-shakir/digipin-grid/internal/cache/redisstore"
)

func newStores(t *testing.T) map[string]*Store {
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

	mem, err := cache.NewMemory(64)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return map[string]*Store{
		"redis":  NewStore(rc, time.Hour),
		"memory": NewStore(mem, time.Hour),
	}
}

func TestStore_PutGetVersioning(t *testing.T) {
	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v1 := Location{DeviceID: "truck-17", Code: "39J-438-TJC7", Lat: 28.6139, Lon: 77.209, Version: 1}

			ok, err := st.Put(ctx, v1)
			if err != nil || !ok {
				t.Fatalf("Put v1: ok=%v err=%v", ok, err)
			}
			ok, err = st.Put(ctx, v1)
			if err != nil || ok {
				t.Fatalf("replaying v1 must be ignored: ok=%v err=%v", ok, err)
			}

			v2 := v1
			v2.Version, v2.Code, v2.Lat, v2.Lon = 2, "4P3-JK8-52C9", 12.9716, 77.5946
			if ok, err := st.Put(ctx, v2); err != nil || !ok {
				t.Fatalf("Put v2: ok=%v err=%v", ok, err)
			}
			if ok, _ := st.Put(ctx, v1); ok {
				t.Fatalf("older version must not overwrite")
			}

			got, err := st.Get(ctx, "truck-17")
			if err != nil || got.Code != "4P3-JK8-52C9" || got.Version != 2 {
				t.Fatalf("Get: %+v err=%v", got, err)
			}

			if _, err := st.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := st.Put(ctx, Location{}); err == nil {
				t.Fatalf("expected error for empty device id")
			}

			many, err := st.GetMany(ctx, []string{"truck-17", "ghost"})
			if err != nil || len(many) != 1 || many["truck-17"].Version != 2 {
				t.Fatalf("GetMany: %+v err=%v", many, err)
			}
		})
	}
}
