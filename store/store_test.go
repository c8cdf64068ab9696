package store_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hasbyte1/go-unplugged/store"
)

// plainKV implements KeyValueStore without ConditionalSetter.
type plainKV struct {
	data   map[string]string
	setErr error
}

func (p *plainKV) Get(_ context.Context, name string) (string, bool, error) {
	v, ok := p.data[name]
	return v, ok, nil
}

func (p *plainKV) Set(_ context.Context, name, value string) error {
	if p.setErr != nil {
		return store.Wrap("set", name, p.setErr)
	}
	p.data[name] = value
	return nil
}

func (p *plainKV) Delete(_ context.Context, name string) error {
	delete(p.data, name)
	return nil
}

func TestError_IsErrStore(t *testing.T) {
	err := store.Wrap("get", "auth_key", io.ErrUnexpectedEOF)
	if !errors.Is(err, store.ErrStore) {
		t.Error("expected errors.Is(err, ErrStore)")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected the cause to be unwrappable")
	}
	var se *store.Error
	if !errors.As(err, &se) || se.Op != "get" || se.Name != "auth_key" {
		t.Errorf("unexpected error value %#v", err)
	}
}

func TestWrap_Nil(t *testing.T) {
	if store.Wrap("set", "x", nil) != nil {
		t.Error("Wrap(nil) must return nil")
	}
}

func TestPutIfAbsent_FallbackWritesAndRereads(t *testing.T) {
	kv := &plainKV{data: map[string]string{}}
	got, err := store.PutIfAbsent(context.Background(), kv, "k", "v1")
	if err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if got != "v1" || kv.data["k"] != "v1" {
		t.Errorf("got %q, stored %q", got, kv.data["k"])
	}
}

func TestPutIfAbsent_PropagatesStoreError(t *testing.T) {
	kv := &plainKV{data: map[string]string{}, setErr: io.ErrClosedPipe}
	_, err := store.PutIfAbsent(context.Background(), kv, "k", "v")
	if !errors.Is(err, store.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestConfigMap(t *testing.T) {
	m := store.ConfigMap{"AUTH_KEY": "abc"}
	if v, ok := m.Constant("AUTH_KEY"); !ok || v != "abc" {
		t.Errorf("Constant = %q, %v", v, ok)
	}
	if _, ok := m.Constant("NONCE_KEY"); ok {
		t.Error("undefined constant reported as defined")
	}
}
