package main

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jacentio/canopy/migrate"
	"github.com/jacentio/canopy/record"
)

type memLedger struct {
	versions map[int64]bool
}

func (l *memLedger) CreateTable(context.Context, bool) error { return nil }

func (l *memLedger) Applied(context.Context) ([]int64, error) {
	var out []int64
	for v := range l.versions {
		out = append(out, v)
	}
	return out, nil
}

func (l *memLedger) Record(_ context.Context, v int64) error {
	l.versions[v] = true
	return nil
}

func (l *memLedger) Remove(_ context.Context, v int64) error {
	delete(l.versions, v)
	return nil
}

type nopSession struct{}

func (nopSession) Execute(context.Context, string, record.ExecOptions) (record.Page, error) {
	return nil, nil
}

func (nopSession) ExecuteBatch(context.Context, []string, record.ExecOptions) error { return nil }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	body := migrate.Statements("SELECT now() FROM system.local")
	m, err := migrate.New(record.Direct(nopSession{}), &memLedger{versions: map[int64]bool{}}, []migrate.Migration{
		{Version: 10, Name: "first", Up: body, Down: body},
		{Version: 20, Name: "second", Up: body, Down: body},
	}, migrate.Config{})
	if err != nil {
		t.Fatalf("migrate.New failed: %v", err)
	}
	return NewHandler(m, nil)
}

func TestHandle(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp, err := h.Handle(ctx, Request{Action: "pending"})
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Pending, []string{"10_first", "20_second"}) {
		t.Errorf("unexpected pending %v", resp.Pending)
	}

	resp, err = h.Handle(ctx, Request{})
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Applied, []string{"10", "20"}) {
		t.Errorf("unexpected applied %v", resp.Applied)
	}

	resp, err = h.Handle(ctx, Request{Action: "down", Version: 20})
	if err != nil {
		t.Fatalf("down failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Reverted, []string{"20"}) {
		t.Errorf("unexpected reverted %v", resp.Reverted)
	}

	resp, err = h.Handle(ctx, Request{Action: "up", Version: 20})
	if err != nil {
		t.Fatalf("up failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Applied, []string{"20"}) {
		t.Errorf("unexpected applied %v", resp.Applied)
	}

	if _, err := h.Handle(ctx, Request{Action: "up", Version: 20}); !errors.Is(err, migrate.ErrAlreadyApplied) {
		t.Errorf("expected ErrAlreadyApplied, got %v", err)
	}
	if _, err := h.Handle(ctx, Request{Action: "explode"}); err == nil {
		t.Error("expected error for unknown action")
	}
}
