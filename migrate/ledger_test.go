package migrate_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/jacentio/canopy/migrate"
	"github.com/jacentio/canopy/record"
)

func newCQLLedger(t *testing.T, session *fakeSession) *migrate.CQLLedger {
	t.Helper()
	l, err := migrate.NewCQLLedger(record.Direct(session), "", record.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCQLLedger failed: %v", err)
	}
	return l
}

func TestCQLLedger_CreateTable(t *testing.T) {
	session := &fakeSession{}
	l := newCQLLedger(t, session)

	if err := l.CreateTable(context.Background(), true); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := l.CreateTable(context.Background(), false); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	want := []string{
		`CREATE TABLE IF NOT EXISTS "schema_migrations" (version TEXT PRIMARY KEY)`,
		`CREATE TABLE "schema_migrations" (version TEXT PRIMARY KEY)`,
	}
	if got := session.statements(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCQLLedger_Record(t *testing.T) {
	session := &fakeSession{}
	l := newCQLLedger(t, session)

	if err := l.Record(context.Background(), 1478001600); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	want := `INSERT INTO "schema_migrations" ("version") VALUES ('1478001600')`
	if got := session.statements(); len(got) != 1 || got[0] != want {
		t.Errorf("expected [%s], got %v", want, got)
	}
}

func TestCQLLedger_AppliedSortsNumerically(t *testing.T) {
	session := &fakeSession{rows: []record.Row{
		{"version": "20"},
		{"version": "3"},
		{"version": "100"},
	}}
	l := newCQLLedger(t, session)

	got, err := l.Applied(context.Background())
	if err != nil {
		t.Fatalf("Applied failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{3, 20, 100}) {
		t.Errorf("expected [3 20 100], got %v", got)
	}
}

func TestCQLLedger_AppliedRejectsGarbage(t *testing.T) {
	session := &fakeSession{rows: []record.Row{{"version": "abc"}}}
	l := newCQLLedger(t, session)

	if _, err := l.Applied(context.Background()); err == nil {
		t.Error("expected error for non-numeric version")
	}
}

func TestCQLLedger_Remove(t *testing.T) {
	session := &fakeSession{rows: []record.Row{{"version": "7"}}}
	l := newCQLLedger(t, session)

	if err := l.Remove(context.Background(), 7); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	want := [][]string{{`DELETE FROM "schema_migrations" WHERE "version" = '7'`}}
	if !reflect.DeepEqual(session.batches, want) {
		t.Errorf("expected %v, got %v", want, session.batches)
	}
}

func TestPending(t *testing.T) {
	got, err := migrate.Pending(context.Background(), newMemLedger(2, 5), []int64{5, 1, 3, 2})
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("expected [1 3], got %v", got)
	}
}

func TestDynamoLedger_RoundTrip(t *testing.T) {
	client := newFakeDynamo()
	l := migrate.NewDynamoLedger(client, "")
	ctx := context.Background()

	for _, v := range []int64{30, 4, 100} {
		if err := l.Record(ctx, v); err != nil {
			t.Fatalf("Record(%d) failed: %v", v, err)
		}
	}

	got, err := l.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{4, 30, 100}) {
		t.Errorf("expected [4 30 100], got %v", got)
	}

	if err := l.Remove(ctx, 30); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, _ = l.Applied(ctx)
	if !reflect.DeepEqual(got, []int64{4, 100}) {
		t.Errorf("expected [4 100], got %v", got)
	}
}

func TestDynamoLedger_RecordIsConditional(t *testing.T) {
	client := newFakeDynamo()
	l := migrate.NewDynamoLedger(client, "ledger")
	ctx := context.Background()

	if err := l.Record(ctx, 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record(ctx, 1); !errors.Is(err, migrate.ErrAlreadyApplied) {
		t.Errorf("expected ErrAlreadyApplied, got %v", err)
	}

	put := client.puts[0]
	if aws.ToString(put.TableName) != "ledger" {
		t.Errorf("expected table ledger, got %q", aws.ToString(put.TableName))
	}
	if put.ExpressionAttributeNames["#version"] != "version" {
		t.Errorf("expected #version alias, got %v", put.ExpressionAttributeNames)
	}
	if _, ok := put.Item["applied_at"]; !ok {
		t.Error("expected applied_at attribute")
	}
}

func TestDynamoLedger_CreateTable(t *testing.T) {
	client := newFakeDynamo()
	l := migrate.NewDynamoLedger(client, "")
	ctx := context.Background()

	if err := l.CreateTable(ctx, true); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := l.CreateTable(ctx, true); err != nil {
		t.Errorf("expected existing table to be ignored, got %v", err)
	}
	if err := l.CreateTable(ctx, false); err == nil {
		t.Error("expected error for existing table without ifNotExists")
	}
	if aws.ToString(client.creates[0].TableName) != migrate.DefaultTable {
		t.Errorf("expected table %s, got %q", migrate.DefaultTable, aws.ToString(client.creates[0].TableName))
	}
}

func TestMigrator_WithDynamoLedger(t *testing.T) {
	var log []string
	ledger := migrate.NewDynamoLedger(newFakeDynamo(), "")
	m, _ := newMigrator(t, ledger, trace(1, "first", &log), trace(2, "second", &log))

	done, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if !reflect.DeepEqual(done, []int64{1, 2}) {
		t.Errorf("expected [1 2], got %v", done)
	}
	if err := m.Up(context.Background(), 2); !errors.Is(err, migrate.ErrAlreadyApplied) {
		t.Errorf("expected ErrAlreadyApplied, got %v", err)
	}
}
