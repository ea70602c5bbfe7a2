package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	v := NewViper()
	v.Set("cassandra.keyspace", "app")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.Hosts, []string{"127.0.0.1"}) {
		t.Errorf("unexpected hosts %v", cfg.Hosts)
	}
	if cfg.Consistency != "LOCAL_QUORUM" {
		t.Errorf("unexpected consistency %q", cfg.Consistency)
	}
	if cfg.Timeout != 10*time.Second || cfg.PoolTimeout != 5*time.Second {
		t.Errorf("unexpected timeouts %v / %v", cfg.Timeout, cfg.PoolTimeout)
	}
	if cfg.PoolSize != 1 || cfg.LedgerBackend != LedgerCQL || cfg.MigrationsDir != "migrations" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CANOPY_CASSANDRA_HOSTS", "10.0.0.1, 10.0.0.2")
	t.Setenv("CANOPY_CASSANDRA_KEYSPACE", "logs")
	t.Setenv("CANOPY_LEDGER_BACKEND", "DynamoDB")
	t.Setenv("CANOPY_POOL_SIZE", "4")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.Hosts, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("unexpected hosts %v", cfg.Hosts)
	}
	if cfg.Keyspace != "logs" || cfg.LedgerBackend != LedgerDynamo || cfg.PoolSize != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"missing keyspace", map[string]any{}, "cassandra.keyspace"},
		{"empty hosts", map[string]any{"cassandra.keyspace": "app", "cassandra.hosts": ""}, "cassandra.hosts"},
		{"pool size", map[string]any{"cassandra.keyspace": "app", "pool.size": 0}, "pool.size"},
		{"ledger backend", map[string]any{"cassandra.keyspace": "app", "ledger.backend": "redis"}, "ledger.backend"},
		{"sigv4 with password auth", map[string]any{"cassandra.keyspace": "app", "keyspaces.sigv4": true, "cassandra.username": "u"}, "cassandra.username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
