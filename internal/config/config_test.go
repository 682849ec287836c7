package config

import "testing"

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			"full",
			DatabaseConfig{Host: "db.local", Port: 5432, Database: "forms", Username: "svc", Password: "pw", SSLMode: "require"},
			"postgresql://svc:pw@db.local:5432/forms?sslmode=require",
		},
		{
			"no credentials",
			DatabaseConfig{Host: "localhost", Port: 5432, Database: "forms"},
			"postgresql://localhost:5432/forms",
		},
		{
			"no port",
			DatabaseConfig{Host: "localhost", Database: "forms", Username: "svc"},
			"postgresql://svc@localhost/forms",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
