package database

import (
	"testing"

	"agendabot/config"
)

func TestNameComesFromConfig(t *testing.T) {
	prev := config.AppConfig.MongoDB
	defer func() { config.AppConfig.MongoDB = prev }()

	config.AppConfig.MongoDB = "clinic"
	if got := Name(); got != "clinic" {
		t.Fatalf("expected configured database name, got %q", got)
	}

	config.AppConfig.MongoDB = ""
	if got := Name(); got != "agendabot" {
		t.Fatalf("expected default database name, got %q", got)
	}
}
