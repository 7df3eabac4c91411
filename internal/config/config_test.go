package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfigCreatesTemplate(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	_, err := ReadConfig()
	if err == nil {
		t.Fatal("Expected error on missing config file, got nil")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "config.json")); statErr != nil {
		t.Fatalf("Expected template config.json to be created, got %v", statErr)
	}

	config, err := ReadConfig()
	if err != nil {
		t.Fatalf("Expected template to be readable, got %v", err)
	}
	if config.WhatsApp.MessageDelay != "7s" {
		t.Errorf("Expected default message_delay 7s, got %s", config.WhatsApp.MessageDelay)
	}
	if config.WhatsApp.DefaultUser != "admin" {
		t.Errorf("Expected default user admin, got %s", config.WhatsApp.DefaultUser)
	}
	if config.UseDatabase() {
		t.Error("Expected database to be disabled by default")
	}
}

func TestReadConfigReportsUnwritableTemplate(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	// A directory squatting on the config path makes both the read and the
	// template write fail; that must surface as an error, not a panic.
	if err := os.Mkdir("config.json", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := ReadConfig()
	if err == nil {
		t.Fatal("Expected error when the template cannot be written, got nil")
	}
}
