package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("WARN"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %v", Log.GetLevel())
	}
	if err := SetLogLevel("verbose"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
	SetLogLevel("info")
}

func TestGetAbsDBPath(t *testing.T) {
	def, err := GetAbsDBPath("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(def, filepath.Join(".config", "fruitjar", "jar.sqlite")) {
		t.Fatalf("unexpected default path %q", def)
	}

	rel, err := GetAbsDBPath("jar.sqlite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(rel) {
		t.Fatalf("expected an absolute path, got %q", rel)
	}
}

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "jar.sqlite")
	if err := EnsureDBDir(dbPath); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}

	l, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if l.Path() != dbPath+".lock" {
		t.Fatalf("unexpected lock path %q", l.Path())
	}
	if err := l.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatAmount(10.30); got != "10.3" {
		t.Fatalf("want 10.3, got %q", got)
	}
	if got := FormatAmount(96); got != "96" {
		t.Fatalf("want 96, got %q", got)
	}
	if got := Truncate("Watermelon", 7); got != "Wate..." {
		t.Fatalf("want Wate..., got %q", got)
	}
	if got := Truncate("Kiwi", 7); got != "Kiwi" {
		t.Fatalf("want Kiwi, got %q", got)
	}
}
