package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	conf := Default()
	if !conf.TypeCheck || conf.DeadlineMs != 5000 || conf.View != "plain" {
		t.Errorf("wrong defaults: %+v", conf)
	}
}

func TestMissingFileMeansDefaults(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "nothing.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if !conf.TypeCheck || conf.DeadlineMs != 5000 || conf.View != "plain" || len(conf.ModuleRoots) != 0 {
		t.Errorf("wrong settings: %+v", conf)
	}
}

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vara.yml")
	if err := os.WriteFile(path, []byte("typecheck: false\ndeadline_ms: 250\n"), 0666); err != nil {
		t.Fatal(err)
	}
	conf, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if conf.TypeCheck || conf.DeadlineMs != 250 {
		t.Errorf("file not applied: %+v", conf)
	}
	if conf.View != "plain" {
		t.Errorf("an absent key should keep its default: %+v", conf)
	}
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vara.yml")
	if err := os.WriteFile(path, []byte("typecheck: not a boolean\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a malformed file")
	}
}
