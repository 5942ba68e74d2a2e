package hub

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vara-lang/vara/settings"
)

func newTestHub() (*Hub, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(settings.Default(), strings.NewReader(""), out), out
}

func TestReplLines(t *testing.T) {
	hub, out := newTestHub()

	hub.Do("x = 7")
	out.Reset()
	hub.Do("x * 6")
	if !strings.Contains(out.String(), "42") {
		t.Errorf("the REPL lost a variable: %q", out.String())
	}
}

func TestBadCommand(t *testing.T) {
	hub, out := newTestHub()

	hub.Do("hub summon")
	if !strings.Contains(out.String(), "doesn't recognize") {
		t.Errorf("expected a complaint, got %q", out.String())
	}
}

func TestSetCommand(t *testing.T) {
	hub, out := newTestHub()

	hub.Do("hub set typecheck false")
	if !strings.Contains(out.String(), "ok") {
		t.Errorf("a legal set was rejected: %q", out.String())
	}
	out.Reset()
	hub.Do("hub set deadline_ms never")
	if !strings.Contains(out.String(), "error") {
		t.Errorf("an illegal set was accepted: %q", out.String())
	}
}

func TestQuitIsTheOnlyWayOut(t *testing.T) {
	hub, _ := newTestHub()

	if hub.Do("hub list") {
		t.Error("'hub list' should not quit")
	}
	if !hub.Do("hub quit") {
		t.Error("'hub quit' should quit")
	}
}

func TestDbCommand(t *testing.T) {
	hub, out := newTestHub()

	hub.Do("hub db SQLite :memory:")
	if !strings.Contains(out.String(), "ok") {
		t.Fatalf("couldn't open the store: %q", out.String())
	}
	out.Reset()
	hub.Do("db.exec(\"CREATE TABLE moths (name varchar(32))\")")
	hub.Do("db.exec(\"INSERT INTO moths VALUES ('Emperor Gum')\")")
	out.Reset()
	hub.Do("db.query(\"SELECT name FROM moths\")")
	if !strings.Contains(out.String(), "Emperor Gum") {
		t.Errorf("the row didn't come back: %q", out.String())
	}
}

func TestServiceSwitching(t *testing.T) {
	hub, out := newTestHub()

	if hub.GetCurrentServiceName() != "" {
		t.Fatal("a new hub should start on the nameless service")
	}
	hub.Do("hub halt")
	hub.Do("nonsense")
	if !strings.Contains(out.String(), "can't find the service") {
		t.Errorf("expected a complaint, got %q", out.String())
	}
}
