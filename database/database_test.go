package database

import (
	"context"
	"testing"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"
)

var testTok = token.Token{Source: "test"}

func openTestStore(t *testing.T) *Store {
	store, err := Open("SQLite", "", "", ":memory:", "", "", testTok)
	if err != nil {
		t.Fatal(err.Message)
	}
	t.Cleanup(func() { store.DB.Close() })
	return store
}

func TestDriverList(t *testing.T) {
	dr := GetSortedDrivers()
	if len(dr) == 0 {
		t.Fatal("no drivers")
	}
	for i := 1; i < len(dr); i++ {
		if dr[i-1] > dr[i] {
			t.Errorf("drivers out of order: %v", dr)
		}
	}
}

func TestUnknownDriver(t *testing.T) {
	_, err := Open("CardFile", "", "", "", "", "", testTok)
	if err == nil || err.ErrorId != "db/driver" {
		t.Errorf("expected db/driver, got %v", err)
	}
}

func TestQueryAndExec(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Exec(ctx, "CREATE TABLE snails (name varchar(32), weight float)"); err != nil {
		t.Fatal(err)
	}
	affected, err := store.Exec(ctx, "INSERT INTO snails VALUES ($1, $2), ($3, $4)",
		"Brian", 1.5, "Gary", 2.25)
	if err != nil {
		t.Fatal(err)
	}
	if affected.Value != 2 {
		t.Errorf("expected 2 rows affected, got %d", affected.Value)
	}

	rows, err := store.Query(ctx, "SELECT name, weight FROM snails ORDER BY name")
	if err != nil {
		t.Fatal(err)
	}
	if rows.Elements.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", rows.Elements.Len())
	}
	first, _ := rows.Elements.Index(0)
	row, ok := first.(*object.Map)
	if !ok {
		t.Fatalf("rows should come back as maps, got %T", first)
	}
	nameKey := (&object.String{Value: "name"}).HashKey()
	pair, found := row.Pairs[nameKey]
	if !found {
		t.Fatalf("row has no 'name' column: %v", row.Inspect(object.ViewVaraLiteral))
	}
	if s, isString := pair.Value.(*object.String); !isString || s.Value != "Brian" {
		t.Errorf("wrong first row: %v", row.Inspect(object.ViewVaraLiteral))
	}
}

func TestUserTable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CreateUserTable(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.AddUser(ctx, "alcuin", "hrabanus"); err != nil {
		t.Fatal(err)
	}
	if err := store.ValidateUser(ctx, "alcuin", "hrabanus"); err != nil {
		t.Errorf("the right password was rejected: %v", err)
	}
	if err := store.ValidateUser(ctx, "alcuin", "theodulf"); err == nil {
		t.Error("the wrong password was accepted")
	}
	if err := store.ValidateUser(ctx, "nobody", "hrabanus"); err == nil {
		t.Error("an unknown user was accepted")
	}
}
