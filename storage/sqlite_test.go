package storage

import (
	"errors"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_SaveRetrieveRoundtrip(t *testing.T) {
	st := openTestStore(t)

	el := &Element{
		Tag:        "div",
		Attributes: map[string]string{"class": "amount", "data-currency": "usd"},
		Text:       "42.00",
		Path:       []string{"html", "body", "main", "section", "div"},
		ParentTag:  "section",
		Siblings:   []string{"span"},
		Children:   []string{},
	}
	if err := st.Save("shop.example.com", "#price", el); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Retrieve("shop.example.com", "#price")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.Tag != el.Tag || got.Text != el.Text || got.ParentTag != el.ParentTag {
		t.Errorf("scalar fields lost: %+v", got)
	}
	if !reflect.DeepEqual(got.Attributes, el.Attributes) {
		t.Errorf("attributes = %+v", got.Attributes)
	}
	if !reflect.DeepEqual(got.Path, el.Path) {
		t.Errorf("path = %+v", got.Path)
	}
}

func TestSQLiteStore_MissingIsErrNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Retrieve("nobody.example.com", "#nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_SaveIsAnUpsert(t *testing.T) {
	st := openTestStore(t)

	if err := st.Save("shop.example.com", "#price", &Element{Tag: "div", Text: "1.00"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := st.Save("shop.example.com", "#price", &Element{Tag: "div", Text: "2.00"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := st.Retrieve("shop.example.com", "#price")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.Text != "2.00" {
		t.Errorf("upsert did not replace, got %q", got.Text)
	}
}

func TestSQLiteStore_KeysAreScoped(t *testing.T) {
	st := openTestStore(t)

	if err := st.Save("a.example.com", "#price", &Element{Tag: "div", Text: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save("b.example.com", "#price", &Element{Tag: "div", Text: "b"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Retrieve("b.example.com", "#price")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.Text != "b" {
		t.Errorf("identifier scoping broken, got %q", got.Text)
	}
}
