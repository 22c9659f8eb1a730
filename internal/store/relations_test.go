package store

import (
	"errors"
	"testing"
)

func TestReferences(t *testing.T) {
	db := testDB(t)
	a := mustCreate(t, db, &Memo{Content: "a"})
	b := mustCreate(t, db, &Memo{Content: "b"})
	c := mustCreate(t, db, &Memo{Content: "c"})

	if err := db.AddReference(a.UID, b.UID); err != nil {
		t.Fatalf("AddReference a->b: %v", err)
	}
	if err := db.AddReference(c.UID, a.UID); err != nil {
		t.Fatalf("AddReference c->a: %v", err)
	}
	// Duplicate is ignored
	if err := db.AddReference(a.UID, b.UID); err != nil {
		t.Fatalf("duplicate AddReference: %v", err)
	}

	rel, err := db.ListRelations(a.UID)
	if err != nil {
		t.Fatalf("ListRelations: %v", err)
	}
	if len(rel.Referencing) != 1 || rel.Referencing[0].UID != b.UID {
		t.Errorf("Referencing = %+v, want [b]", rel.Referencing)
	}
	if len(rel.ReferencedBy) != 1 || rel.ReferencedBy[0].UID != c.UID {
		t.Errorf("ReferencedBy = %+v, want [c]", rel.ReferencedBy)
	}

	if err := db.RemoveReference(a.UID, b.UID); err != nil {
		t.Fatalf("RemoveReference: %v", err)
	}
	if err := db.RemoveReference(a.UID, b.UID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveReference err = %v, want ErrNotFound", err)
	}
}

func TestReferenceErrors(t *testing.T) {
	db := testDB(t)
	a := mustCreate(t, db, &Memo{Content: "a"})

	if err := db.AddReference(a.UID, a.UID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("self reference err = %v, want ErrInvalidInput", err)
	}
	if err := db.AddReference(a.UID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing target err = %v, want ErrNotFound", err)
	}
	if _, err := db.ListRelations("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListRelations(missing) err = %v, want ErrNotFound", err)
	}
}

func TestRelationsSkipCommentsAndArchived(t *testing.T) {
	db := testDB(t)
	a := mustCreate(t, db, &Memo{Content: "a"})
	mustCreate(t, db, &Memo{Content: "reply", ParentUID: a.UID})
	old := mustCreate(t, db, &Memo{Content: "old", State: StateArchived})

	if err := db.AddReference(old.UID, a.UID); err != nil {
		t.Fatalf("AddReference: %v", err)
	}

	rel, err := db.ListRelations(a.UID)
	if err != nil {
		t.Fatalf("ListRelations: %v", err)
	}
	if len(rel.Referencing) != 0 || len(rel.ReferencedBy) != 0 {
		t.Errorf("relations = %+v, want none", rel)
	}
}
