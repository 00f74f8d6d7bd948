package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUpdateReconcilesKeywords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, _, categoryID, userID := setupCoordinator(t)
	ctx := context.Background()

	item, err := coord.Ingest(ctx, testUpload(categoryID, userID))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// drop "team", keep "Offsite", add "2024"
	updated, err := coord.Update(ctx, item.ID, UpdateRequest{
		Title:       "Renamed",
		Description: "new description",
		CategoryID:  categoryID,
		Tags:        "offsite, 2024",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", updated.Title)
	}
	if len(updated.Keywords) != 2 {
		t.Fatalf("Keywords = %v, want 2", updated.Keywords)
	}
	texts := []string{updated.Keywords[0].Text, updated.Keywords[1].Text}
	// "Offsite" keeps its originally stored casing even though the edit
	// said "offsite"
	if texts[0] != "2024" || texts[1] != "Offsite" {
		t.Errorf("keywords = %v, want [2024 Offsite]", texts)
	}
}

func TestUpdateSameTagsIsNoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, _, categoryID, userID := setupCoordinator(t)
	ctx := context.Background()

	item, err := coord.Ingest(ctx, testUpload(categoryID, userID))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	updated, err := coord.Update(ctx, item.ID, UpdateRequest{
		Title:      item.Title,
		CategoryID: categoryID,
		Tags:       "TEAM, OFFSITE", // same set, different casing
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.Keywords) != len(item.Keywords) {
		t.Errorf("keyword count changed: %v vs %v", updated.Keywords, item.Keywords)
	}
	for i := range updated.Keywords {
		if updated.Keywords[i].ID != item.Keywords[i].ID {
			t.Errorf("keyword identity changed: %+v vs %+v", updated.Keywords[i], item.Keywords[i])
		}
	}
}

func TestUpdateNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, _, categoryID, _ := setupCoordinator(t)

	_, err := coord.Update(context.Background(), 9999, UpdateRequest{
		Title:      "x",
		CategoryID: categoryID,
	})
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestUpdateValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, _, categoryID, userID := setupCoordinator(t)
	ctx := context.Background()

	item, err := coord.Ingest(ctx, testUpload(categoryID, userID))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	_, err = coord.Update(ctx, item.ID, UpdateRequest{Title: "", CategoryID: categoryID})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("empty title error = %v, want ValidationError", err)
	}

	_, err = coord.Update(ctx, item.ID, UpdateRequest{Title: strings.Repeat("x", 101), CategoryID: categoryID})
	if !errors.As(err, &verr) {
		t.Errorf("long title error = %v, want ValidationError", err)
	}

	// the limit counts characters, so a multibyte title under 100 runes is
	// fine even at over 100 bytes
	if _, err := coord.Update(ctx, item.ID, UpdateRequest{Title: strings.Repeat("写", 60), CategoryID: categoryID}); err != nil {
		t.Errorf("multibyte title within limit rejected: %v", err)
	}
}

func TestSoftDeleteThenDestroy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, store, categoryID, userID := setupCoordinator(t)
	ctx := context.Background()

	item, err := coord.Ingest(ctx, testUpload(categoryID, userID))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := coord.SoftDelete(ctx, item.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// hidden for normal reads, blobs untouched
	var nerr *NotFoundError
	if _, err := coord.Get(ctx, item.ID); !errors.As(err, &nerr) {
		t.Errorf("Get after soft delete error = %v, want NotFoundError", err)
	}
	if !store.Exists(item.FilePath) {
		t.Error("soft delete removed the original blob")
	}

	if err := coord.Destroy(ctx, item.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if store.Exists(item.FilePath) || store.Exists(item.ThumbnailPath) {
		t.Error("Destroy left blobs behind")
	}
	if err := coord.Destroy(ctx, item.ID); !errors.As(err, &nerr) {
		t.Errorf("second Destroy error = %v, want NotFoundError", err)
	}
}

func TestShareTokenIssueAndResolve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	coord, _, categoryID, userID := setupCoordinator(t)
	ctx := context.Background()

	item, err := coord.Ingest(ctx, testUpload(categoryID, userID))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	first, err := coord.IssueShareToken(ctx, item.ID)
	if err != nil {
		t.Fatalf("IssueShareToken failed: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	resolved, err := coord.ResolveShareToken(ctx, first)
	if err != nil {
		t.Fatalf("ResolveShareToken failed: %v", err)
	}
	if resolved.ID != item.ID {
		t.Errorf("resolved id = %d, want %d", resolved.ID, item.ID)
	}

	// rotation invalidates the old link
	second, err := coord.IssueShareToken(ctx, item.ID)
	if err != nil {
		t.Fatalf("IssueShareToken failed: %v", err)
	}
	if second == first {
		t.Error("rotation returned the same token")
	}
	var nerr *NotFoundError
	if _, err := coord.ResolveShareToken(ctx, first); !errors.As(err, &nerr) {
		t.Errorf("old token error = %v, want NotFoundError", err)
	}

	if _, err := coord.ResolveShareToken(ctx, ""); !errors.As(err, &nerr) {
		t.Errorf("empty token error = %v, want NotFoundError", err)
	}
}
