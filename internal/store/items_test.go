package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"stockroom/internal/db"
	"stockroom/internal/model"
)

// seedUser creates a user for tests.
func seedUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, username+"@example.com", "x", role)
	if err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

// seedItem creates an item with the given stock for tests.
func seedItem(t *testing.T, database *sql.DB, name string, quantity int) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, name, "", "", "", quantity, 0, nil)
	if err != nil {
		t.Fatalf("seeding item %s: %v", name, err)
	}
	return item
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "drill", "DW-100", "shelf 3", "cordless drill", 5, 1, []string{"tools", "power"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", item.Quantity)
	}
	if len(item.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", item.Tags)
	}

	got, err := GetItemByName(ctx, database, "drill")
	if err != nil {
		t.Fatalf("GetItemByName: %v", err)
	}
	if got == nil || got.ID != item.ID {
		t.Fatalf("expected to find created item, got %v", got)
	}
	if got.ModelNo != "DW-100" || got.Location != "shelf 3" {
		t.Errorf("unexpected metadata: %+v", got)
	}
}

func TestGetItemByNameMissing(t *testing.T) {
	database := db.NewTestDB(t)

	got, err := GetItemByName(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetItemByName: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing item, got %v", got)
	}
}

func TestCreateItemRejectsNegativeQuantity(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := CreateItem(context.Background(), database, "bad", "", "", "", -1, 0, nil); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "drill", "DW-100", "", "", 5, 0, []string{"tools"})
	CreateItem(ctx, database, "cable", "C-9", "", "", 1, 3, []string{"electronics"})
	CreateItem(ctx, database, "drill bits", "", "", "", 50, 10, []string{"tools", "consumable"})

	bySearch, err := ListItems(ctx, database, ListItemsOptions{Search: "drill"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(bySearch) != 2 {
		t.Errorf("expected 2 items matching 'drill', got %d", len(bySearch))
	}

	byTag, _ := ListItems(ctx, database, ListItemsOptions{IncludeTags: []string{"tools"}})
	if len(byTag) != 2 {
		t.Errorf("expected 2 tagged items, got %d", len(byTag))
	}

	excluded, _ := ListItems(ctx, database, ListItemsOptions{IncludeTags: []string{"tools"}, ExcludeTags: []string{"consumable"}})
	if len(excluded) != 1 || excluded[0].Name != "drill" {
		t.Errorf("expected only 'drill', got %v", excluded)
	}

	low, _ := ListItems(ctx, database, ListItemsOptions{LowStock: true})
	if len(low) != 1 || low[0].Name != "cable" {
		t.Errorf("expected only 'cable' at low stock, got %v", low)
	}
}

func TestUpdateItemReplacesTags(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "drill", "", "", "", 5, 0, []string{"tools"})

	item, err := UpdateItem(ctx, database, "drill", "DW-200", "bin 4", "updated", 2, []string{"power"})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if item.ModelNo != "DW-200" || item.MinimumStock != 2 {
		t.Errorf("unexpected item after update: %+v", item)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "power" {
		t.Errorf("expected tags replaced with [power], got %v", item.Tags)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := UpdateItem(context.Background(), database, "ghost", "", "", "", 0, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedItem(t, database, "drill", 5)

	item, err := AdjustQuantity(ctx, database, "drill", 3, nil, "restock")
	if err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if item.Quantity != 8 {
		t.Errorf("expected quantity 8, got %d", item.Quantity)
	}

	item, err = AdjustQuantity(ctx, database, "drill", -8, nil, "correction")
	if err != nil {
		t.Fatalf("AdjustQuantity down: %v", err)
	}
	if item.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", item.Quantity)
	}
}

func TestAdjustQuantityNeverGoesNegative(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedItem(t, database, "drill", 2)

	_, err := AdjustQuantity(ctx, database, "drill", -3, nil, "")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	item, _ := GetItemByName(ctx, database, "drill")
	if item.Quantity != 2 {
		t.Errorf("failed adjustment must not change quantity, got %d", item.Quantity)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	seedItem(t, database, "drill", 5)

	// A cart entry is not a commitment; deletion clears it.
	if _, err := AddToCart(ctx, database, user.ID, "drill", 2, model.RequestTypeLoan); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	if err := DeleteItem(ctx, database, "drill"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	got, _ := GetItemByName(ctx, database, "drill")
	if got != nil {
		t.Error("expected deleted item to be invisible by name")
	}

	cart, _ := GetCart(ctx, database, user.ID)
	if len(cart) != 0 {
		t.Errorf("expected cart cleared on item deletion, got %d entries", len(cart))
	}
}

func TestDeleteItemBlockedByOutstandingRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 2, model.RequestTypeLoan)
	if _, err := SubmitCart(ctx, database, user.ID, "need it"); err != nil {
		t.Fatalf("SubmitCart: %v", err)
	}

	err := DeleteItem(ctx, database, "drill")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden while request outstanding, got %v", err)
	}
}

func TestDeleteItemBlockedByOpenLoan(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 2, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")
	if _, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{Approve: true}); err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}

	err := DeleteItem(ctx, database, "drill")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden while loan open, got %v", err)
	}

	// Once the loan is fully returned, deletion is allowed.
	loans, _ := ListLoans(ctx, database, 0, 0, true)
	if len(loans) != 1 {
		t.Fatalf("expected 1 open loan, got %d", len(loans))
	}
	if _, err := RecordReturn(ctx, database, loans[0].ID, 2, &admin.ID); err != nil {
		t.Fatalf("RecordReturn: %v", err)
	}
	if err := DeleteItem(ctx, database, "drill"); err != nil {
		t.Errorf("expected deletion after loan closed, got %v", err)
	}
}

func TestItemImageRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedItem(t, database, "drill", 1)

	if err := SetItemImage(ctx, database, "drill", []byte{0xff, 0xd8, 0x01}, "image/jpeg"); err != nil {
		t.Fatalf("SetItemImage: %v", err)
	}

	data, mime, err := GetItemImage(ctx, database, "drill")
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if mime != "image/jpeg" || len(data) != 3 {
		t.Errorf("unexpected image round trip: %d bytes, mime %s", len(data), mime)
	}

	if err := SetItemImage(ctx, database, "ghost", nil, "image/jpeg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}
