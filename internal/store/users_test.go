package store

import (
	"context"
	"testing"

	"stockroom/internal/db"
	"stockroom/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "alice", "alice@example.com", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" || user.Role != model.RoleUser {
		t.Errorf("unexpected user: %+v", user)
	}

	got, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Errorf("expected same user back, got %+v", got)
	}

	missing, err := GetUserByUsername(ctx, database, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}
}

func TestCreateUserInvalidRole(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := CreateUser(context.Background(), database, "alice", "", "hash", "superuser"); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestDuplicateUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedUser(t, database, "alice", model.RoleUser)
	if _, err := CreateUser(ctx, database, "alice", "", "hash", model.RoleUser); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	seedItem(t, database, "drill", 5)
	if _, err := AddToCart(ctx, database, user.ID, "drill", 1, model.RequestTypeLoan); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected deleted user hidden from listing, got %d", len(users))
	}

	// The deleted user's cart is discarded with them.
	cart, _ := GetCart(ctx, database, user.ID)
	if len(cart) != 0 {
		t.Errorf("expected cart cleared, got %d entries", len(cart))
	}

	// The username is free for a new account.
	if _, err := CreateUser(ctx, database, "alice", "", "hash", model.RoleUser); err != nil {
		t.Errorf("expected username reusable after deletion: %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)

	if err := UpdateUser(ctx, database, user.ID, "new@example.com", model.RoleManager); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.Email != "new@example.com" || got.Role != model.RoleManager {
		t.Errorf("unexpected user after update: %+v", got)
	}

	if err := UpdateUser(ctx, database, user.ID, "", "superuser"); err == nil {
		t.Error("expected error for invalid role")
	}
}
