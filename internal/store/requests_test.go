package store

import (
	"context"
	"errors"
	"testing"

	"stockroom/internal/db"
	"stockroom/internal/model"
)

func TestSubmitCart(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	seedItem(t, database, "drill", 5)
	seedItem(t, database, "cable", 10)

	AddToCart(ctx, database, user.ID, "drill", 3, model.RequestTypeLoan)
	AddToCart(ctx, database, user.ID, "cable", 2, model.RequestTypeDisbursement)

	req, err := SubmitCart(ctx, database, user.ID, "project build")
	if err != nil {
		t.Fatalf("SubmitCart: %v", err)
	}

	if req.Status != model.StatusOutstanding {
		t.Errorf("expected Outstanding, got %s", req.Status)
	}
	if req.OpenComment != "project build" {
		t.Errorf("expected open comment preserved, got %q", req.OpenComment)
	}
	if len(req.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(req.Items))
	}

	// Submitting converts and empties the cart.
	cart, _ := GetCart(ctx, database, user.ID)
	if len(cart) != 0 {
		t.Errorf("expected empty cart after submit, got %d entries", len(cart))
	}

	// Submission does not touch the ledger.
	item, _ := GetItemByName(ctx, database, "drill")
	if item.Quantity != 5 {
		t.Errorf("submission must not change on-hand quantity, got %d", item.Quantity)
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)

	_, err := SubmitCart(ctx, database, user.ID, "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	requests, _ := ListRequests(ctx, database, user.ID, "")
	if len(requests) != 0 {
		t.Errorf("failed submit must not create a request, got %d", len(requests))
	}
}

func TestDenyRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 3, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")

	closed, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{
		Approve:       false,
		ClosedComment: "not this month",
	})
	if err != nil {
		t.Fatalf("CloseRequest deny: %v", err)
	}

	if closed.Status != model.StatusDenied {
		t.Errorf("expected Denied, got %s", closed.Status)
	}
	if closed.AdministratorID == nil || *closed.AdministratorID != admin.ID {
		t.Error("expected administrator recorded")
	}
	if closed.DateClosed == nil {
		t.Error("expected date_closed recorded")
	}

	// Denial has no ledger or record side effects.
	item, _ := GetItemByName(ctx, database, "drill")
	if item.Quantity != 5 {
		t.Errorf("denial must not change on-hand quantity, got %d", item.Quantity)
	}
	loans, _ := ListLoans(ctx, database, 0, 0, false)
	if len(loans) != 0 {
		t.Errorf("denial must not create loans, got %d", len(loans))
	}
}

func TestApproveRequestCreatesRecordsAndDecrementsLedger(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)
	seedItem(t, database, "cable", 10)

	AddToCart(ctx, database, user.ID, "drill", 3, model.RequestTypeLoan)
	AddToCart(ctx, database, user.ID, "cable", 4, model.RequestTypeDisbursement)
	req, _ := SubmitCart(ctx, database, user.ID, "")

	closed, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{
		Approve:       true,
		ClosedComment: "ok",
	})
	if err != nil {
		t.Fatalf("CloseRequest approve: %v", err)
	}
	if closed.Status != model.StatusApproved {
		t.Errorf("expected Approved, got %s", closed.Status)
	}

	drill, _ := GetItemByName(ctx, database, "drill")
	if drill.Quantity != 2 {
		t.Errorf("expected drill quantity 2 after approval, got %d", drill.Quantity)
	}
	cable, _ := GetItemByName(ctx, database, "cable")
	if cable.Quantity != 6 {
		t.Errorf("expected cable quantity 6 after approval, got %d", cable.Quantity)
	}

	loans, _ := ListLoans(ctx, database, 0, 0, false)
	if len(loans) != 1 || loans[0].QuantityLoaned != 3 || loans[0].QuantityReturned != 0 {
		t.Errorf("expected one loan of 3, got %+v", loans)
	}
	disbursements, _ := ListDisbursements(ctx, database, 0, 0)
	if len(disbursements) != 1 || disbursements[0].Quantity != 4 {
		t.Errorf("expected one disbursement of 4, got %+v", disbursements)
	}
}

func TestApproveWithConfirmedQuantities(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 4, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")
	line := req.Items[0]

	closed, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{
		Approve:             true,
		ConfirmedQuantities: map[int64]int{line.ID: 2},
		AssetTags:           map[int64]string{line.ID: "AST-0042"},
	})
	if err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}
	if closed.Status != model.StatusApproved {
		t.Errorf("expected Approved, got %s", closed.Status)
	}

	item, _ := GetItemByName(ctx, database, "drill")
	if item.Quantity != 3 {
		t.Errorf("expected quantity 3 after confirming 2, got %d", item.Quantity)
	}

	loans, _ := ListLoans(ctx, database, 0, 0, false)
	if len(loans) != 1 || loans[0].QuantityLoaned != 2 {
		t.Fatalf("expected loan of 2, got %+v", loans)
	}
	if loans[0].AssetTag != "AST-0042" {
		t.Errorf("expected asset tag recorded, got %q", loans[0].AssetTag)
	}
}

func TestConfirmedQuantityCannotExceedRequested(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 10)

	AddToCart(ctx, database, user.ID, "drill", 2, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")
	line := req.Items[0]

	_, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{
		Approve:             true,
		ConfirmedQuantities: map[int64]int{line.ID: 5},
	})
	if err == nil {
		t.Fatal("expected error for confirmed > requested")
	}

	// Request unchanged.
	got, _ := GetRequest(ctx, database, req.ID)
	if got.Status != model.StatusOutstanding {
		t.Errorf("expected request still Outstanding, got %s", got.Status)
	}
}

func TestApproveInsufficientStockIsAtomic(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)
	seedItem(t, database, "cable", 10)

	AddToCart(ctx, database, user.ID, "cable", 4, model.RequestTypeDisbursement)
	AddToCart(ctx, database, user.ID, "drill", 3, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")

	// Stock for drill disappears between submission and approval.
	if _, err := AdjustQuantity(ctx, database, "drill", -4, nil, "stocktake loss"); err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}

	_, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{Approve: true})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The whole approval rolled back: no line committed, even the one with
	// sufficient stock, and the request stays Outstanding.
	cable, _ := GetItemByName(ctx, database, "cable")
	if cable.Quantity != 10 {
		t.Errorf("expected cable quantity untouched at 10, got %d", cable.Quantity)
	}
	drill, _ := GetItemByName(ctx, database, "drill")
	if drill.Quantity != 1 {
		t.Errorf("expected drill quantity 1, got %d", drill.Quantity)
	}
	loans, _ := ListLoans(ctx, database, 0, 0, false)
	disbursements, _ := ListDisbursements(ctx, database, 0, 0)
	if len(loans) != 0 || len(disbursements) != 0 {
		t.Error("failed approval must not create records")
	}
	got, _ := GetRequest(ctx, database, req.ID)
	if got.Status != model.StatusOutstanding {
		t.Errorf("expected request still Outstanding, got %s", got.Status)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 1, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")

	if _, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{Approve: false}); err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}

	_, err := CloseRequest(ctx, database, req.ID, admin.ID, CloseDecision{Approve: true})
	if !errors.Is(err, ErrRequestClosed) {
		t.Errorf("expected ErrRequestClosed, got %v", err)
	}
}

func TestCloseMissingRequest(t *testing.T) {
	database := db.NewTestDB(t)
	admin := seedUser(t, database, "boss", model.RoleAdmin)

	_, err := CloseRequest(context.Background(), database, 999, admin.ID, CloseDecision{Approve: true})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRacingApprovalsForLastUnits(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", model.RoleUser)
	bob := seedUser(t, database, "bob", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 2)

	// Both users request the last 2 units; admission is advisory so both
	// submissions succeed.
	AddToCart(ctx, database, alice.ID, "drill", 2, model.RequestTypeDisbursement)
	req1, _ := SubmitCart(ctx, database, alice.ID, "")
	AddToCart(ctx, database, bob.ID, "drill", 2, model.RequestTypeDisbursement)
	req2, _ := SubmitCart(ctx, database, bob.ID, "")

	// The binding check happens at approval: first wins, second fails.
	if _, err := CloseRequest(ctx, database, req1.ID, admin.ID, CloseDecision{Approve: true}); err != nil {
		t.Fatalf("first approval: %v", err)
	}

	_, err := CloseRequest(ctx, database, req2.ID, admin.ID, CloseDecision{Approve: true})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for second approval, got %v", err)
	}

	item, _ := GetItemByName(ctx, database, "drill")
	if item.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", item.Quantity)
	}
	got, _ := GetRequest(ctx, database, req2.ID)
	if got.Status != model.StatusOutstanding {
		t.Errorf("losing request must stay Outstanding, got %s", got.Status)
	}
	disbursements, _ := ListDisbursements(ctx, database, 0, 0)
	if len(disbursements) != 1 || disbursements[0].Quantity != 2 {
		t.Errorf("expected exactly one disbursement of 2, got %+v", disbursements)
	}
}

func TestDeleteRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice", model.RoleUser)
	other := seedUser(t, database, "bob", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 5)

	AddToCart(ctx, database, user.ID, "drill", 1, model.RequestTypeLoan)
	req, _ := SubmitCart(ctx, database, user.ID, "")

	if err := DeleteRequest(ctx, database, req.ID, other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-owner, got %v", err)
	}

	if err := DeleteRequest(ctx, database, req.ID, user.ID); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	got, _ := GetRequest(ctx, database, req.ID)
	if got != nil {
		t.Error("expected request gone after withdrawal")
	}

	// Closed requests cannot be withdrawn.
	AddToCart(ctx, database, user.ID, "drill", 1, model.RequestTypeLoan)
	req2, _ := SubmitCart(ctx, database, user.ID, "")
	CloseRequest(ctx, database, req2.ID, admin.ID, CloseDecision{Approve: false})
	if err := DeleteRequest(ctx, database, req2.ID, user.ID); !errors.Is(err, ErrRequestClosed) {
		t.Errorf("expected ErrRequestClosed, got %v", err)
	}
}

func TestListRequestsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", model.RoleUser)
	bob := seedUser(t, database, "bob", model.RoleUser)
	admin := seedUser(t, database, "boss", model.RoleAdmin)
	seedItem(t, database, "drill", 10)

	AddToCart(ctx, database, alice.ID, "drill", 1, model.RequestTypeLoan)
	r1, _ := SubmitCart(ctx, database, alice.ID, "")
	AddToCart(ctx, database, bob.ID, "drill", 1, model.RequestTypeLoan)
	SubmitCart(ctx, database, bob.ID, "")

	CloseRequest(ctx, database, r1.ID, admin.ID, CloseDecision{Approve: true})

	all, _ := ListRequests(ctx, database, 0, "")
	if len(all) != 2 {
		t.Errorf("expected 2 requests, got %d", len(all))
	}
	mine, _ := ListRequests(ctx, database, alice.ID, "")
	if len(mine) != 1 {
		t.Errorf("expected 1 request for alice, got %d", len(mine))
	}
	outstanding, _ := ListRequests(ctx, database, 0, model.StatusOutstanding)
	if len(outstanding) != 1 {
		t.Errorf("expected 1 outstanding request, got %d", len(outstanding))
	}
}
