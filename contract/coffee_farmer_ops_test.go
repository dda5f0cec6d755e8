package contract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"coffeetrace/model"
)

// supplyChain returns a fixture with the administrator plus one authorized
// identity per role: grower, mill, hauler, shop, drinker.
func supplyChain(t *testing.T) *fixture {
	t.Helper()
	f := bootstrapped(t)
	grants := []struct {
		name string
		role model.Role
	}{
		{"grower", model.RoleFarmer},
		{"mill", model.RoleProcessor},
		{"hauler", model.RoleDistributor},
		{"shop", model.RoleRetailer},
		{"drinker", model.RoleConsumer},
	}
	for _, g := range grants {
		if err := f.cc.AuthorizeUser(f.as("admin"), fullID(g.name), g.name, int(g.role)); err != nil {
			t.Fatalf("AuthorizeUser %s: %v", g.name, err)
		}
	}
	return f
}

func mustAdd(t *testing.T, f *fixture, batch string) uint64 {
	t.Helper()
	id, err := f.cc.AddCoffeeItem(f.as("grower"), batch, "Arabica", 50, "")
	if err != nil {
		t.Fatalf("AddCoffeeItem %s: %v", batch, err)
	}
	return id
}

func TestAddCoffeeItemSequentialIDs(t *testing.T) {
	f := supplyChain(t)

	for want := uint64(1); want <= 3; want++ {
		got := mustAdd(t, f, "B-2024")
		if got != want {
			t.Errorf("lot id = %d, want %d", got, want)
		}
	}

	total, err := f.cc.GetTotalCoffeeItems(f.as("anyone"))
	if err != nil {
		t.Fatalf("GetTotalCoffeeItems: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestAddCoffeeItemInitialState(t *testing.T) {
	f := supplyChain(t)
	id := mustAdd(t, f, "B-2024-001")

	lot, err := f.cc.GetCoffeeDetails(f.as("anyone"), id)
	if err != nil {
		t.Fatalf("GetCoffeeDetails: %v", err)
	}
	if lot.CurrentStage != model.StageHarvested {
		t.Errorf("stage = %s, want Harvested", lot.CurrentStage)
	}
	if lot.Farmer != fullID("grower") || lot.FarmerAlias != "grower" {
		t.Errorf("farmer slot = %q / %q, want bound to grower", lot.Farmer, lot.FarmerAlias)
	}
	if !lot.IsActive {
		t.Error("new lot should be active")
	}
	if lot.Quantity != 50 {
		t.Errorf("quantity = %d, want 50", lot.Quantity)
	}
	if len(lot.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(lot.History))
	}
	entry := lot.History[0]
	if entry.Stage != model.StageHarvested || entry.Actor != fullID("grower") {
		t.Errorf("history[0] = stage %s actor %q", entry.Stage, entry.Actor)
	}
	if entry.Notes != "" {
		t.Errorf("implicit harvest entry notes = %q, want empty", entry.Notes)
	}
	if !lot.HarvestedAt.Equal(lot.LastUpdatedAt) {
		t.Error("HarvestedAt and LastUpdatedAt should match on creation")
	}
}

func TestAddCoffeeItemEvent(t *testing.T) {
	f := supplyChain(t)
	mustAdd(t, f, "B-2024-001")

	event := f.lastEvent()
	if event == nil || event.name != "CoffeeItemAdded" {
		t.Fatalf("event = %+v, want CoffeeItemAdded", event)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(event.payload, &payload); err != nil {
		t.Fatalf("unmarshal event payload: %v", err)
	}
	if payload["coffeeId"] != float64(1) {
		t.Errorf("payload coffeeId = %v, want 1", payload["coffeeId"])
	}
	if payload["farmer"] != fullID("grower") {
		t.Errorf("payload farmer = %v", payload["farmer"])
	}
}

func TestAddCoffeeItemRequiresFarmerRole(t *testing.T) {
	f := supplyChain(t)

	_, err := f.cc.AddCoffeeItem(f.as("mill"), "B-1", "Arabica", 50, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if !strings.Contains(err.Error(), "only farmers can add coffee") {
		t.Errorf("err = %q, want farmer-gate message", err)
	}

	// Nothing was created or counted.
	total, err := f.cc.GetTotalCoffeeItems(f.as("anyone"))
	if err != nil {
		t.Fatalf("GetTotalCoffeeItems: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if _, err := f.cc.GetCoffeeDetails(f.as("anyone"), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCoffeeDetails: err = %v, want ErrNotFound", err)
	}
}

func TestAddCoffeeItemRequiresAuthorization(t *testing.T) {
	f := supplyChain(t)

	// Unknown identities default to the Farmer role but are unauthorized.
	_, err := f.cc.AddCoffeeItem(f.as("stranger"), "B-1", "Arabica", 50, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("unknown identity: err = %v, want ErrPermissionDenied", err)
	}

	// Revoked identities lose the gate even though the role is retained.
	if err := f.cc.RevokeUser(f.as("admin"), fullID("grower")); err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
	_, err = f.cc.AddCoffeeItem(f.as("grower"), "B-1", "Arabica", 50, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("revoked farmer: err = %v, want ErrPermissionDenied", err)
	}
}

func TestAddCoffeeItemValidation(t *testing.T) {
	f := supplyChain(t)

	tests := []struct {
		name     string
		batch    string
		kind     string
		quantity int
	}{
		{"empty batch number", "", "Arabica", 50},
		{"empty coffee type", "B-1", "", 50},
		{"zero quantity", "B-1", "Arabica", 0},
		{"negative quantity", "B-1", "Arabica", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.cc.AddCoffeeItem(f.as("grower"), tt.batch, tt.kind, tt.quantity, "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
