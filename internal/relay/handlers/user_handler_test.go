package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"4", 4, false},
		{"Farmer", 0, false},
		{"distributor", 2, false},
		{"CONSUMER", 4, false},
		{"5", 0, true},
		{"-1", 0, true},
		{"Barista", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseRole(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func newUserApp(chain *fakeChain) *fiber.App {
	app := fiber.New()
	h := NewUserHandler(chain)
	app.Post("/api/users/authorize", h.Authorize)
	app.Post("/api/users/revoke", h.Revoke)
	app.Get("/api/users/roles", h.ListRoles)
	app.Get("/api/users/:id/role", h.GetRole)
	app.Get("/api/users/:id/authorized", h.GetAuthorized)
	return app
}

func TestAuthorizeByRoleName(t *testing.T) {
	chain := &fakeChain{results: map[string][]byte{}}
	app := newUserApp(chain)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/users/authorize", map[string]interface{}{
		"identity": "x509::CN=mill::CN=ca",
		"alias":    "mill",
		"role":     "Processor",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := envelope["data"].(map[string]interface{})
	if data["roleName"] != "Processor" {
		t.Errorf("roleName = %v", data["roleName"])
	}

	last := chain.calls[len(chain.calls)-1]
	if last.name != "AuthorizeUser" || last.args[2] != "1" {
		t.Errorf("chain call = %+v, want AuthorizeUser with ordinal 1", last)
	}
}

func TestGetRoleByAlias(t *testing.T) {
	chain := &fakeChain{results: map[string][]byte{"GetUserRole": []byte("3")}}
	app := newUserApp(chain)

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/users/shop/role", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := envelope["data"].(map[string]interface{})
	if data["role"] != float64(3) || data["roleName"] != "Retailer" {
		t.Errorf("data = %v", data)
	}
}

func TestGetAuthorized(t *testing.T) {
	chain := &fakeChain{results: map[string][]byte{"IsUserAuthorized": []byte("false")}}
	app := newUserApp(chain)

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/users/shop/authorized", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := envelope["data"].(map[string]interface{})
	if data["authorized"] != false {
		t.Errorf("authorized = %v, want false", data["authorized"])
	}
}

func TestListRoles(t *testing.T) {
	app := newUserApp(&fakeChain{})
	resp, envelope := doJSON(t, app, http.MethodGet, "/api/users/roles", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := envelope["data"].(map[string]interface{})
	roles := data["roles"].([]interface{})
	if len(roles) != 5 {
		t.Errorf("len(roles) = %d, want 5", len(roles))
	}
}
