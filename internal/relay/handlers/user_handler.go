package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"coffeetrace/internal/relay/gateway"
	"coffeetrace/internal/relay/response"
	"coffeetrace/model"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles participant registry endpoints.
type UserHandler struct {
	chain Invoker
}

// NewUserHandler creates a new user handler.
func NewUserHandler(chain Invoker) *UserHandler {
	return &UserHandler{chain: chain}
}

// AuthorizeRequest is the request body for granting a role. Role accepts the
// ordinal ("2") or the name ("Distributor").
type AuthorizeRequest struct {
	Identity string `json:"identity"`
	Alias    string `json:"alias"`
	Role     string `json:"role"`
}

// Authorize handles POST /api/users/authorize.
func (h *UserHandler) Authorize(c *fiber.Ctx) error {
	var req AuthorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Identity == "" {
		return response.BadRequest(c, "identity is required")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	_, txID, err := h.chain.Submit("AuthorizeUser", req.Identity, req.Alias, strconv.Itoa(role))
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	return response.Success(c, "User authorized", fiber.Map{
		"txId":     txID,
		"identity": req.Identity,
		"role":     role,
		"roleName": model.Role(role).String(),
	})
}

// RevokeRequest is the request body for revoking authorization.
type RevokeRequest struct {
	Identity string `json:"identity"`
}

// Revoke handles POST /api/users/revoke.
func (h *UserHandler) Revoke(c *fiber.Ctx) error {
	var req RevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Identity == "" {
		return response.BadRequest(c, "identity is required")
	}

	_, txID, err := h.chain.Submit("RevokeUser", req.Identity)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	return response.Success(c, "User authorization revoked", fiber.Map{
		"txId":     txID,
		"identity": req.Identity,
	})
}

// GetRole handles GET /api/users/:id/role.
func (h *UserHandler) GetRole(c *fiber.Ctx) error {
	identity := identityParam(c)
	data, err := h.chain.Evaluate("GetUserRole", identity)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	role, err := strconv.Atoi(string(data))
	if err != nil {
		return response.BadGateway(c, "Unexpected chaincode response: "+string(data))
	}
	return response.Success(c, "Role retrieved", fiber.Map{
		"identity": identity,
		"role":     role,
		"roleName": model.Role(role).String(),
	})
}

// GetAuthorized handles GET /api/users/:id/authorized.
func (h *UserHandler) GetAuthorized(c *fiber.Ctx) error {
	identity := identityParam(c)
	data, err := h.chain.Evaluate("IsUserAuthorized", identity)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	authorized, err := strconv.ParseBool(string(data))
	if err != nil {
		return response.BadGateway(c, "Unexpected chaincode response: "+string(data))
	}
	return response.Success(c, "Authorization retrieved", fiber.Map{
		"identity":   identity,
		"authorized": authorized,
	})
}

// ListRoles handles GET /api/users/roles.
func (h *UserHandler) ListRoles(c *fiber.Ctx) error {
	roles := make([]fiber.Map, 0, int(model.RoleConsumer)+1)
	for r := model.RoleFarmer; r <= model.RoleConsumer; r++ {
		roles = append(roles, fiber.Map{"role": int(r), "name": r.String()})
	}
	return response.Success(c, "Roles retrieved", fiber.Map{"roles": roles})
}

// parseRole accepts a role ordinal or a role name, case-insensitive.
func parseRole(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("role is required")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if !model.ValidRole(n) {
			return 0, fmt.Errorf("invalid role ordinal %d (valid: 0..4)", n)
		}
		return n, nil
	}
	for r := model.RoleFarmer; r <= model.RoleConsumer; r++ {
		if strings.EqualFold(s, r.String()) {
			return int(r), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// identityParam returns the :id path segment. Identities are full X.509
// strings and arrive percent-encoded.
func identityParam(c *fiber.Ctx) string {
	raw := c.Params("id")
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
