package handlers

import (
	"encoding/json"

	"coffeetrace/internal/relay/response"

	"github.com/gofiber/fiber/v2"
)

// IPFSHandler exposes the content store directly, for clients that manage
// metadata documents themselves.
type IPFSHandler struct {
	store ContentStore
}

// NewIPFSHandler creates a new IPFS handler.
func NewIPFSHandler(store ContentStore) *IPFSHandler {
	return &IPFSHandler{store: store}
}

// UploadJSON handles POST /api/ipfs/upload/json. The body is stored verbatim
// after a well-formedness check.
func (h *IPFSHandler) UploadJSON(c *fiber.Ctx) error {
	var doc interface{}
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		return response.BadRequest(c, "Body must be valid JSON")
	}

	added, err := h.store.AddJSON(c.Context(), doc)
	if err != nil {
		return response.BadGateway(c, err.Error())
	}
	return response.Created(c, "Document stored", added)
}

// UploadFile handles POST /api/ipfs/upload/file (multipart, field "file").
func (h *IPFSHandler) UploadFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Multipart field 'file' is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to open uploaded file")
	}
	defer file.Close()

	added, err := h.store.AddFile(c.Context(), fileHeader.Filename, file)
	if err != nil {
		return response.BadGateway(c, err.Error())
	}
	return response.Created(c, "File stored", added)
}

// Get handles GET /api/ipfs/:hash and returns the raw stored bytes.
func (h *IPFSHandler) Get(c *fiber.Ctx) error {
	hash := c.Params("hash")
	data, err := h.store.Cat(c.Context(), hash)
	if err != nil {
		return response.BadGateway(c, err.Error())
	}
	if json.Valid(data) {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return c.Send(data)
}

// Pin handles POST /api/ipfs/pin/:hash.
func (h *IPFSHandler) Pin(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if err := h.store.Pin(c.Context(), hash); err != nil {
		return response.BadGateway(c, err.Error())
	}
	return response.Success(c, "Pinned", fiber.Map{"hash": hash})
}

// Unpin handles DELETE /api/ipfs/pin/:hash.
func (h *IPFSHandler) Unpin(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if err := h.store.Unpin(c.Context(), hash); err != nil {
		return response.BadGateway(c, err.Error())
	}
	return response.Success(c, "Unpinned", fiber.Map{"hash": hash})
}
