package handlers

import (
	"encoding/json"
	"strconv"

	"coffeetrace/internal/relay/gateway"
	"coffeetrace/internal/relay/response"
	"coffeetrace/model"

	"github.com/gofiber/fiber/v2"
)

// CoffeeHandler handles coffee lot endpoints. Mutations upload their metadata
// document to the content store first and record only the returned hash
// on-chain.
type CoffeeHandler struct {
	chain Invoker
	store ContentStore
}

// NewCoffeeHandler creates a new coffee handler.
func NewCoffeeHandler(chain Invoker, store ContentStore) *CoffeeHandler {
	return &CoffeeHandler{chain: chain, store: store}
}

// AddCoffeeRequest is the request body for registering a new lot.
type AddCoffeeRequest struct {
	BatchNumber string                 `json:"batchNumber"`
	CoffeeType  string                 `json:"coffeeType"`
	Quantity    int                    `json:"quantity"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Add handles POST /api/coffee/add.
func (h *CoffeeHandler) Add(c *fiber.Ctx) error {
	var req AddCoffeeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BatchNumber == "" || req.CoffeeType == "" {
		return response.BadRequest(c, "batchNumber and coffeeType are required")
	}
	if req.Quantity <= 0 {
		return response.BadRequest(c, "quantity must be positive")
	}

	metadataHash, metadataURL := "", ""
	if len(req.Metadata) > 0 {
		added, err := h.store.AddJSON(c.Context(), req.Metadata)
		if err != nil {
			return response.BadGateway(c, "Failed to store metadata: "+err.Error())
		}
		metadataHash, metadataURL = added.Hash, added.URL
	}

	result, txID, err := h.chain.Submit("AddCoffeeItem",
		req.BatchNumber, req.CoffeeType, strconv.Itoa(req.Quantity), metadataHash)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}

	coffeeID, err := strconv.ParseUint(string(result), 10, 64)
	if err != nil {
		return response.BadGateway(c, "Unexpected chaincode response: "+string(result))
	}
	return response.Created(c, "Coffee lot registered", fiber.Map{
		"coffeeId": coffeeID,
		"txId":     txID,
		"ipfsHash": metadataHash,
		"ipfsUrl":  metadataURL,
	})
}

// Get handles GET /api/coffee/:id.
func (h *CoffeeHandler) Get(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid coffee id")
	}

	data, err := h.chain.Evaluate("GetCoffeeDetails", id)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}

	var lot map[string]interface{}
	if err := json.Unmarshal(data, &lot); err != nil {
		return response.BadGateway(c, "Unexpected chaincode response")
	}
	h.enrich(c, lot)
	return response.Success(c, "Coffee lot retrieved", lot)
}

// UpdateStageRequest is the request body for advancing a lot.
type UpdateStageRequest struct {
	NewStage *int                   `json:"newStage"`
	Notes    string                 `json:"notes"`
	Metadata map[string]interface{} `json:"metadata"`
}

// UpdateStage handles PUT /api/coffee/:id/stage.
func (h *CoffeeHandler) UpdateStage(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid coffee id")
	}
	var req UpdateStageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.NewStage == nil {
		return response.BadRequest(c, "newStage is required")
	}

	metadataHash, metadataURL := "", ""
	if len(req.Metadata) > 0 {
		added, err := h.store.AddJSON(c.Context(), req.Metadata)
		if err != nil {
			return response.BadGateway(c, "Failed to store metadata: "+err.Error())
		}
		metadataHash, metadataURL = added.Hash, added.URL
	}

	_, txID, err := h.chain.Submit("UpdateStage",
		id, strconv.Itoa(*req.NewStage), metadataHash, req.Notes)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	return response.Success(c, "Stage updated", fiber.Map{
		"txId":      txID,
		"newStage":  *req.NewStage,
		"stageName": model.Stage(*req.NewStage).String(),
		"ipfsHash":  metadataHash,
		"ipfsUrl":   metadataURL,
	})
}

// History handles GET /api/coffee/:id/history.
func (h *CoffeeHandler) History(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid coffee id")
	}

	data, err := h.chain.Evaluate("GetStageHistory", id)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}

	var history []map[string]interface{}
	if err := json.Unmarshal(data, &history); err != nil {
		return response.BadGateway(c, "Unexpected chaincode response")
	}
	for _, entry := range history {
		h.enrich(c, entry)
	}
	return response.Success(c, "Stage history retrieved", fiber.Map{
		"coffeeId": c.Params("id"),
		"history":  history,
	})
}

// Verify handles GET /api/coffee/:id/verify.
func (h *CoffeeHandler) Verify(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid coffee id")
	}

	data, err := h.chain.Evaluate("VerifyAuthenticity", id)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}

	var report map[string]interface{}
	if err := json.Unmarshal(data, &report); err != nil {
		return response.BadGateway(c, "Unexpected chaincode response")
	}
	return response.Success(c, "Authenticity verified", report)
}

// Total handles GET /api/coffee/stats/total.
func (h *CoffeeHandler) Total(c *fiber.Ctx) error {
	data, err := h.chain.Evaluate("GetTotalCoffeeItems")
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}
	total, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return response.BadGateway(c, "Unexpected chaincode response: "+string(data))
	}
	return response.Success(c, "Total retrieved", fiber.Map{"total": total})
}

// List handles GET /api/coffee.
func (h *CoffeeHandler) List(c *fiber.Ctx) error {
	pageSize := c.Query("pageSize", "10")
	bookmark := c.Query("bookmark", "")

	data, err := h.chain.Evaluate("GetAllCoffeeItems", pageSize, bookmark)
	if err != nil {
		return response.Error(c, gateway.StatusOf(err), err.Error())
	}

	var page map[string]interface{}
	if err := json.Unmarshal(data, &page); err != nil {
		return response.BadGateway(c, "Unexpected chaincode response")
	}
	return response.Success(c, "Coffee lots retrieved", page)
}

// enrich adds the human stage name and, best effort, the dereferenced
// metadata document to a lot or history entry. Store failures are ignored;
// the hash is still in the record.
func (h *CoffeeHandler) enrich(c *fiber.Ctx, record map[string]interface{}) {
	stageKey := "currentStage"
	if _, ok := record["stage"]; ok {
		stageKey = "stage"
	}
	if ordinal, ok := record[stageKey].(float64); ok {
		record["stageName"] = model.Stage(ordinal).String()
	}
	hash, _ := record["metadataHash"].(string)
	if hash == "" {
		return
	}
	raw, err := h.store.Cat(c.Context(), hash)
	if err != nil {
		return
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal(raw, &metadata); err == nil {
		record["metadata"] = metadata
	}
}

func lotIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", err
	}
	return id, nil
}
