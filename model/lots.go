package model

import "time"

// Stage is the position of a coffee lot in the supply chain. Stages are
// ordinal and strictly ordered; a lot passes through each exactly once.
type Stage uint8

const (
	StageHarvested   Stage = 0 // Lot registered by the farmer
	StageProcessed   Stage = 1 // Beans processed
	StagePackaged    Stage = 2 // Packaged (performed by the processor in this model)
	StageDistributed Stage = 3 // In distribution
	StageRetailed    Stage = 4 // Received by a retailer
	StageConsumed    Stage = 5 // Terminal stage
)

var stageNames = map[Stage]string{
	StageHarvested:   "Harvested",
	StageProcessed:   "Processed",
	StagePackaged:    "Packaged",
	StageDistributed: "Distributed",
	StageRetailed:    "Retailed",
	StageConsumed:    "Consumed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// CoffeeLot is the central data structure: one tracked batch of coffee with
// its denormalized latest state and the full append-only stage history.
type CoffeeLot struct {
	ObjectType       string       `json:"objectType"` // "CoffeeLot"
	ID               uint64       `json:"id"`         // Dense sequential, assigned from 1
	BatchNumber      string       `json:"batchNumber"`
	CoffeeType       string       `json:"coffeeType"`
	Quantity         uint64       `json:"quantity"` // kg
	CurrentStage     Stage        `json:"currentStage"`
	Farmer           string       `json:"farmer"`
	FarmerAlias      string       `json:"farmerAlias"`
	Processor        string       `json:"processor"`
	ProcessorAlias   string       `json:"processorAlias"`
	Distributor      string       `json:"distributor"`
	DistributorAlias string       `json:"distributorAlias"`
	Retailer         string       `json:"retailer"`
	RetailerAlias    string       `json:"retailerAlias"`
	Consumer         string       `json:"consumer"`
	ConsumerAlias    string       `json:"consumerAlias"`
	MetadataHash     string       `json:"metadataHash"` // Opaque content-store reference, never dereferenced on-chain
	HarvestedAt      time.Time    `json:"harvestedAt"`
	LastUpdatedAt    time.Time    `json:"lastUpdatedAt"`
	IsActive         bool         `json:"isActive"`
	History          []StageEntry `json:"history"` // len(History) == CurrentStage+1 at all times
}

// StageEntry is one immutable record of a stage transition. Append order equals
// chronological order equals stage order, since stages cannot be skipped or
// repeated.
type StageEntry struct {
	Stage        Stage     `json:"stage"`
	Actor        string    `json:"actor"`
	ActorAlias   string    `json:"actorAlias"`
	Timestamp    time.Time `json:"timestamp"`
	MetadataHash string    `json:"metadataHash"`
	Notes        string    `json:"notes"`
}

// AuthenticityReport is the result of an authenticity check on a lot.
type AuthenticityReport struct {
	IsAuthentic bool   `json:"isAuthentic"`
	Message     string `json:"message"`
}

// PaginatedLotResponse is the structure returned by paginated lot queries.
type PaginatedLotResponse struct {
	Lots         []*CoffeeLot `json:"lots"`
	NextBookmark string       `json:"nextBookmark"`
	FetchedCount int32        `json:"fetchedCount"`
}
