package contract

import (
	"encoding/json"
	"strconv"

	"coffeetrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/pkg/errors"
)

// --- Lifecycle: Farmer Operations ---

// AddCoffeeItem registers a new coffee lot at stage Harvested and returns the
// assigned lot id. Ids are dense and sequential, starting at 1. The caller
// must be an authorized Farmer; the farmer slot binds to the caller and the
// implicit stage-0 history entry is written in the same transaction.
func (s *CoffeeSupplyContract) AddCoffeeItem(ctx contractapi.TransactionContextInterface,
	batchNumber string, coffeeType string, quantity int, metadataHash string) (uint64, error) {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "AddCoffeeItem: failed to get actor info")
	}
	reg := NewAccessRegistry(ctx)

	authorized, err := reg.IsAuthorized(actor.fullID)
	if err != nil {
		return 0, errors.Wrap(err, "AddCoffeeItem: failed to check authorization")
	}
	if !authorized {
		return 0, errors.Wrapf(ErrPermissionDenied, "identity '%s' is not authorized", actor.fullID)
	}
	role, err := reg.RoleOf(actor.fullID)
	if err != nil {
		return 0, errors.Wrap(err, "AddCoffeeItem: failed to look up caller role")
	}
	if role != model.RoleFarmer {
		return 0, errors.Wrapf(ErrPermissionDenied, "only farmers can add coffee (caller '%s' has role %s)", actor.fullID, role)
	}

	if err := s.validateRequiredString(batchNumber, "batchNumber", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(coffeeType, "coffeeType", maxStringInputLength); err != nil {
		return 0, err
	}
	if quantity <= 0 {
		return 0, errors.Wrap(ErrValidation, "quantity must be positive")
	}
	if err := s.validateOptionalString(metadataHash, "metadataHash", maxMetadataHashLen); err != nil {
		return 0, err
	}

	id, err := s.allocateLotID(ctx)
	if err != nil {
		return 0, err
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return 0, err
	}

	lot := model.CoffeeLot{
		ObjectType:   lotObjectType,
		ID:           id,
		BatchNumber:  batchNumber,
		CoffeeType:   coffeeType,
		Quantity:     uint64(quantity),
		CurrentStage: model.StageHarvested,
		Farmer:       actor.fullID,
		FarmerAlias:  actor.alias,
		MetadataHash: metadataHash,
		HarvestedAt:  now,
		LastUpdatedAt: now,
		IsActive:     true,
		History: []model.StageEntry{{
			Stage:        model.StageHarvested,
			Actor:        actor.fullID,
			ActorAlias:   actor.alias,
			Timestamp:    now,
			MetadataHash: metadataHash,
			Notes:        "",
		}},
	}
	ensureLotSchemaCompliance(&lot)

	lotKey, err := s.createLotCompositeKey(ctx, id)
	if err != nil {
		return 0, errors.Wrapf(err, "AddCoffeeItem: failed to create key for lot %d", id)
	}
	lotBytes, err := json.Marshal(lot)
	if err != nil {
		return 0, errors.Wrapf(err, "AddCoffeeItem: failed to marshal lot %d", id)
	}
	if err := ctx.GetStub().PutState(lotKey, lotBytes); err != nil {
		return 0, errors.Wrapf(err, "AddCoffeeItem: failed to save lot %d to ledger", id)
	}

	s.emitLotEvent(ctx, "CoffeeItemAdded", map[string]interface{}{
		"coffeeId":    id,
		"batchNumber": batchNumber,
		"farmer":      actor.fullID,
		"timestamp":   now,
	})
	logger.Infof("Coffee lot %d ('%s', %s, %d kg) added by farmer '%s' (alias: '%s')", id, batchNumber, coffeeType, quantity, actor.fullID, actor.alias)
	return id, nil
}

// allocateLotID increments the total-lot counter and returns the next id.
// Reads and writes sit in one transaction write set, so concurrent allocations
// cannot both commit: Fabric's MVCC validation rejects the later one.
func (s *CoffeeSupplyContract) allocateLotID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	total, err := s.readLotCounter(ctx)
	if err != nil {
		return 0, err
	}
	id := total + 1

	counterKey, err := s.createCounterCompositeKey(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create lot counter key")
	}
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return 0, errors.Wrap(err, "failed to update lot counter")
	}
	return id, nil
}

// readLotCounter returns the count of lots ever created, 0 before any lot.
// The counter is monotonic and never decremented.
func (s *CoffeeSupplyContract) readLotCounter(ctx contractapi.TransactionContextInterface) (uint64, error) {
	counterKey, err := s.createCounterCompositeKey(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create lot counter key")
	}
	counterBytes, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, errors.Wrap(err, "ledger error reading lot counter")
	}
	if counterBytes == nil {
		return 0, nil
	}
	total, err := strconv.ParseUint(string(counterBytes), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "corrupt lot counter value '%s'", string(counterBytes))
	}
	return total, nil
}
