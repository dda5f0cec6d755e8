package contract

import (
	"encoding/json"

	"coffeetrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/pkg/errors"
)

// --- Lifecycle: Stage Transitions ---

// stageGate maps each enterable stage to the role allowed to perform the
// transition into it and the verb used in the permission error. Packaged is
// gated by Processor: packaging is performed by the same role as processing
// in this model.
type stageGate struct {
	role model.Role
	verb string
}

var stageGates = map[model.Stage]stageGate{
	model.StageProcessed:   {model.RoleProcessor, "process"},
	model.StagePackaged:    {model.RoleProcessor, "package"},
	model.StageDistributed: {model.RoleDistributor, "distribute"},
	model.StageRetailed:    {model.RoleRetailer, "retail"},
	model.StageConsumed:    {model.RoleConsumer, "consume"},
}

// UpdateStage advances a lot to newStage. The transition must be exactly
// currentStage+1; the caller must be authorized and hold the role gating the
// target stage. On success the stage's identity slot is bound (first time
// only), the denormalized lot record is updated and a history entry appended,
// all in one transaction.
func (s *CoffeeSupplyContract) UpdateStage(ctx contractapi.TransactionContextInterface,
	id uint64, newStage int, metadataHash string, notes string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return errors.Wrap(err, "UpdateStage: failed to get actor info")
	}
	reg := NewAccessRegistry(ctx)

	authorized, err := reg.IsAuthorized(actor.fullID)
	if err != nil {
		return errors.Wrap(err, "UpdateStage: failed to check authorization")
	}
	if !authorized {
		return errors.Wrapf(ErrPermissionDenied, "identity '%s' is not authorized", actor.fullID)
	}

	if err := s.validateOptionalString(metadataHash, "metadataHash", maxMetadataHashLen); err != nil {
		return err
	}
	if err := s.validateOptionalString(notes, "notes", maxNotesLength); err != nil {
		return err
	}

	lot, err := s.getLotByID(ctx, id)
	if err != nil {
		return err
	}

	// Stage arithmetic before the role gate: a skip attempted by a wrong-role
	// caller is an invalid transition, not a permission failure.
	if newStage != int(lot.CurrentStage)+1 || newStage > int(model.StageConsumed) {
		return errors.Wrapf(ErrInvalidTransition, "lot %d is at stage %d (%s), cannot move to stage %d", id, lot.CurrentStage, lot.CurrentStage, newStage)
	}
	target := model.Stage(newStage)

	gate := stageGates[target]
	role, err := reg.RoleOf(actor.fullID)
	if err != nil {
		return errors.Wrap(err, "UpdateStage: failed to look up caller role")
	}
	if role != gate.role {
		return errors.Wrapf(ErrPermissionDenied, "only %s can %s (caller '%s' has role %s)", gate.role, gate.verb, actor.fullID, role)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	s.bindStageSlot(lot, target, actor)
	lot.CurrentStage = target
	lot.MetadataHash = metadataHash
	lot.LastUpdatedAt = now
	lot.History = append(lot.History, model.StageEntry{
		Stage:        target,
		Actor:        actor.fullID,
		ActorAlias:   actor.alias,
		Timestamp:    now,
		MetadataHash: metadataHash,
		Notes:        notes,
	})
	ensureLotSchemaCompliance(lot)

	lotKey, err := s.createLotCompositeKey(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "UpdateStage: failed to create key for lot %d", id)
	}
	lotBytes, err := json.Marshal(lot)
	if err != nil {
		return errors.Wrapf(err, "UpdateStage: failed to marshal lot %d", id)
	}
	if err := ctx.GetStub().PutState(lotKey, lotBytes); err != nil {
		return errors.Wrapf(err, "UpdateStage: failed to update lot %d on ledger", id)
	}

	s.emitLotEvent(ctx, "StageUpdated", map[string]interface{}{
		"coffeeId":  id,
		"newStage":  newStage,
		"updatedBy": actor.fullID,
		"timestamp": now,
	})
	logger.Infof("Coffee lot %d moved to stage %d (%s) by '%s' (alias: '%s')", id, newStage, target, actor.fullID, actor.alias)
	return nil
}

// bindStageSlot records the acting identity in the slot owned by the target
// stage. Each slot binds at most once; the monotonic stage rule means only
// Packaged revisits an already-bound slot (the processor's), which is left
// unchanged.
func (s *CoffeeSupplyContract) bindStageSlot(lot *model.CoffeeLot, target model.Stage, actor *actorInfo) {
	switch target {
	case model.StageProcessed:
		if lot.Processor == "" {
			lot.Processor = actor.fullID
			lot.ProcessorAlias = actor.alias
		}
	case model.StagePackaged:
		if lot.Processor == "" {
			lot.Processor = actor.fullID
			lot.ProcessorAlias = actor.alias
		}
	case model.StageDistributed:
		if lot.Distributor == "" {
			lot.Distributor = actor.fullID
			lot.DistributorAlias = actor.alias
		}
	case model.StageRetailed:
		if lot.Retailer == "" {
			lot.Retailer = actor.fullID
			lot.RetailerAlias = actor.alias
		}
	case model.StageConsumed:
		if lot.Consumer == "" {
			lot.Consumer = actor.fullID
			lot.ConsumerAlias = actor.alias
		}
	}
}
