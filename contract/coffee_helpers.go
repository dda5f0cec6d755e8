package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coffeetrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/pkg/errors"
)

// --- Core Helper Methods (used across multiple operations) ---

// txTimestamp retrieves the current transaction timestamp from the stub.
// Every time value committed by this contract comes from here so that all
// endorsers agree on it.
func txTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to get transaction timestamp")
	}
	return ts.AsTime(), nil
}

func (s *CoffeeSupplyContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	reg := NewAccessRegistry(ctx)
	fullID, err := reg.CallerFullID()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current actor's FullID")
	}

	var alias string
	participant, errGet := reg.Participant(fullID)
	if errGet == nil && participant != nil {
		alias = participant.Alias
	} else if strings.Contains(fullID, "::CN=") {
		// Unregistered caller: fall back to the certificate CN.
		parts := strings.Split(fullID, "::CN=")
		if len(parts) > 1 {
			cnPart := parts[1]
			if idx := strings.Index(cnPart, "::"); idx != -1 {
				cnPart = cnPart[:idx]
			}
			alias = cnPart
		}
	}

	mspID := ""
	if clientIdentity := ctx.GetClientIdentity(); clientIdentity != nil {
		if id, mspErr := clientIdentity.GetMSPID(); mspErr == nil {
			mspID = id
		}
	}
	return &actorInfo{fullID: fullID, alias: alias, mspID: mspID}, nil
}

// createLotCompositeKey creates the composite key for a lot. The id attribute
// is zero-padded so partial-key iteration returns lots in numeric order.
func (s *CoffeeSupplyContract) createLotCompositeKey(ctx contractapi.TransactionContextInterface, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(lotObjectType, []string{fmt.Sprintf("%012d", id)})
}

func (s *CoffeeSupplyContract) createCounterCompositeKey(ctx contractapi.TransactionContextInterface) (string, error) {
	return ctx.GetStub().CreateCompositeKey(counterObjectType, []string{"total"})
}

// --- Validation Helper Functions ---

func (s *CoffeeSupplyContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return errors.Wrapf(ErrValidation, "%s cannot be empty", field)
	}
	if len(input) > max {
		return errors.Wrapf(ErrValidation, "%s exceeds max length %d", field, max)
	}
	return nil
}

func (s *CoffeeSupplyContract) validateOptionalString(input, field string, max int) error {
	if input != "" && len(input) > max {
		return errors.Wrapf(ErrValidation, "%s exceeds max length %d", field, max)
	}
	return nil
}

// ensureLotSchemaCompliance replaces nil slices before marshal so queries
// always return [] rather than null.
func ensureLotSchemaCompliance(lot *model.CoffeeLot) {
	if lot == nil {
		return
	}
	if lot.History == nil {
		lot.History = []model.StageEntry{}
	}
}

// enrichLotAliases populates alias fields on the lot's identity slots if they
// are empty, best effort.
func (s *CoffeeSupplyContract) enrichLotAliases(reg *AccessRegistry, lot *model.CoffeeLot) {
	if lot == nil {
		return
	}

	enrich := func(id, currentAlias string) string {
		if currentAlias == "" && id != "" {
			if participant, err := reg.Participant(id); err == nil && participant != nil {
				return participant.Alias
			}
		}
		return currentAlias
	}

	lot.FarmerAlias = enrich(lot.Farmer, lot.FarmerAlias)
	lot.ProcessorAlias = enrich(lot.Processor, lot.ProcessorAlias)
	lot.DistributorAlias = enrich(lot.Distributor, lot.DistributorAlias)
	lot.RetailerAlias = enrich(lot.Retailer, lot.RetailerAlias)
	lot.ConsumerAlias = enrich(lot.Consumer, lot.ConsumerAlias)
	for i := range lot.History {
		lot.History[i].ActorAlias = enrich(lot.History[i].Actor, lot.History[i].ActorAlias)
	}
}

// emitLotEvent sends a chaincode event. Fabric delivers it to observers only
// after the transaction commits, so the notification never reports a mutation
// that was rolled back.
func (s *CoffeeSupplyContract) emitLotEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	for k, v := range payload {
		if t, ok := v.(time.Time); ok {
			payload[k] = t.Format(time.RFC3339)
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitLotEvent: failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitLotEvent: failed to set event '%s': %v", eventName, errSet)
	}
}
