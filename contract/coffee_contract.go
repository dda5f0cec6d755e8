package contract

import (
	"strings"

	"coffeetrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("coffeetrace.supplychain")

// Object types for composite keys, also used as 'docType' for CouchDB queries.
const (
	lotObjectType     = "CoffeeLot"  // Stores CoffeeLot objects. Attribute: zero-padded lot id.
	counterObjectType = "LotCounter" // Singleton monotonic counter of lots ever created.
)

// Constants for input validation and limits
const (
	maxStringInputLength = 256
	maxNotesLength       = 1024
	maxMetadataHashLen   = 128
)

// CoffeeSupplyContract tracks coffee lots through the six-stage supply chain:
// role-gated stage transitions, an append-only per-lot history and an
// administrator-managed participant registry.
// @contract:CoffeeSupplyContract
type CoffeeSupplyContract struct {
	contractapi.Contract
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	alias  string
	mspID  string
}

// Instantiate is called during chaincode instantiation.
func (s *CoffeeSupplyContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("CoffeeSupplyContract Instantiated/Upgraded")
}

// InitLedger bootstraps the registry with its permanent administrator. The
// administrator identity is an explicit argument; when blank the submitting
// client becomes the administrator, matching the deployer-is-owner behavior.
// Re-running InitLedger fails.
func (s *CoffeeSupplyContract) InitLedger(ctx contractapi.TransactionContextInterface, adminID string) error {
	reg := NewAccessRegistry(ctx)

	adminID = strings.TrimSpace(adminID)
	adminAlias := ""
	if adminID == "" {
		actor, err := s.getCurrentActorInfo(ctx)
		if err != nil {
			return err
		}
		adminID = actor.fullID
		adminAlias = actor.alias
	}
	logger.Infof("Chaincode Call: InitLedger, administrator '%s'", adminID)
	return reg.Bootstrap(adminID, adminAlias)
}

// --- Registry Wrappers (delegating to AccessRegistry) ---

// AuthorizeUser grants an identity a role and the authorized flag.
// Administrator only.
func (s *CoffeeSupplyContract) AuthorizeUser(ctx contractapi.TransactionContextInterface, identity string, alias string, role int) error {
	logger.Infof("Chaincode Call: AuthorizeUser '%s' (alias: '%s') with role %d", identity, alias, role)
	return NewAccessRegistry(ctx).Grant(identity, alias, role)
}

// RevokeUser clears an identity's authorized flag. Administrator only.
func (s *CoffeeSupplyContract) RevokeUser(ctx contractapi.TransactionContextInterface, identity string) error {
	logger.Infof("Chaincode Call: RevokeUser '%s'", identity)
	return NewAccessRegistry(ctx).Revoke(identity)
}

// GetUserRole returns the role ordinal bound to an identity. Never fails for
// unknown identities; they report the default role.
func (s *CoffeeSupplyContract) GetUserRole(ctx contractapi.TransactionContextInterface, identity string) (int, error) {
	role, err := NewAccessRegistry(ctx).RoleOf(identity)
	if err != nil {
		return 0, err
	}
	return int(role), nil
}

// IsUserAuthorized reports whether an identity holds the authorized flag.
// Never fails for unknown identities.
func (s *CoffeeSupplyContract) IsUserAuthorized(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return NewAccessRegistry(ctx).IsAuthorized(identity)
}

// GetParticipant returns the full participant record for an identity.
func (s *CoffeeSupplyContract) GetParticipant(ctx contractapi.TransactionContextInterface, identity string) (*model.Participant, error) {
	logger.Debugf("Chaincode Call: GetParticipant '%s'", identity)
	return NewAccessRegistry(ctx).Participant(identity)
}

// GetAllParticipants lists every registered participant. Administrator only.
func (s *CoffeeSupplyContract) GetAllParticipants(ctx contractapi.TransactionContextInterface) ([]model.Participant, error) {
	logger.Debug("Chaincode Call: GetAllParticipants")
	return NewAccessRegistry(ctx).AllParticipants()
}
