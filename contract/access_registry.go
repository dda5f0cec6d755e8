package contract

import (
	"encoding/json"
	"strings"

	"coffeetrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
)

var regLogger = flogging.MustGetLogger("coffeetrace.accessregistry")

// Object types for composite keys, also usable as 'docType' in CouchDB.
const (
	participantObjectType = "Participant"   // Stores Participant objects. Attribute: FullID.
	aliasObjectType       = "Alias"         // Maps alias to FullID. Attribute: alias.
	adminObjectType       = "RegistryAdmin" // Singleton holding the administrator's FullID.
)

// AccessRegistry handles participant authorization, role assignment and the
// administrator singleton. One privileged administrator identity (set at
// bootstrap) can grant or revoke authorization for any other identity.
type AccessRegistry struct {
	Ctx contractapi.TransactionContextInterface
}

// NewAccessRegistry creates a new instance of AccessRegistry.
func NewAccessRegistry(ctx contractapi.TransactionContextInterface) *AccessRegistry {
	return &AccessRegistry{Ctx: ctx}
}

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// --- Key Creation Helpers (using Composite Keys) ---

func (r *AccessRegistry) createParticipantCompositeKey(fullID string) (string, error) {
	return r.Ctx.GetStub().CreateCompositeKey(participantObjectType, []string{fullID})
}

func (r *AccessRegistry) createAliasCompositeKey(alias string) (string, error) {
	return r.Ctx.GetStub().CreateCompositeKey(aliasObjectType, []string{alias})
}

func (r *AccessRegistry) createAdminCompositeKey() (string, error) {
	return r.Ctx.GetStub().CreateCompositeKey(adminObjectType, []string{"admin"})
}

// --- Administrator Singleton ---

// AdminID returns the administrator's FullID, or "" if the registry has not
// been bootstrapped yet.
func (r *AccessRegistry) AdminID() (string, error) {
	adminKey, err := r.createAdminCompositeKey()
	if err != nil {
		return "", errors.Wrap(err, "failed to create admin key")
	}
	adminBytes, err := r.Ctx.GetStub().GetState(adminKey)
	if err != nil {
		return "", errors.Wrap(err, "ledger error reading administrator record")
	}
	return string(adminBytes), nil
}

// Bootstrap records adminID as the permanent administrator and registers it as
// an authorized participant. The administrator's role value is the zero value
// and is not consulted when gating registry operations. Bootstrap may run only
// once.
func (r *AccessRegistry) Bootstrap(adminID, adminAlias string) error {
	existing, err := r.AdminID()
	if err != nil {
		return err
	}
	if existing != "" {
		return errors.Wrapf(ErrValidation, "registry already bootstrapped with administrator '%s'", existing)
	}

	now, err := txTimestamp(r.Ctx)
	if err != nil {
		return err
	}

	adminKey, err := r.createAdminCompositeKey()
	if err != nil {
		return errors.Wrap(err, "failed to create admin key")
	}
	if err := r.Ctx.GetStub().PutState(adminKey, []byte(adminID)); err != nil {
		return errors.Wrapf(err, "failed to save administrator record for '%s'", adminID)
	}

	// The administrator is authorized by default. The role field stays at its
	// zero value, mirroring the write gate it is never checked against.
	admin := model.Participant{
		ObjectType:    participantObjectType,
		FullID:        adminID,
		Alias:         adminAlias,
		Role:          model.RoleFarmer,
		Authorized:    true,
		GrantedBy:     adminID,
		GrantedAt:     now,
		LastUpdatedAt: now,
	}
	if err := r.saveParticipant(&admin); err != nil {
		return err
	}
	regLogger.Infof("Registry bootstrapped: administrator '%s' (alias: '%s')", adminID, adminAlias)
	return nil
}

func (r *AccessRegistry) requireAdmin() (string, error) {
	callerFullID, err := r.CallerFullID()
	if err != nil {
		return "", err
	}
	adminID, err := r.AdminID()
	if err != nil {
		return "", err
	}
	if adminID == "" || callerFullID != adminID {
		return "", errors.Wrapf(ErrPermissionDenied, "caller '%s' is not the administrator", callerFullID)
	}
	return callerFullID, nil
}

// --- Resolution ---

// Resolve maps an alias to its registered FullID. Full X.509 identities pass
// through unchanged, and so does an unregistered name: identities are opaque
// and a lookup against one that has never been granted anything must still
// succeed with default values.
func (r *AccessRegistry) Resolve(identityOrAlias string) (string, error) {
	trimmed := strings.TrimSpace(identityOrAlias)
	if trimmed == "" {
		return "", errors.Wrap(ErrValidation, "identity cannot be empty")
	}
	if isValidX509ID(trimmed) {
		return trimmed, nil
	}
	aliasKey, err := r.createAliasCompositeKey(trimmed)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create alias key for '%s'", trimmed)
	}
	fullIDBytes, err := r.Ctx.GetStub().GetState(aliasKey)
	if err != nil {
		return "", errors.Wrapf(err, "ledger error when querying alias '%s'", trimmed)
	}
	if fullIDBytes != nil {
		return string(fullIDBytes), nil
	}
	return trimmed, nil
}

// --- Grants ---

// Grant authorizes an identity with the given role. Administrator only. The
// participant record is created implicitly on the first grant; a repeat grant
// updates the role and re-sets the authorized flag.
func (r *AccessRegistry) Grant(identityOrAlias, alias string, role int) error {
	callerFullID, err := r.requireAdmin()
	if err != nil {
		return err
	}
	if !model.ValidRole(role) {
		return errors.Wrapf(ErrValidation, "invalid role ordinal %d (valid: 0=Farmer .. 4=Consumer)", role)
	}

	targetFullID, err := r.Resolve(identityOrAlias)
	if err != nil {
		return err
	}

	alias = strings.TrimSpace(alias)
	if alias != "" {
		aliasKey, keyErr := r.createAliasCompositeKey(alias)
		if keyErr != nil {
			return errors.Wrapf(keyErr, "failed to create alias key for '%s'", alias)
		}
		existingBytes, getErr := r.Ctx.GetStub().GetState(aliasKey)
		if getErr != nil {
			return errors.Wrapf(getErr, "failed to check alias availability for '%s'", alias)
		}
		if existingBytes != nil && string(existingBytes) != targetFullID {
			return errors.Wrapf(ErrValidation, "alias '%s' is already in use by identity '%s'", alias, string(existingBytes))
		}
		if err := r.Ctx.GetStub().PutState(aliasKey, []byte(targetFullID)); err != nil {
			return errors.Wrapf(err, "failed to save alias mapping '%s' -> '%s'", alias, targetFullID)
		}
	}

	now, err := txTimestamp(r.Ctx)
	if err != nil {
		return err
	}

	participant, err := r.participantByFullID(targetFullID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if participant == nil {
		participant = &model.Participant{
			ObjectType: participantObjectType,
			FullID:     targetFullID,
			GrantedAt:  now,
		}
	}
	if alias != "" {
		participant.Alias = alias
	}
	participant.Role = model.Role(role)
	participant.Authorized = true
	participant.GrantedBy = callerFullID
	participant.LastUpdatedAt = now

	if err := r.saveParticipant(participant); err != nil {
		return err
	}
	regLogger.Infof("Role '%s' granted to identity '%s' (alias: '%s') by administrator '%s'", model.Role(role), targetFullID, participant.Alias, callerFullID)
	return nil
}

// Revoke clears the authorized flag for an identity. Administrator only. The
// role value is retained but ignored once unauthorized; revoking an identity
// that was never granted anything records the cleared flag and is not an
// error, matching mapping-write semantics.
func (r *AccessRegistry) Revoke(identityOrAlias string) error {
	callerFullID, err := r.requireAdmin()
	if err != nil {
		return err
	}

	targetFullID, err := r.Resolve(identityOrAlias)
	if err != nil {
		return err
	}

	now, err := txTimestamp(r.Ctx)
	if err != nil {
		return err
	}

	participant, err := r.participantByFullID(targetFullID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if participant == nil {
		participant = &model.Participant{
			ObjectType: participantObjectType,
			FullID:     targetFullID,
			GrantedAt:  now,
		}
	}
	participant.Authorized = false
	participant.GrantedBy = callerFullID
	participant.LastUpdatedAt = now

	if err := r.saveParticipant(participant); err != nil {
		return err
	}
	regLogger.Infof("Authorization revoked for identity '%s' by administrator '%s'", targetFullID, callerFullID)
	return nil
}

// --- Queries (never fail for unknown identities) ---

// RoleOf returns the role bound to an identity, RoleFarmer (the zero value)
// for identities that were never registered.
func (r *AccessRegistry) RoleOf(identityOrAlias string) (model.Role, error) {
	participant, err := r.Participant(identityOrAlias)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.RoleFarmer, nil
		}
		return model.RoleFarmer, err
	}
	return participant.Role, nil
}

// IsAuthorized reports whether an identity currently holds the authorized
// flag; false for unknown identities.
func (r *AccessRegistry) IsAuthorized(identityOrAlias string) (bool, error) {
	participant, err := r.Participant(identityOrAlias)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return participant.Authorized, nil
}

// Participant returns the full participant record, ErrNotFound if the identity
// was never registered.
func (r *AccessRegistry) Participant(identityOrAlias string) (*model.Participant, error) {
	fullID, err := r.Resolve(identityOrAlias)
	if err != nil {
		return nil, err
	}
	return r.participantByFullID(fullID)
}

func (r *AccessRegistry) participantByFullID(fullID string) (*model.Participant, error) {
	participantKey, err := r.createParticipantCompositeKey(fullID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create participant key for '%s'", fullID)
	}
	participantBytes, err := r.Ctx.GetStub().GetState(participantKey)
	if err != nil {
		return nil, errors.Wrapf(err, "ledger error retrieving participant '%s'", fullID)
	}
	if participantBytes == nil {
		return nil, errors.Wrapf(ErrNotFound, "participant record not found for '%s'", fullID)
	}
	var participant model.Participant
	if err := json.Unmarshal(participantBytes, &participant); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal participant '%s'", fullID)
	}
	return &participant, nil
}

func (r *AccessRegistry) saveParticipant(participant *model.Participant) error {
	participantKey, err := r.createParticipantCompositeKey(participant.FullID)
	if err != nil {
		return errors.Wrapf(err, "failed to create participant key for '%s'", participant.FullID)
	}
	participantBytes, err := json.Marshal(participant)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal participant '%s'", participant.FullID)
	}
	if err := r.Ctx.GetStub().PutState(participantKey, participantBytes); err != nil {
		return errors.Wrapf(err, "failed to save participant '%s'", participant.FullID)
	}
	return nil
}

// AllParticipants lists every registered participant. Administrator only.
func (r *AccessRegistry) AllParticipants() ([]model.Participant, error) {
	if _, err := r.requireAdmin(); err != nil {
		return nil, err
	}

	resultsIterator, err := r.Ctx.GetStub().GetStateByPartialCompositeKey(participantObjectType, []string{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get participants iterator")
	}
	defer resultsIterator.Close()

	participants := []model.Participant{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			regLogger.Warningf("Failed to get next participant from iterator: %v. Skipping.", iterErr)
			continue
		}
		var participant model.Participant
		if err := json.Unmarshal(queryResponse.Value, &participant); err != nil {
			regLogger.Warningf("Failed to unmarshal participant data for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

// CallerFullID retrieves the full X.509 ID of the current transactor.
func (r *AccessRegistry) CallerFullID() (string, error) {
	clientIdentity := r.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", errors.Wrap(err, "failed to get client identity ID from context")
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	return id, nil
}
