package contract

import (
	"crypto/x509"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// compositeKeyNamespace matches the shim's composite key encoding so the
// contract's partial-key queries behave as they would against a real peer.
const compositeKeyNamespace = "\x00"

// mockStub is an in-memory world state implementing the slice of
// shim.ChaincodeStubInterface this chaincode uses. Unused methods panic via
// the embedded nil interface.
type mockStub struct {
	shim.ChaincodeStubInterface
	state  map[string][]byte
	events []capturedEvent
	txTime time.Time
}

type capturedEvent struct {
	name    string
	payload []byte
}

func newMockStub() *mockStub {
	return &mockStub{
		state:  map[string][]byte{},
		txTime: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func (m *mockStub) GetState(key string) ([]byte, error) {
	return m.state[key], nil
}

func (m *mockStub) PutState(key string, value []byte) error {
	m.state[key] = value
	return nil
}

func (m *mockStub) DelState(key string) error {
	delete(m.state, key)
	return nil
}

func (m *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeyNamespace + objectType + compositeKeyNamespace
	for _, attr := range attributes {
		key += attr + compositeKeyNamespace
	}
	return key, nil
}

func (m *mockStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(m.txTime), nil
}

func (m *mockStub) SetEvent(name string, payload []byte) error {
	m.events = append(m.events, capturedEvent{name: name, payload: payload})
	return nil
}

func (m *mockStub) matchingKeys(objectType string, attributes []string) []string {
	prefix, _ := m.CreateCompositeKey(objectType, attributes)
	keys := []string{}
	for key := range m.state {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *mockStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	return &mockIterator{stub: m, keys: m.matchingKeys(objectType, attributes)}, nil
}

func (m *mockStub) GetStateByPartialCompositeKeyWithPagination(objectType string, attributes []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *peer.QueryResponseMetadata, error) {
	keys := m.matchingKeys(objectType, attributes)
	if len(keys) > int(pageSize) {
		keys = keys[:pageSize]
	}
	metadata := &peer.QueryResponseMetadata{
		FetchedRecordsCount: int32(len(keys)),
		Bookmark:            "",
	}
	return &mockIterator{stub: m, keys: keys}, metadata, nil
}

type mockIterator struct {
	stub *mockStub
	keys []string
	next int
}

func (it *mockIterator) HasNext() bool {
	return it.next < len(it.keys)
}

func (it *mockIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	key := it.keys[it.next]
	it.next++
	return &queryresult.KV{Key: key, Value: it.stub.state[key]}, nil
}

func (it *mockIterator) Close() error {
	return nil
}

// mockIdentity implements cid.ClientIdentity for a fixed full ID.
type mockIdentity struct {
	id    string
	mspID string
}

func (m *mockIdentity) GetID() (string, error)    { return m.id, nil }
func (m *mockIdentity) GetMSPID() (string, error) { return m.mspID, nil }
func (m *mockIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (m *mockIdentity) AssertAttributeValue(string, string) error {
	return nil
}
func (m *mockIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

// mockContext pairs the shared stub with one caller identity.
type mockContext struct {
	stub     *mockStub
	identity *mockIdentity
}

func (c *mockContext) GetStub() shim.ChaincodeStubInterface { return c.stub }
func (c *mockContext) GetClientIdentity() cid.ClientIdentity {
	return c.identity
}

// fullID builds a test X.509 identity whose CN equals the given name.
func fullID(name string) string {
	return fmt.Sprintf("x509::CN=%s::CN=ca.coffee.example.com", name)
}

// fixture is one ledger shared across any number of caller contexts.
type fixture struct {
	stub *mockStub
	cc   *CoffeeSupplyContract
}

func newFixture() *fixture {
	return &fixture{stub: newMockStub(), cc: &CoffeeSupplyContract{}}
}

// as returns a transaction context for the named caller against the shared
// ledger.
func (f *fixture) as(name string) *mockContext {
	return &mockContext{stub: f.stub, identity: &mockIdentity{id: fullID(name), mspID: "CoffeeMSP"}}
}

// lastEvent returns the most recently emitted chaincode event, or nil.
func (f *fixture) lastEvent() *capturedEvent {
	if len(f.stub.events) == 0 {
		return nil
	}
	return &f.stub.events[len(f.stub.events)-1]
}
