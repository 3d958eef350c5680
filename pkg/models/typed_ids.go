package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// kind ties an ID to the table its records live in.
type kind interface {
	table() string
}

type (
	userKind           struct{}
	accessTokenKind    struct{}
	siteKind           struct{}
	pageKind           struct{}
	sectionKind        struct{}
	sectionItemKind    struct{}
	revisionKind       struct{}
	productKind        struct{}
	orderKind          struct{}
	audienceKind       struct{}
	folderKind         struct{}
	bookingServiceKind struct{}
	bookingKind        struct{}
	planKind           struct{}
	checkoutKind       struct{}
	transactionKind    struct{}
)

func (userKind) table() string           { return "users" }
func (accessTokenKind) table() string    { return "access_tokens" }
func (siteKind) table() string           { return "sites" }
func (pageKind) table() string           { return "pages" }
func (sectionKind) table() string        { return "sections" }
func (sectionItemKind) table() string    { return "section_items" }
func (revisionKind) table() string       { return "section_revisions" }
func (productKind) table() string        { return "products" }
func (orderKind) table() string          { return "orders" }
func (audienceKind) table() string       { return "audiences" }
func (folderKind) table() string         { return "folders" }
func (bookingServiceKind) table() string { return "booking_services" }
func (bookingKind) table() string        { return "bookings" }
func (planKind) table() string           { return "plans" }
func (checkoutKind) table() string       { return "checkouts" }
func (transactionKind) table() string    { return "transactions" }

// Typed IDs. Each is a UUID that cannot be mixed up with an ID of another entity.
type (
	UserID           = ID[userKind]
	AccessTokenID    = ID[accessTokenKind]
	SiteID           = ID[siteKind]
	PageID           = ID[pageKind]
	SectionID        = ID[sectionKind]
	SectionItemID    = ID[sectionItemKind]
	RevisionID       = ID[revisionKind]
	ProductID        = ID[productKind]
	OrderID          = ID[orderKind]
	AudienceID       = ID[audienceKind]
	FolderID         = ID[folderKind]
	BookingServiceID = ID[bookingServiceKind]
	BookingID        = ID[bookingKind]
	PlanID           = ID[planKind]
	CheckoutID       = ID[checkoutKind]
	TransactionID    = ID[transactionKind]
)

// ID is a UUID bound to one table. It marshals to a plain UUID string in JSON and SQL,
// and to a SurrealDB RecordID in CBOR.
type ID[K kind] struct {
	uuid uuid.UUID
}

func newID[K kind]() ID[K] {
	return ID[K]{uuid: uuid.New()}
}

func parseID[K kind](s string) (ID[K], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		var k K
		return ID[K]{}, fmt.Errorf("invalid %s ID: %w", k.table(), err)
	}
	return ID[K]{uuid: id}, nil
}

func NewUserID() UserID                     { return newID[userKind]() }
func NewAccessTokenID() AccessTokenID       { return newID[accessTokenKind]() }
func NewSiteID() SiteID                     { return newID[siteKind]() }
func NewPageID() PageID                     { return newID[pageKind]() }
func NewSectionID() SectionID               { return newID[sectionKind]() }
func NewSectionItemID() SectionItemID       { return newID[sectionItemKind]() }
func NewRevisionID() RevisionID             { return newID[revisionKind]() }
func NewProductID() ProductID               { return newID[productKind]() }
func NewOrderID() OrderID                   { return newID[orderKind]() }
func NewAudienceID() AudienceID             { return newID[audienceKind]() }
func NewFolderID() FolderID                 { return newID[folderKind]() }
func NewBookingServiceID() BookingServiceID { return newID[bookingServiceKind]() }
func NewBookingID() BookingID               { return newID[bookingKind]() }
func NewPlanID() PlanID                     { return newID[planKind]() }
func NewCheckoutID() CheckoutID             { return newID[checkoutKind]() }
func NewTransactionID() TransactionID       { return newID[transactionKind]() }

func ParseUserID(s string) (UserID, error)               { return parseID[userKind](s) }
func ParseAccessTokenID(s string) (AccessTokenID, error) { return parseID[accessTokenKind](s) }
func ParseSiteID(s string) (SiteID, error)               { return parseID[siteKind](s) }
func ParseSectionID(s string) (SectionID, error)         { return parseID[sectionKind](s) }

func (id ID[K]) UUID() uuid.UUID { return id.uuid }
func (id ID[K]) String() string  { return id.uuid.String() }
func (id ID[K]) IsZero() bool    { return id.uuid == uuid.Nil }

// Table returns the table the ID belongs to.
func (id ID[K]) Table() string {
	var k K
	return k.table()
}

func (id ID[K]) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: id.Table(),
		ID:    id.uuid.String(),
	}
}

func (id ID[K]) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(id.uuid.String())
}

// UnmarshalJSON accepts a UUID string; null and "" leave the ID zero.
func (id *ID[K]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.uuid = uuid.Nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(s))
}

// UnmarshalText parses path and query parameters.
func (id *ID[K]) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		id.uuid = uuid.Nil
		return nil
	}
	parsed, err := parseID[K](string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID[K]) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{id.Table(), id.uuid.String()},
	})
}

func (id *ID[K]) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, id.Table(), &id.uuid)
}

func (id ID[K]) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.uuid.String(), nil
}

func (id *ID[K]) Scan(value any) error {
	return scanUUID(value, &id.uuid)
}

func (ID[K]) GormDataType() string { return "uuid" }

func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORID decodes a SurrealDB RecordID (CBOR tag 8 wrapping [table, id]).
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}
	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}
	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}
	*target = parsed
	return nil
}
