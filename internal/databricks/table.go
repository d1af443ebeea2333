package databricks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// identifierSegment matches one unquoted identifier segment. The identifier
// ends up interpolated into SQL, so nothing outside this set is accepted.
var identifierSegment = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TableID is a fully resolved catalog.schema.table identifier
type TableID struct {
	Catalog string
	Schema  string
	Name    string
}

// String returns the dotted three-part identifier
func (t TableID) String() string {
	return t.Catalog + "." + t.Schema + "." + t.Name
}

// ParseTableID resolves a raw table identifier. Three-part identifiers are
// used as-is, two-part identifiers assume defaultCatalog, anything else is
// rejected.
func ParseTableID(raw, defaultCatalog string) (TableID, error) {
	parts := strings.Split(raw, ".")

	var id TableID
	switch len(parts) {
	case 3:
		id = TableID{Catalog: parts[0], Schema: parts[1], Name: parts[2]}
	case 2:
		id = TableID{Catalog: defaultCatalog, Schema: parts[0], Name: parts[1]}
	default:
		return TableID{}, errors.NewIdentifierError(raw,
			fmt.Sprintf("expected catalog.schema.table or schema.table, got %d part(s)", len(parts)))
	}

	for _, segment := range []string{id.Catalog, id.Schema, id.Name} {
		if !identifierSegment.MatchString(segment) {
			return TableID{}, errors.NewIdentifierError(raw,
				fmt.Sprintf("identifier segment %q may only contain letters, digits and underscores", segment))
		}
	}

	return id, nil
}

// CountRowsStatement builds the counting query for a resolved table.
// LIMIT 1 keeps the result to the single aggregate row.
func CountRowsStatement(id TableID) string {
	return fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s LIMIT 1", id.String())
}
