// Package types provides domain models shared across rulebuilder components.
//
// Zero-logic design: the package holds the condition-tree model, catalog
// records and sentinel errors. Tree algebra lives in internal/tree, value
// coercion in internal/codec, so this package stays import-cycle free.
package types

// DataType is the declared type of an attribute.
// Wire tokens are the constant values verbatim.
type DataType string

const (
	DataTypeString   DataType = "String"
	DataTypeNumeric  DataType = "Numeric"
	DataTypeBoolean  DataType = "Boolean"
	DataTypeDate     DataType = "Date"
	DataTypeDateTime DataType = "DateTime"
)

// DataTypes lists every supported data type in display order.
var DataTypes = []DataType{
	DataTypeString,
	DataTypeNumeric,
	DataTypeBoolean,
	DataTypeDate,
	DataTypeDateTime,
}

// Valid reports whether dt is one of the five supported data types.
func (dt DataType) Valid() bool {
	switch dt {
	case DataTypeString, DataTypeNumeric, DataTypeBoolean, DataTypeDate, DataTypeDateTime:
		return true
	}
	return false
}

// Scope marks whether an attribute is workspace-wide or rule-local.
// Serialized as source_type.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeInput  Scope = "input"
)

// Attribute is a selectable property from the attribute catalog.
// Immutable once fetched; a refresh replaces the whole list.
type Attribute struct {
	Name             string   `json:"name"`
	DataType         DataType `json:"data_type"`
	Scope            Scope    `json:"source_type"`
	DefaultOperators []string `json:"operators,omitempty"`
}

// OperatorDescriptor is one comparison operator offered for a data type.
type OperatorDescriptor struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// CatalogContext identifies the rule an attribute list belongs to.
// Key() is the cache key: one round trip per workspace + rule.
type CatalogContext struct {
	Workspace string
	Rule      string
}

// Key returns the cache key for the context.
func (c CatalogContext) Key() string {
	return c.Workspace + "/" + c.Rule
}
