package querygraph

import "strings"

// FieldType is the semantic type of a column, normalized to upper case.
type FieldType string

const (
	TypeInteger   FieldType = "INTEGER"
	TypeBigInt    FieldType = "BIGINT"
	TypeSmallInt  FieldType = "SMALLINT"
	TypeTinyInt   FieldType = "TINYINT"
	TypeDecimal   FieldType = "DECIMAL"
	TypeNumeric   FieldType = "NUMERIC"
	TypeReal      FieldType = "REAL"
	TypeDouble    FieldType = "DOUBLE"
	TypeVarchar   FieldType = "VARCHAR"
	TypeText      FieldType = "TEXT"
	TypeChar      FieldType = "CHAR"
	TypeDate      FieldType = "DATE"
	TypeTimestamp FieldType = "TIMESTAMP"
	TypeTime      FieldType = "TIME"
	TypeBoolean   FieldType = "BOOLEAN"
	TypeUUID      FieldType = "UUID"
	TypeJSON      FieldType = "JSON"
)

// TypeClass groups field types that may be compared in a join.
type TypeClass string

const (
	ClassNumeric  TypeClass = "numeric"
	ClassString   TypeClass = "string"
	ClassTemporal TypeClass = "temporal"
	ClassOther    TypeClass = "other"
)

var typeClasses = map[FieldType]TypeClass{
	TypeInteger:   ClassNumeric,
	TypeBigInt:    ClassNumeric,
	TypeSmallInt:  ClassNumeric,
	TypeTinyInt:   ClassNumeric,
	TypeDecimal:   ClassNumeric,
	TypeNumeric:   ClassNumeric,
	TypeReal:      ClassNumeric,
	TypeDouble:    ClassNumeric,
	TypeVarchar:   ClassString,
	TypeText:      ClassString,
	TypeChar:      ClassString,
	TypeDate:      ClassTemporal,
	TypeTimestamp: ClassTemporal,
	TypeTime:      ClassTemporal,
}

// engine spellings seen in information_schema, PRAGMA table_info and driver column types.
var typeSynonyms = map[string]FieldType{
	"INT":                         TypeInteger,
	"INT4":                        TypeInteger,
	"MEDIUMINT":                   TypeInteger,
	"SERIAL":                      TypeInteger,
	"INT8":                        TypeBigInt,
	"BIGSERIAL":                   TypeBigInt,
	"INT2":                        TypeSmallInt,
	"SMALLSERIAL":                 TypeSmallInt,
	"INT1":                        TypeTinyInt,
	"DEC":                         TypeDecimal,
	"FLOAT4":                      TypeReal,
	"FLOAT":                       TypeDouble,
	"FLOAT8":                      TypeDouble,
	"DOUBLE PRECISION":            TypeDouble,
	"CHARACTER VARYING":           TypeVarchar,
	"NVARCHAR":                    TypeVarchar,
	"VARCHAR2":                    TypeVarchar,
	"STRING":                      TypeText,
	"CLOB":                        TypeText,
	"LONGTEXT":                    TypeText,
	"MEDIUMTEXT":                  TypeText,
	"TINYTEXT":                    TypeText,
	"CHARACTER":                   TypeChar,
	"BPCHAR":                      TypeChar,
	"NCHAR":                       TypeChar,
	"DATETIME":                    TypeTimestamp,
	"TIMESTAMPTZ":                 TypeTimestamp,
	"TIMESTAMP WITH TIME ZONE":    TypeTimestamp,
	"TIMESTAMP WITHOUT TIME ZONE": TypeTimestamp,
	"TIMETZ":                      TypeTime,
	"TIME WITH TIME ZONE":         TypeTime,
	"TIME WITHOUT TIME ZONE":      TypeTime,
	"BOOL":                        TypeBoolean,
	"JSONB":                       TypeJSON,
}

// ParseFieldType normalizes an engine type name such as "int4",
// "character varying(255)", "UNSIGNED BIGINT" or "timestamp with time zone".
// Unknown names are returned upper-cased as-is.
func ParseFieldType(name string) FieldType {
	s := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i] + rest)
	}
	s = strings.Join(strings.Fields(s), " ")
	// MySQL information_schema puts UNSIGNED last, its driver puts it first.
	s = strings.TrimSuffix(s, " UNSIGNED")
	s = strings.TrimPrefix(s, "UNSIGNED ")
	if t, ok := typeSynonyms[s]; ok {
		return t
	}
	return FieldType(s)
}

// Class returns the type class; types outside the three classes are ClassOther.
func (t FieldType) Class() TypeClass {
	if c, ok := typeClasses[ParseFieldType(string(t))]; ok {
		return c
	}
	return ClassOther
}

// Compatible reports whether two fields may be equated in a join condition.
// Numeric, string and temporal types are compatible within their class;
// anything else only with itself.
func Compatible(a, b FieldType) bool {
	ca, cb := a.Class(), b.Class()
	if ca == ClassOther || cb == ClassOther {
		return ParseFieldType(string(a)) == ParseFieldType(string(b))
	}
	return ca == cb
}
