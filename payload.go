package querygraph

import (
	"encoding/json"
	"fmt"
)

// Payload is the kind-specific part of a node. The set of variants is closed.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// JoinType is the SQL join flavour.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinCross JoinType = "CROSS"
)

// Valid reports whether t is one of the four known join types.
func (t JoinType) Valid() bool {
	switch t {
	case JoinInner, JoinLeft, JoinRight, JoinCross:
		return true
	}
	return false
}

// Connective combines sibling conditions.
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// Valid reports whether c is AND or OR.
func (c Connective) Valid() bool { return c == And || c == Or }

// AggregateFunc is an aggregate applied to a projected field.
type AggregateFunc string

const (
	AggSum   AggregateFunc = "SUM"
	AggCount AggregateFunc = "COUNT"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Field is one column of a table.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable"`
}

// Start marks the entry of the canvas. It carries no data.
type Start struct{}

// Table is a source table with its discovered fields.
type Table struct {
	Name     string  `json:"tableName"`
	Fields   []Field `json:"fields"`
	Alias    string  `json:"alias,omitempty"`
	Expanded bool    `json:"isExpanded,omitempty"`
}

// Field returns the named field, or nil.
func (t *Table) Field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// JoinCondition equates one field of each side.
type JoinCondition struct {
	LeftTable  string `json:"leftTable"`
	LeftField  string `json:"leftField"`
	RightTable string `json:"rightTable"`
	RightField string `json:"rightField"`
}

// Join connects two tables. Order sequences joins when SQL is emitted.
type Join struct {
	Type       JoinType        `json:"joinType"`
	LeftTable  string          `json:"leftTable"`
	RightTable string          `json:"rightTable"`
	Conditions []JoinCondition `json:"conditions"`
	Order      int             `json:"order"`
}

// Condition is one WHERE predicate.
type Condition struct {
	Table      string     `json:"table"`
	Field      string     `json:"field"`
	Op         CompareOp  `json:"operator"`
	Value      Value      `json:"value"`
	Connective Connective `json:"logicalOperator,omitempty"`
}

// ConditionGroup names a flat subset of Condition nodes.
type ConditionGroup struct {
	Connective Connective `json:"logicalOperator"`
	Members    []string   `json:"conditionIds"`
}

// SelectField is one projected column.
type SelectField struct {
	Table string `json:"table"`
	Field string `json:"field"`
	Alias string `json:"alias,omitempty"`
}

// Select projects either every column or an ordered list of fields.
type Select struct {
	All    bool          `json:"selectAll"`
	Fields []SelectField `json:"fields"`
}

// AggregateField is a projected column, optionally aggregated.
type AggregateField struct {
	Table string        `json:"table"`
	Field string        `json:"field"`
	Func  AggregateFunc `json:"aggregate,omitempty"`
	Alias string        `json:"alias,omitempty"`
}

// SelectAggregate projects aggregated fields and groups by "table.field" keys.
type SelectAggregate struct {
	Fields  []AggregateField `json:"fields"`
	GroupBy []string         `json:"groupByFields"`
}

// End is the terminal operator node.
type End struct {
	Operator    Operator        `json:"operatorType,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	Executing   bool            `json:"isExecuting,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
}

func (*Start) Kind() Kind           { return KindStart }
func (*Table) Kind() Kind           { return KindTable }
func (*Join) Kind() Kind            { return KindJoin }
func (*Condition) Kind() Kind       { return KindCondition }
func (*ConditionGroup) Kind() Kind  { return KindConditionGroup }
func (*Select) Kind() Kind          { return KindSelect }
func (*SelectAggregate) Kind() Kind { return KindSelectAggregate }
func (*End) Kind() Kind             { return KindEnd }

func (p *Start) clone() Payload { return &Start{} }

func (p *Table) clone() Payload {
	c := *p
	c.Fields = append([]Field(nil), p.Fields...)
	return &c
}

func (p *Join) clone() Payload {
	c := *p
	c.Conditions = append([]JoinCondition(nil), p.Conditions...)
	return &c
}

func (p *Condition) clone() Payload {
	c := *p
	c.Value = p.Value.clone()
	return &c
}

func (p *ConditionGroup) clone() Payload {
	c := *p
	c.Members = append([]string(nil), p.Members...)
	return &c
}

func (p *Select) clone() Payload {
	c := *p
	c.Fields = append([]SelectField(nil), p.Fields...)
	return &c
}

func (p *SelectAggregate) clone() Payload {
	c := *p
	c.Fields = append([]AggregateField(nil), p.Fields...)
	c.GroupBy = append([]string(nil), p.GroupBy...)
	return &c
}

func (p *End) clone() Payload {
	c := *p
	c.Diagnostics = append([]Diagnostic(nil), p.Diagnostics...)
	if p.Result != nil {
		r := *p.Result
		c.Result = &r
	}
	return &c
}

// NewPayload returns an empty payload of the given kind.
func NewPayload(kind Kind) (Payload, error) {
	switch kind {
	case KindStart:
		return &Start{}, nil
	case KindTable:
		return &Table{}, nil
	case KindJoin:
		return &Join{Type: JoinInner}, nil
	case KindCondition:
		return &Condition{Connective: And}, nil
	case KindConditionGroup:
		return &ConditionGroup{Connective: And}, nil
	case KindSelect:
		return &Select{}, nil
	case KindSelectAggregate:
		return &SelectAggregate{}, nil
	case KindEnd:
		return &End{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// DecodePayload decodes JSON data into the variant for kind.
// Empty data yields the empty payload.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	p, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("querygraph: decode %s payload: %w", kind, err)
	}
	return p, nil
}
