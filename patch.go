package querygraph

import (
	"encoding/json"
	"fmt"
)

// Patch is a partial update for exactly one node kind.
// Nil fields leave the payload untouched; set fields replace it wholesale.
type Patch interface {
	Kind() Kind
	apply(Payload)
}

// TablePatch updates a Table node.
type TablePatch struct {
	Name     *string  `json:"tableName,omitempty"`
	Fields   *[]Field `json:"fields,omitempty"`
	Alias    *string  `json:"alias,omitempty"`
	Expanded *bool    `json:"isExpanded,omitempty"`
}

// JoinPatch updates a Join node.
type JoinPatch struct {
	Type       *JoinType        `json:"joinType,omitempty"`
	LeftTable  *string          `json:"leftTable,omitempty"`
	RightTable *string          `json:"rightTable,omitempty"`
	Conditions *[]JoinCondition `json:"conditions,omitempty"`
	Order      *int             `json:"order,omitempty"`
}

// ConditionPatch updates a Condition node.
type ConditionPatch struct {
	Table      *string     `json:"table,omitempty"`
	Field      *string     `json:"field,omitempty"`
	Op         *CompareOp  `json:"operator,omitempty"`
	Value      *Value      `json:"value,omitempty"`
	Connective *Connective `json:"logicalOperator,omitempty"`
}

// ConditionGroupPatch updates a ConditionGroup node.
type ConditionGroupPatch struct {
	Connective *Connective `json:"logicalOperator,omitempty"`
	Members    *[]string   `json:"conditionIds,omitempty"`
}

// SelectPatch updates a Select node.
type SelectPatch struct {
	All    *bool          `json:"selectAll,omitempty"`
	Fields *[]SelectField `json:"fields,omitempty"`
}

// SelectAggregatePatch updates a SelectAggregate node.
type SelectAggregatePatch struct {
	Fields  *[]AggregateField `json:"fields,omitempty"`
	GroupBy *[]string         `json:"groupByFields,omitempty"`
}

// EndPatch updates the user-editable part of an End node.
type EndPatch struct {
	Operator *Operator `json:"operatorType,omitempty"`
}

func (TablePatch) Kind() Kind           { return KindTable }
func (JoinPatch) Kind() Kind            { return KindJoin }
func (ConditionPatch) Kind() Kind       { return KindCondition }
func (ConditionGroupPatch) Kind() Kind  { return KindConditionGroup }
func (SelectPatch) Kind() Kind          { return KindSelect }
func (SelectAggregatePatch) Kind() Kind { return KindSelectAggregate }
func (EndPatch) Kind() Kind             { return KindEnd }

func (p TablePatch) apply(dst Payload) {
	t := dst.(*Table)
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Fields != nil {
		t.Fields = append([]Field(nil), (*p.Fields)...)
	}
	if p.Alias != nil {
		t.Alias = *p.Alias
	}
	if p.Expanded != nil {
		t.Expanded = *p.Expanded
	}
}

func (p JoinPatch) apply(dst Payload) {
	j := dst.(*Join)
	if p.Type != nil {
		j.Type = *p.Type
	}
	if p.LeftTable != nil {
		j.LeftTable = *p.LeftTable
	}
	if p.RightTable != nil {
		j.RightTable = *p.RightTable
	}
	if p.Conditions != nil {
		j.Conditions = append([]JoinCondition(nil), (*p.Conditions)...)
	}
	if p.Order != nil {
		j.Order = *p.Order
	}
}

func (p ConditionPatch) apply(dst Payload) {
	c := dst.(*Condition)
	if p.Table != nil {
		c.Table = *p.Table
	}
	if p.Field != nil {
		c.Field = *p.Field
	}
	if p.Op != nil {
		c.Op = *p.Op
	}
	if p.Value != nil {
		c.Value = p.Value.clone()
	}
	if p.Connective != nil {
		c.Connective = *p.Connective
	}
}

func (p ConditionGroupPatch) apply(dst Payload) {
	g := dst.(*ConditionGroup)
	if p.Connective != nil {
		g.Connective = *p.Connective
	}
	if p.Members != nil {
		g.Members = append([]string(nil), (*p.Members)...)
	}
}

func (p SelectPatch) apply(dst Payload) {
	s := dst.(*Select)
	if p.All != nil {
		s.All = *p.All
	}
	if p.Fields != nil {
		s.Fields = append([]SelectField(nil), (*p.Fields)...)
	}
}

func (p SelectAggregatePatch) apply(dst Payload) {
	s := dst.(*SelectAggregate)
	if p.Fields != nil {
		s.Fields = append([]AggregateField(nil), (*p.Fields)...)
	}
	if p.GroupBy != nil {
		s.GroupBy = append([]string(nil), (*p.GroupBy)...)
	}
}

func (p EndPatch) apply(dst Payload) {
	e := dst.(*End)
	if p.Operator != nil {
		e.Operator = *p.Operator
	}
}

// ApplyPatch merges p into a copy of the node's payload and returns the
// updated node. It fails with ErrKindMismatch when p targets another kind.
func ApplyPatch(n Node, p Patch) (Node, error) {
	if p == nil {
		return n, nil
	}
	if n.Kind() != p.Kind() {
		return n, fmt.Errorf("%w: node %s is %s, patch is for %s", ErrKindMismatch, n.ID, n.Kind(), p.Kind())
	}
	out := n.Clone()
	p.apply(out.Payload)
	return out, nil
}

// DecodePatch decodes a JSON partial payload for the given node kind.
func DecodePatch(kind Kind, data []byte) (Patch, error) {
	var p Patch
	switch kind {
	case KindTable:
		p = &TablePatch{}
	case KindJoin:
		p = &JoinPatch{}
	case KindCondition:
		p = &ConditionPatch{}
	case KindConditionGroup:
		p = &ConditionGroupPatch{}
	case KindSelect:
		p = &SelectPatch{}
	case KindSelectAggregate:
		p = &SelectAggregatePatch{}
	case KindEnd:
		p = &EndPatch{}
	case KindStart:
		return nil, fmt.Errorf("%w: start nodes have no editable fields", ErrKindMismatch)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("querygraph: decode %s patch: %w", kind, err)
	}
	return derefPatch(p), nil
}

func derefPatch(p Patch) Patch {
	switch v := p.(type) {
	case *TablePatch:
		return *v
	case *JoinPatch:
		return *v
	case *ConditionPatch:
		return *v
	case *ConditionGroupPatch:
		return *v
	case *SelectPatch:
		return *v
	case *SelectAggregatePatch:
		return *v
	case *EndPatch:
		return *v
	}
	return p
}
