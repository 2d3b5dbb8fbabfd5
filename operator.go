package querygraph

import "strings"

// CompareOp is a WHERE operator from the fixed vocabulary.
type CompareOp string

const (
	OpEq        CompareOp = "="
	OpNe        CompareOp = "!="
	OpNeAlt     CompareOp = "<>"
	OpGt        CompareOp = ">"
	OpGte       CompareOp = ">="
	OpLt        CompareOp = "<"
	OpLte       CompareOp = "<="
	OpLike      CompareOp = "LIKE"
	OpNotLike   CompareOp = "NOT LIKE"
	OpILike     CompareOp = "ILIKE"
	OpIsNull    CompareOp = "IS NULL"
	OpIsNotNull CompareOp = "IS NOT NULL"
	OpIn        CompareOp = "IN"
	OpNotIn     CompareOp = "NOT IN"
)

func (op CompareOp) normalized() CompareOp {
	return CompareOp(strings.Join(strings.Fields(strings.ToUpper(string(op))), " "))
}

// Valid reports whether op belongs to the vocabulary.
func (op CompareOp) Valid() bool {
	switch op.normalized() {
	case OpEq, OpNe, OpNeAlt, OpGt, OpGte, OpLt, OpLte,
		OpLike, OpNotLike, OpILike,
		OpIsNull, OpIsNotNull,
		OpIn, OpNotIn:
		return true
	}
	return false
}

// IsNullCheck reports whether op takes no operand.
func (op CompareOp) IsNullCheck() bool {
	n := op.normalized()
	return n == OpIsNull || n == OpIsNotNull
}

// IsSetMembership reports whether op expects a list operand.
func (op CompareOp) IsSetMembership() bool {
	n := op.normalized()
	return n == OpIn || n == OpNotIn
}

// Operator is the analysis chosen on the End node.
type Operator string

const (
	OperatorAssociation Operator = "association"
	OperatorAnomaly     Operator = "anomaly"
	OperatorClustering  Operator = "clustering"
)

// Operators lists the supported analysis operators.
var Operators = []Operator{OperatorAssociation, OperatorAnomaly, OperatorClustering}

// Valid reports whether o is one of the supported operators.
func (o Operator) Valid() bool {
	switch o {
	case OperatorAssociation, OperatorAnomaly, OperatorClustering:
		return true
	}
	return false
}
