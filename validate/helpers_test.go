package validate

import (
	"strings"

	qg "github.com/meikuraledutech/querygraph"
)

func table(id, name string, fields ...qg.Field) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Table{Name: name, Fields: fields}}
}

func aliased(n qg.Node, alias string) qg.Node {
	n.Table().Alias = alias
	return n
}

func field(name string, t qg.FieldType) qg.Field {
	return qg.Field{Name: name, Type: t}
}

func join(id string, conds ...qg.JoinCondition) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Join{Type: qg.JoinInner, Conditions: conds, Order: 1}}
}

func on(lt, lf, rt, rf string) qg.JoinCondition {
	return qg.JoinCondition{LeftTable: lt, LeftField: lf, RightTable: rt, RightField: rf}
}

func selectAll(id string) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Select{All: true}}
}

func end(id string, op qg.Operator) qg.Node {
	return qg.Node{ID: id, Payload: &qg.End{Operator: op}}
}

func condition(id, tbl, fld string, op qg.CompareOp, v qg.Value) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Condition{Table: tbl, Field: fld, Op: op, Value: v, Connective: qg.And}}
}

func graph(nodes ...qg.Node) *qg.Graph {
	return &qg.Graph{ID: "g", Nodes: nodes}
}

func errorsContaining(diags []qg.Diagnostic, substr string) []qg.Diagnostic {
	var out []qg.Diagnostic
	for _, d := range qg.Errors(diags) {
		if strings.Contains(d.Message, substr) {
			out = append(out, d)
		}
	}
	return out
}
