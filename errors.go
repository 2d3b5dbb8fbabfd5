package querygraph

import "errors"

var (
	ErrNodeNotFound    = errors.New("querygraph: node not found")
	ErrEdgeNotFound    = errors.New("querygraph: edge not found")
	ErrDuplicateNode   = errors.New("querygraph: duplicate node id")
	ErrDuplicateEdge   = errors.New("querygraph: duplicate edge id")
	ErrKindMismatch    = errors.New("querygraph: patch does not match node kind")
	ErrUnknownKind     = errors.New("querygraph: unknown node kind")
	ErrUnknownOperator = errors.New("querygraph: unknown operator")
	ErrGraphInvalid    = errors.New("querygraph: graph has blocking errors")
	ErrNoEndNode       = errors.New("querygraph: graph has no end node")
	ErrNoExecutor      = errors.New("querygraph: no query executor configured")
	ErrNoScorer        = errors.New("querygraph: no anomaly scorer configured")
	ErrTableNotFound   = errors.New("querygraph: table not found")
)
