package querygraph

import "fmt"

// Severity ranks a diagnostic. Only errors block compilation.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Diagnostic is a single validation finding. Graph-wide findings carry an
// empty NodeID.
type Diagnostic struct {
	NodeID   string   `json:"nodeId"`
	NodeKind Kind     `json:"nodeType,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (d Diagnostic) String() string {
	if d.NodeID == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", d.Severity, d.NodeKind, d.NodeID, d.Message)
}

// Errorf builds an ERROR diagnostic for n.
func Errorf(n Node, format string, args ...any) Diagnostic {
	return Diagnostic{NodeID: n.ID, NodeKind: n.Kind(), Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// Warnf builds a WARNING diagnostic for n.
func Warnf(n Node, format string, args ...any) Diagnostic {
	return Diagnostic{NodeID: n.ID, NodeKind: n.Kind(), Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// GraphErrorf builds a graph-wide ERROR diagnostic.
func GraphErrorf(format string, args ...any) Diagnostic {
	return Diagnostic{Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// GraphWarnf builds a graph-wide WARNING diagnostic.
func GraphWarnf(format string, args ...any) Diagnostic {
	return Diagnostic{Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// Errors returns only the ERROR diagnostics, preserving order.
func Errors(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic blocks compilation.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
