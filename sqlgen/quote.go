package sqlgen

// QuoteValue renders a WHERE operand. Every value is wrapped in single quotes
// whatever its column type, numbers included, and nothing is escaped: the
// output is not safe against injection. Swap this function to introduce a
// type-aware policy.
func QuoteValue(v string) string {
	return "'" + v + "'"
}
