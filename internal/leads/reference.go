package leads

import "strings"

// ReferencePrefix tags every booking reference shown to visitors.
const ReferencePrefix = "AL-"

const referenceTailLen = 8

// Reference derives the booking reference from a lead id: the prefix plus
// the last eight characters upper-cased. Shorter ids are used whole.
func Reference(id string) string {
	tail := []rune(id)
	if len(tail) > referenceTailLen {
		tail = tail[len(tail)-referenceTailLen:]
	}
	return ReferencePrefix + strings.ToUpper(string(tail))
}
