package markop

import "fmt"

// MarkValue is a mark type together with its parameter where applicable:
// a bare value for strong/em, or a parameterized pair for link (url) and
// comment (id). It is comparable and usable as a map key so a
// format.FormatSpan can hold a set of them directly.
type MarkValue struct {
	Type  MarkType
	Param string
}

// StrongValue and EmValue are the two bare mark values.
var (
	StrongValue = MarkValue{Type: Strong}
	EmValue     = MarkValue{Type: Em}
)

// LinkValue returns the MarkValue for a link pointing at url.
func LinkValue(url string) MarkValue {
	return MarkValue{Type: Link, Param: url}
}

// CommentValue returns the MarkValue for the comment with the given id.
func CommentValue(id string) MarkValue {
	return MarkValue{Type: Comment, Param: id}
}

func (v MarkValue) String() string {
	if v.Type.HasParam() {
		return fmt.Sprintf("%s@%s", v.Type, v.Param)
	}
	return v.Type.String()
}
