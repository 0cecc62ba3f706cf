package stream

import "strings"

// FormatID is a helper format selector such as "137+140". Tokens keep the
// order they were given in; the video token is expected first.
type FormatID struct {
	ids []string
}

func ParseFormatID(s string) FormatID {
	var ids []string
	for _, tok := range strings.Split(s, "+") {
		if tok != "" {
			ids = append(ids, tok)
		}
	}
	return FormatID{ids: ids}
}

func (f FormatID) String() string {
	return strings.Join(f.ids, "+")
}

func (f FormatID) IsEmpty() bool {
	return len(f.ids) == 0
}

func (f FormatID) Equal(other FormatID) bool {
	return f.String() == other.String()
}

func (f FormatID) Less(other FormatID) bool {
	return f.String() < other.String()
}

func (f FormatID) Compare(other FormatID) int {
	return strings.Compare(f.String(), other.String())
}

// CompoundIDs splits the selector into one FormatID per token.
func (f FormatID) CompoundIDs() []FormatID {
	out := make([]FormatID, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, FormatID{ids: []string{id}})
	}
	return out
}

func (f FormatID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FormatID) UnmarshalText(text []byte) error {
	*f = ParseFormatID(string(text))
	return nil
}
