package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is the single identifier type used for every entity. It is written to
// JSON as a decimal string and accepted back as either a string or a number,
// so documents written with numeric ids still load.
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id ID) IsZero() bool { return id == 0 }

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	v, err := n.Int64()
	if err != nil {
		// older data files hold millisecond ids written as JSON numbers
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("id: not an integer: %s", n)
		}
		v = int64(f)
	}
	*id = ID(v)
	return nil
}

// ParseID converts a path or body value into an ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return ID(v), nil
}
