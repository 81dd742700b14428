package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Quantity decodes an integer amount sent either as a JSON number or as a
// decimal string, as ledger APIs do for lovelace values.
type Quantity int64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*q = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", string(data), err)
	}
	*q = Quantity(v)
	return nil
}

// Int64 returns the quantity as int64
func (q Quantity) Int64() int64 {
	return int64(q)
}
