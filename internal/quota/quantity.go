package quota

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Quantity is a resource amount that may be unbounded.
type Quantity float64

// Unlimited is the unbounded quantity.
var Unlimited = Quantity(math.Inf(1))

const unlimitedLiteral = "unlimited"

// IsUnlimited reports whether q is unbounded.
func (q Quantity) IsUnlimited() bool {
	return math.IsInf(float64(q), 1)
}

func (q Quantity) String() string {
	if q.IsUnlimited() {
		return unlimitedLiteral
	}
	return formatAmount(float64(q))
}

// MarshalJSON writes unbounded quantities as "unlimited"; JSON has no
// infinity.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.IsUnlimited() {
		return json.Marshal(unlimitedLiteral)
	}
	return json.Marshal(float64(q))
}

// UnmarshalJSON accepts a number or "unlimited".
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte(`"`+unlimitedLiteral+`"`)) {
		*q = Unlimited
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = Quantity(f)
	return nil
}
