package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/itchyny/gojq"
)

var ErrNoNumber = errors.New("jq program produced no number")

// JQExtractor pulls the value out of JSON records,
// e.g. `.value` for lines like {"value": 0.42}.
type JQExtractor struct {
	filter  string
	code    *gojq.Code
	Timeout time.Duration
}

func NewJQExtractor(filter string) (*JQExtractor, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return &JQExtractor{filter: filter, code: code, Timeout: 250 * time.Millisecond}, nil
}

func (q *JQExtractor) String() string {
	return q.filter
}

// Extract runs the program over the decoded JSON document and
// returns its first output, which has to be a number.
func (q *JQExtractor) Extract(text string) (float64, error) {
	var input any
	if err := json.Unmarshal([]byte(text), &input); err != nil {
		return 0, fmt.Errorf("decode json: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.Timeout)
	defer cancel()

	it := q.code.RunWithContext(ctx, input)
	v, ok := it.Next()
	if !ok {
		return 0, ErrNoNumber
	}
	switch v := v.(type) {
	case error:
		var halt *gojq.HaltError
		if errors.As(v, &halt) && halt.Value() == nil {
			return 0, ErrNoNumber
		}
		return 0, v
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("%w: got %T", ErrNoNumber, v)
	}
}
