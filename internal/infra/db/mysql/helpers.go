package mysql

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
)

// encodeServices keeps an empty run as "[]" so the column is never NULL.
// Returned as string: a []byte arg reaches a JSON column with the binary charset and is rejected.
func encodeServices(services []discovery.Service) (string, error) {
	if services == nil {
		services = []discovery.Service{}
	}
	b, err := json.Marshal(services)
	if err != nil {
		return "", fmt.Errorf("encode services: %w", err)
	}
	return string(b), nil
}

func decodeServices(raw []byte) ([]discovery.Service, error) {
	out := []discovery.Service{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return out, nil
}
