package web

import (
	"encoding/json"
	"fmt"

	"carpet-studio/internal/scene"
)

func jsonUnmarshal(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", scene.ErrInvalid, err)
	}
	return nil
}
