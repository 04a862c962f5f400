package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/predictive/core/model"
)

func uuidID(kind model.Kind) string {
	return fmt.Sprintf("%s-%s", kind, uuid.New().String())
}

func newSequence() func(model.Kind) string {
	var n atomic.Uint64
	return func(kind model.Kind) string {
		return fmt.Sprintf("%s-%d", kind, n.Add(1))
	}
}
