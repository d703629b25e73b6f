package enums

import (
	"fmt"
	"strings"
)

// ReturnCondition is the single-value headline tag kept on every return.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "good"
	ConditionDamaged ReturnCondition = "damaged"
	ConditionLost    ReturnCondition = "lost"
)

var legacyConditions = map[string]ReturnCondition{
	"baik":   ConditionGood,
	"rusak":  ConditionDamaged,
	"hilang": ConditionLost,
}

func (c ReturnCondition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

// RequiresFine reports whether the headline alone marks units as damaged or lost.
func (c ReturnCondition) RequiresFine() bool {
	return c == ConditionDamaged || c == ConditionLost
}

func ParseReturnCondition(value string) (ReturnCondition, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if c := ReturnCondition(normalized); c.IsValid() {
		return c, nil
	}
	if c, ok := legacyConditions[normalized]; ok {
		return c, nil
	}
	return "", fmt.Errorf("invalid return condition %q", value)
}
