package policy

import (
	"hash/fnv"

	"github.com/zen-systems/askgate/pkg/config"
)

// Arm names an A/B experiment assignment.
type Arm string

const (
	ArmControl   Arm = "control"
	ArmTreatment Arm = "treatment"
)

// Bucket assigns a conversation to an experiment arm. Assignment is a
// stable hash of the conversation ID so every turn of a conversation
// lands in the same arm. With the experiment disabled, everything is
// control.
func Bucket(cfg *config.RoutingConfig, conversationID string) Arm {
	if !cfg.ABTestEnabled || cfg.ABTestRatio <= 0 {
		return ArmControl
	}
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	fraction := float64(h.Sum32()%10000) / 10000.0
	if fraction < cfg.ABTestRatio {
		return ArmTreatment
	}
	return ArmControl
}
