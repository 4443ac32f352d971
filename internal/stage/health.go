package stage

import (
	"fmt"
	"os/exec"
)

// Health summarizes the readiness of a pipeline stage, typically whether its
// external tool resolves and runs.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// BinaryHealth reports a stage ready when its external binary resolves on
// PATH. Every pipeline stage here shells out to one tool, so this is the
// common HealthCheck implementation.
func BinaryHealth(name, binary string) Health {
	if _, err := exec.LookPath(binary); err != nil {
		return Unhealthy(name, fmt.Sprintf("%s not found in PATH", binary))
	}
	return Healthy(name)
}
