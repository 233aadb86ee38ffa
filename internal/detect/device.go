package detect

import (
	"context"
	"os/exec"
	"time"
)

// DetectDevice picks "cuda" when an NVIDIA GPU is visible on this host,
// else "cpu" (spec §4.2's device auto-detection). Detection shells out
// to nvidia-smi rather than linking a CUDA binding, since the result
// only ever feeds a string field on the inference call.
func DetectDevice() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "nvidia-smi", "-L").Run(); err == nil {
		return "cuda"
	}
	return "cpu"
}
