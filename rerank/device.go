package rerank

import (
	"os"
	"runtime"
)

// Device names understood by the scoring backend.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceMPS  = "mps"
	DeviceCUDA = "cuda"
)

// DeviceDetector probes the host for the best available inference device.
type DeviceDetector interface {
	Detect() (string, error)
}

// DefaultDetector detects the device from the host platform: Apple
// Silicon maps to MPS, a visible NVIDIA driver maps to CUDA, everything
// else falls back to CPU.
type DefaultDetector struct{}

func (DefaultDetector) Detect() (string, error) {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return DeviceMPS, nil
	}
	if hasNvidiaGPU() {
		return DeviceCUDA, nil
	}
	return DeviceCPU, nil
}

func hasNvidiaGPU() bool {
	if devices := os.Getenv("CUDA_VISIBLE_DEVICES"); devices != "" && devices != "-1" {
		return true
	}
	_, err := os.Stat("/proc/driver/nvidia/version")
	return err == nil
}
