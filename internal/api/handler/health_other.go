//go:build !unix

package handler

// getCPUUsage is not tracked outside unix; the service runs in Linux
// containers.
func getCPUUsage() float64 {
	return 0
}
