package timing

import (
	"runtime"
	"time"

	"golang.org/x/sys/cpu"
)

// Clock returns a monotonically increasing tick count.
type Clock interface {
	Now() uint64
}

// MonotonicClock counts nanoseconds on the runtime's monotonic clock since
// it was created. Go exposes no portable cycle counter.
type MonotonicClock struct {
	base time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: time.Now()}
}

func (c *MonotonicClock) Now() uint64 {
	return uint64(time.Since(c.base))
}

// Platform describes the machine a measurement ran on.
type Platform struct {
	GOOS        string `json:"goos"`
	GOARCH      string `json:"goarch"`
	NumCPU      int    `json:"num_cpu"`
	HardwareAES bool   `json:"hardware_aes"`
}

// DetectPlatform reports the current machine. HardwareAES tells whether the
// CPU has AES instructions, which crypto/aes uses instead of tables.
func DetectPlatform() Platform {
	return Platform{
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		NumCPU:      runtime.NumCPU(),
		HardwareAES: cpu.X86.HasAES || cpu.ARM64.HasAES || cpu.S390X.HasAES,
	}
}
