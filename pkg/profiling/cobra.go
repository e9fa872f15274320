package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler binds --cpu-profile, --mem-profile and --timing to a command tree.
type CobraProfiler struct {
	cpuPath string
	memPath string
	timing  bool
	cpuFile *os.File
}

// NewCobraProfiler returns a profiler with no flags bound yet.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// AddFlags registers the profiling flags as persistent flags on cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuPath, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&p.memPath, "mem-profile", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print a timing summary to stderr on exit")
}

// PreRun starts the requested profiles. Use it as PersistentPreRunE.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// PostRun flushes profiles and prints the timing summary. Use it as PersistentPostRun.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	errOut := cmd.ErrOrStderr()
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		fmt.Fprintf(errOut, "CPU profile written to %s\n", p.cpuPath)
	}
	if p.memPath != "" {
		f, err := os.Create(p.memPath)
		if err != nil {
			fmt.Fprintf(errOut, "could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(errOut, "could not write memory profile: %v\n", err)
			}
			f.Close()
			fmt.Fprintf(errOut, "Memory profile written to %s\n", p.memPath)
		}
	}
	if p.timing {
		Summarize(errOut)
	}
}
