// Package vmconfig centralizes the execution-context knobs that the
// teacher's main() used to set directly as package-level flag.Bool/
// flag.Int variables. Generalized into a struct so cmd/shaderc can build
// one from flags while library callers can construct one directly without
// touching the flag package at all.
package vmconfig

import "flag"

type Config struct {
	// ScratchBytes bounds the per-batch register window; see
	// vm.ExecutionContext.batchLimit.
	ScratchBytes int
	// DebugLevel selects vflog verbosity: 0=debug, 1=info, 2=warn, 3=error.
	DebugLevel int
	// Disassemble requests a -disasm style dump after compiling.
	Disassemble bool
}

func Default() Config {
	return Config{
		ScratchBytes: 1 << 20, // 1 MiB
		DebugLevel:   1,
	}
}

// RegisterFlags wires c's fields to the standard flag package, matching
// the teacher's main()'s direct use of flag.Bool/flag.Int rather than a
// third-party flag/config library.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.ScratchBytes, "scratch", c.ScratchBytes, "scratch bytes available per execution batch window")
	fs.IntVar(&c.DebugLevel, "debug-level", c.DebugLevel, "log verbosity: 0=debug 1=info 2=warn 3=error")
	fs.BoolVar(&c.Disassemble, "disasm", c.Disassemble, "print disassembly after compiling")
}
