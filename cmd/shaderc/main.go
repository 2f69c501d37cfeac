// Command shaderc compiles each shader source file, logs a short compile
// summary and, with -disasm, also prints its disassembly. It does not
// execute the compiled methods. Grounded on the teacher's
// main.go: flag.Bool/flag.String driven CLI, files passed as trailing
// positional arguments, a single top-level defer/recover boundary so a
// compiler panic is reported as a clean error instead of a stack trace.
package main

import (
	"flag"
	"fmt"
	"os"

	"vfvm/internal/vflog"
	"vfvm/internal/vmconfig"
	"vfvm/vm"
)

func main() {
	cfg := vmconfig.Default()
	fs := flag.NewFlagSet("shaderc", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger := vflog.New(os.Stderr, vflog.Level(cfg.DebugLevel))

	if fs.NArg() == 0 {
		logger.Errorf("usage: shaderc [flags] <source.vf>...")
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range fs.Args() {
		if err := compileAndReport(path, cfg, logger); err != nil {
			logger.Errorf("%s: %v", path, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func compileAndReport(path string, cfg vmconfig.Config, logger *vflog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal compiler error: %v", r)
		}
	}()

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	bc, err := vm.Compile(string(source))
	if err != nil {
		return err
	}

	logger.Infof("compiled %s: %d registers, %d streams, %d uniforms, %d samplers, %d methods",
		path, bc.RegisterCount, len(bc.Streams()), len(bc.Uniforms()), len(bc.Samplers()), len(bc.Methods()))

	if cfg.Disassemble {
		fmt.Print(vm.Disassemble(bc))
	}
	return nil
}
