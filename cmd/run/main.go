package main

import (
	"flag"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/runtime"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to a Lua chunk to run")
		expr        = flag.String("e", "", "Lua source to run directly")
		funcName    = flag.String("func", "", "Global function to call after loading (optional)")
		strArg      = flag.String("arg", "", "String argument to pass to -func")
		noLibs      = flag.Bool("nolibs", false, "Do not open the Lua standard libraries")
		interactive = flag.Bool("i", false, "Interactive REPL")
	)
	flag.Parse()

	if *file == "" && *expr == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: run -file <chunk.lua> [-func name] [-arg string]")
		fmt.Fprintln(os.Stderr, "       run -e '<lua source>'")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive REPL)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*file, *expr, *funcName, *strArg, *noLibs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file, expr, funcName, strArg string, noLibs bool) error {
	s, err := runtime.New(&runtime.Config{SkipOpenLibs: noLibs})
	if err != nil {
		return fmt.Errorf("create state: %w", err)
	}
	defer s.Close()

	if file != "" {
		if err := s.DoFile(file); err != nil {
			return err
		}
	}
	if expr != "" {
		if err := s.DoString(expr); err != nil {
			return err
		}
	}

	if funcName == "" {
		return nil
	}

	var args []lua.LValue
	if strArg != "" {
		args = append(args, lua.LString(strArg))
	}
	results, err := s.CallGlobal(funcName, args...)
	if err != nil {
		return err
	}
	for _, r := range results {
		str, err := s.ToString(r)
		if err != nil {
			str = r.String()
		}
		fmt.Println(str)
	}
	return nil
}
