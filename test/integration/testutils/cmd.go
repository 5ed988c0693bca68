package testutils

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunPeebo executes a peebo command with the given arguments string (split by spaces).
// Use RunPeeboArgs when arguments contain spaces that should be preserved.
func RunPeebo(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, err error) {
	// Sanitize command.
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	// Split into args.
	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunPeeboArgs(ctx, env, binary, args, nolog)
}

// RunPeeboArgs executes a peebo command with pre-split arguments.
// This preserves arguments that contain spaces (e.g. --subject "Interview invitation").
func RunPeeboArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := PeeboCmd(ctx, env, binary, args, nolog)
	cmd.Stdout = &outData
	cmd.Stderr = &errData

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}

// PeeboCmd returns an unstarted peebo command, for long running commands
// like serve.
func PeeboCmd(ctx context.Context, env []string, binary string, args []string, nolog bool) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binary, args...)

	// Set env: os.Environ() first, then custom env overrides on top.
	// In Go's exec.Cmd, when duplicate keys exist, the last one wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "PEEBO_NO_LOG=true")
	}
	cmd.Env = newEnv

	return cmd
}

// FreeAddr returns a free local TCP address.
func FreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("could not get a free port: %w", err)
	}
	defer l.Close()

	return l.Addr().String(), nil
}
