package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shoebox/internal/liberr"
)

const (
	assetIDPrefix = "as-"
	groupIDPrefix = "gp-"
)

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.New(message)
		}
		return nil
	}
}

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

// withIDPrefixes runs base, then checks each positional argument against the
// prefix expect returns for it. An empty prefix leaves the argument unchecked.
func withIDPrefixes(base cobra.PositionalArgs, expect func(pos, count int) string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := base(cmd, args); err != nil {
			return err
		}
		for i, arg := range args {
			prefix := expect(i, len(args))
			if prefix == "" {
				continue
			}
			if !strings.HasPrefix(arg, prefix) || len(arg) == len(prefix) {
				return liberr.ValidationCode(fmt.Errorf("%q is not a valid id; expected %s<id>", arg, prefix), liberr.CodeInvalidID)
			}
		}
		return nil
	}
}

// assetIDArgs accepts one or more asset ids.
func assetIDArgs(base cobra.PositionalArgs) cobra.PositionalArgs {
	return withIDPrefixes(base, func(int, int) string { return assetIDPrefix })
}

// groupIDArgs checks the first argument as a group id and leaves the rest alone.
func groupIDArgs(base cobra.PositionalArgs) cobra.PositionalArgs {
	return withIDPrefixes(base, func(pos, _ int) string {
		if pos == 0 {
			return groupIDPrefix
		}
		return ""
	})
}

// groupThenAssetIDArgs accepts a group id followed by asset ids.
func groupThenAssetIDArgs(base cobra.PositionalArgs) cobra.PositionalArgs {
	return withIDPrefixes(base, func(pos, _ int) string {
		if pos == 0 {
			return groupIDPrefix
		}
		return assetIDPrefix
	})
}

// assetIDsThenTagArgs accepts asset ids followed by a trailing tag list.
func assetIDsThenTagArgs(base cobra.PositionalArgs) cobra.PositionalArgs {
	return withIDPrefixes(base, func(pos, count int) string {
		if pos == count-1 {
			return ""
		}
		return assetIDPrefix
	})
}
