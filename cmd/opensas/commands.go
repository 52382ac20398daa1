// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iamafool/opensas-sub001/internal/eval"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the DATA steps in a program file",
	Long: `Runs every DATA step in a program file in order. Use "-" to read
the program from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		var names []string
		if args[0] == "-" {
			src, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			names, err = s.Submit(cmd.Context(), string(src))
			if err != nil {
				return err
			}
		} else {
			names, err = s.SubmitFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
		}
		for _, n := range names {
			d, err := s.Dataset(n)
			if err != nil || d == nil {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d variables\n", d.Name(), d.Len(), len(d.Schema()))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Load a CSV or YAML file into the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		n, err := s.Import(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows imported\n", args[0], n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <name> <file>",
	Short: "Write a dataset to a CSV or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		n, err := s.Export(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows exported\n", args[0], n)
		return nil
	},
}

var printLimit int

var printCmd = &cobra.Command{
	Use:   "print <name>",
	Short: "Show a dataset as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		d, err := s.Dataset(args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return &eval.DatasetError{Name: args[0], Err: eval.ErrNotFound}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderDataset(d, printLimit))
		return nil
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the datasets in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		names, err := s.Catalog().Names()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No datasets.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(s.Catalog(), names))
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <name>...",
	Short: "Remove datasets from the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		for _, n := range args {
			if err := s.Catalog().Drop(n); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", strings.Join(args, ", "))
		return nil
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the builtin functions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(eval.BuiltinNames(), " "))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "opensas %s\n", version)
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, importCmd, exportCmd, printCmd, datasetsCmd, dropCmd, functionsCmd, versionCmd, replCmd)
	printCmd.Flags().IntVarP(&printLimit, "limit", "n", 20, "maximum rows to show (0 for all)")
}
