package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Low-level nix store operations",
}

var storeHashCmd = &cobra.Command{
	Use:   "hash <path>",
	Short: "Print the sha256 digest of a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreHash,
}

var storeAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a path to the store as a fixed-output entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreAdd,
}

var storeRealiseCmd = &cobra.Command{
	Use:   "realise <store-path>",
	Short: "Realise a store path and print its outputs",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRealise,
}

func init() {
	storeHashCmd.Flags().Bool("file", false, "hash a single file's contents instead of a tree")
	storeCmd.AddCommand(storeHashCmd, storeAddCmd, storeRealiseCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreHash(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("store hash")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()

	hash := e.nix.HashPath
	if file, _ := cmd.Flags().GetBool("file"); file {
		hash = e.nix.HashFile
	}
	digest, err := hash(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), digest)
	return nil
}

func runStoreAdd(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("store add")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()

	dir, err := e.resolver().Locate(args[0])
	if err != nil {
		return err
	}
	entry, err := e.nix.AddFixed(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", entry.Path, entry.Hash)
	return nil
}

func runStoreRealise(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("store realise")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()

	outs, err := e.nix.Realise(ctx, args[0])
	if err != nil {
		return err
	}
	if len(outs) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(outs, "\n"))
	}
	return nil
}
