// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ffpack/ffpack/pkg/modpack"
)

var (
	initForce     bool
	initMinecraft string
	initLoader    string

	// initCmd creates a new pack manifest
	initCmd = &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new pack manifest in the current directory",
		Long: `Create a new pack manifest in the current directory.

Generates a starter ffpack.cue with the pack name, target Minecraft
version, and loader filled in, plus a commented example mod entry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing manifest")
	initCmd.Flags().StringVar(&initMinecraft, "minecraft", "1.20.1", "target Minecraft version")
	initCmd.Flags().StringVar(&initLoader, "loader", "quilt", "target mod loader (quilt, fabric, forge)")
}

func runInit(cmd *cobra.Command, args []string) error {
	name := "mypack"
	if len(args) > 0 {
		name = args[0]
	}

	filename := modpack.DefaultFilename
	if _, err := os.Stat(filename); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", filename)
	}

	content := modpack.Starter(name, initMinecraft, initLoader)
	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Println("  1. Add mods to the manifest's mods list")
	fmt.Println("  2. Run 'ffpack resolve' to pin versions")
	fmt.Println("  3. Run 'ffpack build' to assemble the pack")

	return nil
}
