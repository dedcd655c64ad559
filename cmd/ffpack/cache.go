// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd inspects and manages the content-addressed artifact store
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the artifact store",
	Long: `Inspect the artifact store.

The store is a content-addressed cache: every entry is named by the
digest of its bytes and was verified on the way in. It is safe to clear
at any time; the next build refetches what the lock file pins.`,
	RunE: runCacheShow,
}

func init() {
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		RunE:  runCacheClear,
	})
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	entries, err := st.Entries()
	if err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	fmt.Println(TitleStyle.Render("Artifact store"))
	fmt.Printf("%s: %s\n", RefStyle.Render("Location"), st.Root())
	fmt.Printf("%s: %d\n", RefStyle.Render("Entries"), len(entries))
	fmt.Printf("%s: %s\n", RefStyle.Render("Size"), humanBytes(total))

	if verbose {
		for _, e := range entries {
			fmt.Printf("  %s  %s\n", e.Digest, humanBytes(e.Size))
		}
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	if err := st.Clear(); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	fmt.Printf("%s Cleared %s\n", SuccessStyle.Render("✓"), st.Root())
	return nil
}

// humanBytes renders a byte count with a binary unit suffix.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
