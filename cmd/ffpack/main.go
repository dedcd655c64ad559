// SPDX-License-Identifier: MPL-2.0

// Command ffpack assembles reproducible Minecraft modpacks from a CUE
// manifest: it resolves compatible mod versions, fetches artifacts into a
// content-addressed store, and packages them with a pinned lock file.
package main

func main() {
	Execute()
}
