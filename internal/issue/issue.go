// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	LockNotFoundId
	LockCorruptId
	ResolutionFailedId
	ProviderUnavailableId
	ModNotFoundId
	DigestMismatchId
	ArtifactMissingId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest found!

We searched for an ffpack.cue manifest but couldn't find one here.

## Things you can try:
- Create a manifest in your current directory:
~~~
$ ffpack init mypack
~~~

- Or switch to the directory that has one:
~~~
$ cd /path/to/your/pack
$ ffpack build
~~~

## Example manifest structure:
~~~cue
name: "mypack"
version: "0.1.0"
minecraft: "1.20.1"

loader: {
  name: "quilt"
}

mods: [
  {provider: "modrinth", id: "sodium", range: "^0.5", side: "client"},
  {provider: "modrinth", id: "lithium"},
]
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse manifest!

Your ffpack.cue contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- A loader other than quilt, fabric, or forge
- An invalid semver range in a mod entry

## Things you can try:
- Check the error message above for the specific field
- Validate your CUE syntax using the cue command-line tool
- Run with verbose mode for more details:
~~~
$ ffpack --verbose resolve
~~~`,
	}

	lockNotFoundIssue = &Issue{
		id: LockNotFoundId,
		mdMsg: `
# No lock file found!

This operation needs an ffpack.lock.toml, but none exists yet.

## Things you can try:
- Build the pack once to produce a lock file:
~~~
$ ffpack build
~~~

- Or resolve without building:
~~~
$ ffpack resolve
~~~`,
	}

	lockCorruptIssue = &Issue{
		id: LockCorruptId,
		mdMsg: `
# Corrupt lock file!

The ffpack.lock.toml could not be read. It may have been edited by hand
or truncated by an interrupted write.

## Things you can try:
- Regenerate it from the manifest:
~~~
$ ffpack build
~~~

- If the lock file is under version control, restore the last good copy:
~~~
$ git checkout -- ffpack.lock.toml
~~~`,
	}

	resolutionFailedIssue = &Issue{
		id: ResolutionFailedId,
		mdMsg: `
# Version resolution failed!

No combination of mod versions satisfies every declared constraint for
your target platform.

## Common causes:
- Two mods require incompatible versions of a shared dependency
- A version range in the manifest is too narrow
- A mod has no release for your Minecraft version or loader

## Things you can try:
- Read the conflict explanation above: it names the mod that ran out of
  options and the constraints that closed them off
- Widen or drop the version range of the named mod in ffpack.cue
- Check that every mod supports your minecraft/loader combination`,
	}

	providerUnavailableIssue = &Issue{
		id: ProviderUnavailableId,
		mdMsg: `
# Provider unavailable!

A mod provider could not be reached. This is usually temporary.

## Things you can try:
- Check your network connection
- Retry in a few minutes; downloads resume from the local store, so
  nothing already fetched is lost
- If the provider is rate limiting you, lower the worker count:
~~~cue
fetch: {
  workers: 2
}
~~~`,
	}

	modNotFoundIssue = &Issue{
		id: ModNotFoundId,
		mdMsg: `
# Mod not found!

A provider does not know one of the mods your manifest references.

## Things you can try:
- Check the mod id for typos (Modrinth uses slugs, CurseForge uses
  numeric ids)
- Verify the provider name on the entry ("modrinth", "curseforge")
- Confirm the mod still exists on the provider's site`,
	}

	digestMismatchIssue = &Issue{
		id: DigestMismatchId,
		mdMsg: `
# Artifact digest mismatch!

A downloaded file did not hash to the digest it was pinned with. The
file was discarded and nothing was cached.

## Common causes:
- The download was corrupted in transit
- A mirror is serving different bytes than the pinned release
- The lock file pins a digest from a release that was re-uploaded

## Things you can try:
- Retry the build; transient corruption goes away on its own
- If the mismatch persists, re-resolve to pick up the provider's
  current metadata:
~~~
$ ffpack build --update
~~~`,
	}

	artifactMissingIssue = &Issue{
		id: ArtifactMissingId,
		mdMsg: `
# Artifacts missing from the store!

Packaging needs every pinned artifact verified in the local store, but
some are absent.

## Things you can try:
- Fetch the pinned artifacts, then package again:
~~~
$ ffpack rebuild
~~~

- If the store was cleared on purpose, this is expected; rebuild
  refetches everything the lock file pins`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the ffpack configuration file.

## Configuration file locations:
- Linux: ~/.config/ffpack/config.cue
- macOS: ~/Library/Application Support/ffpack/config.cue
- Windows: %APPDATA%\ffpack\config.cue

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/ffpack/config.cue
~~~

## Example configuration:
~~~cue
store_dir: "/var/cache/ffpack"

fetch: {
  workers: 4
  attempts: 3
}

resolve: {
  prefer: "version"
}
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():    manifestNotFoundIssue,
		manifestParseErrorIssue.Id():  manifestParseErrorIssue,
		lockNotFoundIssue.Id():        lockNotFoundIssue,
		lockCorruptIssue.Id():         lockCorruptIssue,
		resolutionFailedIssue.Id():    resolutionFailedIssue,
		providerUnavailableIssue.Id(): providerUnavailableIssue,
		modNotFoundIssue.Id():         modNotFoundIssue,
		digestMismatchIssue.Id():      digestMismatchIssue,
		artifactMissingIssue.Id():     artifactMissingIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
