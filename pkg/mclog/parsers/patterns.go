package parsers

import "github.com/mclog/mclog-go/pkg/mclog"

// loaderPatterns maps loader signatures to loaders, most specific first.
// Capture group 1, when present, is the loader version.
var loaderPatterns = mclog.MustTable(
	// Quilt mods table: "| Quilt Loader | quilt_loader | 0.19.2 | ..."
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?i)\| Quilt Loader\s+\| quilt_loader\s+\| (\S+).+`,
		Tag:     mclog.LoaderQuilt,
	},
	// "[main/INFO]: Loading Minecraft 1.20 with Quilt Loader 0.19.2"
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?i): Loading .+ with Quilt Loader (\S+)`,
		Tag:     mclog.LoaderQuilt,
	},
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?i): Loading .+ with Fabric Loader (\S+)`,
		Tag:     mclog.LoaderFabric,
	},
	// Launch arguments: "--fml.forgeVersion, 47.2.0"
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?i)--fml\.forgeVersion, ([^\s,]+)`,
		Tag:     mclog.LoaderForge,
	},
	// Forge frames in a stack trace. Carries no version.
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?im)^\s*at\s+net\.minecraftforge\..*`,
		Tag:     mclog.LoaderForge,
	},
	// Older Forge versions
	mclog.Def[mclog.LoaderType]{
		Pattern: `(?i)MinecraftForge v([^\s,]+) Initialized`,
		Tag:     mclog.LoaderForge,
	},
)

// minecraftVersionPatterns detect the game version. Group 1 is the version.
var minecraftVersionPatterns = mclog.MustTable(
	mclog.Def[string]{Pattern: `(?i): Loading Minecraft (\S+) with`, Tag: "loader_banner"},
	mclog.Def[string]{Pattern: `(?i)Starting minecraft server version (\S+)`, Tag: "server_banner"},
	mclog.Def[string]{Pattern: `(?im)^\s*Minecraft Version: (\S+)`, Tag: "crash_report"},
)
