package powergems

import "github.com/mclog/mclog-go/pkg/mclog"

// signal identifies one PowerGems error signature.
type signal int

const (
	giveGemError signal = iota
	upgradeGemError
	removeGemError
	indexOutOfBounds
	nullPointer
	invalidArgument
)

// signatures are evaluated independently; several may match the same log.
// SealUtils reports a failing command in two lines: which command threw, then
// the exception message.
var signatures = mclog.MustTable(
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] Exception triggered by dev\.iseal\.powergems\.commands\.GiveGemCommand`,
		Tag:     giveGemError,
	},
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] Exception triggered by dev\.iseal\.powergems\.commands\.UpgradeGemCommand`,
		Tag:     upgradeGemError,
	},
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] Exception triggered by dev\.iseal\.powergems\.commands\.RemoveGemCommand`,
		Tag:     removeGemError,
	},
	// Captures: (1) requested index, (2) argument count
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] The exception message is Index (\d+) out of bounds for length (\d+)`,
		Tag:     indexOutOfBounds,
	},
	// Captures: (1) the JVM helpful NPE text
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] The exception message is (Cannot invoke .+ because .+ is null)`,
		Tag:     nullPointer,
	},
	// Captures: (1) the plugin's message
	mclog.Def[signal]{
		Pattern: `\[SealUtils\] The exception message is (Invalid .+)`,
		Tag:     invalidArgument,
	},
)

// validGemTypes lists the gem types shipped with PowerGems.
const validGemTypes = "Air, Fire, Healing, Ice, Iron, Lava, Lightning, Sand, Strength, Water"
