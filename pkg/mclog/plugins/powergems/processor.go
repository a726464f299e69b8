// Package powergems diagnoses command errors reported by the PowerGems
// server plugin.
package powergems

import (
	"context"
	"fmt"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// Detection tags marked on the log when a category fires.
const (
	TagGiveGem         = "powergems.give_gem"
	TagUpgradeGem      = "powergems.upgrade_gem"
	TagRemoveGem       = "powergems.remove_gem"
	TagInvalidArgument = "powergems.invalid_argument"
)

// CommandProcessor explains failures of the /givegem, /upgradegem and
// /removegem commands.
//
// Each command category picks exactly one explanation: index out of bounds
// beats null pointer beats a generic fallback. A separate invalid argument
// message is only added when one of the command categories fired, since
// "Invalid ..." messages from unrelated code are common.
type CommandProcessor struct{}

func (CommandProcessor) Identifier() string { return "powergems_command_processor" }

func (CommandProcessor) Order() mclog.Order { return mclog.OrderEarlier }

func (CommandProcessor) Process(ctx context.Context, lg *mclog.Log) error {
	found := make(map[signal]mclog.Match[signal])
	for _, m := range signatures.FindAll(lg.Content()) {
		found[m.Tag] = m
	}

	index, hasIndex := found[indexOutOfBounds]
	npe, hasNPE := found[nullPointer]

	if _, ok := found[giveGemError]; ok {
		lg.AddProblem(giveGemDiagnostic(index, hasIndex, npe, hasNPE))
		lg.MarkDetected(TagGiveGem)
	}

	if _, ok := found[upgradeGemError]; ok {
		lg.AddProblem(upgradeGemDiagnostic(hasIndex, hasNPE))
		lg.MarkDetected(TagUpgradeGem)
	}

	if _, ok := found[removeGemError]; ok {
		lg.AddProblem(removeGemDiagnostic(hasIndex))
		lg.MarkDetected(TagRemoveGem)
	}

	invalid, hasInvalid := found[invalidArgument]
	if hasInvalid && commandFailed(lg) {
		lg.AddProblem(mclog.Diagnostic{
			Title:   "PowerGems Invalid Argument",
			Summary: invalid.Group(1),
			Fixes: []string{
				"Double-check spelling of gem types and player names",
				"Gem types are case-sensitive",
				"Use tab completion to avoid typos",
			},
		})
		lg.MarkDetected(TagInvalidArgument)
	}

	return nil
}

func commandFailed(lg *mclog.Log) bool {
	return lg.Detected(TagGiveGem) || lg.Detected(TagUpgradeGem) || lg.Detected(TagRemoveGem)
}

func giveGemDiagnostic(index mclog.Match[signal], hasIndex bool, npe mclog.Match[signal], hasNPE bool) mclog.Diagnostic {
	d := mclog.Diagnostic{Title: "PowerGems GiveGem Command Error"}
	switch {
	case hasIndex:
		d.Summary = fmt.Sprintf(
			"Index out of bounds error: trying to access argument %s when only %s arguments provided",
			index.Group(1), index.Group(2))
		d.FixHeading = true
		d.Fixes = []string{
			"Use correct syntax: `/givegem <player> <gem_type> [level]`",
			"Required: player name and gem type",
			"Optional: gem level (defaults to 1)",
			"Valid gem types: " + validGemTypes,
		}
		d.Example = "/givegem PlayerName Fire 3"
	case hasNPE:
		d.Summary = "Null pointer error: " + npe.Group(1)
		d.Fixes = []string{
			"Check that the player exists and is online",
			"Verify the gem type is spelled correctly",
			"Ensure PowerGems is fully initialized",
		}
	default:
		d.Summary = "Unknown error in GiveGem command"
		d.Compact = true
		d.Fixes = []string{
			"Check command syntax: `/givegem <player> <gem_type> [level]`",
			"Verify all arguments are provided correctly",
		}
	}
	return d
}

func upgradeGemDiagnostic(hasIndex, hasNPE bool) mclog.Diagnostic {
	d := mclog.Diagnostic{Title: "PowerGems UpgradeGem Command Error"}
	switch {
	case hasIndex:
		d.Summary = "Missing required arguments for upgrade command"
		d.FixHeading = true
		d.Fixes = []string{
			"Use correct syntax: `/upgradegem <player> [gem_type]`",
			"Player name is required",
			"Gem type is optional (upgrades held gem if not specified)",
		}
	case hasNPE:
		d.Summary = "Player or gem not found"
		d.Fixes = []string{
			"Ensure the player is online and has a gem",
			"Check that the gem type exists and is enabled",
		}
	default:
		d.Summary = "Unknown error in UpgradeGem command"
		d.Compact = true
		d.Fixes = []string{
			"Check command syntax: `/upgradegem <player> [gem_type]`",
			"Verify all arguments are provided correctly",
		}
	}
	return d
}

func removeGemDiagnostic(hasIndex bool) mclog.Diagnostic {
	d := mclog.Diagnostic{Title: "PowerGems RemoveGem Command Error"}
	if hasIndex {
		d.Summary = "Missing required arguments for remove command"
		d.FixHeading = true
		d.Fixes = []string{
			"Use correct syntax: `/removegem <player> [gem_type]`",
			"Player name is required",
			"Gem type is optional (removes all gems if not specified)",
		}
		return d
	}
	d.Summary = "Unknown error in RemoveGem command"
	d.Compact = true
	d.Fixes = []string{
		"Check command syntax: `/removegem <player> [gem_type]`",
		"Verify all arguments are provided correctly",
	}
	return d
}

var _ mclog.Processor = CommandProcessor{}
