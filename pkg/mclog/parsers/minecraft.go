package parsers

import (
	"context"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// MinecraftVersionParser records the game version from the loader banner,
// the dedicated server banner or a crash report header.
type MinecraftVersionParser struct{}

func (MinecraftVersionParser) Identifier() string { return "minecraft_version" }

func (MinecraftVersionParser) Order() mclog.Order { return mclog.OrderEarlier }

func (MinecraftVersionParser) Process(ctx context.Context, lg *mclog.Log) error {
	m, ok := minecraftVersionPatterns.FindFirst(lg.Content())
	if !ok {
		return nil
	}
	lg.SetFieldOnce(mclog.FieldMinecraftVersion, mclog.Version(m.Group(1)))
	return nil
}

var _ mclog.Processor = MinecraftVersionParser{}
