package rules_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mclog/mclog-go/pkg/mclog"
	"github.com/mclog/mclog-go/pkg/mclog/rules"
)

func BenchmarkBuiltinProcessor(b *testing.B) {
	p, err := rules.BuiltinProcessor()
	if err != nil {
		b.Fatal(err)
	}

	lines := make([]string, 0, 1000)
	for i := 0; i < 999; i++ {
		lines = append(lines, "[12:00:00] [Server thread/INFO]: Preparing spawn area: 42%")
	}
	lines = append(lines, "java.lang.OutOfMemoryError: Java heap space")
	content := strings.Join(lines, "\n")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.Process(ctx, mclog.NewLog(content)); err != nil {
			b.Fatal(err)
		}
	}
}
