package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mclog/mclog-go/pkg/mclog"
)

var portMessage = mclog.Diagnostic{
	Title:      "Port Already In Use",
	Summary:    "Another process is listening on the port.",
	FixHeading: true,
	Fixes:      []string{"Change `server-port` in server.properties"},
	Example:    "server-port=25566",
}.String()

func sampleReport() report {
	return report{
		Source: "logs/latest.log",
		Result: mclog.Result{
			ID:          "log-1",
			Messages:    []string{portMessage},
			HasProblems: true,
			Fields: map[mclog.FieldKind]any{
				mclog.FieldLoader:           mclog.LoaderVersion{Loader: mclog.LoaderFabric, Version: "0.15.0"},
				mclog.FieldMinecraftVersion: mclog.Version("1.20.1"),
				mclog.FieldDetections:       []string{"port_in_use"},
			},
		},
	}
}

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"pretty", true},
		{"markdown", true},
		{"json", true},
		{"jsonl", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.valid, validFormats[tt.format])
		})
	}
}

func TestOutputReport_UnknownFormat(t *testing.T) {
	err := outputReport("xml", sampleReport(), &bytes.Buffer{})
	assert.EqualError(t, err, "unknown format: xml")
}

func TestOutputJSON(t *testing.T) {
	r := sampleReport()
	r.Err = errors.Join(errors.New("unit a failed"), errors.New("unit b failed"))

	var buf bytes.Buffer
	require.NoError(t, outputJSON(r, &buf))
	require.True(t, strings.HasSuffix(buf.String(), "}\n"))

	var decoded struct {
		Source      string         `json:"source"`
		ID          string         `json:"id"`
		Messages    []string       `json:"messages"`
		HasProblems bool           `json:"has_problems"`
		Fields      map[string]any `json:"fields"`
		Errors      []string       `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "logs/latest.log", decoded.Source)
	assert.Equal(t, "log-1", decoded.ID)
	assert.Equal(t, []string{portMessage}, decoded.Messages)
	assert.True(t, decoded.HasProblems)
	assert.Equal(t, map[string]any{"loader": "fabric", "version": "0.15.0"}, decoded.Fields["loader"])
	assert.Equal(t, "1.20.1", decoded.Fields["minecraft_version"])
	assert.Equal(t, []string{"unit a failed", "unit b failed"}, decoded.Errors)
}

func TestOutputJSON_NoErrorsField(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputJSON(report{Source: "-", Result: mclog.Result{Messages: []string{}}}, &buf))
	assert.NotContains(t, buf.String(), `"errors"`)
	assert.Contains(t, buf.String(), `"messages":[]`)
}

func TestOutputMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputMarkdown(sampleReport(), &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "## logs/latest.log\n\n_Loader: fabric 0.15.0, Minecraft: 1.20.1_\n\n"), "got %q", out)
	assert.Contains(t, out, strings.TrimRight(portMessage, "\n")+"\n\n")
}

func TestOutputMarkdown_NoMessages(t *testing.T) {
	var buf bytes.Buffer
	r := report{Source: "-", Err: errors.New("boom")}
	require.NoError(t, outputMarkdown(r, &buf))
	assert.Equal(t, "## -\n\nNo known problems found.\n\n> error: boom\n\n", buf.String())
}

func TestOutputPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputPretty(sampleReport(), &buf))

	out := buf.String()
	assert.Contains(t, out, "logs/latest.log\n")
	assert.Contains(t, out, "Loader: fabric 0.15.0, Minecraft: 1.20.1\n")
	assert.Contains(t, out, "Problems detected (1 message)\n")
	assert.Contains(t, out, "Port Already In Use\n")
	assert.Contains(t, out, "How to fix:\n")
	assert.Contains(t, out, "• Change `server-port` in server.properties\n")
	assert.Contains(t, out, "Example: `server-port=25566`")
	assert.NotContains(t, out, "**")
}

func TestOutputPretty_Status(t *testing.T) {
	tests := []struct {
		name   string
		result mclog.Result
		want   string
	}{
		{"clean", mclog.Result{}, "No known problems found."},
		{"notes only", mclog.Result{Messages: []string{"a", "b"}}, "No problems, 2 notes"},
		{"problems", mclog.Result{Messages: []string{"a", "b"}, HasProblems: true}, "Problems detected (2 messages)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, outputPretty(report{Source: "-", Result: tt.result}, &buf))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestOutputPretty_Errors(t *testing.T) {
	var buf bytes.Buffer
	r := report{Source: "-", Err: &mclog.UnitError{Stage: mclog.StageProcess, Identifier: "broken", Err: errors.New("boom")}}
	require.NoError(t, outputPretty(r, &buf))
	assert.Contains(t, buf.String(), `error: process unit "broken": boom`)
}

func TestRenderMessage_Wraps(t *testing.T) {
	msg := mclog.Diagnostic{Title: "Long", Summary: strings.Repeat("lorem ipsum ", 30)}.String()

	out := renderMessage(msg, newPrettyStyles(&bytes.Buffer{}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "Long", lines[0])
	for _, line := range lines {
		assert.LessOrEqual(t, len(strings.TrimRight(line, " ")), wrapWidth, "line %q", line)
	}
}

func TestFactsLine(t *testing.T) {
	tests := []struct {
		name   string
		fields map[mclog.FieldKind]any
		want   string
	}{
		{"none", nil, ""},
		{"loader without version", map[mclog.FieldKind]any{
			mclog.FieldLoader: mclog.LoaderVersion{Loader: mclog.LoaderForge},
		}, "Loader: forge"},
		{"version only", map[mclog.FieldKind]any{
			mclog.FieldMinecraftVersion: mclog.Version("1.19.4"),
		}, "Minecraft: 1.19.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, factsLine(mclog.Result{Fields: tt.fields}))
		})
	}
}

func TestErrorStrings(t *testing.T) {
	assert.Nil(t, errorStrings(nil))
	assert.Equal(t, []string{"a"}, errorStrings(errors.New("a")))

	nested := errors.Join(errors.New("a"), errors.Join(errors.New("b"), errors.New("c")))
	assert.Equal(t, []string{"a", "b", "c"}, errorStrings(nested))
}
