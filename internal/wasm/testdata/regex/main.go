//go:build tinygo

package main

import (
	"encoding/json"
	"unsafe"
)

// regex detects "Plugin <name> failed" through the host regex functions.

//go:wasm-module env
//export regex_match
func regexMatch(strPtr, strLen, rePtr, reLen uint32) uint32

//go:wasm-module env
//export regex_find_submatch
func regexFindSubmatch(strPtr, strLen, rePtr, reLen, outPtr, outLen uint32) uint32

//go:wasm-module env
//export log
func hostLog(level, ptr, size uint32)

func addr(s string) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s))))
}

//export process
func process(ptr, size uint32) uint64 {
	in, ok := readInput(ptr, size)
	if !ok {
		return respond(map[string]any{"ok": false, "error": "failed to parse input JSON"})
	}

	pattern := `Plugin (\w+) failed`
	if regexMatch(addr(in.Content), uint32(len(in.Content)), addr(pattern), uint32(len(pattern))) == 0 {
		return respond(map[string]any{"ok": true})
	}

	var buf [4096]byte
	n := regexFindSubmatch(addr(in.Content), uint32(len(in.Content)), addr(pattern), uint32(len(pattern)),
		uint32(uintptr(unsafe.Pointer(&buf[0]))), uint32(len(buf)))
	var groups []string
	if n > 0 && n != 0xFFFFFFFF {
		_ = json.Unmarshal(buf[:n], &groups)
	}
	name := "unknown"
	if len(groups) > 1 {
		name = groups[1]
	}

	msg := "regex plugin matched"
	hostLog(1, addr(msg), uint32(len(msg)))

	return respond(map[string]any{
		"ok":         true,
		"messages":   []string{"**Plugin Failure** \nPlugin " + name + " failed to start."},
		"problem":    true,
		"detections": []string{"plugin_failure"},
	})
}

//export abi_version
func abiVersion() uint32 {
	return 1
}

// buffers keeps allocations handed to the host reachable until free.
var buffers = map[uint32][]byte{}

//export alloc
func alloc(size uint32) uint32 {
	buf := make([]byte, size+1)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	buffers[ptr] = buf
	return ptr
}

//export free
func free(ptr, size uint32) {
	delete(buffers, ptr)
}

func bytesAt(ptr, size uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
}

func respond(v any) uint64 {
	out, _ := json.Marshal(v)
	ptr := alloc(uint32(len(out)))
	copy(bytesAt(ptr, uint32(len(out))), out)
	return (uint64(len(out)) << 32) | uint64(ptr)
}

type input struct {
	Content          string   `json:"content"`
	Loader           string   `json:"loader"`
	LoaderVersion    string   `json:"loader_version"`
	MinecraftVersion string   `json:"minecraft_version"`
	Detections       []string `json:"detections"`
}

func readInput(ptr, size uint32) (input, bool) {
	var in input
	if err := json.Unmarshal(bytesAt(ptr, size), &in); err != nil {
		return in, false
	}
	return in, true
}

func main() {}
