//go:build tinygo

package main

import (
	"encoding/json"
	"unsafe"
)

// slow never returns, to exercise the host timeout.

//export process
func process(ptr, size uint32) uint64 {
	for {
	}
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
