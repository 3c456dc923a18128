// Package hostenv is a pure-Go implementation of the fixed "env" host
// import table spec §6 requires every compiled module to import (plus the
// __assert_fail/__raise/math_* additions internal/builtins appends — see
// DESIGN.md). It exists so `cleanc run` and the end-to-end scenarios
// S1-S6 have something to execute the produced module against, rather
// than only asserting on emitted bytes: spec §1 scopes "the host's
// concrete implementation of the imported file/network/print functions"
// out of the core, but a driver that can't run anything can't demonstrate
// the core works either.
//
// Grounded on wazero's host-module-registration idiom
// (_examples/tetratelabs-wazero's NewHostModuleBuilder/
// NewFunctionBuilder/WithFunc/Export chain), since wazero is the pack's
// only real WASM-runtime-shaped dependency.
package hostenv

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/cwbudde/clean-wasmc/internal/memlayout"
)

// Env backs one instantiated module. malloc/free's bump-then-freelist
// allocator state lives here rather than in the module's own linear
// memory, because spec §4.5 specifies the allocator contract as a pair of
// host imports, not compiled code — Env is the one side of that contract
// spec.md leaves for "the host's concrete implementation" to supply.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Dir sandboxes every File.* path: all file operations resolve
	// relative to Dir and may not escape it.
	Dir string

	Client *http.Client

	mem      api.Memory
	heapBase uint32
	heapNext uint32
	freeList map[uint32][]uint32 // exact-size free list, block-start addresses

	// Calls records every host import invocation in order, so `cleanc run`
	// and end-to-end tests can assert "the host observed a single println
	// call with payload X" exactly as spec §8's scenarios describe.
	Calls []Call
}

// Call is one observed host-import invocation.
type Call struct {
	Name string
	Args []uint64
	Text string // decoded string argument, when the import takes one
}

// New creates an Env with heapBase as the first address malloc may hand
// out. Compiled modules declare linear memory starting at memory.Min=1
// page (64KiB) and growable up to memory.Max=16 pages (1MiB total), so
// heapBase has to both clear the highest data segment the compiler
// emitted (see internal/codegen's internString) and leave enough of the
// 16-page ceiling for the heap itself to grow into; one page (64KiB) is
// a generous bound for any realistic literal pool while leaving the
// other 15 pages for allocBlock to grow into on demand.
func New(stdout, stderr io.Writer, dir string) *Env {
	const heapBase = 1 << 16
	return &Env{
		Stdout:   stdout,
		Stderr:   stderr,
		Dir:      dir,
		Client:   http.DefaultClient,
		heapBase: heapBase,
		heapNext: heapBase,
		freeList: make(map[uint32][]uint32),
	}
}

// Instantiate builds the "env" host module against r and binds it to mod's
// memory once mod itself is instantiated; call this before instantiating
// the compiled program module so its imports resolve.
func (e *Env) Instantiate(ctx context.Context, r wazero.Runtime) error {
	b := r.NewHostModuleBuilder("env")

	b.NewFunctionBuilder().WithFunc(e.print).Export("print")
	b.NewFunctionBuilder().WithFunc(e.println).Export("println")
	b.NewFunctionBuilder().WithFunc(e.printSimple).Export("print_simple")
	b.NewFunctionBuilder().WithFunc(e.printlnSimple).Export("println_simple")
	b.NewFunctionBuilder().WithFunc(e.fileWrite).Export("file_write")
	b.NewFunctionBuilder().WithFunc(e.fileRead).Export("file_read")
	b.NewFunctionBuilder().WithFunc(e.fileExists).Export("file_exists")
	b.NewFunctionBuilder().WithFunc(e.fileDelete).Export("file_delete")
	b.NewFunctionBuilder().WithFunc(e.fileAppend).Export("file_append")
	b.NewFunctionBuilder().WithFunc(e.httpGet).Export("http_get")
	b.NewFunctionBuilder().WithFunc(e.httpPost).Export("http_post")
	b.NewFunctionBuilder().WithFunc(e.httpPut).Export("http_put")
	b.NewFunctionBuilder().WithFunc(e.httpPatch).Export("http_patch")
	b.NewFunctionBuilder().WithFunc(e.httpDelete).Export("http_delete")
	b.NewFunctionBuilder().WithFunc(e.malloc).Export("malloc")
	b.NewFunctionBuilder().WithFunc(e.free).Export("free")
	b.NewFunctionBuilder().WithFunc(e.assertFail).Export("__assert_fail")
	b.NewFunctionBuilder().WithFunc(e.raise).Export("__raise")
	b.NewFunctionBuilder().WithFunc(mathUnary(math.Sin)).Export("math_sin")
	b.NewFunctionBuilder().WithFunc(mathUnary(math.Cos)).Export("math_cos")
	b.NewFunctionBuilder().WithFunc(mathUnary(math.Tan)).Export("math_tan")
	b.NewFunctionBuilder().WithFunc(mathUnary(math.Log)).Export("math_ln")
	b.NewFunctionBuilder().WithFunc(mathUnary(math.Exp)).Export("math_exp")

	_, err := b.Instantiate(ctx)
	return err
}

// BindMemory records the instantiated compiled module's exported memory
// so subsequent host-import calls can read/write its linear memory. Call
// this once, right after instantiating the compiled module.
func (e *Env) BindMemory(mod api.Module) {
	e.mem = mod.ExportedMemory("memory")
}

func (e *Env) record(name string, text string, args ...uint64) {
	e.Calls = append(e.Calls, Call{Name: name, Text: text, Args: args})
}

func (e *Env) readString(ctx context.Context, ptr, length uint32) string {
	buf, ok := e.mem.Read(ctx, ptr, length)
	if !ok {
		return ""
	}
	return string(buf)
}

// print/println/print_simple/println_simple -------------------------------

func (e *Env) print(ctx context.Context, ptr, length uint32) {
	s := e.readString(ctx, ptr, length)
	e.record("print", s, uint64(ptr), uint64(length))
	fmt.Fprint(e.Stdout, s)
}

func (e *Env) println(ctx context.Context, ptr, length uint32) {
	s := e.readString(ctx, ptr, length)
	e.record("println", s, uint64(ptr), uint64(length))
	fmt.Fprintln(e.Stdout, s)
}

// print_simple/println_simple take a single i32 (spec §6) interpreted as
// a pointer to a null-terminated diagnostic string — the "simple" variants
// exist for runtime-internal messages (e.g. trap descriptions) that don't
// carry an explicit length.
func (e *Env) printSimple(ctx context.Context, ptr uint32) {
	s := e.readCString(ctx, ptr)
	e.record("print_simple", s, uint64(ptr))
	fmt.Fprint(e.Stdout, s)
}

func (e *Env) printlnSimple(ctx context.Context, ptr uint32) {
	s := e.readCString(ctx, ptr)
	e.record("println_simple", s, uint64(ptr))
	fmt.Fprintln(e.Stdout, s)
}

func (e *Env) readCString(ctx context.Context, ptr uint32) string {
	var sb strings.Builder
	for i := uint32(0); ; i++ {
		b, ok := e.mem.Read(ctx, ptr+i, 1)
		if !ok || b[0] == 0 {
			break
		}
		sb.WriteByte(b[0])
	}
	return sb.String()
}

// file_* -------------------------------------------------------------------

// safePath resolves name against e.Dir, rejecting any path that would
// escape it (spec doesn't specify sandboxing, but an embedder exposing
// compiled, untrusted programs to the filesystem needs one).
func (e *Env) safePath(name string) (string, bool) {
	full := filepath.Join(e.Dir, name)
	rel, err := filepath.Rel(e.Dir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return full, true
}

func (e *Env) fileWrite(ctx context.Context, namePtr, nameLen, dataPtr, dataLen uint32) uint32 {
	name := e.readString(ctx, namePtr, nameLen)
	data := e.readString(ctx, dataPtr, dataLen)
	e.record("file_write", name)
	path, ok := e.safePath(name)
	if !ok {
		return 0
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return 0
	}
	return 1
}

func (e *Env) fileAppend(ctx context.Context, namePtr, nameLen, dataPtr, dataLen uint32) uint32 {
	name := e.readString(ctx, namePtr, nameLen)
	data := e.readString(ctx, dataPtr, dataLen)
	e.record("file_append", name)
	path, ok := e.safePath(name)
	if !ok {
		return 0
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		return 0
	}
	return 1
}

func (e *Env) fileRead(ctx context.Context, namePtr, nameLen, _ uint32) uint32 {
	name := e.readString(ctx, namePtr, nameLen)
	e.record("file_read", name)
	path, ok := e.safePath(name)
	if !ok {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return e.allocString(ctx, string(data))
}

func (e *Env) fileExists(ctx context.Context, namePtr, nameLen uint32) uint32 {
	name := e.readString(ctx, namePtr, nameLen)
	e.record("file_exists", name)
	path, ok := e.safePath(name)
	if !ok {
		return 0
	}
	if _, err := os.Stat(path); err != nil {
		return 0
	}
	return 1
}

func (e *Env) fileDelete(ctx context.Context, namePtr, nameLen uint32) uint32 {
	name := e.readString(ctx, namePtr, nameLen)
	e.record("file_delete", name)
	path, ok := e.safePath(name)
	if !ok {
		return 0
	}
	if err := os.Remove(path); err != nil {
		return 0
	}
	return 1
}

// http_* --------------------------------------------------------------------

func (e *Env) httpRequest(ctx context.Context, method, url, body string) uint32 {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0
	}
	return e.allocString(ctx, string(data))
}

func (e *Env) httpGet(ctx context.Context, urlPtr, urlLen, _ uint32) uint32 {
	url := e.readString(ctx, urlPtr, urlLen)
	e.record("http_get", url)
	return e.httpRequest(ctx, http.MethodGet, url, "")
}

func (e *Env) httpBodyRequest(ctx context.Context, method string, urlPtr, urlLen, bodyPtr, bodyLen uint32) uint32 {
	url := e.readString(ctx, urlPtr, urlLen)
	body := e.readString(ctx, bodyPtr, bodyLen)
	e.record("http_"+strings.ToLower(method), url)
	return e.httpRequest(ctx, method, url, body)
}

func (e *Env) httpPost(ctx context.Context, urlPtr, urlLen, bodyPtr, bodyLen, _ uint32) uint32 {
	return e.httpBodyRequest(ctx, http.MethodPost, urlPtr, urlLen, bodyPtr, bodyLen)
}

func (e *Env) httpPut(ctx context.Context, urlPtr, urlLen, bodyPtr, bodyLen, _ uint32) uint32 {
	return e.httpBodyRequest(ctx, http.MethodPut, urlPtr, urlLen, bodyPtr, bodyLen)
}

func (e *Env) httpPatch(ctx context.Context, urlPtr, urlLen, bodyPtr, bodyLen, _ uint32) uint32 {
	return e.httpBodyRequest(ctx, http.MethodPatch, urlPtr, urlLen, bodyPtr, bodyLen)
}

func (e *Env) httpDelete(ctx context.Context, urlPtr, urlLen, _ uint32) uint32 {
	url := e.readString(ctx, urlPtr, urlLen)
	e.record("http_delete", url)
	return e.httpRequest(ctx, http.MethodDelete, url, "")
}

// malloc/free ---------------------------------------------------------------

// sizeClass rounds size up to the nearest multiple of 16 so the free list
// can reuse blocks of slightly different requested sizes (a real
// allocator's bucket rounding, scaled down to what a handful of small
// Clean Language programs actually need).
func sizeClass(size uint32) uint32 {
	const align = 16
	return (size + align - 1) / align * align
}

func (e *Env) malloc(ctx context.Context, size uint32) uint32 {
	return e.allocBlock(ctx, size)
}

func (e *Env) allocBlock(ctx context.Context, size uint32) uint32 {
	class := sizeClass(size)
	if blocks := e.freeList[class]; len(blocks) > 0 {
		ptr := blocks[len(blocks)-1]
		e.freeList[class] = blocks[:len(blocks)-1]
		return ptr
	}
	ptr := e.heapNext
	e.heapNext += class
	e.growTo(ctx, e.heapNext)
	return ptr
}

// growTo ensures the module's linear memory is at least need bytes, growing
// it one page at a time (memory.Min=1/Max=16 per spec §4.6 means most
// modules start smaller than heapBase and must grow before the heap is
// usable at all).
func (e *Env) growTo(ctx context.Context, need uint32) {
	for e.mem.Size(ctx) < need {
		if _, ok := e.mem.Grow(ctx, 1); !ok {
			return
		}
	}
}

func (e *Env) free(_ context.Context, ptr uint32) {
	if ptr < e.heapBase {
		return
	}
	// release() calls free with the past-header object pointer (see
	// internal/codegen/memory.go's buildReleaseHelper); recover the
	// block-start address malloc actually returned before bucketing it.
	headerPtr := ptr - memlayout.HeaderSize
	// The exact size class isn't recoverable from ptr alone without
	// reading the header's payload size back, which only applies to
	// String/List/Matrix/Pairs objects (not every malloc caller uses the
	// object header convention — e.g. raw scratch buffers). Bucket by the
	// smallest class so reuse stays correct even when it undersells the
	// original allocation; excess capacity is wasted, never corrupted.
	e.freeList[sizeClass(memlayout.HeaderSize)] = append(e.freeList[sizeClass(memlayout.HeaderSize)], headerPtr)
}

// allocString builds a complete String heap object (header + UTF-8
// payload) directly in the module's linear memory via the host's own
// allocator, bypassing a round-trip wasm call — file_read/http_* return
// values per spec §6 ("a pointer to an allocated result string... or 0
// for failure").
func (e *Env) allocString(ctx context.Context, s string) uint32 {
	size := uint32(memlayout.HeaderSize + len(s))
	headerPtr := e.allocBlock(ctx, size)

	header := make([]byte, memlayout.HeaderSize)
	putU32(header, memlayout.OffRefcount, 1)
	putU32(header, memlayout.OffTypeID, uint32(memlayout.TypeString))
	putU32(header, memlayout.OffPayloadSize, uint32(len(s)))
	putU32(header, memlayout.OffFlags, 0)

	e.mem.Write(ctx, headerPtr, header)
	e.mem.Write(ctx, headerPtr+memlayout.HeaderSize, []byte(s))
	return headerPtr + memlayout.HeaderSize
}

func putU32(b []byte, off int, v uint32) {
	b[off+0] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// __assert_fail / __raise ----------------------------------------------------

func (e *Env) assertFail(ctx context.Context, msgPtr, msgLen uint32) {
	msg := e.readString(ctx, msgPtr, msgLen)
	e.record("__assert_fail", msg)
	fmt.Fprintf(e.Stderr, "assertion failed: %s\n", msg)
}

func (e *Env) raise(ctx context.Context, msgPtr, msgLen uint32) {
	msg := e.readString(ctx, msgPtr, msgLen)
	e.record("__raise", msg)
	fmt.Fprintf(e.Stderr, "error raised: %s\n", msg)
}

// math_* ---------------------------------------------------------------------

// mathUnary adapts a float64->float64 stdlib math function to the
// (ctx, f64)->f64 shape wazero's WithFunc reflection expects. WASM 1.0 has
// no transcendental opcodes, so sin/cos/tan/ln/exp route to the host
// exactly like File/Http do (see internal/builtins/imports.go).
func mathUnary(fn func(float64) float64) func(context.Context, float64) float64 {
	return func(_ context.Context, x float64) float64 { return fn(x) }
}
