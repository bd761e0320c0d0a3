// Command libnam builds a C shared library around pkg/nam:
//
//	go build -buildmode=c-shared -o libnam.so ./cmd/libnam
//
// A handle returned by nam_create is owned by the caller until nam_destroy.
// A handle must not be used from two threads at once, and destroying it
// twice is undefined.
package main

/*
#include <stdint.h>
*/
import "C"

import "unsafe"

//export nam_create
func nam_create(path *C.char) C.uintptr_t {
	if path == nil {
		return C.uintptr_t(create(""))
	}
	return C.uintptr_t(create(C.GoString(path)))
}

//export nam_sample_rate
func nam_sample_rate(h C.uintptr_t) C.double {
	return C.double(sampleRate(uintptr(h)))
}

//export nam_process
func nam_process(h C.uintptr_t, input *C.float, output *C.float, frames C.int) {
	if input == nil || output == nil || frames <= 0 {
		return
	}
	n := int(frames)
	in := unsafe.Slice((*float32)(unsafe.Pointer(input)), n)
	out := unsafe.Slice((*float32)(unsafe.Pointer(output)), n)
	process(uintptr(h), in, out)
}

//export nam_destroy
func nam_destroy(h C.uintptr_t) {
	destroy(uintptr(h))
}

//export nam_enable_fast_tanh
func nam_enable_fast_tanh() {
	enableFastTanh()
}

func main() {}
