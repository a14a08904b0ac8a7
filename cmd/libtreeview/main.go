// Command libtreeview builds the C ABI of the engine with
// go build -buildmode=c-shared. Every returned string is a serialized
// payload and must be handed back to treeview_string_free exactly once.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/jacoelho/treeview/internal/boundary"
)

var live = boundary.NewRegistry()

//export treeview_parse_file
func treeview_parse_file(path *C.char) *C.char {
	return export(boundary.ParseFile(C.GoString(path)))
}

//export treeview_parse_text
func treeview_parse_text(content *C.char, length C.size_t, name *C.char) *C.char {
	text := C.GoStringN(content, C.int(length))
	return export(boundary.ParseText(text, C.GoString(name)))
}

// treeview_string_free returns 0, or -1 for a pointer that is unknown or
// already freed.
//
//export treeview_string_free
func treeview_string_free(s *C.char) C.int {
	if s == nil {
		return -1
	}
	if err := live.Release(uintptr(unsafe.Pointer(s))); err != nil {
		return -1
	}
	C.free(unsafe.Pointer(s))
	return 0
}

func export(buf *boundary.Buffer) *C.char {
	data, err := buf.Bytes()
	if err != nil {
		data = boundary.EncodeError(err)
	}
	s := C.CString(string(data))
	if err := live.Put(uintptr(unsafe.Pointer(s)), buf); err != nil {
		C.free(unsafe.Pointer(s))
		return nil
	}
	return s
}

func main() {}
