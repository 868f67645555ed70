//go:build llama

package manager

// cgo link directives for the in-process llama adapter.
//   - rpath $ORIGIN lets the loader find libllama.so next to the binary (./bin).
//   - -L${SRCDIR}/../../bin lets the linker find it when building with -tags=llama.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
