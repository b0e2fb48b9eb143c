//go:build fts5

package fts

/*
#include "sqlite3.h"
#include <stdint.h>
#include <stdlib.h>
typedef int (*xToken)(void*, int, const char*, int, int, int);
static inline int call_xToken(void* pCb, void* pCtx, int flags, const char* pToken, int nToken, int iStart, int iEnd) {
    return ((xToken)pCb)(pCtx, flags, pToken, nToken, iStart, iEnd);
}
*/
import "C"
import (
	"errors"
	"log/slog"
	"unsafe"

	"github.com/niklasfasching/sqlitefts/tokenizer"
)

//export goFts3Create
func goFts3Create(slot C.int, argc C.int, argv **C.char, pOut *C.uintptr_t) C.int {
	m, err := fts3Adaptor(int(slot))
	if err != nil {
		return status("fts3 create", err)
	}
	t, err := m.Create(goStrings(argv, argc))
	if err != nil {
		return status("fts3 create", err)
	}
	*pOut = C.uintptr_t(fts3Tokenizers.New(t))
	return C.SQLITE_OK
}

//export goFts3Destroy
func goFts3Destroy(h C.uintptr_t) C.int {
	t, err := fts3Tokenizers.Delete(uintptr(h))
	if err == nil {
		err = t.Destroy()
	}
	return status("fts3 destroy", err)
}

//export goFts3Open
func goFts3Open(h C.uintptr_t, pInput *C.char, nBytes C.int, pOut *C.uintptr_t) C.int {
	t, err := fts3Tokenizers.Get(uintptr(h))
	if err != nil {
		return status("fts3 open", err)
	}
	c, err := t.Open(C.GoBytes(unsafe.Pointer(pInput), nBytes))
	if err != nil {
		return status("fts3 open", err)
	}
	*pOut = C.uintptr_t(fts3Cursors.New(c))
	return C.SQLITE_OK
}

//export goFts3Close
func goFts3Close(h C.uintptr_t) C.int {
	c, err := fts3Cursors.Delete(uintptr(h))
	if err == nil {
		err = c.Close()
	}
	return status("fts3 close", err)
}

// goFts3Next copies the token into the cursor's C buffer, growing it as
// needed; the buffer is freed by the C side on close.
//
//export goFts3Next
func goFts3Next(h C.uintptr_t, pBuf **C.char, pnBuf *C.int, pnBytes, piStart, piEnd, piPos *C.int) C.int {
	c, err := fts3Cursors.Get(uintptr(h))
	if err != nil {
		return status("fts3 next", err)
	}
	tok, err := c.Next()
	if errors.Is(err, tokenizer.ErrDone) {
		return C.SQLITE_DONE
	} else if err != nil {
		return status("fts3 next", err)
	}
	if n := C.int(len(tok.Bytes)); n > *pnBuf {
		buf := C.sqlite3_realloc(unsafe.Pointer(*pBuf), n)
		if buf == nil {
			return C.SQLITE_NOMEM
		}
		*pBuf, *pnBuf = (*C.char)(buf), n
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(*pBuf)), len(tok.Bytes)), tok.Bytes)
	*pnBytes, *piStart, *piEnd, *piPos = C.int(len(tok.Bytes)), C.int(tok.Start), C.int(tok.End), C.int(tok.Position)
	return C.SQLITE_OK
}

//export goFts5Create
func goFts5Create(ctx C.uintptr_t, azArg **C.char, nArg C.int, pOut *C.uintptr_t) C.int {
	e, err := fts5Contexts.Get(uintptr(ctx))
	if err != nil {
		return status("fts5 create", err)
	}
	t, err := e.Adaptor.(*tokenizer.Fts5).Create(e.Context, goStrings(azArg, nArg))
	if err != nil {
		return status("fts5 create", err)
	}
	*pOut = C.uintptr_t(fts5Tokenizers.New(t))
	return C.SQLITE_OK
}

//export goFts5Delete
func goFts5Delete(h C.uintptr_t) {
	t, err := fts5Tokenizers.Delete(uintptr(h))
	if err == nil {
		err = t.Delete()
	}
	status("fts5 delete", err)
}

//export goFts5Tokenize
func goFts5Tokenize(h C.uintptr_t, pCtx unsafe.Pointer, flags C.int, pText *C.char, nText C.int, xToken unsafe.Pointer) C.int {
	t, err := fts5Tokenizers.Get(uintptr(h))
	if err != nil {
		return status("fts5 tokenize", err)
	}
	input := C.GoBytes(unsafe.Pointer(pText), nText)
	err = t.Tokenize(tokenizer.Flag(flags), input, func(tflags tokenizer.Flag, token []byte, start, end int) error {
		if len(token) == 0 {
			return nil
		}
		rc := C.call_xToken(xToken, pCtx, C.int(tflags), (*C.char)(unsafe.Pointer(&token[0])), C.int(len(token)), C.int(start), C.int(end))
		if rc != C.SQLITE_OK {
			return &tokenizer.EmitAbortedError{Code: int(rc)}
		}
		return nil
	})
	if abort := (&tokenizer.EmitAbortedError{}); errors.As(err, &abort) {
		return C.int(abort.Code)
	}
	return status("fts5 tokenize", err)
}

//export goFts5Destroy
func goFts5Destroy(ctx C.uintptr_t) {
	e, err := fts5Contexts.Delete(uintptr(ctx))
	if err != nil {
		status("fts5 destroy", err)
	} else if e.OnDestroy != nil {
		e.OnDestroy(e.Context)
	}
}

//export goSnippet
func goSnippet(h C.uintptr_t, pText *C.char, nText C.int, aSpan *C.int, nSpan C.int, aMatch *C.int, nMatch C.int) *C.char {
	hl, err := snippets.Get(uintptr(h))
	if err != nil {
		status("snippet", err)
		return C.CString("")
	}
	return C.CString(hl.Snippet(C.GoStringN(pText, nText), goPairs(aSpan, nSpan), goPairs(aMatch, nMatch)))
}

//export goSnippetDestroy
func goSnippetDestroy(h C.uintptr_t) {
	if _, err := snippets.Delete(uintptr(h)); err != nil {
		status("snippet destroy", err)
	}
}

//export goAutoInstall
func goAutoInstall(db *C.sqlite3) C.int {
	return status("auto install", installAll(db, nil))
}

// status logs err (errors do not survive the C boundary otherwise) and maps it
// to the result code sqlite expects.
func status(op string, err error) C.int {
	if err != nil {
		slog.Error("fts: "+op+" failed", "err", err.Error())
	}
	return C.int(tokenizer.Status(err))
}

func goStrings(argv **C.char, argc C.int) []string {
	if argv == nil || argc <= 0 {
		return nil
	}
	vs := []string{}
	for _, p := range unsafe.Slice(argv, int(argc)) {
		vs = append(vs, C.GoString(p))
	}
	return vs
}

func goPairs(p *C.int, n C.int) [][2]int {
	if p == nil || n <= 0 {
		return nil
	}
	vs, ints := make([][2]int, n), unsafe.Slice(p, int(n)*2)
	for i := range vs {
		vs[i] = [2]int{int(ints[i*2]), int(ints[i*2+1])}
	}
	return vs
}
