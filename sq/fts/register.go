//go:build fts5

// Package fts installs tokenizer adaptors into live sqlite connections: FTS3/4
// through the fts3_tokenizer() function and FTS5 through the fts5_api. It is the
// only place that touches C memory; Go values only cross the boundary as
// handles.
package fts

/*
#include "sqlite3.h"
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef struct sqlite3_tokenizer_module sqlite3_tokenizer_module;
typedef struct sqlite3_tokenizer sqlite3_tokenizer;
typedef struct sqlite3_tokenizer_cursor sqlite3_tokenizer_cursor;

struct sqlite3_tokenizer_module {
  int iVersion;
  int (*xCreate)(int argc, const char *const*argv, sqlite3_tokenizer **ppTokenizer);
  int (*xDestroy)(sqlite3_tokenizer *pTokenizer);
  int (*xOpen)(sqlite3_tokenizer *pTokenizer, const char *pInput, int nBytes, sqlite3_tokenizer_cursor **ppCursor);
  int (*xClose)(sqlite3_tokenizer_cursor *pCursor);
  int (*xNext)(sqlite3_tokenizer_cursor *pCursor, const char **ppToken, int *pnBytes, int *piStartOffset, int *piEndOffset, int *piPosition);
};
struct sqlite3_tokenizer { const sqlite3_tokenizer_module *pModule; };
struct sqlite3_tokenizer_cursor { sqlite3_tokenizer *pTokenizer; };

typedef struct { sqlite3_tokenizer base; uintptr_t h; } go_tokenizer;
typedef struct { sqlite3_tokenizer_cursor base; uintptr_t h; char *buf; int nBuf; } go_cursor;
typedef struct { uintptr_t h; } go_fts5_tokenizer;
typedef struct { int *a; int n; int cap; } span_buf;

extern int goFts3Create(int slot, int argc, char **argv, uintptr_t *pOut);
extern int goFts3Destroy(uintptr_t h);
extern int goFts3Open(uintptr_t h, char *pInput, int nBytes, uintptr_t *pOut);
extern int goFts3Close(uintptr_t h);
extern int goFts3Next(uintptr_t h, char **pBuf, int *pnBuf, int *pnBytes, int *piStart, int *piEnd, int *piPos);
extern int goFts5Create(uintptr_t ctx, char **azArg, int nArg, uintptr_t *pOut);
extern void goFts5Delete(uintptr_t h);
extern int goFts5Tokenize(uintptr_t h, void *pCtx, int flags, char *pText, int nText, void *xToken);
extern void goFts5Destroy(uintptr_t ctx);
extern char *goSnippet(uintptr_t h, char *pText, int nText, int *aSpan, int nSpan, int *aMatch, int nMatch);
extern void goSnippetDestroy(uintptr_t h);
extern int goAutoInstall(sqlite3 *db);

static int fts3_create(int slot, int argc, const char *const *argv, sqlite3_tokenizer **ppOut) {
  uintptr_t h = 0;
  int rc = goFts3Create(slot, argc, (char**)argv, &h);
  if (rc != SQLITE_OK) return rc;
  go_tokenizer *t = sqlite3_malloc(sizeof(*t));
  if (!t) {
    goFts3Destroy(h);
    return SQLITE_NOMEM;
  }
  memset(t, 0, sizeof(*t));
  t->h = h;
  *ppOut = &t->base;
  return SQLITE_OK;
}

static int fts3_destroy(sqlite3_tokenizer *pTok) {
  go_tokenizer *t = (go_tokenizer*)pTok;
  int rc = goFts3Destroy(t->h);
  sqlite3_free(t);
  return rc;
}

static int fts3_open(sqlite3_tokenizer *pTok, const char *pInput, int nBytes, sqlite3_tokenizer_cursor **ppOut) {
  uintptr_t h = 0;
  if (nBytes < 0) nBytes = pInput ? (int)strlen(pInput) : 0;
  int rc = goFts3Open(((go_tokenizer*)pTok)->h, (char*)pInput, nBytes, &h);
  if (rc != SQLITE_OK) return rc;
  go_cursor *c = sqlite3_malloc(sizeof(*c));
  if (!c) {
    goFts3Close(h);
    return SQLITE_NOMEM;
  }
  memset(c, 0, sizeof(*c));
  c->base.pTokenizer = pTok;
  c->h = h;
  *ppOut = &c->base;
  return SQLITE_OK;
}

static int fts3_close(sqlite3_tokenizer_cursor *pCsr) {
  go_cursor *c = (go_cursor*)pCsr;
  int rc = goFts3Close(c->h);
  sqlite3_free(c->buf);
  sqlite3_free(c);
  return rc;
}

static int fts3_next(sqlite3_tokenizer_cursor *pCsr, const char **ppToken, int *pnBytes, int *piStart, int *piEnd, int *piPos) {
  go_cursor *c = (go_cursor*)pCsr;
  int rc = goFts3Next(c->h, &c->buf, &c->nBuf, pnBytes, piStart, piEnd, piPos);
  if (rc == SQLITE_OK) *ppToken = c->buf;
  return rc;
}

// xCreate gets no user data, so every FTS3 registration gets its own module
// table whose xCreate knows its slot.
#define FTS3_SLOTS 16
#define FTS3_SLOT(i) \
  static int fts3_create_##i(int argc, const char *const *argv, sqlite3_tokenizer **ppOut) { \
    return fts3_create(i, argc, argv, ppOut); \
  }
#define FTS3_MODULE(i) {0, fts3_create_##i, fts3_destroy, fts3_open, fts3_close, fts3_next}

FTS3_SLOT(0) FTS3_SLOT(1) FTS3_SLOT(2) FTS3_SLOT(3)
FTS3_SLOT(4) FTS3_SLOT(5) FTS3_SLOT(6) FTS3_SLOT(7)
FTS3_SLOT(8) FTS3_SLOT(9) FTS3_SLOT(10) FTS3_SLOT(11)
FTS3_SLOT(12) FTS3_SLOT(13) FTS3_SLOT(14) FTS3_SLOT(15)

static const sqlite3_tokenizer_module fts3_modules[FTS3_SLOTS] = {
  FTS3_MODULE(0), FTS3_MODULE(1), FTS3_MODULE(2), FTS3_MODULE(3),
  FTS3_MODULE(4), FTS3_MODULE(5), FTS3_MODULE(6), FTS3_MODULE(7),
  FTS3_MODULE(8), FTS3_MODULE(9), FTS3_MODULE(10), FTS3_MODULE(11),
  FTS3_MODULE(12), FTS3_MODULE(13), FTS3_MODULE(14), FTS3_MODULE(15),
};

static int fts3_register(sqlite3 *db, const char *zName, int slot) {
  const sqlite3_tokenizer_module *p = &fts3_modules[slot];
  sqlite3_stmt *pStmt = 0;
  int rc = sqlite3_db_config(db, SQLITE_DBCONFIG_ENABLE_FTS3_TOKENIZER, 1, (int*)0);
  if (rc != SQLITE_OK) return rc;
  rc = sqlite3_prepare_v2(db, "SELECT fts3_tokenizer(?1, ?2)", -1, &pStmt, 0);
  if (rc != SQLITE_OK) return rc;
  sqlite3_bind_text(pStmt, 1, zName, -1, SQLITE_TRANSIENT);
  sqlite3_bind_blob(pStmt, 2, &p, sizeof(p), SQLITE_TRANSIENT);
  sqlite3_step(pStmt);
  return sqlite3_finalize(pStmt);
}

static int fts5_create(void *pCtx, const char **azArg, int nArg, Fts5Tokenizer **ppOut) {
  uintptr_t h = 0;
  int rc = goFts5Create((uintptr_t)pCtx, (char**)azArg, nArg, &h);
  if (rc != SQLITE_OK) return rc;
  go_fts5_tokenizer *t = sqlite3_malloc(sizeof(*t));
  if (!t) {
    goFts5Delete(h);
    return SQLITE_NOMEM;
  }
  t->h = h;
  *ppOut = (Fts5Tokenizer*)t;
  return SQLITE_OK;
}

static void fts5_delete(Fts5Tokenizer *pTok) {
  go_fts5_tokenizer *t = (go_fts5_tokenizer*)pTok;
  goFts5Delete(t->h);
  sqlite3_free(t);
}

static int fts5_tokenize(Fts5Tokenizer *pTok, void *pCtx, int flags, const char *pText, int nText,
    int (*xToken)(void*, int, const char*, int, int, int)) {
  return goFts5Tokenize(((go_fts5_tokenizer*)pTok)->h, pCtx, flags, (char*)pText, nText, (void*)xToken);
}

static void fts5_destroy(void *pCtx) {
  goFts5Destroy((uintptr_t)pCtx);
}

static fts5_tokenizer fts5_table = {fts5_create, fts5_delete, fts5_tokenize};

static fts5_api *fts5_api_from_db(sqlite3 *db) {
  fts5_api *pApi = 0;
  sqlite3_stmt *pStmt = 0;
  if (sqlite3_prepare_v2(db, "SELECT fts5(?1)", -1, &pStmt, 0) != SQLITE_OK) return 0;
  sqlite3_bind_pointer(pStmt, 1, (void*)&pApi, "fts5_api_ptr", 0);
  sqlite3_step(pStmt);
  sqlite3_finalize(pStmt);
  return pApi;
}

static int fts5_register(sqlite3 *db, const char *zName, uintptr_t ctx) {
  fts5_api *pApi = fts5_api_from_db(db);
  if (!pApi) return SQLITE_ERROR;
  return pApi->xCreateTokenizer(pApi, zName, (void*)ctx, &fts5_table, fts5_destroy);
}

static int collect_span(void *pCtx, int tflags, const char *pToken, int nToken, int iStart, int iEnd) {
  span_buf *b = (span_buf*)pCtx;
  if (tflags & FTS5_TOKEN_COLOCATED) return SQLITE_OK;
  if (b->n == b->cap) {
    int cap = b->cap ? b->cap * 2 : 64;
    int *a = sqlite3_realloc(b->a, cap * 2 * sizeof(int));
    if (!a) return SQLITE_NOMEM;
    b->a = a;
    b->cap = cap;
  }
  b->a[b->n * 2] = iStart;
  b->a[b->n * 2 + 1] = iEnd;
  b->n++;
  return SQLITE_OK;
}

static void snippet(const Fts5ExtensionApi *pApi, Fts5Context *pFts, sqlite3_context *pCtx, int nVal, sqlite3_value **apVal) {
  uintptr_t h = (uintptr_t)pApi->xUserData(pFts);
  const char *zText = 0;
  int nText = 0, nInst = 0, nMatch = 0, rc;
  int *aMatch = 0;
  span_buf b = {0, 0, 0};
  if (nVal != 1 || sqlite3_value_type(apVal[0]) != SQLITE_INTEGER) {
    sqlite3_result_error(pCtx, "snippet requires exactly 1 int argument (col_idx)", -1);
    return;
  }
  int iCol = sqlite3_value_int(apVal[0]);
  if ((rc = pApi->xColumnText(pFts, iCol, &zText, &nText)) != SQLITE_OK) goto error;
  if ((rc = pApi->xInstCount(pFts, &nInst)) != SQLITE_OK) goto error;
  if (nInst == 0 || nText == 0) {
    sqlite3_result_text(pCtx, "", 0, SQLITE_STATIC);
    return;
  }
  if ((rc = pApi->xTokenize(pFts, zText, nText, &b, collect_span)) != SQLITE_OK) goto error;
  aMatch = sqlite3_malloc(sizeof(int) * nInst * 2);
  if (!aMatch) {
    rc = SQLITE_NOMEM;
    goto error;
  }
  for (int i = 0; i < nInst; i++) {
    int iPhrase, iInstCol, iPos;
    if ((rc = pApi->xInst(pFts, i, &iPhrase, &iInstCol, &iPos)) != SQLITE_OK) goto error;
    if (iInstCol == iCol) {
      aMatch[nMatch * 2] = iPos;
      aMatch[nMatch * 2 + 1] = pApi->xPhraseSize(pFts, iPhrase);
      nMatch++;
    }
  }
  sqlite3_result_text(pCtx, goSnippet(h, (char*)zText, nText, b.a, b.n, aMatch, nMatch), -1, free);
  sqlite3_free(b.a);
  sqlite3_free(aMatch);
  return;
error:
  sqlite3_free(b.a);
  sqlite3_free(aMatch);
  sqlite3_result_error_code(pCtx, rc);
}

static void snippet_destroy(void *pCtx) {
  goSnippetDestroy((uintptr_t)pCtx);
}

static int snippet_register(sqlite3 *db, const char *zName, uintptr_t h) {
  fts5_api *pApi = fts5_api_from_db(db);
  if (!pApi) return SQLITE_ERROR;
  return pApi->xCreateFunction(pApi, zName, (void*)h, snippet, snippet_destroy);
}

static int auto_install(sqlite3 *db, char **pzErrMsg, const sqlite3_api_routines *pApi) {
  return goAutoInstall(db);
}

static int enable_auto_install(void) {
  return sqlite3_auto_extension((void(*)(void))auto_install);
}
*/
import "C"
import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"unsafe"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/niklasfasching/sqlitefts/tokenizer"
)

var (
	fts3Tokenizers tokenizer.Handles[*tokenizer.Fts3Tokenizer]
	fts3Cursors    tokenizer.Handles[*tokenizer.Fts3Cursor]
	fts5Contexts   tokenizer.Handles[*tokenizer.Entry]
	fts5Tokenizers tokenizer.Handles[*tokenizer.Fts5Tokenizer]
	snippets       tokenizer.Handles[tokenizer.Highlighter]
)

// FTS3 module tables are static; once registered with a connection a slot
// stays bound to its adaptor for the lifetime of the process.
var slots = struct {
	s []*tokenizer.Fts3
	sync.Mutex
}{}

var autoInstall sync.Once

const fts3Slots = C.FTS3_SLOTS

// Register adds e to the process registry and installs it into c. A new
// registry entry is removed again when the installation fails.
func Register(c *sqlite3.SQLiteConn, e tokenizer.Entry) error {
	re, added, err := tokenizer.Register(e)
	if err != nil {
		return err
	}
	db, err := connDB(c)
	if err == nil {
		err = install(db, re)
	}
	if err != nil && added {
		tokenizer.Unregister(e.Name)
	}
	return err
}

// Install installs the named registry entries (all of them if names is
// empty) into c.
func Install(c *sqlite3.SQLiteConn, names ...string) error {
	db, err := connDB(c)
	if err != nil {
		return err
	}
	return installAll(db, names)
}

func ConnectHook(names ...string) func(c *sqlite3.SQLiteConn) error {
	return func(c *sqlite3.SQLiteConn) error { return Install(c, names...) }
}

// AutoInstall installs all registry entries into every connection opened
// afterwards, regardless of the driver used to open it.
func AutoInstall() error {
	rc := C.int(C.SQLITE_OK)
	autoInstall.Do(func() { rc = C.enable_auto_install() })
	if rc != C.SQLITE_OK {
		return fmt.Errorf("%w: sqlite3_auto_extension returned %d", tokenizer.ErrRegistration, rc)
	}
	return nil
}

// Snippet installs an FTS5 auxiliary function name(table, col_idx) into c that
// highlights the matches of the current row using the table's tokenizer.
func Snippet(c *sqlite3.SQLiteConn, name string, h tokenizer.Highlighter) error {
	db, err := connDB(c)
	if err != nil {
		return err
	}
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	id := snippets.New(h)
	if rc := C.snippet_register(db, cName, C.uintptr_t(id)); rc != C.SQLITE_OK {
		snippets.Delete(id)
		return fmt.Errorf("%w: fts5 function %q: %s", tokenizer.ErrRegistration, name, errmsg(db, rc))
	}
	return nil
}

func installAll(db *C.sqlite3, names []string) error {
	if len(names) == 0 {
		names = tokenizer.Names()
	}
	for _, name := range names {
		e, ok := tokenizer.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: unknown tokenizer %q", tokenizer.ErrRegistration, name)
		} else if err := install(db, e); err != nil {
			return err
		}
	}
	return nil
}

func install(db *C.sqlite3, e *tokenizer.Entry) error {
	var err error
	switch a := e.Adaptor.(type) {
	case *tokenizer.Fts3:
		err = fts3Register(db, e.Name, a)
	case *tokenizer.Fts5:
		err = fts5Register(db, e)
	default:
		err = fmt.Errorf("%w: unsupported adaptor %T", tokenizer.ErrRegistration, e.Adaptor)
	}
	if err != nil {
		slog.Error("fts: failed to install tokenizer", "name", e.Name, "err", err.Error())
		return err
	}
	slog.Debug("fts: installed tokenizer", "name", e.Name, "protocol", tokenizer.Protocol(e.Adaptor))
	return nil
}

func fts3Register(db *C.sqlite3, name string, m *tokenizer.Fts3) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return bindFts3(m, func(slot int) error {
		if rc := C.fts3_register(db, cName, C.int(slot)); rc != C.SQLITE_OK {
			return fmt.Errorf("%w: fts3_tokenizer(%q): %s", tokenizer.ErrRegistration, name, errmsg(db, rc))
		}
		return nil
	})
}

// bindFts3 runs register with the slot bound to m. A slot bound for this call
// is released again when register fails, as no connection can reference it.
func bindFts3(m *tokenizer.Fts3, register func(slot int) error) error {
	slots.Lock()
	defer slots.Unlock()
	slot, fresh, err := fts3Slot(m)
	if err != nil {
		return err
	} else if err := register(slot); err != nil {
		if fresh {
			slots.s[slot] = nil
		}
		return err
	}
	return nil
}

// fts3Slot returns the slot of m, binding the first free one if m has none.
// Callers hold slots.
func fts3Slot(m *tokenizer.Fts3) (int, bool, error) {
	free := -1
	for i, v := range slots.s {
		if v == m {
			return i, false, nil
		} else if v == nil && free == -1 {
			free = i
		}
	}
	if free != -1 {
		slots.s[free] = m
		return free, true, nil
	} else if len(slots.s) == fts3Slots {
		return 0, false, fmt.Errorf("%w: all %d fts3 slots are in use", tokenizer.ErrRegistration, fts3Slots)
	}
	slots.s = append(slots.s, m)
	return len(slots.s) - 1, true, nil
}

func fts3Adaptor(slot int) (*tokenizer.Fts3, error) {
	slots.Lock()
	defer slots.Unlock()
	if slot < 0 || slot >= len(slots.s) || slots.s[slot] == nil {
		return nil, fmt.Errorf("%w: unknown fts3 slot %d", tokenizer.ErrProtocol, slot)
	}
	return slots.s[slot], nil
}

func fts5Register(db *C.sqlite3, e *tokenizer.Entry) error {
	cName := C.CString(e.Name)
	defer C.free(unsafe.Pointer(cName))
	id := fts5Contexts.New(e)
	if rc := C.fts5_register(db, cName, C.uintptr_t(id)); rc != C.SQLITE_OK {
		fts5Contexts.Delete(id)
		return fmt.Errorf("%w: fts5 tokenizer %q: %s", tokenizer.ErrRegistration, e.Name, errmsg(db, rc))
	}
	return nil
}

// connDB digs the sqlite3 handle out of the driver connection; mattn does not
// export it.
func connDB(c *sqlite3.SQLiteConn) (*C.sqlite3, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil connection", tokenizer.ErrRegistration)
	}
	v := reflect.ValueOf(c).Elem().FieldByName("db")
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("%w: connection has no sqlite3 handle", tokenizer.ErrRegistration)
	}
	return (*C.sqlite3)(v.UnsafePointer()), nil
}

func errmsg(db *C.sqlite3, rc C.int) string {
	return fmt.Sprintf("%s (%d)", C.GoString(C.sqlite3_errmsg(db)), rc)
}
