package sq

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

var defaultFuncs = map[string]any{
	"re_extract": PureFunc{regexpExtract},
	"dt":         PureFunc{timeDT},
}
var regexpExtractRegexps = struct {
	m map[string]*regexp.Regexp
	sync.Mutex
}{m: map[string]*regexp.Regexp{}}
var sqlNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// TokenizeArg renders a tokenizer name and its arguments as expected by the
// tokenize option of FTS4 and FTS5 tables. Arguments are sql string literals:
// both modules split barewords on anything that is not a word char (dict=uni
// would arrive as dict, uni) and FTS5 only accepts single quoted literals.
// FTS5Table and FTSIndex quote the result once more as the option value.
func TokenizeArg(name string, args ...string) string {
	vs := []string{name}
	for _, arg := range args {
		vs = append(vs, quote(arg))
	}
	return strings.Join(vs, " ")
}

func FTS4Table(name, tokenize string, cols ...string) (string, error) {
	cs, err := idents(append([]string{name}, cols...))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts4(%s, tokenize=%s)",
		cs[0], strings.Join(cs[1:], ", "), tokenize), nil
}

func FTS5Table(name, tokenize string, cols ...string) (string, error) {
	cs, err := idents(append([]string{name}, cols...))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, tokenize = %s)",
		cs[0], strings.Join(cs[1:], ", "), quote(tokenize)), nil
}

// FTSIndex creates an external content FTS5 index of table and the triggers
// that keep it in sync.
func FTSIndex(name, table, id, tokenize string, cols ...string) (string, error) {
	cs, err := idents(append([]string{name, table, id}, cols...))
	if err != nil {
		return "", err
	}
	n, t, rowid, cols := cs[0], cs[1], cs[2], cs[3:]
	news, olds := prefixed("new.", rowid, cols), prefixed("old.", rowid, cols)
	all := strings.Join(append([]string{"rowid"}, cols...), ", ")
	return fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s USING fts5(%[3]s, content=%[2]s, content_rowid=%[4]s, tokenize = %[5]s);
CREATE TRIGGER IF NOT EXISTS %[6]s AFTER INSERT ON %[2]s BEGIN
  INSERT INTO %[1]s (%[7]s) VALUES (%[8]s);
END;
CREATE TRIGGER IF NOT EXISTS %[9]s AFTER DELETE ON %[2]s BEGIN
  INSERT INTO %[1]s (%[1]s, %[7]s) VALUES ('delete', %[10]s);
END;
CREATE TRIGGER IF NOT EXISTS %[11]s AFTER UPDATE ON %[2]s BEGIN
  INSERT INTO %[1]s (%[1]s, %[7]s) VALUES ('delete', %[10]s);
  INSERT INTO %[1]s (%[7]s) VALUES (%[8]s);
END;`,
		n, quote(strings.Trim(t, "`")), strings.Join(cols, ", "), quote(strings.Trim(rowid, "`")), quote(tokenize),
		"`"+strings.Trim(n, "`")+"_ai`", all, news,
		"`"+strings.Trim(n, "`")+"_ad`", olds,
		"`"+strings.Trim(n, "`")+"_au`"), nil
}

// Match returns the rowids of the rows of the FTS table matching q.
func Match(ctx context.Context, c Connection, table, q string) ([]int64, error) {
	t, err := ident(table)
	if err != nil {
		return nil, err
	}
	return QueryContext[int64](ctx, c, fmt.Sprintf("SELECT rowid FROM %[1]s WHERE %[1]s MATCH ? ORDER BY rowid", t), q)
}

func prefixed(prefix, rowid string, cols []string) string {
	vs := []string{prefix + rowid}
	for _, c := range cols {
		vs = append(vs, prefix+c)
	}
	return strings.Join(vs, ", ")
}

func idents(vs []string) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, err := ident(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func ident(v string) (string, error) {
	if !sqlNameRe.MatchString(v) {
		return "", fmt.Errorf("(%q) is not a valid sql identifier", v)
	}
	return "`" + v + "`", nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func regexpExtract(input, regexpString string, i int) (string, error) {
	regexpExtractRegexps.Lock()
	defer regexpExtractRegexps.Unlock()
	r, err := regexpExtractRegexps.m[regexpString], error(nil)
	if r == nil {
		r, err = regexp.Compile(regexpString)
		if err != nil {
			return "", err
		}
		regexpExtractRegexps.m[regexpString] = r
	}
	if m := r.FindStringSubmatch(input); len(m) > i {
		return m[i], nil
	}
	return "", nil
}

func timeDT(duration string) (string, error) {
	d, err := time.ParseDuration(duration)
	if err != nil {
		return "", err
	}
	return time.Now().Add(d).Format(time.RFC3339Nano), nil
}
