// Package ja segments Japanese text with the kagome morphological analyzer.
//
// Tokenizer arguments (e.g. `tokenize = 'ja ''dict=uni'' ''mode=search'' baseform'`)
// override the defaults from Config, which are read from SQLITEFTS_JA_* env vars.
package ja

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/niklasfasching/sqlitefts/tokenizer"
	"github.com/niklasfasching/sqlitefts/util"
	"golang.org/x/text/unicode/norm"
)

type Config struct {
	Dict     string // ipa, uni or the path of a kagome dictionary file
	UserDict string
	Mode     string // normal, search or extended
	BaseForm bool   // add base forms as colocated tokens when indexing
	Width    bool   // NFKC fold full/half width characters
	Stop     []string
}

type Tokenizer struct {
	t    *kagome.Tokenizer
	mode kagome.TokenizeMode
	Config
}

var dicts = struct {
	m map[string]*dict.Dict
	sync.Mutex
}{m: map[string]*dict.Dict{}}

var modes = map[string]kagome.TokenizeMode{
	"normal":   kagome.Normal,
	"search":   kagome.Search,
	"extended": kagome.Extended,
}

func DefaultConfig() (Config, error) {
	c := Config{Dict: "ipa", Mode: "normal"}
	return c, util.LoadConfig("SQLITEFTS_JA_", &c)
}

// Factory builds a Tokenizer. ctx may be a Config (or *Config) to use instead
// of DefaultConfig.
func Factory(ctx any, args []string) (tokenizer.Engine, error) {
	var c Config
	switch v := ctx.(type) {
	case Config:
		c = v
	case *Config:
		c = *v
	case nil:
		dc, err := DefaultConfig()
		if err != nil {
			return nil, err
		}
		c = dc
	default:
		return nil, fmt.Errorf("unsupported ja context %T", ctx)
	}
	if err := c.Parse(args); err != nil {
		return nil, err
	}
	return New(c)
}

// Parse applies tokenizer arguments of the form k=v (or k for booleans).
func (c *Config) Parse(args []string) error {
	for _, arg := range args {
		k, v, hasV := strings.Cut(arg, "=")
		switch k {
		case "dict":
			c.Dict = v
		case "userdict":
			c.UserDict = v
		case "mode":
			c.Mode = v
		case "baseform":
			c.BaseForm = !hasV || v == "1" || v == "true"
		case "width":
			c.Width = !hasV || v == "1" || v == "true"
		case "stop":
			c.Stop = strings.Split(v, ",")
		default:
			return fmt.Errorf("unknown ja tokenizer argument %q", arg)
		}
	}
	return nil
}

func New(c Config) (*Tokenizer, error) {
	mode, ok := modes[c.Mode]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", c.Mode)
	}
	d, err := loadDict(c.Dict)
	if err != nil {
		return nil, err
	}
	opts := []kagome.Option{kagome.OmitBosEos()}
	if c.UserDict != "" {
		ud, err := dict.NewUserDict(c.UserDict)
		if err != nil {
			return nil, fmt.Errorf("failed to parse user dict %q: %w", c.UserDict, err)
		}
		opts = append(opts, kagome.UserDict(ud))
	}
	t, err := kagome.New(d, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kagome tokenizer: %w", err)
	}
	return &Tokenizer{t, mode, c}, nil
}

// Tokenize emits surfaces with their byte spans. White space and stop parts of
// speech are skipped. kagome's Analyze is safe for concurrent use, so one
// Tokenizer serves all cursors of a table.
func (t *Tokenizer) Tokenize(text string, flags tokenizer.Flag, emit func(tokenizer.Token) error) error {
	off := 0
	for _, tok := range t.t.Analyze(text, t.mode) {
		if tok.Class == kagome.DUMMY || tok.Surface == "" {
			continue
		}
		i := strings.Index(text[off:], tok.Surface)
		if i == -1 {
			return fmt.Errorf("surface %q not found after offset %d", tok.Surface, off)
		}
		start, end := off+i, off+i+len(tok.Surface)
		off = end
		if strings.TrimSpace(tok.Surface) == "" || t.stop(tok.POS()) {
			continue
		}
		s := tok.Surface
		if t.Width {
			s = norm.NFKC.String(s)
		}
		if err := emit(tokenizer.Token{Text: s, Start: start, End: end}); err != nil {
			return err
		}
		if t.BaseForm && flags&tokenizer.TokenizeDocument != 0 {
			if bf, ok := tok.BaseForm(); ok && bf != "*" && bf != s {
				if err := emit(tokenizer.Token{Text: bf, Start: start, End: end, Colocated: true}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (t *Tokenizer) stop(pos []string) bool {
	if len(pos) == 0 {
		return false
	} else if len(pos) > 1 && pos[0] == "記号" && pos[1] == "空白" {
		return true
	}
	return slices.Contains(t.Stop, pos[0])
}

func loadDict(name string) (*dict.Dict, error) {
	dicts.Lock()
	defer dicts.Unlock()
	if d, ok := dicts.m[name]; ok {
		return d, nil
	}
	var d *dict.Dict
	switch name {
	case "ipa", "":
		d = ipa.Dict()
	case "uni":
		d = uni.Dict()
	default:
		v, err := dict.LoadDictFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load dict %q: %w", name, err)
		}
		d = v
	}
	dicts.m[name] = d
	return d, nil
}
